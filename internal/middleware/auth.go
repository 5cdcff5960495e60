package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/tokenpkg"
	"github.com/go-petr/pet-pay/pkg/web"
)

// Authorization header parameters.
const (
	AuthHeaderKey  = "authorization"
	AuthTypeBearer = "bearer"
	AuthPayloadKey = "authorization_payload"
)

// Auth errors.
var (
	ErrAuthHeaderNotFound  = errors.New("authorization header is not provided")
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
	ErrForbiddenOwnerKind  = errors.New("operation is not allowed for this account kind")
)

// AddAuthorization creates a token for the principal and sets it as the request authorization header.
func AddAuthorization(r *http.Request, tokenMaker tokenpkg.Maker, authType string, p domain.Principal, duration time.Duration) error {
	token, _, err := tokenMaker.CreateToken(string(p.Kind), p.AccountID, duration)
	if err != nil {
		return err
	}

	r.Header.Set(AuthHeaderKey, fmt.Sprintf("%s %s", authType, token))

	return nil
}

// AuthMiddleware verifies the bearer token and stores the resolved domain.Principal in the gin context.
func AuthMiddleware(tokenMaker tokenpkg.Maker) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		l := zerolog.Ctx(gctx.Request.Context())

		authHeader := gctx.GetHeader(AuthHeaderKey)
		if len(authHeader) == 0 {
			l.Info().Err(ErrAuthHeaderNotFound).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))

			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 {
			l.Info().Err(ErrBadAuthHeaderFormat).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))

			return
		}

		authType := strings.ToLower(fields[0])
		if authType != AuthTypeBearer {
			l.Info().Err(ErrUnsupportedAuthType).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))

			return
		}

		payload, err := tokenMaker.VerifyToken(fields[1])
		if err != nil {
			l.Info().Err(err).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))

			return
		}

		p := domain.Principal{Kind: domain.OwnerKind(payload.Kind), AccountID: payload.AccountID}
		if !p.Kind.Valid() || p.AccountID <= 0 {
			l.Info().Err(tokenpkg.ErrInvalidToken).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(tokenpkg.ErrInvalidToken))

			return
		}

		gctx.Set(AuthPayloadKey, p)
		gctx.Next()
	}
}

// PrincipalFrom returns the principal stored by AuthMiddleware.
func PrincipalFrom(gctx *gin.Context) domain.Principal {
	return gctx.MustGet(AuthPayloadKey).(domain.Principal)
}

// RequireKind rejects principals of any other owner kind with 403.
func RequireKind(kind domain.OwnerKind) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if PrincipalFrom(gctx).Kind != kind {
			gctx.AbortWithStatusJSON(http.StatusForbidden, web.Error(ErrForbiddenOwnerKind))
			return
		}

		gctx.Next()
	}
}
