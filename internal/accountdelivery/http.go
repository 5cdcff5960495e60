// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/middleware"
	"github.com/go-petr/pet-pay/pkg/tokenpkg"
	"github.com/go-petr/pet-pay/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Open(ctx context.Context, kind domain.OwnerKind, ownerName, currency string) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	Close(ctx context.Context, id int64) error
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service       Service
	tokenMaker    tokenpkg.Maker
	tokenDuration time.Duration
}

// NewHandler returns account handler.
func NewHandler(as Service, tokenMaker tokenpkg.Maker, tokenDuration time.Duration) Handler {
	return Handler{
		service:       as,
		tokenMaker:    tokenMaker,
		tokenDuration: tokenDuration,
	}
}

type data struct {
	Account domain.Account `json:"account"`
}

type tokenData struct {
	Account              *domain.Account `json:"account,omitempty"`
	AccessToken          string          `json:"access_token"`
	AccessTokenExpiresAt time.Time       `json:"access_token_expires_at"`
}

type createRequest struct {
	OwnerKind string `json:"owner_kind" binding:"required,ownerkind"`
	OwnerName string `json:"owner_name" binding:"required,max=255"`
	Currency  string `json:"currency" binding:"required,currency"`
}

// Create handles http request to open an account and returns it with an access token.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	account, err := h.service.Open(ctx, domain.OwnerKind(req.OwnerKind), req.OwnerName, req.Currency)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	token, payload, err := h.tokenMaker.CreateToken(string(account.OwnerKind), account.ID, h.tokenDuration)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: tokenData{
		Account:              &account,
		AccessToken:          token,
		AccessTokenExpiresAt: payload.ExpiredAt,
	}})
}

// Get handles http request to get the caller's account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	p := middleware.PrincipalFrom(gctx)

	account, err := h.service.Get(ctx, p.AccountID)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{account}})
}

// Delete handles http request to close the caller's account.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	p := middleware.PrincipalFrom(gctx)

	if err := h.service.Close(ctx, p.AccountID); err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	zerolog.Ctx(ctx).Info().Int64("account_id", p.AccountID).Msg("account closed")
	gctx.Status(http.StatusNoContent)
}

// RenewToken handles http request to issue a fresh access token for the caller.
func (h *Handler) RenewToken(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	p := middleware.PrincipalFrom(gctx)

	if _, err := h.service.Get(ctx, p.AccountID); err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	token, payload, err := h.tokenMaker.CreateToken(string(p.Kind), p.AccountID, h.tokenDuration)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: tokenData{
		AccessToken:          token,
		AccessTokenExpiresAt: payload.ExpiredAt,
	}})
}
