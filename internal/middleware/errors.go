package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/errorspkg"
	"github.com/go-petr/pet-pay/pkg/web"
)

// StatusOf maps err to the HTTP status reported to clients.
func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindInsufficientFunds, domain.KindInvalidRequest, domain.KindPayloadDecodeFailure:
		return http.StatusBadRequest
	case domain.KindDuplicateAccount:
		return http.StatusConflict
	case domain.KindBusy:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// WriteError responds with the status of err. Internal errors are logged and hidden.
func WriteError(gctx *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		gctx.JSON(status, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(status, web.Error(err))
}
