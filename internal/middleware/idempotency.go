package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-pay/internal/idempotency"
	"github.com/go-petr/pet-pay/pkg/web"
)

// Idempotency headers.
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"
)

// ErrRequestInProgress is returned while a request with the same key is still running.
var ErrRequestInProgress = errors.New("a request with this idempotency key is in progress")

// IdempotencyCache stores responses by idempotency key.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (idempotency.Response, bool, error)
	Reserve(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key string, resp idempotency.Response) error
	Release(ctx context.Context, key string) error
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request repeated with the same
// Idempotency-Key header. Keys are scoped to the authenticated principal, so it must
// run after AuthMiddleware. Requests without the header pass through.
// Server errors are not stored and release the key for a retry.
func Idempotency(cache IdempotencyCache) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		header := gctx.GetHeader(IdempotencyKeyHeader)
		if header == "" {
			gctx.Next()
			return
		}

		ctx := gctx.Request.Context()
		l := zerolog.Ctx(ctx)

		p := PrincipalFrom(gctx)
		key := fmt.Sprintf("%d:%s:%s:%s", p.AccountID, gctx.Request.Method, gctx.FullPath(), header)

		cached, found, err := cache.Get(ctx, key)
		if err != nil {
			// The cache is an optimisation; the request still runs.
			l.Error().Err(err).Str("idempotency_key", header).Send()
			gctx.Next()

			return
		}

		if found {
			if cached.Pending() {
				gctx.AbortWithStatusJSON(http.StatusConflict, web.Error(ErrRequestInProgress))
				return
			}

			l.Info().Str("idempotency_key", header).Msg("replaying cached response")
			gctx.Header(IdempotencyHitHeader, "true")
			gctx.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
			gctx.Abort()

			return
		}

		reserved, err := cache.Reserve(ctx, key)
		if err != nil {
			l.Error().Err(err).Str("idempotency_key", header).Send()
			gctx.Next()

			return
		}

		if !reserved {
			gctx.AbortWithStatusJSON(http.StatusConflict, web.Error(ErrRequestInProgress))
			return
		}

		recorder := bodyRecorder{ResponseWriter: gctx.Writer, body: &bytes.Buffer{}}
		gctx.Writer = recorder

		gctx.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			if err := cache.Release(ctx, key); err != nil {
				l.Error().Err(err).Str("idempotency_key", header).Send()
			}

			return
		}

		resp := idempotency.Response{Status: status, Body: recorder.body.Bytes()}
		if err := cache.Complete(ctx, key, resp); err != nil {
			l.Error().Err(err).Str("idempotency_key", header).Send()
		}
	}
}
