package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/idempotency"
	"github.com/go-petr/pet-pay/pkg/randompkg"
	"github.com/go-petr/pet-pay/pkg/tokenpkg"
	"github.com/go-petr/pet-pay/pkg/web"
)

func newIdempotentServer(t *testing.T, status int) (*gin.Engine, tokenpkg.Maker, *int32) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	var calls int32

	server := gin.New()
	server.POST("/transfers",
		AuthMiddleware(tokenMaker),
		Idempotency(idempotency.NewRedisCache(client, time.Hour)),
		func(gctx *gin.Context) {
			n := atomic.AddInt32(&calls, 1)
			gctx.JSON(status, web.Response{Data: n})
		})

	return server, tokenMaker, &calls
}

func doRequest(t *testing.T, server *gin.Engine, maker tokenpkg.Maker, p domain.Principal, key string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(http.MethodPost, "/transfers", nil)
	require.NoError(t, AddAuthorization(request, maker, AuthTypeBearer, p, time.Minute))

	if key != "" {
		request.Header.Set(IdempotencyKeyHeader, key)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	return recorder
}

func TestIdempotencyReplay(t *testing.T) {
	server, maker, calls := newIdempotentServer(t, http.StatusCreated)
	user := domain.Principal{Kind: domain.OwnerUser, AccountID: 1}

	first := doRequest(t, server, maker, user, "key-1")
	second := doRequest(t, server, maker, user, "key-1")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Empty(t, first.Header().Get(IdempotencyHitHeader))
	assert.Equal(t, "true", second.Header().Get(IdempotencyHitHeader))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestIdempotencyKeysAreScopedToPrincipal(t *testing.T) {
	server, maker, calls := newIdempotentServer(t, http.StatusCreated)

	doRequest(t, server, maker, domain.Principal{Kind: domain.OwnerUser, AccountID: 1}, "shared")
	doRequest(t, server, maker, domain.Principal{Kind: domain.OwnerUser, AccountID: 2}, "shared")

	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestIdempotencyWithoutKey(t *testing.T) {
	server, maker, calls := newIdempotentServer(t, http.StatusCreated)
	user := domain.Principal{Kind: domain.OwnerUser, AccountID: 1}

	doRequest(t, server, maker, user, "")
	doRequest(t, server, maker, user, "")

	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestIdempotencyServerErrorIsNotStored(t *testing.T) {
	server, maker, calls := newIdempotentServer(t, http.StatusInternalServerError)
	user := domain.Principal{Kind: domain.OwnerUser, AccountID: 1}

	doRequest(t, server, maker, user, "retry-me")
	second := doRequest(t, server, maker, user, "retry-me")

	assert.Empty(t, second.Header().Get(IdempotencyHitHeader))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}
