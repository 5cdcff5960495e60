// Package httpserver manages server creation and api routing.
package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/accountdelivery"
	"github.com/go-petr/pet-pay/internal/accountservice"
	"github.com/go-petr/pet-pay/internal/allocator"
	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/idempotency"
	"github.com/go-petr/pet-pay/internal/middleware"
	"github.com/go-petr/pet-pay/internal/paymentcodec"
	"github.com/go-petr/pet-pay/internal/paymentdelivery"
	"github.com/go-petr/pet-pay/internal/paymentservice"
	"github.com/go-petr/pet-pay/internal/store"
	"github.com/go-petr/pet-pay/pkg/configpkg"
	"github.com/go-petr/pet-pay/pkg/currencypkg"
	"github.com/go-petr/pet-pay/pkg/randompkg"
	"github.com/go-petr/pet-pay/pkg/tokenpkg"
)

// Server holds the store, handlers router and configuration.
type Server struct {
	Store      store.Store
	Engine     *gin.Engine
	Config     configpkg.Config
	TokenMaker tokenpkg.Maker
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

type options struct {
	cache middleware.IdempotencyCache
}

// Option configures New.
type Option func(*options)

// WithIdempotencyCache replaces the redis cache built from REDIS_ADDRESS.
func WithIdempotencyCache(cache middleware.IdempotencyCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// New creates Server type with instantiated domains and routes.
func New(st store.Store, logger zerolog.Logger, config configpkg.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	tokenMaker, err := tokenpkg.New(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	codec, err := paymentcodec.New(config.PayloadCodec, config.PayloadSecretKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create payload codec: %w", err)
	}

	initialBalance, err := decimal.NewFromString(config.UserInitialBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid user initial balance: %w", err)
	}

	if o.cache == nil && config.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		o.cache = idempotency.NewRedisCache(client, config.IdempotencyTTL)
	}

	if o.cache == nil {
		logger.Warn().Msg("idempotency cache is not configured, Idempotency-Key headers are ignored")
	}

	numbers := allocator.New(st, randompkg.CryptoSource{}, config.AllocatorAttempts)

	accountService := accountservice.New(st, numbers, accountservice.Config{
		UserPrefix:         config.UserAccountPrefix,
		MerchantPrefix:     config.MerchantPrefix,
		UserInitialBalance: initialBalance,
	})
	paymentService := paymentservice.New(st, codec)

	accountHandler := accountdelivery.NewHandler(accountService, tokenMaker, config.AccessTokenDuration)
	paymentHandler := paymentdelivery.NewHandler(paymentService)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("currency", currencypkg.ValidCurrency); err != nil {
			return nil, errors.New("cannot register currency validator")
		}

		if err := v.RegisterValidation("ownerkind", accountdelivery.ValidOwnerKind); err != nil {
			return nil, errors.New("cannot register owner kind validator")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/accounts", accountHandler.Create)

	auth := middleware.AuthMiddleware(tokenMaker)
	authRoutes := engine.Group("/").Use(auth)

	authRoutes.GET("/accounts/me", accountHandler.Get)
	authRoutes.DELETE("/accounts/me", accountHandler.Delete)
	authRoutes.POST("/accounts/me/token", accountHandler.RenewToken)

	authRoutes.GET("/transactions", paymentHandler.History)
	authRoutes.GET("/transactions/:id", paymentHandler.Find)

	idempotent := []gin.HandlerFunc{auth}
	if o.cache != nil {
		idempotent = append(idempotent, middleware.Idempotency(o.cache))
	}

	engine.Group("/").Use(idempotent...).POST("/transfers", paymentHandler.Transfer)

	userOnly := engine.Group("/").Use(auth, middleware.RequireKind(domain.OwnerUser))
	userOnly.POST("/payments/payload", paymentHandler.GeneratePayload)

	userIdempotent := append([]gin.HandlerFunc{auth, middleware.RequireKind(domain.OwnerUser)}, idempotent[1:]...)
	userIdempotentRoutes := engine.Group("/").Use(userIdempotent...)
	userIdempotentRoutes.POST("/payments/process", paymentHandler.ProcessPayload)
	userIdempotentRoutes.POST("/fund", paymentHandler.Fund)

	server := &Server{
		Store:      st,
		Engine:     engine,
		Config:     config,
		TokenMaker: tokenMaker,
	}

	return server, nil
}
