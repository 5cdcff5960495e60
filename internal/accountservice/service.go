// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/currencypkg"
)

// maxCreateAttempts bounds retries when a generated number is claimed concurrently.
const maxCreateAttempts = 3

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	SoftDelete(ctx context.Context, id int64) error
}

// NumberGenerator allocates unused account numbers.
type NumberGenerator interface {
	Generate(ctx context.Context, prefix string) (string, error)
}

// Config holds account opening parameters.
type Config struct {
	UserPrefix         string
	MerchantPrefix     string
	UserInitialBalance decimal.Decimal
}

// Service facilitates account service layer logic.
type Service struct {
	repo    Repo
	numbers NumberGenerator
	config  Config
}

// New returns account service struct to manage account bussines logic.
func New(repo Repo, numbers NumberGenerator, config Config) *Service {
	return &Service{
		repo:    repo,
		numbers: numbers,
		config:  config,
	}
}

// Open creates an account of the given kind with a freshly allocated account number.
// User accounts start with the configured initial balance, merchant accounts with zero.
func (s *Service) Open(ctx context.Context, kind domain.OwnerKind, ownerName, currency string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !kind.Valid() {
		return domain.Account{}, domain.ErrInvalidOwnerKind
	}

	if !currencypkg.IsSupportedCurrency(currency) {
		return domain.Account{}, domain.ErrUnsupportedCurrency
	}

	prefix, balance := s.config.MerchantPrefix, decimal.Zero
	if kind == domain.OwnerUser {
		prefix, balance = s.config.UserPrefix, s.config.UserInitialBalance
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		number, err := s.numbers.Generate(ctx, prefix)
		if err != nil {
			return domain.Account{}, err
		}

		account, err := s.repo.Create(ctx, domain.CreateAccountParams{
			OwnerKind:     kind,
			OwnerName:     ownerName,
			AccountNumber: number,
			Balance:       balance,
			Currency:      currency,
		})
		if errors.Is(err, domain.ErrDuplicateAccount) {
			l.Info().Err(err).Str("account_number", number).Msg("account number taken, retrying")
			continue
		}

		return account, err
	}

	return domain.Account{}, domain.ErrAllocationExhausted
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int64) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// Close soft deletes the account. Its journal records are kept.
func (s *Service) Close(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}
