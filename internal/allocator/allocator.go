// Package allocator generates unique virtual account numbers.
package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-pay/internal/domain"
)

const (
	suffixBase  = 100_000_000
	suffixRange = 900_000_000

	// DefaultMaxAttempts bounds the number of candidates tried by Generate.
	DefaultMaxAttempts = 10
)

// ErrInvalidPrefix indicates an empty account number prefix.
var ErrInvalidPrefix = errors.New("account number prefix is empty")

// RandomSource provides uniformly distributed integers in [0, n).
type RandomSource interface {
	Intn(n int) int
}

// Ledger reports whether an account number is already taken.
//
//go:generate mockgen -source allocator.go -destination allocator_mock.go -package allocator
type Ledger interface {
	Exists(ctx context.Context, accountNumber string) (bool, error)
}

// Allocator produces account numbers of the form prefix followed by a 9 digit suffix.
type Allocator struct {
	ledger      Ledger
	random      RandomSource
	maxAttempts int
}

// New returns an Allocator. A non positive maxAttempts falls back to DefaultMaxAttempts.
func New(ledger Ledger, random RandomSource, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Allocator{
		ledger:      ledger,
		random:      random,
		maxAttempts: maxAttempts,
	}
}

// Generate returns an account number not present in the ledger.
//
// Candidates repeated within one call are skipped without a ledger probe but still use
// up an attempt. The probe is not a reservation: a concurrent caller may still claim the
// same number, which the ledger's unique constraint rejects on insert.
func (a *Allocator) Generate(ctx context.Context, prefix string) (string, error) {
	l := zerolog.Ctx(ctx)

	if prefix == "" {
		return "", ErrInvalidPrefix
	}

	seen := make(map[string]struct{}, a.maxAttempts)

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%09d", prefix, suffixBase+a.random.Intn(suffixRange))

		if _, ok := seen[candidate]; ok {
			continue
		}

		seen[candidate] = struct{}{}

		exists, err := a.ledger.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}

		if !exists {
			return candidate, nil
		}

		l.Debug().Str("candidate", candidate).Msg("account number taken")
	}

	l.Warn().Str("prefix", prefix).Int("attempts", a.maxAttempts).Msg("account number allocation exhausted")

	return "", domain.ErrAllocationExhausted
}
