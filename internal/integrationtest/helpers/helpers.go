// Package helpers provides seeding and fixture helpers shared by tests.
package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/accountrepo"
	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/currencypkg"
	"github.com/go-petr/pet-pay/pkg/dbpkg"
	"github.com/go-petr/pet-pay/pkg/randompkg"
)

// AccountNumber returns a random account number with the given prefix.
func AccountNumber(prefix string) string {
	return fmt.Sprintf("%s%09d", prefix, randompkg.IntBetween(100_000_000, 999_999_999))
}

func prefixOf(kind domain.OwnerKind) string {
	if kind == domain.OwnerMerchant {
		return "3"
	}

	return "2"
}

// RandomAccount returns a random NGN account of the given kind without persisting it.
func RandomAccount(kind domain.OwnerKind) domain.Account {
	now := time.Now().Truncate(time.Second).UTC()

	return domain.Account{
		ID:            randompkg.IntBetween(1, 1000),
		OwnerKind:     kind,
		OwnerName:     randompkg.Owner(),
		AccountNumber: AccountNumber(prefixOf(kind)),
		Balance:       randompkg.MoneyAmountBetween(1000, 10_000),
		Currency:      currencypkg.NGN,
		AuditInfo: domain.AuditInfo{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// SeedAccount creates an NGN account of the given kind and balance.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface, kind domain.OwnerKind, balance decimal.Decimal) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		OwnerKind:     kind,
		OwnerName:     randompkg.Owner(),
		AccountNumber: AccountNumber(prefixOf(kind)),
		Balance:       balance,
		Currency:      currencypkg.NGN,
	}

	account, err := accountrepo.NewRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}
