// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/dbpkg"
	"github.com/go-petr/pet-pay/pkg/errorspkg"
)

const (
	balanceCheck     = "accounts_balance_check"
	accountNumberKey = "accounts_account_number_key"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, owner_kind, owner_name, account_number, balance, currency, created_at, updated_at, deleted`

func scanAccount(row interface{ Scan(dest ...any) error }) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.OwnerKind,
		&a.OwnerName,
		&a.AccountNumber,
		&a.Balance,
		&a.Currency,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Deleted,
	)

	return a, err
}

const createQuery = `
INSERT INTO
    accounts (owner_kind, owner_name, account_number, balance, currency)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING ` + accountColumns

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.OwnerKind,
		arg.OwnerName,
		arg.AccountNumber,
		arg.Balance,
		arg.Currency,
	)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		switch dbpkg.ConstraintName(err) {
		case accountNumberKey:
			return domain.Account{}, domain.ErrDuplicateAccount
		case balanceCheck:
			return domain.Account{}, domain.ErrInvalidAmount
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1 AND NOT deleted
`

// Get returns the live account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	return r.getOne(ctx, getQuery, id)
}

const getByNumberQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE account_number = $1 AND NOT deleted
`

// GetByNumber returns the live account with the given account number.
func (r *RepoPGS) GetByNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return r.getOne(ctx, getByNumberQuery, accountNumber)
}

const lockQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1 AND NOT deleted
FOR NO KEY UPDATE
`

// LockAndGet returns the account and holds its row lock until the enclosing
// transaction ends. It blocks while another transaction holds the lock.
func (r *RepoPGS) LockAndGet(ctx context.Context, id int64) (domain.Account, error) {
	return r.getOne(ctx, lockQuery, id)
}

func (r *RepoPGS) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Err(err).Send()
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, mapLockErr(err)
	}

	return a, nil
}

const applyDeltaQuery = `
UPDATE accounts
SET balance = balance + $1, updated_at = now()
WHERE id = $2 AND NOT deleted
RETURNING balance
`

// ApplyDelta adds the signed delta to the balance and returns the new balance.
//
// The caller must hold the row lock. A debit below zero violates accounts_balance_check
// and is reported as domain.ErrInsufficientBalance.
func (r *RepoPGS) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	var balance decimal.Decimal

	err := r.db.QueryRowContext(ctx, applyDeltaQuery, delta, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Err(err).Send()
			return balance, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		if dbpkg.ConstraintName(err) == balanceCheck {
			return balance, domain.ErrInsufficientBalance
		}

		return balance, mapLockErr(err)
	}

	return balance, nil
}

const existsQuery = `
SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)
`

// Exists reports whether the account number is taken, soft deleted accounts included.
func (r *RepoPGS) Exists(ctx context.Context, accountNumber string) (bool, error) {
	l := zerolog.Ctx(ctx)

	var exists bool

	if err := r.db.QueryRowContext(ctx, existsQuery, accountNumber).Scan(&exists); err != nil {
		l.Error().Err(err).Send()
		return false, errorspkg.ErrInternal
	}

	return exists, nil
}

const softDeleteQuery = `
UPDATE accounts
SET deleted = true, updated_at = now()
WHERE id = $1 AND NOT deleted
`

// SoftDelete marks the account deleted. Its number stays reserved and its journal stays intact.
func (r *RepoPGS) SoftDelete(ctx context.Context, id int64) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, softDeleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func mapLockErr(err error) error {
	switch dbpkg.ErrorCode(err) {
	case dbpkg.CodeLockNotAvailable, dbpkg.CodeQueryCanceled:
		return domain.ErrLockTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrLockTimeout
	}

	return errorspkg.ErrInternal
}
