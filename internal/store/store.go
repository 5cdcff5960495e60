// Package store provides the unit of work that groups account and journal operations
// into one all-or-nothing transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/accountrepo"
	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/journalrepo"
	"github.com/go-petr/pet-pay/pkg/dbpkg"
	"github.com/go-petr/pet-pay/pkg/errorspkg"
)

// DefaultLockTimeout bounds the wait for an account lock.
const DefaultLockTimeout = 5 * time.Second

// AccountQuerier is the account ledger.
type AccountQuerier interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (domain.Account, error)
	LockAndGet(ctx context.Context, id int64) (domain.Account, error)
	ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	Exists(ctx context.Context, accountNumber string) (bool, error)
	SoftDelete(ctx context.Context, id int64) error
}

// JournalQuerier is the append-only transaction journal.
type JournalQuerier interface {
	Append(ctx context.Context, rec domain.TransactionRecord) (domain.TransactionRecord, error)
	Find(ctx context.Context, transactionID string) (domain.TransactionRecord, error)
	Query(ctx context.Context, f domain.TransactionFilter, p domain.PageParams) (domain.TransactionPage, error)
}

// Querier provides all queries, either standalone or bound to a unit of work.
type Querier interface {
	AccountQuerier
	JournalQuerier
}

// Store provides all queries and the unit of work.
type Store interface {
	Querier
	// ExecTx runs fn inside one unit of work. Locks taken through the Querier passed to
	// fn are held until ExecTx returns. If fn returns an error nothing it did is kept.
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// Queries binds the Postgres repositories to one connection or transaction.
type Queries struct {
	AccountQuerier
	JournalQuerier
}

// NewQueries returns Queries running on db.
func NewQueries(db dbpkg.SQLInterface) Queries {
	return Queries{
		AccountQuerier: accountrepo.NewRepoPGS(db),
		JournalQuerier: journalrepo.NewRepoPGS(db),
	}
}

// SQLStore provides all queries and transactions on a Postgres database.
type SQLStore struct {
	Queries
	db          *sql.DB
	lockTimeout time.Duration
}

// NewSQLStore returns a SQLStore. A non positive lockTimeout falls back to DefaultLockTimeout.
func NewSQLStore(db *sql.DB, lockTimeout time.Duration) *SQLStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &SQLStore{
		Queries:     NewQueries(db),
		db:          db,
		lockTimeout: lockTimeout,
	}
}

// ExecTx executes fn within a database transaction.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		// Rollback after Commit is a no-op returning sql.ErrTxDone.
		_ = tx.Rollback()
	}()

	setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, setTimeout); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if err := fn(NewQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}
