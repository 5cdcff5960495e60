// Package journalrepo manages repository layer of the append-only transaction journal.
package journalrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/dbpkg"
	"github.com/go-petr/pet-pay/pkg/errorspkg"
)

// RepoPGS facilitates journal repository layer logic. It never updates or deletes records.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns journal RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const recordColumns = `
	id, transaction_id, payer_id, payee_id, amount, currency, description,
	payer_balance_before, payer_balance_after, payee_balance_before, payee_balance_after,
	status, status_message, created_at`

func scanRecord(row interface{ Scan(dest ...any) error }) (domain.TransactionRecord, error) {
	var (
		r       domain.TransactionRecord
		payeeID sql.NullInt64
	)

	err := row.Scan(
		&r.ID,
		&r.TransactionID,
		&r.PayerID,
		&payeeID,
		&r.Amount,
		&r.Currency,
		&r.Description,
		&r.PayerBalanceBefore,
		&r.PayerBalanceAfter,
		&r.PayeeBalanceBefore,
		&r.PayeeBalanceAfter,
		&r.Status,
		&r.StatusMessage,
		&r.CreatedAt,
	)

	if payeeID.Valid {
		r.PayeeID = &payeeID.Int64
	}

	return r, err
}

const appendQuery = `
INSERT INTO
    transactions (transaction_id, payer_id, payee_id, amount, currency, description,
        payer_balance_before, payer_balance_after, payee_balance_before, payee_balance_after,
        status, status_message)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING` + recordColumns

// Append inserts the record and returns it with its generated id and timestamp.
func (r *RepoPGS) Append(ctx context.Context, rec domain.TransactionRecord) (domain.TransactionRecord, error) {
	l := zerolog.Ctx(ctx)

	var payeeID sql.NullInt64
	if rec.PayeeID != nil {
		payeeID = sql.NullInt64{Int64: *rec.PayeeID, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, appendQuery,
		rec.TransactionID,
		rec.PayerID,
		payeeID,
		rec.Amount,
		rec.Currency,
		rec.Description,
		rec.PayerBalanceBefore,
		rec.PayerBalanceAfter,
		rec.PayeeBalanceBefore,
		rec.PayeeBalanceAfter,
		rec.Status,
		rec.StatusMessage,
	)

	created, err := scanRecord(row)
	if err != nil {
		l.Error().Err(err).Msgf("Append(ctx, %+v)", rec)

		switch dbpkg.ConstraintName(err) {
		case "transactions_payer_id_fkey", "transactions_payee_id_fkey":
			return domain.TransactionRecord{}, domain.ErrAccountNotFound
		case "transactions_amount_check":
			return domain.TransactionRecord{}, domain.ErrInvalidAmount
		case "transactions_transaction_id_key":
			return domain.TransactionRecord{}, domain.ErrDuplicateTransaction
		}

		return domain.TransactionRecord{}, errorspkg.ErrInternal
	}

	return created, nil
}

const findQuery = `
SELECT` + recordColumns + `
FROM transactions
WHERE transaction_id = $1
`

// Find returns the record with the given transaction id.
func (r *RepoPGS) Find(ctx context.Context, transactionID string) (domain.TransactionRecord, error) {
	l := zerolog.Ctx(ctx)

	rec, err := scanRecord(r.db.QueryRowContext(ctx, findQuery, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TransactionRecord{}, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return domain.TransactionRecord{}, errorspkg.ErrInternal
	}

	return rec, nil
}

// buildWhere translates the filter into a conjunction of predicates with positional args.
func buildWhere(f domain.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.ParticipantID != nil && f.CounterpartID != nil:
		p, c := arg(*f.ParticipantID), arg(*f.CounterpartID)
		conds = append(conds, fmt.Sprintf(
			"((payer_id = %[1]s AND payee_id = %[2]s) OR (payee_id = %[1]s AND payer_id = %[2]s))", p, c))
	case f.ParticipantID != nil:
		p := arg(*f.ParticipantID)
		conds = append(conds, fmt.Sprintf("(payer_id = %[1]s OR payee_id = %[1]s)", p))
	case f.CounterpartID != nil:
		c := arg(*f.CounterpartID)
		conds = append(conds, fmt.Sprintf("(payer_id = %[1]s OR payee_id = %[1]s)", c))
	}

	if f.DateRangeStart != nil {
		conds = append(conds, "created_at >= "+arg(*f.DateRangeStart))
	}

	if f.DateRangeEnd != nil {
		conds = append(conds, "created_at <= "+arg(*f.DateRangeEnd))
	}

	if len(conds) == 0 {
		return "", nil
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// Query returns one page of records matching the filter, newest first, with the total match count.
func (r *RepoPGS) Query(ctx context.Context, f domain.TransactionFilter, p domain.PageParams) (domain.TransactionPage, error) {
	l := zerolog.Ctx(ctx)

	page := domain.TransactionPage{
		Items:     []domain.TransactionRecord{},
		PageIndex: p.PageIndex,
		PageSize:  p.PageSize,
	}

	where, args := buildWhere(f)

	countQuery := "SELECT count(*) FROM transactions " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&page.Total); err != nil {
		l.Error().Err(err).Send()
		return page, errorspkg.ErrInternal
	}

	listQuery := fmt.Sprintf("SELECT%s FROM transactions %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		recordColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, listQuery, append(args, p.Limit(), p.Offset())...)
	if err != nil {
		l.Error().Err(err).Send()
		return page, errorspkg.ErrInternal
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return page, errorspkg.ErrInternal
		}

		page.Items = append(page.Items, rec)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return page, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return page, errorspkg.ErrInternal
	}

	return page, nil
}
