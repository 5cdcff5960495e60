// Package paymentservice coordinates transfers and fundings between accounts.
//
// A transfer moves through INITIATED, VALIDATED and LOCKED into SETTLED or REJECTED.
// Settlement happens inside one unit of work that locks both accounts in ascending id
// order, so transfers sharing an account are serialised and opposite transfers between
// the same pair cannot deadlock. Every attempt that got past payer resolution leaves
// exactly one journal record.
package paymentservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/paymentcodec"
	"github.com/go-petr/pet-pay/internal/store"
	"github.com/go-petr/pet-pay/pkg/currencypkg"
)

// Journal texts.
const (
	FundingDescription    = "FUNDING"
	MsgTransferSuccessful = "Transaction Successful"
	MsgFundingSuccessful  = "Funding Successful"
)

// MaxPageSize bounds the history page size.
const MaxPageSize = 100

// MinFundAmount is the smallest accepted funding amount.
var MinFundAmount = decimal.NewFromInt(10)

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the transaction id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// Service facilitates payment service layer logic.
type Service struct {
	store store.Store
	codec paymentcodec.Codec
	newID func() string
}

// New returns payment service struct to manage transfers and fundings.
func New(st store.Store, codec paymentcodec.Codec, opts ...Option) *Service {
	s := &Service{
		store: st,
		codec: codec,
		newID: uuid.NewString,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

func validAmount(amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() || !domain.FitsAmountScale(amount) {
		return domain.ErrInvalidAmount
	}

	if !currencypkg.IsSupportedCurrency(currency) {
		return domain.ErrUnsupportedCurrency
	}

	return nil
}

// Transfer moves intent.Amount from the principal's account to the account numbered
// intent.MerchantAccountNumber and returns the settled journal record.
func (s *Service) Transfer(ctx context.Context, p domain.Principal, intent domain.PaymentIntent) (domain.TransactionRecord, error) {
	l := zerolog.Ctx(ctx)

	if err := validAmount(intent.Amount, intent.Currency); err != nil {
		l.Info().Err(err).Send()
		return domain.TransactionRecord{}, err
	}

	payer, err := s.store.Get(ctx, p.AccountID)
	if err != nil {
		l.Info().Err(err).Int64("account_id", p.AccountID).Send()
		return domain.TransactionRecord{}, err
	}

	rec := domain.TransactionRecord{
		TransactionID:      s.newID(),
		PayerID:            payer.ID,
		Amount:             intent.Amount,
		Currency:           intent.Currency,
		Description:        intent.Description,
		PayerBalanceBefore: payer.Balance,
		PayerBalanceAfter:  payer.Balance,
	}

	if intent.PayerAccountID != p.AccountID {
		return s.reject(ctx, rec, domain.ErrUnauthorized)
	}

	payee, err := s.store.GetByNumber(ctx, intent.MerchantAccountNumber)
	if err != nil {
		return s.reject(ctx, rec, err)
	}

	payeeID := payee.ID
	rec.PayeeID = &payeeID
	rec.PayeeBalanceBefore = decimal.NewNullDecimal(payee.Balance)
	rec.PayeeBalanceAfter = rec.PayeeBalanceBefore

	if payee.ID == payer.ID {
		return s.reject(ctx, rec, domain.ErrSameAccount)
	}

	if payer.Currency != intent.Currency || payee.Currency != intent.Currency {
		return s.reject(ctx, rec, domain.ErrCurrencyMismatch)
	}

	var settled domain.TransactionRecord

	err = s.store.ExecTx(ctx, func(q store.Querier) error {
		locked, err := lockInOrder(ctx, q, payer.ID, payee.ID)
		if err != nil {
			return err
		}

		rec.PayerBalanceBefore = locked[payer.ID].Balance
		rec.PayerBalanceAfter = rec.PayerBalanceBefore
		rec.PayeeBalanceBefore = decimal.NewNullDecimal(locked[payee.ID].Balance)
		rec.PayeeBalanceAfter = rec.PayeeBalanceBefore

		if rec.PayerBalanceBefore.LessThan(intent.Amount) {
			return domain.ErrInsufficientBalance
		}

		payerAfter, err := q.ApplyDelta(ctx, payer.ID, intent.Amount.Neg())
		if err != nil {
			return err
		}

		payeeAfter, err := q.ApplyDelta(ctx, payee.ID, intent.Amount)
		if err != nil {
			return err
		}

		out := rec
		out.PayerBalanceAfter = payerAfter
		out.PayeeBalanceAfter = decimal.NewNullDecimal(payeeAfter)
		out.Status = domain.StatusSuccessful
		out.StatusMessage = MsgTransferSuccessful

		settled, err = q.Append(ctx, out)

		return err
	})
	if err != nil {
		return s.reject(ctx, rec, err)
	}

	l.Info().
		Str("transaction_id", settled.TransactionID).
		Int64("payer_id", settled.PayerID).
		Int64("payee_id", payeeID).
		Str("amount", settled.Amount.String()).
		Msg("transfer settled")

	return settled, nil
}

// lockInOrder locks the accounts in ascending id order and returns them by id.
func lockInOrder(ctx context.Context, q store.Querier, a, b int64) (map[int64]domain.Account, error) {
	ids := []int64{a, b}
	if b < a {
		ids = []int64{b, a}
	}

	locked := make(map[int64]domain.Account, len(ids))

	for _, id := range ids {
		account, err := q.LockAndGet(ctx, id)
		if err != nil {
			return nil, err
		}

		locked[id] = account
	}

	return locked, nil
}

// reject journals a failed attempt outside any unit of work and returns cause.
func (s *Service) reject(ctx context.Context, rec domain.TransactionRecord, cause error) (domain.TransactionRecord, error) {
	l := zerolog.Ctx(ctx)

	rec.PayerBalanceAfter = rec.PayerBalanceBefore
	rec.PayeeBalanceAfter = rec.PayeeBalanceBefore
	rec.Status = domain.StatusFailed
	rec.StatusMessage = cause.Error()

	if errors.Is(cause, domain.ErrInsufficientBalance) {
		rec.Status = domain.StatusInsufficientFunds
	}

	l.Info().Err(cause).Str("transaction_id", rec.TransactionID).Str("status", string(rec.Status)).Send()

	if _, err := s.store.Append(ctx, rec); err != nil {
		l.Error().Err(err).Str("transaction_id", rec.TransactionID).Msg("journal rejected transaction")
	}

	return domain.TransactionRecord{}, cause
}

// Fund credits amount to the principal's own account.
func (s *Service) Fund(ctx context.Context, p domain.Principal, amount decimal.Decimal, currency string) (domain.TransactionRecord, error) {
	l := zerolog.Ctx(ctx)

	if p.Kind != domain.OwnerUser {
		return domain.TransactionRecord{}, domain.ErrUnauthorized
	}

	if !domain.FitsAmountScale(amount) {
		return domain.TransactionRecord{}, domain.ErrInvalidAmount
	}

	if amount.LessThan(MinFundAmount) {
		return domain.TransactionRecord{}, domain.ErrBelowMinimumFunding
	}

	if !currencypkg.IsSupportedCurrency(currency) {
		return domain.TransactionRecord{}, domain.ErrUnsupportedCurrency
	}

	account, err := s.store.Get(ctx, p.AccountID)
	if err != nil {
		l.Info().Err(err).Int64("account_id", p.AccountID).Send()
		return domain.TransactionRecord{}, err
	}

	rec := domain.TransactionRecord{
		TransactionID:      s.newID(),
		PayerID:            account.ID,
		Amount:             amount,
		Currency:           currency,
		Description:        FundingDescription,
		PayerBalanceBefore: account.Balance,
		PayerBalanceAfter:  account.Balance,
	}

	if account.Currency != currency {
		return s.reject(ctx, rec, domain.ErrCurrencyMismatch)
	}

	var settled domain.TransactionRecord

	err = s.store.ExecTx(ctx, func(q store.Querier) error {
		locked, err := q.LockAndGet(ctx, account.ID)
		if err != nil {
			return err
		}

		rec.PayerBalanceBefore = locked.Balance
		rec.PayerBalanceAfter = locked.Balance

		after, err := q.ApplyDelta(ctx, account.ID, amount)
		if err != nil {
			return err
		}

		out := rec
		out.PayerBalanceAfter = after
		out.Status = domain.StatusSuccessful
		out.StatusMessage = MsgFundingSuccessful

		settled, err = q.Append(ctx, out)

		return err
	})
	if err != nil {
		return s.reject(ctx, rec, err)
	}

	l.Info().
		Str("transaction_id", settled.TransactionID).
		Int64("account_id", settled.PayerID).
		Str("amount", settled.Amount.String()).
		Msg("funding settled")

	return settled, nil
}

// GeneratePayload encodes a payment intent paid by the principal.
func (s *Service) GeneratePayload(ctx context.Context, p domain.Principal, intent domain.PaymentIntent) (string, error) {
	l := zerolog.Ctx(ctx)

	intent.PayerAccountID = p.AccountID

	if err := validAmount(intent.Amount, intent.Currency); err != nil {
		l.Info().Err(err).Send()
		return "", err
	}

	if _, err := s.store.GetByNumber(ctx, intent.MerchantAccountNumber); err != nil {
		l.Info().Err(err).Str("account_number", intent.MerchantAccountNumber).Send()
		return "", err
	}

	payload, err := s.codec.Encode(intent)
	if err != nil {
		l.Info().Err(err).Send()
		return "", err
	}

	return payload, nil
}

// ProcessPayload decodes the payload and transfers the intent it carries.
func (s *Service) ProcessPayload(ctx context.Context, p domain.Principal, payload string) (domain.TransactionRecord, error) {
	intent, err := s.codec.Decode(payload)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		return domain.TransactionRecord{}, err
	}

	return s.Transfer(ctx, p, intent)
}

// History returns one page of the journal records the principal took part in.
func (s *Service) History(ctx context.Context, p domain.Principal, f domain.TransactionFilter, page domain.PageParams) (domain.TransactionPage, error) {
	if page.PageIndex < 1 || page.PageSize < 1 || page.PageSize > MaxPageSize {
		return domain.TransactionPage{}, domain.ErrInvalidPage
	}

	if f.DateRangeStart != nil && f.DateRangeEnd != nil && f.DateRangeStart.After(*f.DateRangeEnd) {
		return domain.TransactionPage{}, domain.ErrInvalidDateRange
	}

	participant := p.AccountID
	f.ParticipantID = &participant

	return s.store.Query(ctx, f, page)
}

// Find returns the journal record if the principal took part in it.
func (s *Service) Find(ctx context.Context, p domain.Principal, transactionID string) (domain.TransactionRecord, error) {
	rec, err := s.store.Find(ctx, transactionID)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	if rec.PayerID != p.AccountID && (rec.PayeeID == nil || *rec.PayeeID != p.AccountID) {
		return domain.TransactionRecord{}, domain.ErrTransactionNotFound
	}

	return rec, nil
}
