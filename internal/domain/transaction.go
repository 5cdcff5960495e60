package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for balances and amounts.
// It matches the numeric(20, 4) money columns of the schema.
const AmountScale = 4

// FitsAmountScale reports whether d has no significant digits beyond AmountScale.
func FitsAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale))
}

// TransactionStatus is the outcome of a transfer or funding attempt.
type TransactionStatus string

// Transaction outcomes.
const (
	StatusSuccessful        TransactionStatus = "SUCCESSFUL"
	StatusInsufficientFunds TransactionStatus = "INSUFFICIENT_FUNDS"
	StatusFailed            TransactionStatus = "FAILED"
)

// TransactionRecord is an immutable journal entry describing one transfer attempt.
//
// Payee fields are absent for funding.
type TransactionRecord struct {
	ID                 int64               `json:"-"`
	TransactionID      string              `json:"transaction_id"`
	PayerID            int64               `json:"payer_id"`
	PayeeID            *int64              `json:"payee_id,omitempty"`
	Amount             decimal.Decimal     `json:"amount"`
	Currency           string              `json:"currency"`
	Description        string              `json:"description"`
	PayerBalanceBefore decimal.Decimal     `json:"payer_balance_before"`
	PayerBalanceAfter  decimal.Decimal     `json:"payer_balance_after"`
	PayeeBalanceBefore decimal.NullDecimal `json:"payee_balance_before"`
	PayeeBalanceAfter  decimal.NullDecimal `json:"payee_balance_after"`
	Status             TransactionStatus   `json:"status"`
	StatusMessage      string              `json:"status_message"`
	CreatedAt          time.Time           `json:"created_at"`
}

// PaymentIntent is the transient request to move Amount from the payer to a merchant.
type PaymentIntent struct {
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	MerchantAccountNumber string          `json:"merchant_account_number"`
	Description           string          `json:"description"`
	PayerAccountID        int64           `json:"payer_account_id"`
}

// TransactionFilter selects journal records. Nil fields are ignored, present ones are ANDed.
//
// ParticipantID matches either side of a record. CounterpartID matches the other side
// of a record whose participant matched, or either side when ParticipantID is nil.
// The date range is inclusive on both ends.
type TransactionFilter struct {
	ParticipantID  *int64
	CounterpartID  *int64
	DateRangeStart *time.Time
	DateRangeEnd   *time.Time
}

// PageParams is a 1-based page selector.
type PageParams struct {
	PageIndex int32
	PageSize  int32
}

// Limit returns the SQL limit of the page.
func (p PageParams) Limit() int64 {
	return int64(p.PageSize)
}

// Offset returns the SQL offset of the page. It does not overflow for any
// positive int32 page index and size.
func (p PageParams) Offset() int64 {
	return (int64(p.PageIndex) - 1) * int64(p.PageSize)
}

// TransactionPage is one page of journal records ordered newest first.
type TransactionPage struct {
	Items     []TransactionRecord `json:"items"`
	Total     int64               `json:"total"`
	PageIndex int32               `json:"page_index"`
	PageSize  int32               `json:"page_size"`
}
