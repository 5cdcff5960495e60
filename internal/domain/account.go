// Package domain provides definitions of all entities.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerKind tells which class of holder owns an account.
type OwnerKind string

// Supported owner kinds.
const (
	OwnerUser     OwnerKind = "USER"
	OwnerMerchant OwnerKind = "MERCHANT"
)

// Valid reports whether k is one of the supported owner kinds.
func (k OwnerKind) Valid() bool {
	return k == OwnerUser || k == OwnerMerchant
}

// AuditInfo holds bookkeeping timestamps and the soft delete flag shared by persisted entities.
type AuditInfo struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"-"`
}

// Account holds the balance of a single user or merchant.
//
// ID is internal to the owner, AccountNumber is the externally visible identifier
// and is unique across both owner kinds.
type Account struct {
	ID            int64           `json:"id"`
	OwnerKind     OwnerKind       `json:"owner_kind"`
	OwnerName     string          `json:"owner_name"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	AuditInfo
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	OwnerKind     OwnerKind
	OwnerName     string
	AccountNumber string
	Balance       decimal.Decimal
	Currency      string
}
