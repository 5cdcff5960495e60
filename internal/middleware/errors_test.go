package middleware

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/errorspkg"
)

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrTransactionNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrInsufficientBalance, http.StatusBadRequest},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrBelowMinimumFunding, http.StatusBadRequest},
		{domain.ErrCurrencyMismatch, http.StatusBadRequest},
		{domain.ErrSameAccount, http.StatusBadRequest},
		{fmt.Errorf("bad padding: %w", domain.ErrPayloadDecode), http.StatusBadRequest},
		{domain.ErrPayloadDelimiter, http.StatusBadRequest},
		{domain.ErrDuplicateAccount, http.StatusConflict},
		{domain.ErrLockTimeout, http.StatusServiceUnavailable},
		{domain.ErrAllocationExhausted, http.StatusInternalServerError},
		{errorspkg.ErrInternal, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Errorf("StatusOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
