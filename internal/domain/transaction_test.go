package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPageParams(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		page       PageParams
		wantOffset int64
	}{
		{page: PageParams{PageIndex: 1, PageSize: 10}, wantOffset: 0},
		{page: PageParams{PageIndex: 3, PageSize: 25}, wantOffset: 50},
		{page: PageParams{PageIndex: math.MaxInt32, PageSize: 100}, wantOffset: (math.MaxInt32 - 1) * 100},
		{page: PageParams{PageIndex: math.MaxInt32, PageSize: math.MaxInt32}, wantOffset: (math.MaxInt32 - 1) * math.MaxInt32},
	}

	for _, tc := range testCases {
		if got := tc.page.Offset(); got != tc.wantOffset {
			t.Errorf("%+v.Offset() = %d, want %d", tc.page, got, tc.wantOffset)
		}

		if got := tc.page.Limit(); got != int64(tc.page.PageSize) {
			t.Errorf("%+v.Limit() = %d, want %d", tc.page, got, tc.page.PageSize)
		}
	}
}

func TestFitsAmountScale(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		amount string
		want   bool
	}{
		{amount: "100", want: true},
		{amount: "0.0001", want: true},
		{amount: "10.1234", want: true},
		{amount: "10.123400", want: true},
		{amount: "0.00005", want: false},
		{amount: "10.12345", want: false},
	}

	for _, tc := range testCases {
		if got := FitsAmountScale(decimal.RequireFromString(tc.amount)); got != tc.want {
			t.Errorf("FitsAmountScale(%s) = %v, want %v", tc.amount, got, tc.want)
		}
	}
}
