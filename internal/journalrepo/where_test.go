package journalrepo

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/go-petr/pet-pay/internal/domain"
)

func TestBuildWhere(t *testing.T) {
	t.Parallel()

	participant, counterpart := int64(7), int64(9)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	testCases := []struct {
		name      string
		filter    domain.TransactionFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name: "Empty",
		},
		{
			name:      "Participant",
			filter:    domain.TransactionFilter{ParticipantID: &participant},
			wantWhere: "WHERE (payer_id = $1 OR payee_id = $1)",
			wantArgs:  []any{participant},
		},
		{
			name:      "ParticipantAndCounterpart",
			filter:    domain.TransactionFilter{ParticipantID: &participant, CounterpartID: &counterpart},
			wantWhere: "WHERE ((payer_id = $1 AND payee_id = $2) OR (payee_id = $1 AND payer_id = $2))",
			wantArgs:  []any{participant, counterpart},
		},
		{
			name:      "CounterpartOnly",
			filter:    domain.TransactionFilter{CounterpartID: &counterpart},
			wantWhere: "WHERE (payer_id = $1 OR payee_id = $1)",
			wantArgs:  []any{counterpart},
		},
		{
			name: "AllPredicates",
			filter: domain.TransactionFilter{
				ParticipantID:  &participant,
				DateRangeStart: &start,
				DateRangeEnd:   &end,
			},
			wantWhere: "WHERE (payer_id = $1 OR payee_id = $1) AND created_at >= $2 AND created_at <= $3",
			wantArgs:  []any{participant, start, end},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gotWhere, gotArgs := buildWhere(tc.filter)
			if gotWhere != tc.wantWhere {
				t.Errorf("buildWhere() where = %q, want %q", gotWhere, tc.wantWhere)
			}

			if diff := cmp.Diff(tc.wantArgs, gotArgs); diff != "" {
				t.Errorf("buildWhere() args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
