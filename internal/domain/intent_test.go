package domain_test

import (
	"errors"
	"testing"

	"github.com/whimsicalfrog/stock/internal/domain"
)

func TestMutationIntent_ValidateOK(t *testing.T) {
	intents := []domain.MutationIntent{
		{SKU: "WF-TS-001", Dimension: domain.DimensionAggregate, Op: domain.OpSet, Value: 10},
		{SKU: "WF-TS-001", Dimension: domain.DimensionColor, VariantID: 1, Op: domain.OpAdjust, Value: -1},
		{SKU: "WF-TS-001", Dimension: domain.DimensionSize, VariantID: 7, Op: domain.OpSet, Value: 0},
	}

	for _, intent := range intents {
		if errs := intent.Validate(); len(errs) != 0 {
			t.Fatalf("expected valid intent %+v, got %v", intent, errs)
		}
	}
}

func TestMutationIntent_ValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		intent domain.MutationIntent
		want   error
	}{
		{
			name:   "missing sku",
			intent: domain.MutationIntent{Dimension: domain.DimensionAggregate, Op: domain.OpSet},
			want:   domain.ErrSKURequired,
		},
		{
			name:   "missing variant id",
			intent: domain.MutationIntent{SKU: "WF-TS-001", Dimension: domain.DimensionColor, Op: domain.OpSet},
			want:   domain.ErrVariantIDRequired,
		},
		{
			name:   "unknown dimension",
			intent: domain.MutationIntent{SKU: "WF-TS-001", Dimension: "warehouse", Op: domain.OpSet},
			want:   domain.ErrUnknownDimension,
		},
		{
			name:   "negative set",
			intent: domain.MutationIntent{SKU: "WF-TS-001", Dimension: domain.DimensionAggregate, Op: domain.OpSet, Value: -5},
			want:   domain.ErrNegativeStock,
		},
		{
			name:   "unknown op",
			intent: domain.MutationIntent{SKU: "WF-TS-001", Dimension: domain.DimensionAggregate, Op: "increment"},
			want:   domain.ErrUnknownOp,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.intent.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			if !errors.Is(errors.Join(errs...), tc.want) {
				t.Fatalf("expected %v in %v", tc.want, errs)
			}
		})
	}
}
