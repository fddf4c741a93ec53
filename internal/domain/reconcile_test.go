package domain_test

import (
	"errors"
	"testing"

	"github.com/whimsicalfrog/stock/internal/domain"
)

// helper для товара, отслеживаемого только по цветам.
func colorTrackedState() domain.StockState {
	return domain.StockState{
		Aggregate: 10,
		Colors: []domain.ColorVariant{
			{ID: 1, SKU: "WF-TS-001", Name: "Red", Stock: 5, Active: true},
			{ID: 2, SKU: "WF-TS-001", Name: "Blue", Stock: 5, Active: true},
		},
	}
}

func stocksEqual(t *testing.T, got []domain.VariantStock, want map[int64]int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d variant stocks, got %d (%v)", len(want), len(got), got)
	}
	for _, v := range got {
		if v.Stock != want[v.ID] {
			t.Fatalf("variant %d: expected stock %d, got %d", v.ID, want[v.ID], v.Stock)
		}
	}
}

func TestReconcile_SetColorRaisesAggregate(t *testing.T) {
	state := colorTrackedState()

	result, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-001",
		Dimension: domain.DimensionColor,
		VariantID: 1,
		Op:        domain.OpSet,
		Value:     8,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if result.Aggregate != 13 {
		t.Fatalf("expected aggregate 13, got %d", result.Aggregate)
	}
	stocksEqual(t, result.Colors, map[int64]int{1: 8, 2: 5})
	if len(result.Sizes) != 0 {
		t.Fatalf("size dimension is untracked, expected no size writes, got %v", result.Sizes)
	}
}

func TestReconcile_AggregateEvenSplitFromZero(t *testing.T) {
	state := domain.StockState{
		Aggregate: 0,
		Colors: []domain.ColorVariant{
			{ID: 1, SKU: "WF-TS-002", Name: "Sage", Stock: 0, Active: true},
			{ID: 2, SKU: "WF-TS-002", Name: "Lilac", Stock: 0, Active: true},
		},
		Sizes: []domain.SizeVariant{
			{ID: 1, SKU: "WF-TS-002", Code: "M", Stock: 0, Active: true},
			{ID: 2, SKU: "WF-TS-002", Code: "L", Stock: 0, Active: true},
		},
	}

	result, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-002",
		Dimension: domain.DimensionAggregate,
		Op:        domain.OpSet,
		Value:     10,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if result.Aggregate != 10 {
		t.Fatalf("expected aggregate 10, got %d", result.Aggregate)
	}
	stocksEqual(t, result.Colors, map[int64]int{1: 5, 2: 5})
	stocksEqual(t, result.Sizes, map[int64]int{1: 5, 2: 5})
}

func TestReconcile_AggregateProportionalFloors(t *testing.T) {
	state := domain.StockState{
		Aggregate: 10,
		Sizes: []domain.SizeVariant{
			{ID: 1, SKU: "WF-TS-003", Code: "S", Stock: 3, Active: true},
			{ID: 2, SKU: "WF-TS-003", Code: "M", Stock: 3, Active: true},
			{ID: 3, SKU: "WF-TS-003", Code: "L", Stock: 4, Active: true},
		},
	}

	result, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-003",
		Dimension: domain.DimensionAggregate,
		Op:        domain.OpSet,
		Value:     7,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if result.Aggregate != 7 {
		t.Fatalf("expected aggregate 7, got %d", result.Aggregate)
	}
	// floor(7*3/10)=2, floor(7*3/10)=2, остаток последнему: 7-4=3.
	stocksEqual(t, result.Sizes, map[int64]int{1: 2, 2: 2, 3: 3})
}

func TestReconcile_EvenSplitRemainderToLowestIDs(t *testing.T) {
	state := domain.StockState{
		Aggregate: 0,
		Colors: []domain.ColorVariant{
			{ID: 3, Stock: 0, Active: true},
			{ID: 1, Stock: 0, Active: true},
			{ID: 2, Stock: 0, Active: true},
		},
	}

	result, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-004",
		Dimension: domain.DimensionAggregate,
		Op:        domain.OpSet,
		Value:     8,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	stocksEqual(t, result.Colors, map[int64]int{1: 3, 2: 3, 3: 2})
}

func TestReconcile_IdenticalRepeatIsNoop(t *testing.T) {
	state := domain.StockState{
		Aggregate: 10,
		Sizes: []domain.SizeVariant{
			{ID: 1, Code: "S", Stock: 3, Active: true},
			{ID: 2, Code: "M", Stock: 3, Active: true},
			{ID: 3, Code: "L", Stock: 4, Active: true},
		},
	}
	intent := domain.MutationIntent{
		SKU:       "WF-TS-003",
		Dimension: domain.DimensionAggregate,
		Op:        domain.OpSet,
		Value:     7,
	}

	first, err := domain.Reconcile(state, intent)
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}

	// Повтор с тем же значением поверх уже согласованного состояния
	// не должен перераспределять доли.
	next := domain.StockState{Aggregate: first.Aggregate}
	for _, v := range first.Sizes {
		next.Sizes = append(next.Sizes, domain.SizeVariant{ID: v.ID, Stock: v.Stock, Active: true})
	}
	second, err := domain.Reconcile(next, intent)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	for i := range first.Sizes {
		if second.Sizes[i] != first.Sizes[i] {
			t.Fatalf("repeat drifted: first %v, second %v", first.Sizes, second.Sizes)
		}
	}
}

func TestReconcile_RoundTripDistribution(t *testing.T) {
	// Для любого V >= 0 и любого числа активных вариантов сумма
	// распределения обязана равняться V в точности.
	for variants := 1; variants <= 5; variants++ {
		state := domain.StockState{Aggregate: 17}
		for id := int64(1); id <= int64(variants); id++ {
			state.Colors = append(state.Colors, domain.ColorVariant{
				ID: id, Stock: int(id) * 3, Active: true,
			})
			state.Aggregate = domain.SumStocks(domain.ActiveColorStocks(state.Colors))
		}

		for value := 0; value <= 50; value++ {
			result, err := domain.Reconcile(state, domain.MutationIntent{
				SKU:       "WF-RT-001",
				Dimension: domain.DimensionAggregate,
				Op:        domain.OpSet,
				Value:     value,
			})
			if err != nil {
				t.Fatalf("variants=%d value=%d: reconcile failed: %v", variants, value, err)
			}
			if got := domain.SumStocks(result.Colors); got != value {
				t.Fatalf("variants=%d value=%d: sum %d != target", variants, value, got)
			}
			for _, v := range result.Colors {
				if v.Stock < 0 {
					t.Fatalf("variants=%d value=%d: negative share %v", variants, value, v)
				}
			}
		}
	}
}

func TestReconcile_ColorEditPropagatesIntoSizes(t *testing.T) {
	state := domain.StockState{
		Aggregate: 10,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 5, Active: true},
			{ID: 2, Name: "Blue", Stock: 5, Active: true},
		},
		Sizes: []domain.SizeVariant{
			{ID: 1, Code: "M", Stock: 6, Active: true},
			{ID: 2, Code: "L", Stock: 4, Active: true},
		},
	}

	result, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-005",
		Dimension: domain.DimensionColor,
		VariantID: 2,
		Op:        domain.OpSet,
		Value:     0,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if result.Aggregate != 5 {
		t.Fatalf("expected aggregate 5, got %d", result.Aggregate)
	}
	stocksEqual(t, result.Colors, map[int64]int{1: 5, 2: 0})
	// Размеры получают новый агрегат пропорционально: floor(5*6/10)=3, остаток 2.
	stocksEqual(t, result.Sizes, map[int64]int{1: 3, 2: 2})
	if domain.SumStocks(result.Sizes) != result.Aggregate {
		t.Fatal("size sum must equal aggregate")
	}
}

func TestReconcile_SizeEditPropagatesIntoColors(t *testing.T) {
	state := domain.StockState{
		Aggregate: 4,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 2, Active: true},
			{ID: 2, Name: "Blue", Stock: 2, Active: true},
		},
		Sizes: []domain.SizeVariant{
			{ID: 1, Code: "M", Stock: 4, Active: true},
		},
	}

	result, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-006",
		Dimension: domain.DimensionSize,
		VariantID: 1,
		Op:        domain.OpAdjust,
		Value:     6,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if result.Aggregate != 10 {
		t.Fatalf("expected aggregate 10, got %d", result.Aggregate)
	}
	stocksEqual(t, result.Sizes, map[int64]int{1: 10})
	stocksEqual(t, result.Colors, map[int64]int{1: 5, 2: 5})
}

func TestReconcile_AdjustBelowZeroIsInsufficient(t *testing.T) {
	state := domain.StockState{
		Aggregate: 1,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 1, Active: true},
		},
	}

	_, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-001",
		Dimension: domain.DimensionColor,
		VariantID: 1,
		Op:        domain.OpAdjust,
		Value:     -2,
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if !domain.IsConflict(err) {
		t.Fatal("insufficient stock must classify as conflict")
	}
}

func TestReconcile_NegativeSetIsValidationError(t *testing.T) {
	_, err := domain.Reconcile(colorTrackedState(), domain.MutationIntent{
		SKU:       "WF-TS-001",
		Dimension: domain.DimensionColor,
		VariantID: 1,
		Op:        domain.OpSet,
		Value:     -1,
	})
	if !errors.Is(err, domain.ErrNegativeStock) {
		t.Fatalf("expected ErrNegativeStock, got %v", err)
	}
	if !domain.IsValidation(err) {
		t.Fatal("negative set must classify as validation error")
	}
}

func TestReconcile_InactiveVariantRejected(t *testing.T) {
	state := domain.StockState{
		Aggregate: 5,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 5, Active: true},
			{ID: 2, Name: "Blue", Stock: 0, Active: false},
		},
	}

	_, err := domain.Reconcile(state, domain.MutationIntent{
		SKU:       "WF-TS-001",
		Dimension: domain.DimensionColor,
		VariantID: 2,
		Op:        domain.OpSet,
		Value:     3,
	})
	if !errors.Is(err, domain.ErrVariantInactive) {
		t.Fatalf("expected ErrVariantInactive, got %v", err)
	}
}

func TestReconcile_UnknownVariant(t *testing.T) {
	_, err := domain.Reconcile(colorTrackedState(), domain.MutationIntent{
		SKU:       "WF-TS-001",
		Dimension: domain.DimensionColor,
		VariantID: 99,
		Op:        domain.OpSet,
		Value:     3,
	})
	if !errors.Is(err, domain.ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}
}

func TestReconcile_AggregateWithoutVariants(t *testing.T) {
	result, err := domain.Reconcile(domain.StockState{Aggregate: 3}, domain.MutationIntent{
		SKU:       "WF-TS-007",
		Dimension: domain.DimensionAggregate,
		Op:        domain.OpSet,
		Value:     12,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Aggregate != 12 {
		t.Fatalf("expected aggregate 12, got %d", result.Aggregate)
	}
	if len(result.Colors) != 0 || len(result.Sizes) != 0 {
		t.Fatal("untracked item must not produce variant writes")
	}
}

func TestReconcileActivation_DeactivateResyncsAggregate(t *testing.T) {
	state := domain.StockState{
		Aggregate: 10,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 6, Active: true},
			{ID: 2, Name: "Blue", Stock: 4, Active: true},
		},
		Sizes: []domain.SizeVariant{
			{ID: 1, Code: "M", Stock: 5, Active: true},
			{ID: 2, Code: "L", Stock: 5, Active: true},
		},
	}

	result, err := domain.ReconcileActivation(state, domain.DimensionColor, 2, false)
	if err != nil {
		t.Fatalf("reconcile activation failed: %v", err)
	}

	if result.Aggregate != 6 {
		t.Fatalf("expected aggregate 6 after deactivation, got %d", result.Aggregate)
	}
	stocksEqual(t, result.Colors, map[int64]int{1: 6})
	stocksEqual(t, result.Sizes, map[int64]int{1: 3, 2: 3})
}

func TestReconcileActivation_ActivateAddsStockBack(t *testing.T) {
	state := domain.StockState{
		Aggregate: 6,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 6, Active: true},
			{ID: 2, Name: "Blue", Stock: 4, Active: false},
		},
	}

	result, err := domain.ReconcileActivation(state, domain.DimensionColor, 2, true)
	if err != nil {
		t.Fatalf("reconcile activation failed: %v", err)
	}

	if result.Aggregate != 10 {
		t.Fatalf("expected aggregate 10 after activation, got %d", result.Aggregate)
	}
	stocksEqual(t, result.Colors, map[int64]int{1: 6, 2: 4})
}

func TestReconcileActivation_LastColorOffKeepsSizeStock(t *testing.T) {
	state := domain.StockState{
		Aggregate: 10,
		Colors: []domain.ColorVariant{
			{ID: 1, Name: "Red", Stock: 10, Active: true},
		},
		Sizes: []domain.SizeVariant{
			{ID: 1, Code: "M", Stock: 5, Active: true},
			{ID: 2, Code: "L", Stock: 5, Active: true},
		},
	}

	result, err := domain.ReconcileActivation(state, domain.DimensionColor, 1, false)
	if err != nil {
		t.Fatalf("reconcile activation failed: %v", err)
	}

	// Цветов не осталось, агрегат пересинхронизируется с размерами,
	// а не обнуляется вместе с выключенным измерением.
	if result.Aggregate != 10 {
		t.Fatalf("expected aggregate 10 after last color off, got %d", result.Aggregate)
	}
	if len(result.Colors) != 0 {
		t.Fatalf("color dimension is off, expected no color writes, got %v", result.Colors)
	}
	stocksEqual(t, result.Sizes, map[int64]int{1: 5, 2: 5})
}

func TestReconcileActivation_LastVariantOffKeepsAggregate(t *testing.T) {
	state := domain.StockState{
		Aggregate: 7,
		Sizes: []domain.SizeVariant{
			{ID: 1, Code: "M", Stock: 7, Active: true},
		},
	}

	result, err := domain.ReconcileActivation(state, domain.DimensionSize, 1, false)
	if err != nil {
		t.Fatalf("reconcile activation failed: %v", err)
	}

	if result.Aggregate != 7 {
		t.Fatalf("expected aggregate 7 to survive, got %d", result.Aggregate)
	}
	if len(result.Colors) != 0 || len(result.Sizes) != 0 {
		t.Fatalf("no tracked dimensions remain, expected no variant writes, got %v / %v", result.Colors, result.Sizes)
	}
}

func TestReconcileActivation_UnknownVariant(t *testing.T) {
	_, err := domain.ReconcileActivation(colorTrackedState(), domain.DimensionColor, 42, false)
	if !errors.Is(err, domain.ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}
}
