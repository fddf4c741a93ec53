package gateway_test

import (
	"context"
	"testing"

	"github.com/whimsicalfrog/stock/internal/domain"
	"github.com/whimsicalfrog/stock/internal/service/gateway"
	"github.com/whimsicalfrog/stock/internal/storage/memory"
)

func TestProjectionsAggregateStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	projections := gateway.NewProjections(store)

	seedColorItem(t, store, "PROJ-001")

	aggregate, err := projections.AggregateStock(ctx, "PROJ-001")
	if err != nil {
		t.Fatalf("aggregate stock: %v", err)
	}
	if aggregate != 10 {
		t.Errorf("expected aggregate 10, got %d", aggregate)
	}

	if _, err := projections.AggregateStock(ctx, "NO-SUCH"); !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestProjectionsItemBreakdown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	projections := gateway.NewProjections(store)

	_, blueID := seedColorItem(t, store, "PROJ-002")
	if _, err := store.AddSizeVariant(ctx, domain.SizeVariant{SKU: "PROJ-002", Code: "M", Stock: 10, Active: true}); err != nil {
		t.Fatalf("add size: %v", err)
	}

	breakdown, err := projections.ItemBreakdown(ctx, "PROJ-002")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if breakdown.Mode != domain.TrackingColorAndSize {
		t.Errorf("expected color_and_size mode, got %q", breakdown.Mode)
	}
	if breakdown.Item.Aggregate != 10 {
		t.Errorf("expected aggregate 10, got %d", breakdown.Item.Aggregate)
	}
	if len(breakdown.Colors) != 2 || len(breakdown.Sizes) != 1 {
		t.Errorf("expected 2 colors and 1 size, got %d/%d", len(breakdown.Colors), len(breakdown.Sizes))
	}

	// Неактивные варианты входят в полный снимок, но режим меняется.
	gw := gateway.NewWithoutMetrics(store, nil, nil)
	if _, err := gw.SetColorActive(ctx, "PROJ-002", blueID, false, "admin"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	breakdown, err = projections.ItemBreakdown(ctx, "PROJ-002")
	if err != nil {
		t.Fatalf("breakdown after deactivation: %v", err)
	}
	if len(breakdown.Colors) != 2 {
		t.Errorf("expected inactive variant kept in snapshot, got %d colors", len(breakdown.Colors))
	}
}

func TestProjectionsVariantBreakdown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	projections := gateway.NewProjections(store)

	redID, blueID := seedColorItem(t, store, "PROJ-003")

	stocks, err := projections.VariantBreakdown(ctx, "PROJ-003", domain.DimensionColor)
	if err != nil {
		t.Fatalf("variant breakdown: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("expected 2 active colors, got %d", len(stocks))
	}
	if stocks[0].ID != redID || stocks[1].ID != blueID {
		t.Errorf("expected ascending-id order, got %+v", stocks)
	}

	// Размеры не отслеживаются — пустой срез, не ошибка.
	stocks, err = projections.VariantBreakdown(ctx, "PROJ-003", domain.DimensionSize)
	if err != nil {
		t.Fatalf("size breakdown: %v", err)
	}
	if len(stocks) != 0 {
		t.Errorf("expected empty size breakdown, got %+v", stocks)
	}

	if _, err := projections.VariantBreakdown(ctx, "PROJ-003", domain.Dimension("weight")); !domain.IsValidation(err) {
		t.Errorf("expected validation error for unknown dimension, got %v", err)
	}
}

func TestProjectionsMovements(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	projections := gateway.NewProjections(store)
	gw := gateway.NewWithoutMetrics(store, nil, nil)

	seedColorItem(t, store, "PROJ-004")

	for _, value := range []int{12, 15} {
		if _, err := gw.Apply(ctx, domain.MutationIntent{
			SKU:       "PROJ-004",
			Dimension: domain.DimensionAggregate,
			Op:        domain.OpSet,
			Value:     value,
			Source:    "import",
		}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	movements, err := projections.Movements(ctx, "PROJ-004", 1)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected limit applied, got %d movements", len(movements))
	}
	if movements[0].NewAggregate != 15 {
		t.Errorf("expected newest movement first, got %+v", movements[0])
	}
}
