package domain_test

import (
	"testing"

	"github.com/whimsicalfrog/stock/internal/domain"
)

func TestDeriveTrackingMode(t *testing.T) {
	activeColor := []domain.ColorVariant{{ID: 1, Stock: 2, Active: true}}
	inactiveColor := []domain.ColorVariant{{ID: 1, Stock: 2, Active: false}}
	activeSize := []domain.SizeVariant{{ID: 1, Stock: 2, Active: true}}
	inactiveSize := []domain.SizeVariant{{ID: 1, Stock: 2, Active: false}}

	tests := []struct {
		name   string
		colors []domain.ColorVariant
		sizes  []domain.SizeVariant
		want   domain.TrackingMode
	}{
		{name: "no rows", want: domain.TrackingNone},
		{name: "color only", colors: activeColor, want: domain.TrackingColor},
		{name: "size only", sizes: activeSize, want: domain.TrackingSize},
		{name: "both", colors: activeColor, sizes: activeSize, want: domain.TrackingColorAndSize},
		// Строки есть, но все неактивны: измерение не считается отслеживаемым.
		{name: "inactive rows only", colors: inactiveColor, sizes: inactiveSize, want: domain.TrackingNone},
		{name: "inactive color with active size", colors: inactiveColor, sizes: activeSize, want: domain.TrackingSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.DeriveTrackingMode(tc.colors, tc.sizes); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestActiveStocks_SortedAndFiltered(t *testing.T) {
	colors := []domain.ColorVariant{
		{ID: 3, Stock: 1, Active: true},
		{ID: 1, Stock: 2, Active: true},
		{ID: 2, Stock: 7, Active: false},
	}

	stocks := domain.ActiveColorStocks(colors)
	if len(stocks) != 2 {
		t.Fatalf("expected 2 active stocks, got %d", len(stocks))
	}
	if stocks[0].ID != 1 || stocks[1].ID != 3 {
		t.Fatalf("expected ascending ID order, got %v", stocks)
	}
	if domain.SumStocks(stocks) != 3 {
		t.Fatalf("expected sum 3, got %d", domain.SumStocks(stocks))
	}
}
