package gateway

import (
	"context"
	"fmt"

	"github.com/whimsicalfrog/stock/internal/domain"
)

// Projections — читающая сторона: снимки стока без блокировок.
// Снимок консистентен на момент чтения, но может устареть сразу после
// возврата; для решений о списании используется только Apply.
type Projections struct {
	store domain.StockStore
}

// NewProjections создаёт читающий фасад над хранилищем.
func NewProjections(store domain.StockStore) *Projections {
	return &Projections{store: store}
}

// Breakdown — полный снимок позиции: агрегат плюс оба разреза
// со всеми вариантами, включая неактивные (для админ-интерфейса).
type Breakdown struct {
	Item   domain.Item
	Mode   domain.TrackingMode
	Colors []domain.ColorVariant
	Sizes  []domain.SizeVariant
}

// AggregateStock возвращает агрегатный сток позиции.
func (p *Projections) AggregateStock(ctx context.Context, sku string) (int, error) {
	item, err := p.store.Item(ctx, sku)
	if err != nil {
		return 0, err
	}
	return item.Aggregate, nil
}

// ItemBreakdown возвращает полный снимок позиции.
func (p *Projections) ItemBreakdown(ctx context.Context, sku string) (Breakdown, error) {
	item, err := p.store.Item(ctx, sku)
	if err != nil {
		return Breakdown{}, err
	}

	colors, err := p.store.ColorVariants(ctx, sku)
	if err != nil {
		return Breakdown{}, fmt.Errorf("load color variants: %w", err)
	}
	sizes, err := p.store.SizeVariants(ctx, sku)
	if err != nil {
		return Breakdown{}, fmt.Errorf("load size variants: %w", err)
	}

	return Breakdown{
		Item:   item,
		Mode:   domain.DeriveTrackingMode(colors, sizes),
		Colors: colors,
		Sizes:  sizes,
	}, nil
}

// VariantBreakdown возвращает стоки активных вариантов одного измерения,
// отсортированные по возрастанию идентификатора.
func (p *Projections) VariantBreakdown(ctx context.Context, sku string, dimension domain.Dimension) ([]domain.VariantStock, error) {
	switch dimension {
	case domain.DimensionColor:
		colors, err := p.store.ColorVariants(ctx, sku)
		if err != nil {
			return nil, err
		}
		return domain.ActiveColorStocks(colors), nil
	case domain.DimensionSize:
		sizes, err := p.store.SizeVariants(ctx, sku)
		if err != nil {
			return nil, err
		}
		return domain.ActiveSizeStocks(sizes), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDimension, dimension)
	}
}

// Movements возвращает последние записи журнала движений, новые первыми.
func (p *Projections) Movements(ctx context.Context, sku string, limit int) ([]domain.Movement, error) {
	return p.store.Movements(ctx, sku, limit)
}
