package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/whimsicalfrog/stock/internal/domain"
	"github.com/whimsicalfrog/stock/internal/metrics"
)

// Gateway — единственная точка входа для всех изменений стока.
// Каждая мутация выполняется как read-modify-write внутри одной транзакции:
// свежее чтение под блокировкой строки, чистый reconcile, атомарная запись
// всех затронутых строк плюс запись в журнал движений. Событие StockChanged
// публикуется после коммита, best-effort.
type Gateway struct {
	store     domain.StockStore
	publisher domain.StockEventPublisher
	logger    *log.Entry
	metrics   *metrics.StockMetrics
}

// Result — результат зафиксированной мутации для обновления UI вызывающей стороны.
type Result struct {
	SKU          string
	OldAggregate int
	Aggregate    int
	// Colors и Sizes — новые стоки активных вариантов; срез пуст,
	// если измерение не отслеживается.
	Colors []domain.VariantStock
	Sizes  []domain.VariantStock
}

// New создаёт рабочий экземпляр gateway. Publisher может быть nil —
// тогда события не публикуются.
func New(store domain.StockStore, publisher domain.StockEventPublisher, logger *log.Entry) *Gateway {
	if logger == nil {
		logger = log.New().WithField("component", "stock-gateway")
	}
	return &Gateway{
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics.NewStockMetrics(),
	}
}

// NewWithMetrics создаёт gateway с явно переданными метриками
// (например, на изолированном registry в тестах).
func NewWithMetrics(store domain.StockStore, publisher domain.StockEventPublisher, logger *log.Entry, m *metrics.StockMetrics) *Gateway {
	g := NewWithoutMetrics(store, publisher, logger)
	g.metrics = m
	return g
}

// NewWithoutMetrics создаёт gateway без метрик (для тестов).
func NewWithoutMetrics(store domain.StockStore, publisher domain.StockEventPublisher, logger *log.Entry) *Gateway {
	if logger == nil {
		logger = log.New().WithField("component", "stock-gateway")
	}
	return &Gateway{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Apply выполняет мутацию в собственной транзакции: begin, ApplyTx, commit.
// При любой ошибке транзакция откатывается целиком — частичных записей не бывает.
func (g *Gateway) Apply(ctx context.Context, intent domain.MutationIntent) (Result, error) {
	start := time.Now()
	if g.metrics != nil {
		g.metrics.MutationStarted()
	}
	defer func() {
		if g.metrics != nil {
			g.metrics.MutationFinished()
			g.metrics.RecordDuration(time.Since(start))
		}
	}()

	tx, err := g.store.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin stock mutation: %w", err)
	}

	result, err := g.ApplyTx(ctx, tx, intent)
	if err != nil {
		_ = tx.Rollback()
		g.recordRejected(intent.SKU, intent.Dimension, err)
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return Result{}, fmt.Errorf("commit stock mutation: %w", err)
	}

	if g.metrics != nil {
		g.metrics.RecordApplied(string(intent.Dimension))
	}
	g.logger.WithFields(log.Fields{
		"sku":       result.SKU,
		"dimension": intent.Dimension,
		"aggregate": result.Aggregate,
		"source":    intent.Source,
	}).Debug("stock mutation committed")

	g.publishAfterCommit(result, intent.Source)

	return result, nil
}

// ApplyTx выполняет мутацию внутри транзакции вызывающей стороны
// (например, чекаут списывает несколько позиций заказа атомарно).
// Handle обязателен: без живой транзакции мутация невозможна по построению.
// Коммит и откат остаются за владельцем транзакции.
func (g *Gateway) ApplyTx(ctx context.Context, tx domain.StockTx, intent domain.MutationIntent) (Result, error) {
	if tx == nil {
		return Result{}, domain.ErrStoreHandleRequired
	}
	if errs := intent.Validate(); len(errs) > 0 {
		return Result{}, errors.Join(errs...)
	}

	state, err := g.loadState(ctx, tx, intent.SKU)
	if err != nil {
		return Result{}, err
	}

	newState, err := domain.Reconcile(state, intent)
	if err != nil {
		return Result{}, err
	}

	variantID := int64(0)
	if intent.Dimension != domain.DimensionAggregate {
		variantID = intent.VariantID
	}
	if err := g.writeState(ctx, tx, intent.SKU, intent.Dimension, variantID, intent.Source, state, newState); err != nil {
		return Result{}, err
	}

	return Result{
		SKU:          intent.SKU,
		OldAggregate: state.Aggregate,
		Aggregate:    newState.Aggregate,
		Colors:       newState.Colors,
		Sizes:        newState.Sizes,
	}, nil
}

// SetColorActive явно активирует или деактивирует цветовой вариант
// и пересинхронизирует агрегат с новой суммой активных цветов.
func (g *Gateway) SetColorActive(ctx context.Context, sku string, variantID int64, active bool, source string) (Result, error) {
	return g.applyActivation(ctx, sku, domain.DimensionColor, variantID, active, source)
}

// SetSizeActive — симметричная операция для размерного варианта.
func (g *Gateway) SetSizeActive(ctx context.Context, sku string, variantID int64, active bool, source string) (Result, error) {
	return g.applyActivation(ctx, sku, domain.DimensionSize, variantID, active, source)
}

func (g *Gateway) applyActivation(ctx context.Context, sku string, dimension domain.Dimension, variantID int64, active bool, source string) (Result, error) {
	start := time.Now()
	if g.metrics != nil {
		g.metrics.MutationStarted()
	}
	defer func() {
		if g.metrics != nil {
			g.metrics.MutationFinished()
			g.metrics.RecordDuration(time.Since(start))
		}
	}()

	tx, err := g.store.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin activation: %w", err)
	}

	result, err := g.applyActivationTx(ctx, tx, sku, dimension, variantID, active, source)
	if err != nil {
		_ = tx.Rollback()
		g.recordRejected(sku, dimension, err)
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return Result{}, fmt.Errorf("commit activation: %w", err)
	}

	if g.metrics != nil {
		g.metrics.RecordApplied(string(dimension))
	}
	g.publishAfterCommit(result, source)

	return result, nil
}

func (g *Gateway) applyActivationTx(ctx context.Context, tx domain.StockTx, sku string, dimension domain.Dimension, variantID int64, active bool, source string) (Result, error) {
	state, err := g.loadState(ctx, tx, sku)
	if err != nil {
		return Result{}, err
	}

	newState, err := domain.ReconcileActivation(state, dimension, variantID, active)
	if err != nil {
		return Result{}, err
	}

	switch dimension {
	case domain.DimensionColor:
		err = tx.SetColorActive(ctx, sku, variantID, active)
	case domain.DimensionSize:
		err = tx.SetSizeActive(ctx, sku, variantID, active)
	}
	if err != nil {
		return Result{}, fmt.Errorf("toggle variant: %w", err)
	}

	if err := g.writeState(ctx, tx, sku, dimension, variantID, source, state, newState); err != nil {
		return Result{}, err
	}

	return Result{
		SKU:          sku,
		OldAggregate: state.Aggregate,
		Aggregate:    newState.Aggregate,
		Colors:       newState.Colors,
		Sizes:        newState.Sizes,
	}, nil
}

// loadState перечитывает актуальное состояние под блокировкой строки.
// Режим отслеживания никогда не кэшируется между запросами: конкурентная
// админ-операция могла добавить или деактивировать вариант.
func (g *Gateway) loadState(ctx context.Context, tx domain.StockTx, sku string) (domain.StockState, error) {
	item, err := tx.ItemForUpdate(ctx, sku)
	if err != nil {
		return domain.StockState{}, err
	}

	colors, err := tx.ColorVariants(ctx, sku)
	if err != nil {
		return domain.StockState{}, fmt.Errorf("load color variants: %w", err)
	}
	sizes, err := tx.SizeVariants(ctx, sku)
	if err != nil {
		return domain.StockState{}, fmt.Errorf("load size variants: %w", err)
	}

	return domain.StockState{
		Aggregate: item.Aggregate,
		Colors:    colors,
		Sizes:     sizes,
	}, nil
}

// writeState записывает только реально изменившиеся строки и,
// если изменения были, добавляет запись в журнал движений.
func (g *Gateway) writeState(ctx context.Context, tx domain.StockTx, sku string, dimension domain.Dimension, variantID int64, source string, state domain.StockState, newState domain.ReconciledState) error {
	changed := false

	if newState.Aggregate != state.Aggregate {
		if err := tx.SetAggregate(ctx, sku, newState.Aggregate); err != nil {
			return fmt.Errorf("write aggregate: %w", err)
		}
		changed = true
	}

	oldColors := stocksByID(domain.ActiveColorStocks(state.Colors))
	for _, v := range newState.Colors {
		if old, ok := oldColors[v.ID]; ok && old == v.Stock {
			continue
		}
		if err := tx.SetColorStock(ctx, sku, v.ID, v.Stock); err != nil {
			return fmt.Errorf("write color stock: %w", err)
		}
		changed = true
	}

	oldSizes := stocksByID(domain.ActiveSizeStocks(state.Sizes))
	for _, v := range newState.Sizes {
		if old, ok := oldSizes[v.ID]; ok && old == v.Stock {
			continue
		}
		if err := tx.SetSizeStock(ctx, sku, v.ID, v.Stock); err != nil {
			return fmt.Errorf("write size stock: %w", err)
		}
		changed = true
	}

	if !changed {
		return nil
	}

	movement := domain.Movement{
		ID:           uuid.NewString(),
		SKU:          sku,
		Dimension:    dimension,
		VariantID:    variantID,
		Delta:        newState.Aggregate - state.Aggregate,
		OldAggregate: state.Aggregate,
		NewAggregate: newState.Aggregate,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.AppendMovement(ctx, movement); err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	if g.metrics != nil {
		g.metrics.RecordMovement()
	}

	return nil
}

// publishAfterCommit публикует события за пределами транзакции.
// Ошибка публикации логируется, но не влияет на результат мутации.
func (g *Gateway) publishAfterCommit(result Result, source string) {
	if g.publisher == nil || result.Aggregate == result.OldAggregate {
		return
	}

	if err := g.publisher.PublishStockChanged(result.SKU, result.Aggregate, source); err != nil {
		g.logger.WithError(err).WithField("sku", result.SKU).Warn("failed to publish stock changed event")
	} else if g.metrics != nil {
		g.metrics.RecordEventPublished()
	}

	if result.Aggregate == 0 && result.OldAggregate > 0 {
		if err := g.publisher.PublishStockDepleted(result.SKU, source); err != nil {
			g.logger.WithError(err).WithField("sku", result.SKU).Warn("failed to publish stock depleted event")
		} else if g.metrics != nil {
			g.metrics.RecordEventPublished()
		}
	}
}

func (g *Gateway) recordRejected(sku string, dimension domain.Dimension, err error) {
	reason := rejectReason(err)
	if g.metrics != nil {
		g.metrics.RecordRejected(reason)
	}
	g.logger.WithError(err).WithFields(log.Fields{
		"sku":       sku,
		"dimension": dimension,
		"reason":    reason,
	}).Warn("stock mutation rejected")
}

func rejectReason(err error) string {
	switch {
	case domain.IsValidation(err):
		return "validation"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsConflict(err):
		return "conflict"
	case domain.IsReconciliation(err):
		return "reconciliation"
	default:
		return "internal"
	}
}

func stocksByID(stocks []domain.VariantStock) map[int64]int {
	result := make(map[int64]int, len(stocks))
	for _, v := range stocks {
		result[v.ID] = v.Stock
	}
	return result
}
