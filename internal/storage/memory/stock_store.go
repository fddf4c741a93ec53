package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/whimsicalfrog/stock/internal/domain"
)

// Store — in-memory реализация StockStore для локальной разработки и тестов.
// Блокировка строки товара смоделирована каналом вместимостью 1 на SKU,
// поэтому конкурентное поведение совпадает с SELECT ... FOR UPDATE:
// транзакции по одному SKU сериализуются, разные SKU независимы.
type Store struct {
	mu    sync.RWMutex
	items map[string]*itemRecord
}

type itemRecord struct {
	// lock — однослотовая блокировка строки; захватывается в ItemForUpdate,
	// отпускается на Commit/Rollback.
	lock chan struct{}

	item      domain.Item
	colors    []domain.ColorVariant
	sizes     []domain.SizeVariant
	movements []domain.Movement

	nextColorID int64
	nextSizeID  int64
}

// NewStore возвращает пустое in-memory хранилище стока.
func NewStore() *Store {
	return &Store{items: make(map[string]*itemRecord)}
}

// CreateItem заводит товар. SKU должен быть уникален.
func (s *Store) CreateItem(_ context.Context, item domain.Item) error {
	if item.SKU == "" {
		return domain.ErrSKURequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.SKU]; exists {
		return domain.ErrItemExists
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	s.items[item.SKU] = &itemRecord{
		lock:        make(chan struct{}, 1),
		item:        item,
		nextColorID: 1,
		nextSizeID:  1,
	}
	return nil
}

// DeleteItem удаляет товар вместе с вариантами и журналом движений.
func (s *Store) DeleteItem(_ context.Context, sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[sku]; !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, sku)
	return nil
}

// AddColorVariant добавляет цветовой вариант и возвращает присвоенный ID.
func (s *Store) AddColorVariant(_ context.Context, variant domain.ColorVariant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.items[variant.SKU]
	if !ok {
		return 0, domain.ErrItemNotFound
	}

	variant.ID = record.nextColorID
	record.nextColorID++
	record.colors = append(record.colors, variant)
	return variant.ID, nil
}

// AddSizeVariant добавляет размерный вариант и возвращает присвоенный ID.
func (s *Store) AddSizeVariant(_ context.Context, variant domain.SizeVariant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.items[variant.SKU]
	if !ok {
		return 0, domain.ErrItemNotFound
	}

	variant.ID = record.nextSizeID
	record.nextSizeID++
	record.sizes = append(record.sizes, variant)
	return variant.ID, nil
}

// Item возвращает товар без блокировки.
func (s *Store) Item(_ context.Context, sku string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[sku]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return record.item, nil
}

// ColorVariants возвращает копию цветовых вариантов товара.
func (s *Store) ColorVariants(_ context.Context, sku string) ([]domain.ColorVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[sku]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return append([]domain.ColorVariant(nil), record.colors...), nil
}

// SizeVariants возвращает копию размерных вариантов товара.
func (s *Store) SizeVariants(_ context.Context, sku string) ([]domain.SizeVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[sku]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return append([]domain.SizeVariant(nil), record.sizes...), nil
}

// Movements возвращает журнал движений, новые записи первыми.
func (s *Store) Movements(_ context.Context, sku string, limit int) ([]domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[sku]
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	result := make([]domain.Movement, 0, len(record.movements))
	for i := len(record.movements) - 1; i >= 0; i-- {
		result = append(result, record.movements[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Begin открывает транзакцию. Блокировки строк берутся лениво,
// при первом ItemForUpdate соответствующего SKU.
func (s *Store) Begin(_ context.Context) (domain.StockTx, error) {
	return &stockTx{
		store:       s,
		held:        make(map[string]*itemRecord),
		aggregates:  make(map[string]int),
		colorStocks: make(map[string]map[int64]int),
		sizeStocks:  make(map[string]map[int64]int),
		colorActive: make(map[string]map[int64]bool),
		sizeActive:  make(map[string]map[int64]bool),
	}, nil
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

var _ domain.StockStore = (*Store)(nil)

// stockTx копит записи до Commit; до фиксации изменения не видны читателям.
type stockTx struct {
	store *Store
	held  map[string]*itemRecord
	done  bool

	aggregates  map[string]int
	colorStocks map[string]map[int64]int
	sizeStocks  map[string]map[int64]int
	colorActive map[string]map[int64]bool
	sizeActive  map[string]map[int64]bool
	movements   []domain.Movement
}

// ItemForUpdate берёт блокировку строки товара. Ожидание прерывается
// контекстом и возвращается как ErrLockTimeout.
func (t *stockTx) ItemForUpdate(ctx context.Context, sku string) (domain.Item, error) {
	if record, ok := t.held[sku]; ok {
		return t.snapshotItem(record), nil
	}

	t.store.mu.RLock()
	record, ok := t.store.items[sku]
	t.store.mu.RUnlock()
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}

	select {
	case record.lock <- struct{}{}:
	case <-ctx.Done():
		return domain.Item{}, fmt.Errorf("lock item %s: %w", sku, domain.ErrLockTimeout)
	}

	t.held[sku] = record
	return t.snapshotItem(record), nil
}

func (t *stockTx) snapshotItem(record *itemRecord) domain.Item {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return record.item
}

func (t *stockTx) ColorVariants(_ context.Context, sku string) ([]domain.ColorVariant, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	record, ok := t.store.items[sku]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return append([]domain.ColorVariant(nil), record.colors...), nil
}

func (t *stockTx) SizeVariants(_ context.Context, sku string) ([]domain.SizeVariant, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	record, ok := t.store.items[sku]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return append([]domain.SizeVariant(nil), record.sizes...), nil
}

func (t *stockTx) SetAggregate(_ context.Context, sku string, value int) error {
	if err := t.requireLock(sku); err != nil {
		return err
	}
	t.aggregates[sku] = value
	return nil
}

func (t *stockTx) SetColorStock(_ context.Context, sku string, variantID int64, value int) error {
	if err := t.requireVariant(sku, variantID, domain.DimensionColor); err != nil {
		return err
	}
	if t.colorStocks[sku] == nil {
		t.colorStocks[sku] = make(map[int64]int)
	}
	t.colorStocks[sku][variantID] = value
	return nil
}

func (t *stockTx) SetSizeStock(_ context.Context, sku string, variantID int64, value int) error {
	if err := t.requireVariant(sku, variantID, domain.DimensionSize); err != nil {
		return err
	}
	if t.sizeStocks[sku] == nil {
		t.sizeStocks[sku] = make(map[int64]int)
	}
	t.sizeStocks[sku][variantID] = value
	return nil
}

func (t *stockTx) SetColorActive(_ context.Context, sku string, variantID int64, active bool) error {
	if err := t.requireVariant(sku, variantID, domain.DimensionColor); err != nil {
		return err
	}
	if t.colorActive[sku] == nil {
		t.colorActive[sku] = make(map[int64]bool)
	}
	t.colorActive[sku][variantID] = active
	return nil
}

func (t *stockTx) SetSizeActive(_ context.Context, sku string, variantID int64, active bool) error {
	if err := t.requireVariant(sku, variantID, domain.DimensionSize); err != nil {
		return err
	}
	if t.sizeActive[sku] == nil {
		t.sizeActive[sku] = make(map[int64]bool)
	}
	t.sizeActive[sku][variantID] = active
	return nil
}

func (t *stockTx) AppendMovement(_ context.Context, movement domain.Movement) error {
	if err := t.requireLock(movement.SKU); err != nil {
		return err
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	t.movements = append(t.movements, movement)
	return nil
}

// Commit применяет накопленные записи и отпускает блокировки строк.
func (t *stockTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction is already finished")
	}
	t.done = true

	t.store.mu.Lock()
	now := time.Now().UTC()
	for sku, record := range t.held {
		if value, ok := t.aggregates[sku]; ok {
			record.item.Aggregate = value
			record.item.UpdatedAt = now
		}
		for i := range record.colors {
			if value, ok := t.colorStocks[sku][record.colors[i].ID]; ok {
				record.colors[i].Stock = value
			}
			if active, ok := t.colorActive[sku][record.colors[i].ID]; ok {
				record.colors[i].Active = active
			}
		}
		for i := range record.sizes {
			if value, ok := t.sizeStocks[sku][record.sizes[i].ID]; ok {
				record.sizes[i].Stock = value
			}
			if active, ok := t.sizeActive[sku][record.sizes[i].ID]; ok {
				record.sizes[i].Active = active
			}
		}
	}
	for _, movement := range t.movements {
		if record, ok := t.store.items[movement.SKU]; ok {
			record.movements = append(record.movements, movement)
		}
	}
	t.store.mu.Unlock()

	t.releaseLocks()
	return nil
}

// Rollback отбрасывает накопленные записи. Безопасен после Commit.
func (t *stockTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.releaseLocks()
	return nil
}

func (t *stockTx) releaseLocks() {
	for _, record := range t.held {
		<-record.lock
	}
	t.held = make(map[string]*itemRecord)
}

func (t *stockTx) requireLock(sku string) error {
	if t.done {
		return fmt.Errorf("transaction is already finished")
	}
	if _, ok := t.held[sku]; !ok {
		return fmt.Errorf("sku %s is not locked in this transaction", sku)
	}
	return nil
}

func (t *stockTx) requireVariant(sku string, variantID int64, dimension domain.Dimension) error {
	if err := t.requireLock(sku); err != nil {
		return err
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	record, ok := t.store.items[sku]
	if !ok {
		return domain.ErrItemNotFound
	}
	if dimension == domain.DimensionColor {
		for _, c := range record.colors {
			if c.ID == variantID {
				return nil
			}
		}
	} else {
		for _, s := range record.sizes {
			if s.ID == variantID {
				return nil
			}
		}
	}
	return domain.ErrVariantNotFound
}

var _ domain.StockTx = (*stockTx)(nil)
