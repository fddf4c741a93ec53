package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/whimsicalfrog/stock/internal/domain"
)

// StockStore — PostgreSQL-реализация хранилища стока. Конкурентные мутации
// одного SKU сериализуются блокировкой строки items (SELECT ... FOR UPDATE).
type StockStore struct {
	db *sql.DB
}

// NewStockStore создаёт хранилище стока поверх открытого подключения.
func NewStockStore(store *Store) *StockStore {
	return &StockStore{db: store.DB()}
}

// Begin открывает транзакцию мутации.
func (s *StockStore) Begin(ctx context.Context) (domain.StockTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin stock tx: %w", err)
	}
	return &stockTx{tx: tx}, nil
}

// Item возвращает товар без блокировки.
func (s *StockStore) Item(ctx context.Context, sku string) (domain.Item, error) {
	return scanItem(s.db.QueryRowContext(ctx, `
		SELECT sku, aggregate_stock, created_at, updated_at
		FROM items
		WHERE sku = $1
	`, sku))
}

// ColorVariants возвращает все цветовые варианты товара по возрастанию ID.
func (s *StockStore) ColorVariants(ctx context.Context, sku string) ([]domain.ColorVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, stock, active
		FROM item_colors
		WHERE sku = $1
		ORDER BY id ASC
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("query color variants: %w", err)
	}
	return scanColorVariants(rows)
}

// SizeVariants возвращает все размерные варианты товара по возрастанию ID.
func (s *StockStore) SizeVariants(ctx context.Context, sku string) ([]domain.SizeVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, code, stock, active
		FROM item_sizes
		WHERE sku = $1
		ORDER BY id ASC
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("query size variants: %w", err)
	}
	return scanSizeVariants(rows)
}

// Movements возвращает журнал движений, новые записи первыми.
func (s *StockStore) Movements(ctx context.Context, sku string, limit int) ([]domain.Movement, error) {
	query := `
		SELECT id, sku, dimension, variant_id, delta, old_aggregate, new_aggregate, source, created_at
		FROM stock_movements
		WHERE sku = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT $2", sku, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query, sku)
	}
	if err != nil {
		return nil, fmt.Errorf("query stock movements: %w", err)
	}
	defer rows.Close()

	movements := make([]domain.Movement, 0)
	for rows.Next() {
		var (
			m         domain.Movement
			dimension string
		)
		if err := rows.Scan(
			&m.ID, &m.SKU, &dimension, &m.VariantID,
			&m.Delta, &m.OldAggregate, &m.NewAggregate, &m.Source, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Dimension = domain.Dimension(dimension)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}

	return movements, nil
}

// CreateItem заводит товар каталога.
func (s *StockStore) CreateItem(ctx context.Context, item domain.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (sku, aggregate_stock, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
	`, item.SKU, item.Aggregate)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrItemExists
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// DeleteItem удаляет товар; варианты и журнал уходят каскадом.
func (s *StockStore) DeleteItem(ctx context.Context, sku string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE sku = $1`, sku)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// AddColorVariant добавляет цветовой вариант и возвращает присвоенный ID.
func (s *StockStore) AddColorVariant(ctx context.Context, variant domain.ColorVariant) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO item_colors (sku, name, stock, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, variant.SKU, variant.Name, variant.Stock, variant.Active).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrItemNotFound
		}
		return 0, fmt.Errorf("insert color variant: %w", err)
	}
	return id, nil
}

// AddSizeVariant добавляет размерный вариант и возвращает присвоенный ID.
func (s *StockStore) AddSizeVariant(ctx context.Context, variant domain.SizeVariant) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO item_sizes (sku, code, stock, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, variant.SKU, variant.Code, variant.Stock, variant.Active).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrItemNotFound
		}
		return 0, fmt.Errorf("insert size variant: %w", err)
	}
	return id, nil
}

type stockTx struct {
	tx *sql.Tx
}

// ItemForUpdate читает товар под блокировкой строки. Истёкший на ожидании
// блокировки контекст возвращается как ErrLockTimeout.
func (t *stockTx) ItemForUpdate(ctx context.Context, sku string) (domain.Item, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx, `
		SELECT sku, aggregate_stock, created_at, updated_at
		FROM items
		WHERE sku = $1
		FOR UPDATE
	`, sku))
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, domain.ErrItemNotFound) {
			return domain.Item{}, fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
		}
		return domain.Item{}, err
	}
	return item, nil
}

func (t *stockTx) ColorVariants(ctx context.Context, sku string) ([]domain.ColorVariant, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, sku, name, stock, active
		FROM item_colors
		WHERE sku = $1
		ORDER BY id ASC
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("query color variants: %w", err)
	}
	return scanColorVariants(rows)
}

func (t *stockTx) SizeVariants(ctx context.Context, sku string) ([]domain.SizeVariant, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, sku, code, stock, active
		FROM item_sizes
		WHERE sku = $1
		ORDER BY id ASC
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("query size variants: %w", err)
	}
	return scanSizeVariants(rows)
}

func (t *stockTx) SetAggregate(ctx context.Context, sku string, value int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE items
		SET aggregate_stock = $2, updated_at = NOW()
		WHERE sku = $1
	`, sku, value)
	if err != nil {
		return fmt.Errorf("update aggregate stock: %w", err)
	}
	return requireAffected(res, domain.ErrItemNotFound)
}

func (t *stockTx) SetColorStock(ctx context.Context, sku string, variantID int64, value int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE item_colors
		SET stock = $3
		WHERE sku = $1 AND id = $2
	`, sku, variantID, value)
	if err != nil {
		return fmt.Errorf("update color stock: %w", err)
	}
	return requireAffected(res, domain.ErrVariantNotFound)
}

func (t *stockTx) SetSizeStock(ctx context.Context, sku string, variantID int64, value int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE item_sizes
		SET stock = $3
		WHERE sku = $1 AND id = $2
	`, sku, variantID, value)
	if err != nil {
		return fmt.Errorf("update size stock: %w", err)
	}
	return requireAffected(res, domain.ErrVariantNotFound)
}

func (t *stockTx) SetColorActive(ctx context.Context, sku string, variantID int64, active bool) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE item_colors
		SET active = $3
		WHERE sku = $1 AND id = $2
	`, sku, variantID, active)
	if err != nil {
		return fmt.Errorf("update color active: %w", err)
	}
	return requireAffected(res, domain.ErrVariantNotFound)
}

func (t *stockTx) SetSizeActive(ctx context.Context, sku string, variantID int64, active bool) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE item_sizes
		SET active = $3
		WHERE sku = $1 AND id = $2
	`, sku, variantID, active)
	if err != nil {
		return fmt.Errorf("update size active: %w", err)
	}
	return requireAffected(res, domain.ErrVariantNotFound)
}

func (t *stockTx) AppendMovement(ctx context.Context, movement domain.Movement) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_movements (
			id, sku, dimension, variant_id, delta, old_aggregate, new_aggregate, source, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		movement.ID, movement.SKU, string(movement.Dimension), movement.VariantID,
		movement.Delta, movement.OldAggregate, movement.NewAggregate, movement.Source, movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (t *stockTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit stock tx: %w", err)
	}
	return nil
}

func (t *stockTx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return fmt.Errorf("rollback stock tx: %w", err)
}

func scanItem(row *sql.Row) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.SKU, &item.Aggregate, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("scan item: %w", err)
	}
	return item, nil
}

func scanColorVariants(rows *sql.Rows) ([]domain.ColorVariant, error) {
	defer rows.Close()

	variants := make([]domain.ColorVariant, 0)
	for rows.Next() {
		var v domain.ColorVariant
		if err := rows.Scan(&v.ID, &v.SKU, &v.Name, &v.Stock, &v.Active); err != nil {
			return nil, fmt.Errorf("scan color variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate color variants: %w", err)
	}
	return variants, nil
}

func scanSizeVariants(rows *sql.Rows) ([]domain.SizeVariant, error) {
	defer rows.Close()

	variants := make([]domain.SizeVariant, 0)
	for rows.Next() {
		var v domain.SizeVariant
		if err := rows.Scan(&v.ID, &v.SKU, &v.Code, &v.Stock, &v.Active); err != nil {
			return nil, fmt.Errorf("scan size variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate size variants: %w", err)
	}
	return variants, nil
}

func requireAffected(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.StockStore = (*StockStore)(nil)
var _ domain.StockTx = (*stockTx)(nil)
