package domain

import "context"

// StockStore описывает требования к хранилищу стока.
//
// Методы чтения не берут блокировок и могут отдавать слегка устаревшие
// данные — это приемлемо для витрины и админ-списков. Все изменения стока
// идут только через StockTx, который выдаёт Begin; записывать напрямую
// в колонки стока мимо gateway запрещено архитектурным правилом
// "ровно один путь записи".
type StockStore interface {
	// Begin открывает транзакцию для мутации стока.
	Begin(ctx context.Context) (StockTx, error)

	// Item возвращает товар или ErrItemNotFound.
	Item(ctx context.Context, sku string) (Item, error)
	// ColorVariants возвращает все цветовые варианты товара по возрастанию ID.
	ColorVariants(ctx context.Context, sku string) ([]ColorVariant, error)
	// SizeVariants возвращает все размерные варианты товара по возрастанию ID.
	SizeVariants(ctx context.Context, sku string) ([]SizeVariant, error)
	// Movements возвращает журнал движений стока товара, новые записи первыми.
	Movements(ctx context.Context, sku string, limit int) ([]Movement, error)

	// CreateItem заводит товар каталога. Возвращает ErrItemExists при занятом SKU.
	CreateItem(ctx context.Context, item Item) error
	// DeleteItem удаляет товар вместе со всеми строками вариантов и журналом.
	DeleteItem(ctx context.Context, sku string) error
	// AddColorVariant добавляет цветовой вариант и возвращает присвоенный ID.
	AddColorVariant(ctx context.Context, variant ColorVariant) (int64, error)
	// AddSizeVariant добавляет размерный вариант и возвращает присвоенный ID.
	AddSizeVariant(ctx context.Context, variant SizeVariant) (int64, error)
}

// StockTx — транзакционный handle над строками стока одного или нескольких SKU.
// ItemForUpdate берёт блокировку строки товара (семантика SELECT ... FOR UPDATE);
// конкурентные мутации того же SKU сериализуются на этой блокировке.
type StockTx interface {
	// ItemForUpdate читает товар под блокировкой строки. Ожидание блокировки
	// прерывается дедлайном контекста и возвращается как ErrLockTimeout.
	ItemForUpdate(ctx context.Context, sku string) (Item, error)
	// ColorVariants читает цветовые варианты внутри транзакции.
	ColorVariants(ctx context.Context, sku string) ([]ColorVariant, error)
	// SizeVariants читает размерные варианты внутри транзакции.
	SizeVariants(ctx context.Context, sku string) ([]SizeVariant, error)

	// SetAggregate записывает новый агрегатный сток товара.
	SetAggregate(ctx context.Context, sku string, value int) error
	// SetColorStock записывает сток цветового варианта.
	SetColorStock(ctx context.Context, sku string, variantID int64, value int) error
	// SetSizeStock записывает сток размерного варианта.
	SetSizeStock(ctx context.Context, sku string, variantID int64, value int) error
	// SetColorActive переключает активность цветового варианта.
	SetColorActive(ctx context.Context, sku string, variantID int64, active bool) error
	// SetSizeActive переключает активность размерного варианта.
	SetSizeActive(ctx context.Context, sku string, variantID int64, active bool) error
	// AppendMovement добавляет запись в журнал движений.
	AppendMovement(ctx context.Context, movement Movement) error

	// Commit фиксирует транзакцию и отпускает блокировки строк.
	Commit() error
	// Rollback откатывает незафиксированные изменения. Безопасен после Commit.
	Rollback() error
}
