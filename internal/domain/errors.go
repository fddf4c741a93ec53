package domain

import "errors"

var (
	// Ошибка отсутствующего SKU в намерении мутации.
	ErrSKURequired = errors.New("sku is required")
	// Ошибка отсутствующего идентификатора варианта для COLOR/SIZE мутаций.
	ErrVariantIDRequired = errors.New("variant id is required for variant mutations")
	// Ошибка отрицательного значения стока при операции Set.
	ErrNegativeStock = errors.New("stock value must be non-negative")
	// Ошибка неизвестного измерения стока.
	ErrUnknownDimension = errors.New("unknown stock dimension")
	// Ошибка неизвестной операции мутации.
	ErrUnknownOp = errors.New("unknown mutation op")
	// Ошибка отсутствующего идентификатора записи движения стока.
	ErrMovementIDRequired = errors.New("movement id is required")
	// Ошибка отсутствующего transaction handle при вызове gateway.
	ErrStoreHandleRequired = errors.New("store transaction handle is required")
	// ErrItemNotFound возвращается, если товар не найден в хранилище.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemExists возвращается при попытке создать товар с занятым SKU.
	ErrItemExists = errors.New("item already exists")
	// ErrVariantNotFound возвращается, если вариант не найден у товара.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrVariantInactive — сток неактивного варианта нельзя менять через мутацию;
	// вариант сначала должен быть явно активирован.
	ErrVariantInactive = errors.New("variant is inactive")
	// ErrInsufficientStock — уменьшение увело бы сток ниже нуля.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNegativeShare — пропорциональное распределение дало отрицательную долю.
	ErrNegativeShare = errors.New("distribution produced a negative variant share")
	// ErrLockTimeout — не удалось получить блокировку строки до дедлайна.
	ErrLockTimeout = errors.New("stock row lock timed out")
	// ErrOutOfBalance — защитная проверка после reconcile: суммы вариантов
	// не сошлись с агрегатом. Это баг, транзакция должна быть откатана.
	ErrOutOfBalance = errors.New("reconciled stock is out of balance")
)

// IsValidation проверяет, относится ли ошибка к классу ошибок валидации:
// вызывающая сторона может исправить входные данные и повторить запрос.
func IsValidation(err error) bool {
	return errors.Is(err, ErrSKURequired) ||
		errors.Is(err, ErrVariantIDRequired) ||
		errors.Is(err, ErrNegativeStock) ||
		errors.Is(err, ErrUnknownDimension) ||
		errors.Is(err, ErrUnknownOp) ||
		errors.Is(err, ErrStoreHandleRequired)
}

// IsNotFound проверяет, относится ли ошибка к классу "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrVariantNotFound)
}

// IsConflict проверяет, относится ли ошибка к классу конфликтов:
// повтор с актуальным состоянием может пройти успешно.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVariantInactive) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNegativeShare) ||
		errors.Is(err, ErrLockTimeout)
}

// IsReconciliation проверяет, является ли ошибка нарушением пост-условия ядра.
func IsReconciliation(err error) bool {
	return errors.Is(err, ErrOutOfBalance)
}
