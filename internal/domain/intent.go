package domain

// Dimension указывает, какое представление стока меняет мутация.
type Dimension string

const (
	// DimensionAggregate — прямое изменение агрегатного стока (bulk import, админ).
	DimensionAggregate Dimension = "aggregate"
	// DimensionColor — изменение стока одного цветового варианта.
	DimensionColor Dimension = "color"
	// DimensionSize — изменение стока одного размерного варианта.
	DimensionSize Dimension = "size"
)

// Op задаёт семантику значения в намерении мутации.
type Op string

const (
	// OpSet — установить целевое значение абсолютно (инлайн-редактор, импорт).
	OpSet Op = "set"
	// OpAdjust — сдвинуть целевое значение на дельту (продажа POS, чекаут).
	// Отрицательная дельта, уводящая сток ниже нуля, отклоняется как конфликт.
	OpAdjust Op = "adjust"
)

// MutationIntent — одноразовое намерение изменить сток товара.
// Создаётся вызывающей стороной, потребляется gateway ровно один раз.
type MutationIntent struct {
	SKU       string
	Dimension Dimension
	// VariantID обязателен для DimensionColor/DimensionSize, игнорируется для aggregate.
	VariantID int64
	Op        Op
	Value     int
	// Source помечает источник мутации (pos, admin, checkout, import) для журнала и логов.
	Source string
}

// Validate проверяет корректность намерения и возвращает список замечаний.
func (i MutationIntent) Validate() []error {
	var errs []error

	if i.SKU == "" {
		errs = append(errs, ErrSKURequired)
	}

	switch i.Dimension {
	case DimensionAggregate:
	case DimensionColor, DimensionSize:
		if i.VariantID <= 0 {
			errs = append(errs, ErrVariantIDRequired)
		}
	default:
		errs = append(errs, ErrUnknownDimension)
	}

	switch i.Op {
	case OpSet:
		if i.Value < 0 {
			errs = append(errs, ErrNegativeStock)
		}
	case OpAdjust:
		// Дельта может быть любого знака; итог проверяет ядро.
	default:
		errs = append(errs, ErrUnknownOp)
	}

	return errs
}
