package domain

import "errors"

// StockState — снимок текущего состояния стока товара, прочитанный под
// блокировкой строки внутри транзакции gateway.
type StockState struct {
	Aggregate int
	Colors    []ColorVariant
	Sizes     []SizeVariant
}

// ReconciledState — согласованное новое состояние, которое gateway записывает
// атомарно: новый агрегат и полные наборы стоков активных вариантов.
// Срез измерения пуст, если измерение не отслеживается.
type ReconciledState struct {
	Aggregate int
	Colors    []VariantStock
	Sizes     []VariantStock
}

// Reconcile — чистое ядро согласования: по текущему состоянию и намерению
// вычисляет новое согласованное состояние. Не выполняет I/O и не подавляет
// ошибки; классификацию и откат транзакции делает gateway.
func Reconcile(state StockState, intent MutationIntent) (ReconciledState, error) {
	if errs := intent.Validate(); len(errs) > 0 {
		return ReconciledState{}, errors.Join(errs...)
	}

	mode := DeriveTrackingMode(state.Colors, state.Sizes)

	var (
		result ReconciledState
		err    error
	)
	switch intent.Dimension {
	case DimensionAggregate:
		result, err = reconcileAggregate(state, mode, intent)
	case DimensionColor:
		result, err = reconcileColor(state, mode, intent)
	case DimensionSize:
		result, err = reconcileSize(state, mode, intent)
	default:
		return ReconciledState{}, ErrUnknownDimension
	}
	if err != nil {
		return ReconciledState{}, err
	}

	if err := verifyBalance(result, mode); err != nil {
		return ReconciledState{}, err
	}
	return result, nil
}

// ReconcileActivation пересчитывает состояние после явной активации или
// деактивации варианта. Направление распространения здесь обратное обычной
// мутации: агрегат пересинхронизируется с суммой активных вариантов
// переключённого измерения, затем новый агрегат распределяется во второе
// измерение, если оно отслеживается.
func ReconcileActivation(state StockState, dimension Dimension, variantID int64, active bool) (ReconciledState, error) {
	colors := append([]ColorVariant(nil), state.Colors...)
	sizes := append([]SizeVariant(nil), state.Sizes...)

	var own []VariantStock
	switch dimension {
	case DimensionColor:
		idx := -1
		for i := range colors {
			if colors[i].ID == variantID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ReconciledState{}, ErrVariantNotFound
		}
		colors[idx].Active = active
		own = ActiveColorStocks(colors)
	case DimensionSize:
		idx := -1
		for i := range sizes {
			if sizes[i].ID == variantID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ReconciledState{}, ErrVariantNotFound
		}
		sizes[idx].Active = active
		own = ActiveSizeStocks(sizes)
	default:
		return ReconciledState{}, ErrUnknownDimension
	}

	mode := DeriveTrackingMode(colors, sizes)

	// Агрегат пересинхронизируется с переключённым измерением. Если там не
	// осталось активных вариантов, опереться не на что: источником становится
	// второе отслеживаемое измерение, а без него — прежний агрегат. Иначе
	// деактивация последнего варианта обнуляла бы сток всего товара.
	newAggregate := SumStocks(own)
	if len(own) == 0 {
		switch {
		case dimension == DimensionColor && mode.TracksSize():
			newAggregate = SumStocks(ActiveSizeStocks(sizes))
		case dimension == DimensionSize && mode.TracksColor():
			newAggregate = SumStocks(ActiveColorStocks(colors))
		default:
			newAggregate = state.Aggregate
		}
	}

	result := ReconciledState{Aggregate: newAggregate}
	if dimension == DimensionColor {
		result.Colors = own
		if mode.TracksSize() {
			distributed, err := distribute(ActiveSizeStocks(sizes), newAggregate)
			if err != nil {
				return ReconciledState{}, err
			}
			result.Sizes = distributed
		}
	} else {
		result.Sizes = own
		if mode.TracksColor() {
			distributed, err := distribute(ActiveColorStocks(colors), newAggregate)
			if err != nil {
				return ReconciledState{}, err
			}
			result.Colors = distributed
		}
	}

	if err := verifyBalance(result, mode); err != nil {
		return ReconciledState{}, err
	}
	return result, nil
}

func reconcileAggregate(state StockState, mode TrackingMode, intent MutationIntent) (ReconciledState, error) {
	target, err := resolveTarget(intent, state.Aggregate)
	if err != nil {
		return ReconciledState{}, err
	}

	result := ReconciledState{Aggregate: target}

	if mode.TracksColor() {
		distributed, err := distribute(ActiveColorStocks(state.Colors), target)
		if err != nil {
			return ReconciledState{}, err
		}
		result.Colors = distributed
	}
	if mode.TracksSize() {
		distributed, err := distribute(ActiveSizeStocks(state.Sizes), target)
		if err != nil {
			return ReconciledState{}, err
		}
		result.Sizes = distributed
	}

	return result, nil
}

func reconcileColor(state StockState, mode TrackingMode, intent MutationIntent) (ReconciledState, error) {
	variant, err := findColor(state.Colors, intent.VariantID)
	if err != nil {
		return ReconciledState{}, err
	}

	target, err := resolveTarget(intent, variant.Stock)
	if err != nil {
		return ReconciledState{}, err
	}

	colors := ActiveColorStocks(state.Colors)
	for i := range colors {
		if colors[i].ID == variant.ID {
			colors[i].Stock = target
		}
	}

	// Новый агрегат — сумма активных цветов после правки.
	result := ReconciledState{Aggregate: SumStocks(colors), Colors: colors}
	if mode.TracksSize() {
		distributed, err := distribute(ActiveSizeStocks(state.Sizes), result.Aggregate)
		if err != nil {
			return ReconciledState{}, err
		}
		result.Sizes = distributed
	}

	return result, nil
}

func reconcileSize(state StockState, mode TrackingMode, intent MutationIntent) (ReconciledState, error) {
	variant, err := findSize(state.Sizes, intent.VariantID)
	if err != nil {
		return ReconciledState{}, err
	}

	target, err := resolveTarget(intent, variant.Stock)
	if err != nil {
		return ReconciledState{}, err
	}

	sizes := ActiveSizeStocks(state.Sizes)
	for i := range sizes {
		if sizes[i].ID == variant.ID {
			sizes[i].Stock = target
		}
	}

	result := ReconciledState{Aggregate: SumStocks(sizes), Sizes: sizes}
	if mode.TracksColor() {
		distributed, err := distribute(ActiveColorStocks(state.Colors), result.Aggregate)
		if err != nil {
			return ReconciledState{}, err
		}
		result.Colors = distributed
	}

	return result, nil
}

// resolveTarget приводит намерение к абсолютному целевому значению.
// Для OpAdjust итог ниже нуля означает нехватку стока, а не ошибку ввода.
func resolveTarget(intent MutationIntent, current int) (int, error) {
	switch intent.Op {
	case OpSet:
		if intent.Value < 0 {
			return 0, ErrNegativeStock
		}
		return intent.Value, nil
	case OpAdjust:
		target := current + intent.Value
		if target < 0 {
			return 0, ErrInsufficientStock
		}
		return target, nil
	default:
		return 0, ErrUnknownOp
	}
}

// distribute распределяет total по вариантам пропорционально их текущим долям.
// Каждый вариант получает floor своей доли, накопленный остаток округления
// достаётся последнему варианту по возрастанию ID, так что сумма всегда
// в точности равна total. При нулевой текущей сумме доли не определены:
// total делится максимально ровно, лишние единицы уходят вариантам
// с наименьшими ID. Идентичный повтор (total равен текущей сумме) ничего
// не перераспределяет, поэтому повторное применение не даёт дрейфа.
func distribute(current []VariantStock, total int) ([]VariantStock, error) {
	n := len(current)
	if n == 0 {
		return nil, nil
	}

	result := append([]VariantStock(nil), current...)

	oldTotal := SumStocks(current)
	if oldTotal == total {
		return result, nil
	}

	if oldTotal == 0 {
		quotient, remainder := total/n, total%n
		for i := range result {
			result[i].Stock = quotient
			if i < remainder {
				result[i].Stock++
			}
		}
		return result, nil
	}

	assigned := 0
	for i := 0; i < n-1; i++ {
		share := total * current[i].Stock / oldTotal
		if share < 0 {
			return nil, ErrNegativeShare
		}
		result[i].Stock = share
		assigned += share
	}
	last := total - assigned
	if last < 0 {
		return nil, ErrNegativeShare
	}
	result[n-1].Stock = last

	return result, nil
}

// verifyBalance — защитная проверка пост-условия: сумма каждого
// отслеживаемого измерения обязана равняться агрегату. Никакого
// подрезания или клампинга: несхождение означает баг ядра.
func verifyBalance(state ReconciledState, mode TrackingMode) error {
	if state.Aggregate < 0 {
		return ErrOutOfBalance
	}
	if mode.TracksColor() && SumStocks(state.Colors) != state.Aggregate {
		return ErrOutOfBalance
	}
	if mode.TracksSize() && SumStocks(state.Sizes) != state.Aggregate {
		return ErrOutOfBalance
	}
	for _, v := range state.Colors {
		if v.Stock < 0 {
			return ErrOutOfBalance
		}
	}
	for _, v := range state.Sizes {
		if v.Stock < 0 {
			return ErrOutOfBalance
		}
	}
	return nil
}

func findColor(colors []ColorVariant, id int64) (ColorVariant, error) {
	for _, c := range colors {
		if c.ID == id {
			if !c.Active {
				return ColorVariant{}, ErrVariantInactive
			}
			return c, nil
		}
	}
	return ColorVariant{}, ErrVariantNotFound
}

func findSize(sizes []SizeVariant, id int64) (SizeVariant, error) {
	for _, s := range sizes {
		if s.ID == id {
			if !s.Active {
				return SizeVariant{}, ErrVariantInactive
			}
			return s, nil
		}
	}
	return SizeVariant{}, ErrVariantNotFound
}
