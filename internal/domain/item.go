package domain

import (
	"sort"
	"time"
)

// TrackingMode описывает, какие измерения вариантов дробят агрегатный сток товара.
// Режим всегда выводится из актуальных строк вариантов и никогда не хранится:
// конкурентная админ-операция может добавить или деактивировать вариант между
// чтением и записью, поэтому режим пересчитывается внутри каждой транзакции.
type TrackingMode string

const (
	// TrackingNone — у товара только агрегатный сток.
	TrackingNone TrackingMode = "none"
	// TrackingColor — сток дробится по цветам.
	TrackingColor TrackingMode = "color"
	// TrackingSize — сток дробится по размерам.
	TrackingSize TrackingMode = "size"
	// TrackingColorAndSize — два параллельных разбиения одного агрегата.
	// Цвета и размеры не перемножаются в общую сетку: каждая сумма
	// независимо сходится к агрегату.
	TrackingColorAndSize TrackingMode = "color_and_size"
)

// TracksColor сообщает, отслеживается ли цветовое измерение.
func (m TrackingMode) TracksColor() bool {
	return m == TrackingColor || m == TrackingColorAndSize
}

// TracksSize сообщает, отслеживается ли размерное измерение.
func (m TrackingMode) TracksSize() bool {
	return m == TrackingSize || m == TrackingColorAndSize
}

// Item представляет товар с агрегатным стоком.
type Item struct {
	SKU       string
	Aggregate int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ColorVariant — цветовое подразделение стока товара.
type ColorVariant struct {
	ID     int64
	SKU    string
	Name   string
	Stock  int
	Active bool
}

// SizeVariant — размерное подразделение стока товара.
type SizeVariant struct {
	ID     int64
	SKU    string
	Code   string
	Stock  int
	Active bool
}

// VariantStock — пара (вариант, сток), которой оперирует ядро reconcile
// и которую gateway возвращает вызывающей стороне.
type VariantStock struct {
	ID    int64
	Stock int
}

// DeriveTrackingMode выводит режим отслеживания из строк вариантов.
// Измерение считается отслеживаемым, только если у товара есть хотя бы один
// активный вариант: строки, целиком помеченные неактивными, режим не включают.
func DeriveTrackingMode(colors []ColorVariant, sizes []SizeVariant) TrackingMode {
	trackColor := false
	for _, c := range colors {
		if c.Active {
			trackColor = true
			break
		}
	}
	trackSize := false
	for _, s := range sizes {
		if s.Active {
			trackSize = true
			break
		}
	}

	switch {
	case trackColor && trackSize:
		return TrackingColorAndSize
	case trackColor:
		return TrackingColor
	case trackSize:
		return TrackingSize
	default:
		return TrackingNone
	}
}

// ActiveColorStocks возвращает стоки активных цветов, отсортированные по ID.
func ActiveColorStocks(colors []ColorVariant) []VariantStock {
	result := make([]VariantStock, 0, len(colors))
	for _, c := range colors {
		if c.Active {
			result = append(result, VariantStock{ID: c.ID, Stock: c.Stock})
		}
	}
	sortVariantStocks(result)
	return result
}

// ActiveSizeStocks возвращает стоки активных размеров, отсортированные по ID.
func ActiveSizeStocks(sizes []SizeVariant) []VariantStock {
	result := make([]VariantStock, 0, len(sizes))
	for _, s := range sizes {
		if s.Active {
			result = append(result, VariantStock{ID: s.ID, Stock: s.Stock})
		}
	}
	sortVariantStocks(result)
	return result
}

// SumStocks возвращает сумму стоков набора вариантов.
func SumStocks(stocks []VariantStock) int {
	total := 0
	for _, v := range stocks {
		total += v.Stock
	}
	return total
}

func sortVariantStocks(stocks []VariantStock) {
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })
}
