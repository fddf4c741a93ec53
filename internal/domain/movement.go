package domain

import "time"

// Movement — запись журнала движений стока. Создаётся gateway в той же
// транзакции, что и сама мутация, поэтому журнал никогда не расходится
// с фактическим состоянием.
type Movement struct {
	ID        string
	SKU       string
	Dimension Dimension
	// VariantID заполнен для движений по цвету/размеру, 0 для агрегатных.
	VariantID    int64
	Delta        int
	OldAggregate int
	NewAggregate int
	Source       string
	CreatedAt    time.Time
}

// Validate проверяет ключевые поля записи движения.
func (m Movement) Validate() []error {
	var errs []error

	if m.ID == "" {
		errs = append(errs, ErrMovementIDRequired)
	}
	if m.SKU == "" {
		errs = append(errs, ErrSKURequired)
	}
	if m.OldAggregate < 0 || m.NewAggregate < 0 {
		errs = append(errs, ErrNegativeStock)
	}

	return errs
}
