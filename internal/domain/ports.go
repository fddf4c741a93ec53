package domain

// StockEventPublisher публикует доменные события стока для внешних
// потребителей (алерты о low stock, аналитика). Публикация выполняется
// после коммита, best-effort: ошибка публикации не влияет на корректность
// уже зафиксированной мутации.
type StockEventPublisher interface {
	// PublishStockChanged сообщает о новом агрегатном стоке товара.
	PublishStockChanged(sku string, newAggregate int, source string) error
	// PublishStockDepleted сообщает, что агрегатный сток товара достиг нуля.
	PublishStockDepleted(sku string, source string) error
}
