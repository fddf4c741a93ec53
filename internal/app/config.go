package app

// Поддерживаемые драйверы хранилища стока.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	MetricsAddr string
	HTTPAddr    string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую. Пустое значение
	// отключает публикацию событий стока.
	KafkaBrokers string
}

// DefaultConfig возвращает рабочие значения по умолчанию:
// in-memory хранилище, автоприменение миграций, Kafka выключен.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		HTTPAddr:            ":8080",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
	}
}
