package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/whimsicalfrog/stock/internal/domain"
	healthcheck "github.com/whimsicalfrog/stock/internal/health"
	"github.com/whimsicalfrog/stock/internal/storage/memory"
	"github.com/whimsicalfrog/stock/internal/storage/postgres"
)

// runtimeDependencies — собранный на старте набор зависимостей хранилища.
type runtimeDependencies struct {
	store  domain.StockStore
	pinger healthcheck.Pinger
	close  func() error
}

// initRuntimeDependencies выбирает и инициализирует хранилище по конфигурации.
// Пустой драйвер трактуется как memory, чтобы сервис поднимался без внешних
// зависимостей.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		store := memory.NewStore()
		logger.Info("using in-memory stock storage")
		return runtimeDependencies{
			store:  store,
			pinger: store,
			close:  func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres storage driver requires a DSN")
		}

		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres storage: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return runtimeDependencies{}, fmt.Errorf("apply schema migrations: %w", err)
			}
			logger.Info("postgres schema migrations applied")
		}

		logger.Info("using postgres stock storage")
		return runtimeDependencies{
			store:  postgres.NewStockStore(pg),
			pinger: pg,
			close:  pg.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
