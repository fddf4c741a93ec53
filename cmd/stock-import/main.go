package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/whimsicalfrog/stock/internal/domain"
	"github.com/whimsicalfrog/stock/internal/service/gateway"
	"github.com/whimsicalfrog/stock/internal/storage/postgres"
)

// stock-import загружает агрегатные остатки из CSV (sku,quantity).
// Каждая строка применяется как обычная мутация через gateway, так что
// разрезы по цветам и размерам пересчитываются, а журнал движений
// пополняется так же, как при ручной правке.
func main() {
	var (
		file          string
		dsn           string
		source        string
		createMissing bool
	)

	flag.StringVar(&file, "file", "", "path to CSV file with sku,quantity rows")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: STOCK_POSTGRES_DSN)")
	flag.StringVar(&source, "source", "import", "source recorded in the movement journal")
	flag.BoolVar(&createMissing, "create-missing", false, "create items for unknown SKUs instead of failing")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger := log.WithField("component", "stock-import")

	if file == "" {
		fail("-file is required")
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("STOCK_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("STOCK_POSTGRES_DSN (or -dsn) is required")
	}

	ctx := context.Background()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	stocks := postgres.NewStockStore(store)
	gw := gateway.New(stocks, nil, logger)

	f, err := os.Open(file)
	if err != nil {
		fail("open csv file: %v", err)
	}
	defer f.Close()

	imported, skipped, err := importCSV(ctx, f, stocks, gw, source, createMissing, logger)
	if err != nil {
		fail("import failed: %v", err)
	}

	logger.WithFields(log.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("import finished")
}

// importCSV читает строки sku,quantity и применяет их по одной.
// Строки с ошибками валидации пропускаются с предупреждением; ошибки
// ввода-вывода и хранилища останавливают импорт.
func importCSV(ctx context.Context, r io.Reader, store domain.StockStore, gw *gateway.Gateway, source string, createMissing bool, logger *log.Entry) (imported, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		sku := strings.TrimSpace(record[0])
		// Заголовок допускается в первой строке.
		if line == 1 && strings.EqualFold(sku, "sku") {
			continue
		}

		quantity, convErr := strconv.Atoi(strings.TrimSpace(record[1]))
		if convErr != nil {
			logger.WithField("line", line).WithError(convErr).Warn("skipping row with invalid quantity")
			skipped++
			continue
		}

		intent := domain.MutationIntent{
			SKU:       sku,
			Dimension: domain.DimensionAggregate,
			Op:        domain.OpSet,
			Value:     quantity,
			Source:    source,
		}

		_, applyErr := gw.Apply(ctx, intent)
		if applyErr != nil && createMissing && domain.IsNotFound(applyErr) {
			if createErr := store.CreateItem(ctx, domain.Item{SKU: sku}); createErr != nil {
				return imported, skipped, fmt.Errorf("create item %s: %w", sku, createErr)
			}
			_, applyErr = gw.Apply(ctx, intent)
		}
		if applyErr != nil {
			if domain.IsValidation(applyErr) || domain.IsNotFound(applyErr) {
				logger.WithFields(log.Fields{"line": line, "sku": sku}).WithError(applyErr).Warn("skipping row")
				skipped++
				continue
			}
			return imported, skipped, fmt.Errorf("apply stock for %s: %w", sku, applyErr)
		}

		imported++
	}

	return imported, skipped, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
