package migrations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hypervisor-analytics/internal/logging"
	"hypervisor-analytics/internal/storage/postgres"
)

// RunPostgresMigrations applies every postgres migration. Each file is
// idempotent (CREATE ... IF NOT EXISTS), so reruns are safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		logger.Debug("applied postgres migration", zap.String("file", m.name))
	}
	return nil
}
