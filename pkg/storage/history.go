package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/model"
)

const connectTimeout = 10 * time.Second

// HistoryStore mirrors the merged table into Postgres so downstream alerting
// can query past runs. It is optional; the CSV file remains the primary sink.
type HistoryStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewHistoryStore connects to Postgres and brings the schema up to date.
func NewHistoryStore(databaseURL, migrationsPath string, logger *zap.Logger) (*HistoryStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(sqlDB, migrationsPath); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info("Connected to history database")
	return &HistoryStore{db: sqlx.NewDb(sqlDB, "postgres"), logger: logger}, nil
}

// Close releases the underlying connection pool.
func (h *HistoryStore) Close() error { return h.db.Close() }

// ReplaceSnapshot rewrites the premium_history table with this run's merged
// table inside a single transaction, tagged with the run ID.
func (h *HistoryStore) ReplaceSnapshot(ctx context.Context, runID uuid.UUID, table model.MergedTable) error {
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM premium_history`); err != nil {
		return fmt.Errorf("failed to clear premium history: %w", err)
	}

	const insert = `
		INSERT INTO premium_history (run_id, trade_date, adr_close, fx_rate, home_close, adr_in_twd, premium)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, rec := range table {
		if _, err := tx.ExecContext(ctx, insert,
			runID,
			rec.Date,
			rec.ADRClose,
			rec.FXRate,
			rec.HomeClose,
			rec.ADRInTWD,
			rec.Premium,
		); err != nil {
			return fmt.Errorf("failed to insert row for %s: %w", rec.Date.Format(model.DateFormat), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	h.logger.Info("Replaced premium history snapshot",
		zap.String("run_id", runID.String()),
		zap.Int("rows", len(table)))
	return nil
}

func runMigrations(sqlDB *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
