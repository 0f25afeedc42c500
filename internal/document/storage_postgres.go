package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradebot-config/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createConfigurationsTable = `
CREATE TABLE IF NOT EXISTS bot_configurations (
	name VARCHAR(100) PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT NOW()
)`

const selectConfiguration = `SELECT data FROM bot_configurations WHERE name = $1`

const upsertConfiguration = `
INSERT INTO bot_configurations (name, data, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

// pgQuerier is the subset of *pgxpool.Pool used by PostgresStorage
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage keeps named documents in the bot_configurations table
type PostgresStorage struct {
	db   pgQuerier
	name string
}

// NewPostgresStorage opens a connection pool and makes sure the table exists
func NewPostgresStorage(ctx context.Context, cfg config.PostgresConfig, name string) (*PostgresStorage, *pgxpool.Pool, error) {
	if !cfg.Enabled {
		return nil, nil, fmt.Errorf("postgres is not enabled in configuration")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := newPostgresStorage(pool, name)
	if err := s.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

func newPostgresStorage(db pgQuerier, name string) *PostgresStorage {
	return &PostgresStorage{db: db, name: name}
}

// EnsureSchema creates the bot_configurations table when missing
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createConfigurationsTable); err != nil {
		return fmt.Errorf("failed to create bot_configurations table: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Name() string {
	return "postgres:" + s.name
}

func (s *PostgresStorage) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(ctx, selectConfiguration, s.name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.name)
		}
		return nil, fmt.Errorf("failed to get configuration %s: %w", s.name, err)
	}
	return data, nil
}

func (s *PostgresStorage) Store(ctx context.Context, data []byte) error {
	if _, err := s.db.Exec(ctx, upsertConfiguration, s.name, data); err != nil {
		return fmt.Errorf("failed to save configuration %s: %w", s.name, err)
	}
	return nil
}
