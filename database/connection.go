package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Pool defaults, applied unless the URL sets pool_* parameters itself
const (
	defaultMaxConns          = 20
	defaultMinConns          = 2
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = 10 * time.Minute
	defaultHealthCheckPeriod = 30 * time.Second
	connectTimeout           = 10 * time.Second
)

// DB wraps the pgx pool shared by every unit of work
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens the pool and verifies it with a ping
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	applyPoolDefaults(poolConfig, databaseURL)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(log.Fields{
		"host":      poolConfig.ConnConfig.Host,
		"database":  poolConfig.ConnConfig.Database,
		"max_conns": poolConfig.MaxConns,
	}).Info("Database connection established")

	return &DB{Pool: pool}, nil
}

func applyPoolDefaults(cfg *pgxpool.Config, databaseURL string) {
	if strings.Contains(databaseURL, "pool_max_conns") {
		return
	}
	cfg.MaxConns = defaultMaxConns
	cfg.MinConns = defaultMinConns
	cfg.MaxConnLifetime = defaultMaxConnLifetime
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod
}

// Close closes the pool
func (db *DB) Close() {
	db.Pool.Close()
}
