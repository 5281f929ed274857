package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"nftmarket/pkg/config"
)

//go:embed schema.sql
var schema string

// Connect opens and pings a pool using cfg. The schema is applied unless
// cfg.ApplySchemaOnStart is false.
func Connect(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse DB config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	zap.L().Info("Connected to PostgreSQL")

	if cfg.ApplySchemaOnStart {
		schemaCtx, cancelSchema := context.WithTimeout(ctx, 30*time.Second)
		defer cancelSchema()
		if err := ApplySchema(schemaCtx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

// ApplySchema executes the embedded schema. Every statement is idempotent.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	sql := strings.TrimSpace(schema)
	if sql == "" {
		return fmt.Errorf("embedded schema is empty")
	}

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	zap.L().Info("Schema applied")
	return nil
}
