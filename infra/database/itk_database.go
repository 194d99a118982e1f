// Package database opens the shared Postgres and Redis handles.
//
// The service keeps two Postgres handles on purpose: a pgx pool for the
// readiness probe and a sqlx handle for the persistence adapters. Both run
// the simple query protocol so PgBouncer in transaction mode stays usable.
package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// The pipeline is a weekly batch plus a handful of cron-triggered routes, so
// the pools stay small. The draft stage is the widest concurrent DB user and
// it is bounded by DRAFT_WORKERS.
const (
	pgMaxConns        = 10
	pgMinConns        = 2
	pgConnMaxLifetime = time.Hour
	pgConnMaxIdleTime = 30 * time.Minute

	redisPoolSize    = 10
	redisDialTimeout = 5 * time.Second
	redisIOTimeout   = 3 * time.Second
)

// NewPostgres opens the pgx pool used by the health probes.
func NewPostgres(databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	config.MaxConns = pgMaxConns
	config.MinConns = pgMinConns
	config.MaxConnLifetime = pgConnMaxLifetime
	config.MaxConnIdleTime = pgConnMaxIdleTime
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewSQLX opens the sqlx handle the persistence adapters run on.
func NewSQLX(databaseURL string) (*sqlx.DB, error) {
	sep := "?"
	if strings.Contains(databaseURL, "?") {
		sep = "&"
	}
	db, err := sqlx.Connect("pgx", databaseURL+sep+"default_query_exec_mode=simple_protocol")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(pgMaxConns)
	db.SetMaxIdleConns(pgMinConns)
	db.SetConnMaxLifetime(pgConnMaxLifetime)
	return db, nil
}

// NewRedis opens the client backing the webhook rate limiter.
func NewRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	opt.PoolSize = redisPoolSize
	opt.DialTimeout = redisDialTimeout
	opt.ReadTimeout = redisIOTimeout
	opt.WriteTimeout = redisIOTimeout

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
