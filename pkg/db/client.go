package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/blendery/blendery-backend/pkg/config"
	"github.com/blendery/blendery-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	return &Client{conn: conn}, nil
}

// NewWithConn wraps an existing GORM connection (tests use this with sqlite).
func NewWithConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
// Postgres transactions run at Read Committed; sqlite (tests) keeps its
// default since the driver rejects explicit isolation levels.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	opts := &sql.TxOptions{}
	if c.conn.Dialector.Name() == "postgres" {
		opts.Isolation = sql.LevelReadCommitted
	}
	tx := c.conn.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// TxBounds caps how long a transaction may wait on row locks and how long
// it may run overall before the database aborts it.
type TxBounds struct {
	LockWait time.Duration
	Timeout  time.Duration
}

// WithBoundedTx runs fn inside a transaction bounded by a context deadline
// and, on Postgres, per-transaction lock/statement ceilings. The SET LOCAL
// values expire with the transaction; other dialects rely on the context
// deadline alone.
func (c *Client) WithBoundedTx(ctx context.Context, bounds TxBounds, fn func(tx *gorm.DB) error) error {
	if bounds.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bounds.Timeout)
		defer cancel()
	}

	return c.WithTx(ctx, func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if bounds.LockWait > 0 {
				if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", bounds.LockWait.Milliseconds())).Error; err != nil {
					return err
				}
			}
			if bounds.Timeout > 0 {
				if err := tx.Exec(fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", bounds.Timeout.Milliseconds())).Error; err != nil {
					return err
				}
			}
		}
		return fn(tx)
	})
}
