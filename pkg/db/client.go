package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Client owns the pooled GORM connection shared by every repository. Sale
// commits, inventory adjustments and loyalty writes all run through WithTx.
type Client struct {
	conn   *gorm.DB
	driver string
}

// New opens the database named by cfg.Driver. Postgres is the production
// target; sqlite exists for local single-terminal runs.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	driver := normalizeDriver(cfg.Driver)
	dialector, err := dialectorFor(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	configurePool(sqlDB, driver, cfg)

	if logg != nil {
		stats := sqlDB.Stats()
		logg.Info(logg.WithFields(ctx, map[string]any{
			"db_driver":          driver,
			"db_max_open_conns":  stats.MaxOpenConnections,
			"db_conn_lifetime":   cfg.ConnMaxLifetime.String(),
			"db_conn_idle_limit": cfg.ConnMaxIdleTime.String(),
		}), "database connection established")
	}

	return &Client{conn: conn, driver: driver}, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "pg", "postgresql", DriverPostgres:
		return DriverPostgres
	case "sqlite3", DriverSQLite:
		return DriverSQLite
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// configurePool applies pool limits. sqlite serializes writers, so it is held
// to one connection regardless of cfg.
func configurePool(sqlDB *sql.DB, driver string, cfg config.DBConfig) {
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// FromConn wraps a connection opened elsewhere, typically by tests.
func FromConn(conn *gorm.DB) *Client {
	driver := DriverPostgres
	if conn != nil && conn.Dialector != nil {
		driver = normalizeDriver(conn.Dialector.Name())
	}
	return &Client{conn: conn, driver: driver}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Driver reports which dialect the client was opened with.
func (c *Client) Driver() string {
	return c.driver
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Exec runs a statement outside any transaction.
func (c *Client) Exec(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.conn.WithContext(ctx).Exec(query, args...)
}

// WithTx runs fn in a transaction. A returned error or a panic rolls back;
// the panic is re-raised after rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
		tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	committed = true
	return nil
}
