package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/config"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:dbclient_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}
	return FromConn(conn), mock
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := FromConn(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := FromConn(db)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicky"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic rollback, got %d rows", count)
	}
}

func TestWithTx_SurfacesRetryablePostgresErrors(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE inventory_records").
		WillReturnError(&pgconn.PgError{Code: pgSerializationFailure, Message: "could not serialize access"})
	mock.ExpectRollback()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec("UPDATE inventory_records SET quantity = quantity - 1").Error
	})
	if err == nil {
		t.Fatal("expected serialization failure")
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecSurfacesUniqueViolation(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO sales").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "ux_sales_receipt_number"})

	err := client.Exec(context.Background(), "INSERT INTO sales (receipt_number) VALUES ('RCP-1')").Error
	if !IsUniqueViolation(err, "ux_sales_receipt_number") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(err, "ux_other") {
		t.Fatalf("constraint name should be matched exactly")
	}
	if IsRetryable(err) {
		t.Fatalf("unique violations are not retryable")
	}
}

func TestIsRetryableMatchesSQLiteBusy(t *testing.T) {
	if !IsRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected sqlite busy to be retryable")
	}
	if IsRetryable(errors.New("no such table: sales")) {
		t.Fatal("unexpected retryable match")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is never retryable")
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := FromConn(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewOpensSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:    "file:dbclient_new_" + uuid.NewString() + "?mode=memory&cache=shared",
		Driver: "sqlite3",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, DriverSQLite, client.Driver())
	require.NoError(t, client.Ping(context.Background()))

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewRejectsMissingDSNAndUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: DriverPostgres}, nil)
	require.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{DSN: "x", Driver: "mysql"}, nil)
	require.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestFromConnDetectsDriver(t *testing.T) {
	assert.Equal(t, DriverSQLite, FromConn(newTestDB(t)).Driver())

	client, _ := newMockClient(t)
	assert.Equal(t, DriverPostgres, client.Driver())
}

func TestNormalizeDriver(t *testing.T) {
	cases := map[string]string{
		"":           DriverPostgres,
		"PostgreSQL": DriverPostgres,
		" pg ":       DriverPostgres,
		"sqlite3":    DriverSQLite,
		"SQLite":     DriverSQLite,
		"mysql":      "mysql",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeDriver(in), in)
	}
}
