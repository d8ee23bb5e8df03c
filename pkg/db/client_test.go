package db

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/compunet/storefront/pkg/config"
	"github.com/compunet/storefront/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestGormLoggerReportsErrorsThroughLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})

	conn := newTestDB(t)
	conn.Logger = newGormLogger(logg, config.DBConfig{SlowQuery: time.Hour})
	client := NewFromGorm(conn, config.DBDriverSQLite)

	if err := client.DB().Exec("SELECT * FROM missing_table").Error; err == nil {
		t.Fatal("expected query against a missing table to fail")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"gorm"`)) {
		t.Fatalf("expected gorm error routed to logger, got %s", buf.String())
	}

	buf.Reset()
	var count int64
	if err := client.DB().Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("fast successful queries should not be logged, got %s", buf.String())
	}
}

func TestNewSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	client, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverSQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
	if client.Dialect() != config.DBDriverSQLite {
		t.Fatalf("unexpected dialect %q", client.Dialect())
	}
}

func TestNewRejectsMissingSettings(t *testing.T) {
	cases := []config.DBConfig{
		{Driver: config.DBDriverPostgres},
		{Driver: config.DBDriverSQLite},
		{Driver: "oracle", DSN: "x"},
	}
	for _, cfg := range cases {
		if _, err := New(context.Background(), cfg, nil); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
