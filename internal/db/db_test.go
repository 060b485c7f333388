package db

import (
	"testing"

	"github.com/Skssssee/Musict/internal/config"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := &config.Config{
		DBBackend: config.DatabaseSQLite,
		DBDSN:     "file::memory:",
	}

	gdb, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer Close(gdb)

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("sqlite should run single-connection, got %d", got)
	}

	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Migrations are idempotent.
	if err := Migrate(gdb); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestConnectRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{DBBackend: "oracle", DBDSN: "whatever"}
	if _, err := Connect(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
