package database

import (
	"context"
	"testing"
	"time"
)

func TestConnectSQLite(t *testing.T) {
	db, err := Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer Close(db)

	if err := Ping(context.Background(), db); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestConnectUnsupportedDriver(t *testing.T) {
	if _, err := Connect("mysql", "whatever"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestWaitForDBReturnsWhenAvailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	db, err := WaitForDB(ctx, "sqlite", ":memory:", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForDB failed: %v", err)
	}
	Close(db)
}

func TestWaitForDBGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := WaitForDB(ctx, "mysql", "nowhere", 10*time.Millisecond); err == nil {
		t.Error("Expected error when database never becomes available")
	}
}
