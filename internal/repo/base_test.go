package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return conn
}

func TestBaseDBWithContext(t *testing.T) {
	conn := openSQLite(t)
	base := NewBase(conn)

	type marker struct{}
	ctx := context.WithValue(context.Background(), marker{}, "v")

	bound := base.DB(ctx)
	if bound == nil || bound.Statement == nil {
		t.Fatalf("expected a context-bound session")
	}
	if bound.Statement.Context != ctx {
		t.Fatalf("context did not flow into the session")
	}
}

func TestBaseDBNilContext(t *testing.T) {
	conn := openSQLite(t)
	base := NewBase(conn)

	if got := base.DB(nil); got != conn {
		t.Fatalf("nil context should yield the raw connection")
	}
}
