package store

import (
	"context"
	"os"
	"testing"

	"github.com/radieske/match-betting-ledger/internal/shared/db"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("LEDGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pg, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		t.Fatalf("schema: %v", err)
	}

	runContract(t, NewPostgres(pg))
}
