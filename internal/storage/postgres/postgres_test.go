package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

func TestNew_ConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := Config{
		Host:     "nonexistent-host.invalid",
		Database: "fundtracker",
		User:     "fundtracker",
		Password: "password",
	}
	if _, err := New(ctx, cfg, slog.New(slog.NewTextHandler(os.Stdout, nil))); err == nil {
		t.Error("expected error when connecting to nonexistent host, got nil")
	}
}

func TestBackendRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping integration test")
	}
	ctx := context.Background()

	b, err := New(ctx, Config{DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer b.Close()

	store := ledger.NewStore(b, core.DefaultCatalog())
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := b.Save(ctx, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	for i, desc := range []string{"a", "b", "c"} {
		_, err := store.Append(ctx, core.Draft{
			Date:        core.NewDate(2024, 1, i+1),
			Description: desc,
			Amount:      core.Units(int64(i + 1)),
			Category:    "PSO Fuel Card",
			Method:      "Fuel Card Update",
		})
		if err != nil {
			t.Fatalf("append %s: %v", desc, err)
		}
	}
	if _, err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	again := ledger.NewStore(b, core.DefaultCatalog())
	res, err := again.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Count != 2 || res.Dropped != 0 {
		t.Fatalf("unexpected load result %+v", res)
	}
	got := again.Snapshot()
	if got[0].Seq != 1 || got[0].Description != "b" || got[1].Amount != core.Units(3) {
		t.Fatalf("unexpected ledger %+v", got)
	}
}
