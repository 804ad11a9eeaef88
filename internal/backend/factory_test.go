package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"fundtracker/internal/config"
	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

func TestTypeIsValid(t *testing.T) {
	for _, typ := range Types() {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if Type("excel").IsValid() {
		t.Error("excel should not be valid")
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:         "postgres",
		DataDir:             "data",
		GoogleSpreadsheetID: "sheet-id",
		GoogleSheetName:     "Ledger",
		MirrorSheetName:     "Mirror",
	}
	app.Postgres.Host = "db"
	app.Postgres.Database = "funds"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.Postgres.Host != "db" || cfg.Sheets.SheetName != "Ledger" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	mirror, err := MirrorFromAppConfig(app)
	if err != nil {
		t.Fatalf("MirrorFromAppConfig: %v", err)
	}
	if mirror.Type != SheetsBackend || mirror.Sheets.SheetName != "Mirror" || mirror.Sheets.SpreadsheetID != "sheet-id" {
		t.Errorf("unexpected mirror config: %+v", mirror)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"csv without file", Config{Type: CSVBackend}, "data file path is required"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"postgres without target", Config{Type: PostgresBackend}, "postgres DSN"},
		{"sheets without id", Config{Type: SheetsBackend}, "Spreadsheet ID is required"},
		{"unknown", Config{Type: "excel"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// roundTrip saves one transaction through a fresh backend and loads it
// back through the store.
func roundTrip(t *testing.T, res *Result) {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewStore(res.Backend, core.DefaultCatalog())
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err := store.Append(ctx, core.Draft{
		Date: core.NewDate(2024, 2, 29), Description: "Prize money", Amount: core.MustParseAmount("1500.50"),
		Category: "Tournament Winning Prize", Method: "Bank Transfer",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	again := ledger.NewStore(res.Backend, core.DefaultCatalog())
	loaded, err := again.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Count != 1 {
		t.Fatalf("reloaded %d transactions, want 1", loaded.Count)
	}
}

func TestFactoryCreatesLocalBackends(t *testing.T) {
	dir := t.TempDir()
	f := NewFactory(nil)

	configs := []Config{
		{Type: MemoryBackend, DataDirectory: dir},
		{Type: CSVBackend, DataFile: filepath.Join(dir, "csv", "transactions.csv")},
		{Type: JSONBackend, DataFile: filepath.Join(dir, "json", "transactions.json")},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "fundtracker.db")},
	}
	for _, cfg := range configs {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.Create(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			defer res.Close()
			if res.Describe == "" {
				t.Error("Describe should be set")
			}
			roundTrip(t, res)
		})
	}
}

func TestFactoryRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).Create(context.Background(), Config{Type: SheetsBackend})
	if err == nil {
		t.Fatal("expected error for sheets without spreadsheet id")
	}
}
