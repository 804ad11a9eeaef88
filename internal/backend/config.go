package backend

import (
	"fmt"

	"fundtracker/internal/config"
	gsheet "fundtracker/internal/sheets/google"
	"fundtracker/internal/storage/postgres"
)

// FromAppConfig selects the primary backend described by appConfig.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          t,
		DataDirectory: appConfig.DataDir,
		DataFile:      appConfig.DataFile,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		Postgres: postgres.Config{
			DSN:      appConfig.Postgres.DSN,
			Host:     appConfig.Postgres.Host,
			Port:     appConfig.Postgres.Port,
			Database: appConfig.Postgres.Database,
			User:     appConfig.Postgres.User,
			Password: appConfig.Postgres.Password,
			SSLMode:  appConfig.Postgres.SSLMode,
		},
		Sheets: sheetsConfig(appConfig, appConfig.GoogleSheetName),
	}, nil
}

// MirrorFromAppConfig describes the Sheets tab the worker mirrors into.
func MirrorFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	if appConfig.MirrorSheetName == "" {
		return Config{}, fmt.Errorf("MIRROR_SHEET_NAME is required for the mirror backend")
	}
	return Config{
		Type:   SheetsBackend,
		Sheets: sheetsConfig(appConfig, appConfig.MirrorSheetName),
	}, nil
}

func sheetsConfig(appConfig *config.Config, sheet string) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SheetName:       sheet,
		CredentialsJSON: appConfig.GoogleServiceAccountJSON,
		CredentialsFile: appConfig.GoogleServiceAccountFile,
	}
}

// Validate checks the fields the selected backend needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend, JSONBackend:
		if c.DataFile == "" {
			return fmt.Errorf("data file path is required for %s backend", c.Type)
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "") {
			return fmt.Errorf("postgres DSN or host and database are required for postgres backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
	}
	return nil
}

// Types returns every valid backend type.
func Types() []Type {
	return []Type{MemoryBackend, CSVBackend, JSONBackend, SQLiteBackend, PostgresBackend, SheetsBackend}
}
