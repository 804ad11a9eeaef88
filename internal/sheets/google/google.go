// Package google stores the ledger in a Google Sheets tab, one row per
// transaction under a header row.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

const lastColumn = "G"

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	// Attempts and RetryDelay tune retries of transient API failures.
	Attempts   uint
	RetryDelay time.Duration
}

type Client struct {
	api           valuesAPI
	spreadsheetID string
	sheet         string
	attempts      uint
	delay         time.Duration
	logger        *slog.Logger
}

var _ ledger.Backend = (*Client)(nil)

// New creates a Sheets-backed ledger client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.CredentialsJSON, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceAPI{svc: svc}, cfg), nil
}

func newClient(api valuesAPI, cfg Config) *Client {
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 4
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Client{
		api:           api,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheet:         sheet,
		attempts:      cfg.Attempts,
		delay:         cfg.RetryDelay,
		logger:        slog.Default().With("component", "sheets", "sheet", sheet),
	}
}

// SheetName returns the tab this client reads and writes.
func (c *Client) SheetName() string { return c.sheet }

// Load reads the whole tab. A missing tab is created and reported as
// missing storage; an empty tab is reported the same way so the store
// writes the header.
func (c *Client) Load(ctx context.Context) ([]ledger.Record, error) {
	rng := c.rangeOf("A:" + lastColumn)
	var values [][]any
	err := c.do(ctx, "get", func() error {
		var err error
		values, err = c.api.Get(ctx, c.spreadsheetID, rng)
		return err
	})
	if isMissingSheet(err) {
		c.logger.InfoContext(ctx, "Creating missing sheet")
		if err := c.do(ctx, "add_sheet", func() error {
			return c.api.AddSheet(ctx, c.spreadsheetID, c.sheet)
		}); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", c.sheet, err)
		}
		return nil, ledger.ErrNoStorage
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(values) == 0 {
		return nil, ledger.ErrNoStorage
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = toStrings(row)
	}
	return ledger.RecordsFromTable(rows)
}

// Save overwrites the rows from A1 and only then clears what is left
// below, so a failure part way never shortens the sheet.
func (c *Client) Save(ctx context.Context, txs []core.Transaction) error {
	table := ledger.TableFromTransactions(txs)
	values := make([][]any, len(table))
	for i, row := range table {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}

	rng := c.rangeOf(fmt.Sprintf("A1:%s%d", lastColumn, len(values)))
	if err := c.do(ctx, "update", func() error {
		return c.api.Update(ctx, c.spreadsheetID, rng, values)
	}); err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}

	surplus := c.rangeOf(fmt.Sprintf("A%d:%s", len(values)+1, lastColumn))
	if err := c.do(ctx, "clear", func() error {
		return c.api.Clear(ctx, c.spreadsheetID, surplus)
	}); err != nil {
		return fmt.Errorf("clear %s: %w", surplus, err)
	}

	c.logger.DebugContext(ctx, "Ledger saved to sheet", "rows", len(txs))
	return nil
}

func (c *Client) rangeOf(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheet, "'", "''"), cells)
}

func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "Retrying Sheets call", "operation", op, "attempt", n+1, "error", err)
		}),
	)
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

func isMissingSheet(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusBadRequest {
		return false
	}
	return strings.Contains(gerr.Message, "Unable to parse range")
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
