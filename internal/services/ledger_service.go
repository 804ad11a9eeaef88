// Package services orchestrates the ledger, the summary cache and change
// notifications for the presentation layers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fundtracker/internal/amqp"
	"fundtracker/internal/cache"
	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
	applog "fundtracker/internal/log"
	"fundtracker/internal/summary"
)

const defaultSummaryCacheSize = 64

// Publisher announces committed ledger mutations.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
	Close() error
}

// LedgerService is the single entry point for reads and writes of the
// ledger. Writes go to the store first; the change event is best effort.
type LedgerService struct {
	store     *ledger.Store
	instance  string
	publisher Publisher
	summaries *cache.LRUCache[summary.Report]
	logger    *applog.Logger
}

type Option func(*LedgerService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithSummaryCacheSize(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.summaries = cache.NewLRUCache[summary.Report](n, 0)
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentLedger)
		}
	}
}

func NewLedgerService(store *ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		instance:  uuid.NewString(),
		summaries: cache.NewLRUCache[summary.Report](defaultSummaryCacheSize, 0),
		logger:    applog.New(applog.Config{Handler: slog.Default().Handler()}).WithComponent(applog.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummaryCache exposes the cache so a cache.Manager can sweep it.
func (s *LedgerService) SummaryCache() cache.Cleaner { return s.summaries }

func (s *LedgerService) Catalog() core.Catalog { return s.store.Catalog() }

func (s *LedgerService) Version() uint64 { return s.store.Version() }

// Load reads the persisted ledger into memory.
func (s *LedgerService) Load(ctx context.Context) (ledger.LoadResult, error) {
	res, err := s.store.Load(ctx)
	if err != nil {
		applog.LogError(ctx, s.logger, "Failed to load ledger", err, applog.ComponentLedger, applog.OpLoad, nil)
		return res, err
	}
	s.summaries.Purge()
	return res, nil
}

func (s *LedgerService) Transactions() []core.Transaction { return s.store.Snapshot() }

// LastLoad reports how the ledger was read at startup, including the
// number of malformed rows that were skipped.
func (s *LedgerService) LastLoad() ledger.LoadResult { return s.store.LastLoad() }

func (s *LedgerService) SummaryCacheSize() int { return s.summaries.Size() }

func (s *LedgerService) Get(seq int) (core.Transaction, error) { return s.store.Get(seq) }

func (s *LedgerService) Append(ctx context.Context, d core.Draft) (core.Transaction, error) {
	tx, err := s.store.Append(ctx, d)
	if err != nil {
		s.logFailure(ctx, applog.OpAppend, 0, err)
		return core.Transaction{}, err
	}
	s.logMutation(ctx, applog.OpAppend, tx, "Transaction appended")
	s.publish(ctx, amqp.OpAppend, tx.Seq)
	return tx, nil
}

// Update replaces transaction seq and returns the new ledger.
func (s *LedgerService) Update(ctx context.Context, seq int, d core.Draft) ([]core.Transaction, error) {
	txs, err := s.store.Update(ctx, seq, d)
	if err != nil {
		s.logFailure(ctx, applog.OpUpdate, seq, err)
		return nil, err
	}
	s.logMutation(ctx, applog.OpUpdate, txs[seq-1], "Transaction updated")
	s.publish(ctx, amqp.OpUpdate, seq)
	return txs, nil
}

// Delete removes transaction seq and returns the renumbered ledger.
func (s *LedgerService) Delete(ctx context.Context, seq int) ([]core.Transaction, error) {
	removed, err := s.store.Get(seq)
	if err != nil {
		s.logFailure(ctx, applog.OpDelete, seq, err)
		return nil, err
	}
	txs, err := s.store.Delete(ctx, seq)
	if err != nil {
		s.logFailure(ctx, applog.OpDelete, seq, err)
		return nil, err
	}
	s.logMutation(ctx, applog.OpDelete, removed, "Transaction deleted")
	s.publish(ctx, amqp.OpDelete, seq)
	return txs, nil
}

// Summary returns the report for opts over the current ledger. Results
// are cached per store version, so any mutation invalidates them.
func (s *LedgerService) Summary(ctx context.Context, opts summary.Options) summary.Report {
	txs, version := s.store.View()
	key := summaryKey(version, opts)
	if r, ok := s.summaries.Get(key); ok {
		return r
	}
	r := summary.Summarize(txs, s.store.Catalog().Categories, opts)
	s.summaries.Set(key, r)
	s.logger.DebugContext(ctx, "Summary computed",
		applog.FieldOperation, applog.OpSummary,
		applog.FieldVersion, version,
		"partition", opts.Partition.String(),
		"rows", len(r.Rows))
	return r
}

func summaryKey(version uint64, opts summary.Options) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(version, 10))
	b.WriteByte('|')
	b.WriteString(opts.Partition.String())
	b.WriteByte('|')
	b.WriteString(opts.Split.String())
	for _, y := range opts.Years {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(y))
	}
	return b.String()
}

func (s *LedgerService) publish(ctx context.Context, op string, seq int) {
	if s.publisher == nil {
		return
	}
	txs, version := s.store.View()
	msg := amqp.NewLedgerChangedMessage(s.instance, op, seq, len(txs), version)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		// The ledger is already saved; the mirror catches up on the next event.
		applog.LogError(ctx, s.logger, "Failed to publish ledger change", err, applog.ComponentAMQP, op,
			applog.LogFields{applog.FieldSeq: seq, applog.FieldVersion: version})
	}
}

func (s *LedgerService) logMutation(ctx context.Context, op string, tx core.Transaction, msg string) {
	fields := applog.NewFields().
		WithOperation(op).
		WithTransaction(tx.Seq, tx.Date.String(), tx.Description, tx.Category, tx.Method, tx.Amount.Cents)
	fields[applog.FieldVersion] = s.store.Version()
	s.logger.InfoContext(ctx, msg, fields.ToSlice()...)
}

func (s *LedgerService) logFailure(ctx context.Context, op string, seq int, err error) {
	fields := applog.NewFields()
	fields[applog.FieldErrorKind] = string(core.KindOf(err))
	if seq > 0 {
		fields[applog.FieldSeq] = seq
	}
	switch core.KindOf(err) {
	case core.KindValidation, core.KindNotFound:
		s.logger.WarnContext(ctx, "Ledger mutation rejected", fields.WithOperation(op).WithError(err).ToSlice()...)
	default:
		applog.LogError(ctx, s.logger, "Ledger mutation failed", err, applog.ComponentLedger, op, fields)
	}
}

// Close closes the publisher and the backend.
func (s *LedgerService) Close() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
