// Package indexer records the pools and swaps a program reports through its
// event logs.
//
// Receipts are read either one at a time through Index or from a channel
// through Run. Only committed receipts are indexed: a failed transaction
// leaves no state behind, so its events are discarded with it.
package indexer

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/lugondev/go-fixedswap/internal/common"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/ledger"
	"github.com/lugondev/go-fixedswap/internal/metrics"
	"github.com/lugondev/go-fixedswap/internal/program"
	"github.com/lugondev/go-fixedswap/internal/storage"
	"github.com/lugondev/go-fixedswap/pkg/log"
)

// DefaultFlushInterval is how often Run flushes metrics.
const DefaultFlushInterval = 5 * time.Second

// Result counts what one receipt contributed.
type Result struct {
	Pools   int
	Swaps   int
	Events  int
	Skipped int
}

// Add accumulates other into r.
func (r *Result) Add(other *Result) {
	r.Pools += other.Pools
	r.Swaps += other.Swaps
	r.Events += other.Events
	r.Skipped += other.Skipped
}

// Indexer decodes program events from receipts and saves them to a
// repository.
type Indexer struct {
	common.LoggerMixin

	repo          storage.Repository
	metrics       metrics.Metrics
	parser        *log.LogParser
	programID     solana.PublicKey
	flushInterval time.Duration
}

// Option configures an Indexer.
type Option func(*Indexer)

func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.SetLogger(logger)
	}
}

func WithMetrics(m metrics.Metrics) Option {
	return func(ix *Indexer) {
		ix.metrics = m
	}
}

// WithProgramID indexes events of a program deployed under a different id.
func WithProgramID(id solana.PublicKey) Option {
	return func(ix *Indexer) {
		ix.programID = id
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(ix *Indexer) {
		if d > 0 {
			ix.flushInterval = d
		}
	}
}

// New creates an Indexer writing to repo.
func New(repo storage.Repository, opts ...Option) *Indexer {
	ix := &Indexer{
		LoggerMixin:   common.NewLoggerMixin(),
		repo:          repo,
		metrics:       metrics.NewNoopMetrics(),
		parser:        log.NewParser(),
		programID:     program.ProgramID,
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// batch holds the rows decoded from one receipt.
type batch struct {
	pools  []*storage.PoolModel
	swaps  []*storage.SwapModel
	events []*storage.EventModel
}

// Index records the events of a single receipt. Every event is decoded
// before anything is written. Swap and event rows are keyed by receipt and
// position, so indexing a receipt again after a failed write produces the
// same ids. Pools are written last: a pool row present in the repository
// means its receipt was recorded in full.
func (ix *Indexer) Index(ctx context.Context, receipt *ledger.Receipt) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if !receipt.Succeeded() {
		ix.count(ctx, metrics.MetricTransactionsFailed, 1)
		ix.GetLogger().Debug("skipping failed receipt", "receipt", receipt.ID, "error", receipt.Err)
		return result, nil
	}
	ix.count(ctx, metrics.MetricTransactionsExecuted, 1)

	b := ix.decode(receipt, result)

	if len(b.swaps) > 0 {
		if err := ix.repo.Swaps().SaveBatch(ctx, b.swaps); err != nil {
			return &Result{Skipped: result.Skipped}, cerrors.Wrap(err, "save swaps")
		}
	}
	if len(b.events) > 0 {
		if err := ix.repo.Events().SaveBatch(ctx, b.events); err != nil {
			return &Result{Skipped: result.Skipped}, cerrors.Wrap(err, "save events")
		}
	}
	for _, model := range b.pools {
		if err := ix.repo.Pools().Save(ctx, model); err != nil {
			return &Result{Skipped: result.Skipped}, cerrors.Wrap(err, "save pool")
		}
	}
	result.Pools = len(b.pools)
	result.Swaps = len(b.swaps)
	result.Events = len(b.events)

	ix.count(ctx, metrics.MetricEventsIndexed, uint64(result.Events))
	if result.Skipped > 0 {
		ix.count(ctx, metrics.MetricEventsSkipped, uint64(result.Skipped))
	}
	if err := ix.metrics.RecordHistogram(ctx, metrics.MetricIndexLatencyMs, float64(time.Since(start).Milliseconds())); err != nil {
		ix.GetLogger().Warn("failed to record histogram", "name", metrics.MetricIndexLatencyMs, "error", err)
	}

	ix.GetLogger().Debug("receipt indexed",
		"receipt", receipt.ID,
		"slot", receipt.Slot,
		"pools", result.Pools,
		"swaps", result.Swaps,
	)
	return result, nil
}

// decode turns the program's "Program data:" lines into rows, counting
// undecodable ones in result.
func (ix *Indexer) decode(receipt *ledger.Receipt, result *Result) *batch {
	receiptID := receipt.ID.String()
	b := &batch{}

	for i, d := range ix.parser.ExtractProgramData(receipt.Logs) {
		if d.ProgramID != ix.programID.String() {
			continue
		}

		decoded, err := program.DecodeEvent(d.Data)
		if err != nil {
			result.Skipped++
			ix.GetLogger().Warn("skipping undecodable event", "receipt", receiptID, "error", err)
			continue
		}

		switch event := decoded.(type) {
		case *program.PoolInitializedEvent:
			b.pools = append(b.pools, storage.PoolInitializedToModel(event, receiptID, receipt.Slot))
			b.events = append(b.events, ix.eventModel(receipt, i, "PoolInitialized", poolInitializedData(event)))

		case *program.SwapExecutedEvent:
			model := storage.SwapExecutedToModel(event, receiptID, receipt.Slot)
			model.ID = rowID(receipt, "swap", i)
			b.swaps = append(b.swaps, model)
			b.events = append(b.events, ix.eventModel(receipt, i, "SwapExecuted", swapExecutedData(event)))
		}
	}
	return b
}

func (ix *Indexer) count(ctx context.Context, name string, value uint64) {
	if err := ix.metrics.IncrementCounter(ctx, name, value); err != nil {
		ix.GetLogger().Warn("failed to increment counter", "name", name, "error", err)
	}
}

// rowID derives a stable id for the row kind at position i of receipt.
func rowID(receipt *ledger.Receipt, kind string, i int) string {
	return uuid.NewSHA1(receipt.ID, []byte(kind+":"+strconv.Itoa(i))).String()
}

// Run indexes receipts until the channel is closed or ctx is done. A receipt
// that fails to index is logged and counted, and Run moves on.
func (ix *Indexer) Run(ctx context.Context, receipts <-chan *ledger.Receipt) (*Result, error) {
	total := &Result{}

	if err := ix.metrics.Initialize(ctx); err != nil {
		return total, cerrors.Wrap(err, "initialize metrics")
	}

	flushTicker := time.NewTicker(ix.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.GetLogger().Info("context cancelled, stopping indexer")
			ix.shutdown(context.WithoutCancel(ctx))
			return total, ctx.Err()

		case <-flushTicker.C:
			if err := ix.metrics.Flush(ctx); err != nil {
				ix.GetLogger().Error("failed to flush metrics", "error", err)
			}

		case receipt, ok := <-receipts:
			if !ok {
				ix.shutdown(ctx)
				return total, nil
			}

			result, err := ix.Index(ctx, receipt)
			total.Add(result)
			if err != nil {
				ix.GetLogger().Error("error indexing receipt", "receipt", receipt.ID, "error", err)
			}
			if err := ix.metrics.UpdateGauge(ctx, metrics.MetricIndexQueueDepth, float64(len(receipts))); err != nil {
				ix.GetLogger().Warn("failed to update gauge", "name", metrics.MetricIndexQueueDepth, "error", err)
			}
		}
	}
}

func (ix *Indexer) shutdown(ctx context.Context) {
	if err := ix.metrics.Flush(ctx); err != nil {
		ix.GetLogger().Error("failed to flush metrics during shutdown", "error", err)
	}
	if err := ix.metrics.Shutdown(ctx); err != nil {
		ix.GetLogger().Error("failed to shutdown metrics", "error", err)
	}
}

func (ix *Indexer) eventModel(receipt *ledger.Receipt, i int, name string, data map[string]interface{}) *storage.EventModel {
	return &storage.EventModel{
		ID:        rowID(receipt, "event", i),
		ReceiptID: receipt.ID.String(),
		ProgramID: ix.programID.String(),
		EventName: name,
		Data:      data,
		Slot:      receipt.Slot,
		CreatedAt: time.Now(),
	}
}

func poolInitializedData(e *program.PoolInitializedEvent) map[string]interface{} {
	return map[string]interface{}{
		"pool":                   e.Pool.String(),
		"authority":              e.Authority.String(),
		"native_deposit_account": e.NativeDepositAccount.String(),
		"quote_mint":             e.QuoteMint.String(),
		"quote_reserve_account":  e.QuoteReserveAccount.String(),
		"rate":                   e.Rate,
	}
}

func swapExecutedData(e *program.SwapExecutedEvent) map[string]interface{} {
	return map[string]interface{}{
		"pool":       e.Pool.String(),
		"user":       e.User.String(),
		"amount_in":  e.AmountIn,
		"amount_out": e.AmountOut,
	}
}
