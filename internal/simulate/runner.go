package simulate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/lugondev/go-fixedswap/internal/authority"
	"github.com/lugondev/go-fixedswap/internal/common"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/indexer"
	"github.com/lugondev/go-fixedswap/internal/ledger"
	"github.com/lugondev/go-fixedswap/internal/metrics"
	"github.com/lugondev/go-fixedswap/internal/pool"
	"github.com/lugondev/go-fixedswap/internal/program"
	"github.com/lugondev/go-fixedswap/pkg/log"
)

// Step kinds.
const (
	StepInit = "init"
	StepSwap = "swap"
)

// StepResult is the outcome of one transaction.
type StepResult struct {
	Kind     string
	User     string
	AmountIn uint64

	// AmountOut is taken from the SwapExecuted event of a committed swap.
	AmountOut uint64

	Receipt *ledger.Receipt
	Err     error
	Events  []any

	// Expect is the error name the step was expected to fail with.
	Expect string
}

// ErrorName returns the taxonomy name of the step error, or "" on success.
func (s *StepResult) ErrorName() string {
	if s.Err == nil {
		return ""
	}
	var e *cerrors.Error
	if cerrors.As(s.Err, &e) {
		return e.Name
	}
	return s.Err.Error()
}

// Matched reports whether the step ended the way it was expected to.
func (s *StepResult) Matched() bool {
	return s.ErrorName() == s.Expect
}

// Balance is the holdings of one account after the run.
type Balance struct {
	Name     string
	Key      solana.PublicKey
	Lamports uint64
	Quote    uint64
}

// Report is the outcome of a scenario run.
type Report struct {
	Name          string
	Pool          solana.PublicKey
	Authority     solana.PublicKey
	QuoteMint     solana.PublicKey
	QuoteReserve  solana.PublicKey
	NativeDeposit solana.PublicKey
	Record        *pool.Record
	Steps         []*StepResult
	Balances      []Balance
	Indexed       *indexer.Result
}

// Mismatches returns the steps that did not end as expected.
func (r *Report) Mismatches() []*StepResult {
	var out []*StepResult
	for _, s := range r.Steps {
		if !s.Matched() {
			out = append(out, s)
		}
	}
	return out
}

// Runner executes scenarios. Each run gets a fresh ledger.
type Runner struct {
	common.LoggerMixin

	metrics metrics.Metrics
	indexer *indexer.Indexer
	parser  *log.LogParser
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.SetLogger(logger)
	}
}

// WithMetrics passes m to the swap program.
func WithMetrics(m metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithIndexer records every receipt of a run through ix.
func WithIndexer(ix *indexer.Indexer) Option {
	return func(r *Runner) {
		r.indexer = ix
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		LoggerMixin: common.NewLoggerMixin(),
		metrics:     metrics.NewNoopMetrics(),
		parser:      log.NewParser(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type participant struct {
	name   string
	wallet solana.PublicKey
	quote  solana.PublicKey
}

// Run executes sc. An error is returned only when the run itself could not
// be set up; rejected steps are reported in the Report.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	assetProgram, err := assetProgramID(sc.AssetProgram)
	if err != nil {
		return nil, err
	}
	swapProgram := assetProgram
	if sc.SwapProgram != "" {
		if swapProgram, err = assetProgramID(sc.SwapProgram); err != nil {
			return nil, err
		}
	}

	logger := r.GetLogger().With("scenario", sc.Name)
	l := ledger.New(ledger.WithLogger(logger))
	l.RegisterProgram(program.ProgramID, program.NewProcessor(
		program.WithLogger(logger),
		program.WithMetrics(r.metrics),
	))

	report := &Report{
		Name:          sc.Name,
		Pool:          solana.NewWallet().PublicKey(),
		QuoteMint:     solana.NewWallet().PublicKey(),
		QuoteReserve:  solana.NewWallet().PublicKey(),
		NativeDeposit: solana.NewWallet().PublicKey(),
	}
	report.Authority, _, err = authority.Find(program.ProgramID, report.Pool)
	if err != nil {
		return nil, fmt.Errorf("failed to derive pool authority: %w", err)
	}

	if err := l.Allocate(report.Pool, program.ProgramID, pool.Size); err != nil {
		return nil, fmt.Errorf("failed to allocate pool: %w", err)
	}
	reserve := ledger.NewTokenAccount(assetProgram, report.QuoteMint, report.Authority, sc.Reserve)
	if err := l.CreateAccount(report.QuoteReserve, reserve); err != nil {
		return nil, fmt.Errorf("failed to create reserve: %w", err)
	}

	users := make(map[string]participant, len(sc.Users))
	ordered := make([]participant, 0, len(sc.Users))
	for _, u := range sc.Users {
		p := participant{name: u.Name, wallet: solana.NewWallet().PublicKey(), quote: solana.NewWallet().PublicKey()}
		if err := l.CreateAccount(p.wallet, ledger.NewWalletAccount(u.Lamports)); err != nil {
			return nil, fmt.Errorf("failed to create user %q: %w", u.Name, err)
		}
		if err := l.CreateAccount(p.quote, ledger.NewTokenAccount(assetProgram, report.QuoteMint, p.wallet, 0)); err != nil {
			return nil, fmt.Errorf("failed to create quote account for %q: %w", u.Name, err)
		}
		users[u.Name] = p
		ordered = append(ordered, p)
	}

	initStep := &StepResult{Kind: StepInit}
	initStep.Receipt, initStep.Err = l.Execute(ctx, &ledger.Transaction{
		Instructions: []solana.Instruction{program.NewInitPoolSwapInstruction(program.ProgramID, program.InitPoolSwapKeys{
			Pool:          report.Pool,
			Authority:     report.Authority,
			QuoteReserve:  report.QuoteReserve,
			NativeDeposit: report.NativeDeposit,
			AssetProgram:  assetProgram,
		}, sc.Rate)},
		Signers: []solana.PublicKey{report.Pool},
	})
	r.decodeEvents(initStep)
	report.Steps = append(report.Steps, initStep)
	if initStep.Err != nil {
		return report, fmt.Errorf("failed to initialize pool: %w", initStep.Err)
	}

	swaps := make([]*StepResult, len(sc.Swaps))
	execute := func(i int) {
		step := sc.Swaps[i]
		user := users[step.User]
		res := &StepResult{Kind: StepSwap, User: step.User, AmountIn: step.AmountIn, Expect: step.Expect}
		res.Receipt, res.Err = l.Execute(ctx, &ledger.Transaction{
			Instructions: []solana.Instruction{program.NewSwapInstruction(program.ProgramID, program.SwapKeys{
				Pool:         report.Pool,
				Authority:    report.Authority,
				User:         user.wallet,
				UserQuote:    user.quote,
				PoolNative:   report.NativeDeposit,
				PoolQuote:    report.QuoteReserve,
				AssetProgram: swapProgram,
			}, step.AmountIn)},
			Signers: []solana.PublicKey{user.wallet},
		})
		r.decodeEvents(res)
		swaps[i] = res
	}

	if sc.Concurrent {
		var g errgroup.Group
		for i := range sc.Swaps {
			i := i
			g.Go(func() error {
				execute(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range sc.Swaps {
			execute(i)
		}
	}
	report.Steps = append(report.Steps, swaps...)

	if acct, ok := l.Account(report.Pool); ok {
		if rec, err := pool.Decode(acct.Data); err == nil {
			report.Record = rec
		}
	}

	report.Balances = r.balances(l, report, ordered)

	if r.indexer != nil {
		report.Indexed = &indexer.Result{}
		for _, step := range report.Steps {
			if step.Receipt == nil {
				continue
			}
			res, err := r.indexer.Index(ctx, step.Receipt)
			if err != nil {
				return report, fmt.Errorf("failed to index receipt: %w", err)
			}
			report.Indexed.Add(res)
		}
	}

	logger.Info("scenario finished",
		"steps", len(report.Steps),
		"mismatches", len(report.Mismatches()),
	)
	return report, nil
}

func (r *Runner) decodeEvents(step *StepResult) {
	if step.Receipt == nil || step.Err != nil {
		return
	}
	for _, d := range r.parser.ExtractProgramData(step.Receipt.Logs) {
		if d.ProgramID != program.ProgramID.String() {
			continue
		}
		event, err := program.DecodeEvent(d.Data)
		if err != nil {
			continue
		}
		step.Events = append(step.Events, event)
		if swap, ok := event.(*program.SwapExecutedEvent); ok {
			step.AmountOut = swap.AmountOut
		}
	}
}

func (r *Runner) balances(l *ledger.Ledger, report *Report, users []participant) []Balance {
	quote := func(key solana.PublicKey) uint64 {
		amount, err := l.TokenBalance(key)
		if err != nil {
			return 0
		}
		return amount
	}

	out := []Balance{
		{Name: "native_deposit", Key: report.NativeDeposit, Lamports: l.Lamports(report.NativeDeposit)},
		{Name: "quote_reserve", Key: report.QuoteReserve, Quote: quote(report.QuoteReserve)},
	}
	for _, u := range users {
		out = append(out, Balance{
			Name:     u.name,
			Key:      u.wallet,
			Lamports: l.Lamports(u.wallet),
			Quote:    quote(u.quote),
		})
	}
	return out
}
