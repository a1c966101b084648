// Package program implements the fixed-rate swap program: pool initialization
// and swaps of native currency for a quote asset at the pool's configured rate.
//
// The processor runs inside a ledger.Invocation. Value movements leave the
// program through a TransferPort so settlement can be exercised against any
// transfer service.
package program

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-fixedswap/internal/authority"
	"github.com/lugondev/go-fixedswap/internal/common"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/ledger"
	"github.com/lugondev/go-fixedswap/internal/metrics"
)

// ProgramID is the default deployment address of the swap program.
var ProgramID = solana.MustPublicKeyFromBase58("3kttdpDFZfHq61Q8WXCxbdyQNYPenmt9uhibTN7shHkZ")

// Env is the execution environment a handler runs in.
type Env interface {
	ProgramID() solana.PublicKey
	Log(format string, args ...any)
	EmitEvent(data []byte)
}

// TransferPort moves value on behalf of the program. TransferNative is
// authorized by the user's signature; TransferAsset by the pool authority.
type TransferPort interface {
	TransferNative(ctx context.Context, from, to solana.PublicKey, amount uint64) error
	TransferAsset(ctx context.Context, reserve, to solana.PublicKey, amount uint64, auth authority.Authorization) error
}

// TransferFactory binds a TransferPort to an invocation and the asset program
// it should route quote transfers to.
type TransferFactory func(inv *ledger.Invocation, assetProgram solana.PublicKey) TransferPort

func ledgerTransfers(inv *ledger.Invocation, assetProgram solana.PublicKey) TransferPort {
	return inv.Transfers(assetProgram)
}

// Processor dispatches instructions to the pool handlers.
type Processor struct {
	common.LoggerMixin
	metrics   metrics.Metrics
	transfers TransferFactory
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.SetLogger(logger)
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithTransferFactory replaces the ledger-backed transfer port.
func WithTransferFactory(f TransferFactory) Option {
	return func(p *Processor) {
		p.transfers = f
	}
}

// NewProcessor creates a processor with ledger transfers and no-op metrics.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		LoggerMixin: common.NewLoggerMixin(),
		metrics:     metrics.NewNoopMetrics(),
		transfers:   ledgerTransfers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process implements ledger.Program.
func (p *Processor) Process(ctx context.Context, inv *ledger.Invocation) error {
	disc, arg, err := DecodeInstruction(inv.Data())
	if err != nil {
		return err
	}
	name := InstructionName(disc)
	inv.Log("Instruction: %s", name)

	switch disc {
	case InitPoolSwapDiscriminator:
		var accts *InitPoolSwapAccounts
		accts, err = initPoolSwapAccounts(inv.Accounts())
		if err == nil {
			err = p.InitializePool(ctx, inv, accts, arg)
		}
	case SwapDiscriminator:
		var accts *SwapAccounts
		accts, err = swapAccounts(inv.Accounts())
		if err == nil {
			err = p.Swap(ctx, inv, p.transfers(inv, accts.AssetProgram.Key), accts, arg)
		}
	}

	if err != nil {
		p.GetLogger().Warn("instruction rejected", "instruction", name, "error", err)
		p.count(ctx, metrics.MetricInstructionsFailed, 1)
		return err
	}
	p.GetLogger().Debug("instruction processed", "instruction", name, "depth", inv.Depth())
	p.count(ctx, metrics.MetricInstructionsProcessed, 1)
	return nil
}

func (p *Processor) count(ctx context.Context, name string, value uint64) {
	if err := p.metrics.IncrementCounter(ctx, name, value); err != nil {
		p.GetLogger().Warn("failed to increment counter", "name", name, "error", err)
	}
}

func (p *Processor) observe(ctx context.Context, name string, value float64) {
	if err := p.metrics.RecordHistogram(ctx, name, value); err != nil {
		p.GetLogger().Warn("failed to record histogram", "name", name, "error", err)
	}
}

// InitPoolSwapAccounts are the capabilities passed to InitializePool.
type InitPoolSwapAccounts struct {
	Pool          *ledger.AccountInfo
	Authority     *ledger.AccountInfo
	QuoteReserve  *ledger.AccountInfo
	NativeDeposit *ledger.AccountInfo
	AssetProgram  *ledger.AccountInfo
}

func initPoolSwapAccounts(infos []*ledger.AccountInfo) (*InitPoolSwapAccounts, error) {
	if len(infos) < 5 {
		return nil, cerrors.ErrNotEnoughAccountKeys
	}
	return &InitPoolSwapAccounts{
		Pool:          infos[0],
		Authority:     infos[1],
		QuoteReserve:  infos[2],
		NativeDeposit: infos[3],
		AssetProgram:  infos[4],
	}, nil
}

// SwapAccounts are the capabilities passed to Swap.
type SwapAccounts struct {
	Pool          *ledger.AccountInfo
	Authority     *ledger.AccountInfo
	User          *ledger.AccountInfo
	UserQuote     *ledger.AccountInfo
	PoolNative    *ledger.AccountInfo
	PoolQuote     *ledger.AccountInfo
	AssetProgram  *ledger.AccountInfo
	SystemProgram *ledger.AccountInfo
}

func swapAccounts(infos []*ledger.AccountInfo) (*SwapAccounts, error) {
	if len(infos) < 8 {
		return nil, cerrors.ErrNotEnoughAccountKeys
	}
	return &SwapAccounts{
		Pool:          infos[0],
		Authority:     infos[1],
		User:          infos[2],
		UserQuote:     infos[3],
		PoolNative:    infos[4],
		PoolQuote:     infos[5],
		AssetProgram:  infos[6],
		SystemProgram: infos[7],
	}, nil
}
