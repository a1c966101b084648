package program

import (
	"context"

	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/lugondev/go-fixedswap/internal/authority"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/ledger"
	"github.com/lugondev/go-fixedswap/internal/metrics"
	"github.com/lugondev/go-fixedswap/internal/pool"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

// InitializePool configures an uninitialized pool slot with rate and the
// reserve accounts. It moves no value. A pool can be initialized only once.
func (p *Processor) InitializePool(ctx context.Context, env Env, accts *InitPoolSwapAccounts, rate uint64) error {
	programID := env.ProgramID()

	slot := accts.Pool
	if !slot.IsSigner {
		return cerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": slot.Key.String()})
	}
	if !slot.IsWritable {
		return cerrors.ErrAccountNotMutable.WithDetails(map[string]any{"account": slot.Key.String()})
	}
	if !slot.Owner.Equals(programID) {
		return cerrors.ErrIncorrectProgramID.WithDetails(map[string]any{"account": slot.Key.String()})
	}

	_, state, err := pool.Load(slot.Data)
	if err != nil {
		return err
	}
	if state == pool.Initialized {
		return cerrors.ErrAlreadyInUse
	}

	reserve, err := tokenAccount(accts.QuoteReserve)
	if err != nil {
		return err
	}

	expected, bump, err := authority.Find(programID, slot.Key)
	if err != nil {
		return err
	}
	if !expected.Equals(accts.Authority.Key) {
		return cerrors.ErrInvalidProgramAddress.WithDetails(map[string]any{
			"expected": expected.String(),
			"got":      accts.Authority.Key.String(),
		})
	}
	if !reserve.Owner.Equals(expected) {
		return cerrors.ErrInvalidOwner
	}
	if reserve.Delegate != nil {
		return cerrors.ErrInvalidDelegate
	}
	if reserve.CloseAuthority != nil {
		return cerrors.ErrInvalidCloseAuthority
	}
	if accts.NativeDeposit.Key.Equals(accts.QuoteReserve.Key) {
		return cerrors.ErrInvalidInput
	}

	record := &pool.Record{
		Initialized:          true,
		Rate:                 rate,
		NativeDepositAccount: accts.NativeDeposit.Key,
		QuoteMint:            reserve.Mint,
		QuoteReserveAccount:  accts.QuoteReserve.Key,
		AuthorityBump:        bump,
		AssetProgramID:       accts.AssetProgram.Key,
	}
	if err := record.Write(slot.Data); err != nil {
		return err
	}

	event := &PoolInitializedEvent{
		Pool:                 slot.Key,
		Authority:            expected,
		NativeDepositAccount: record.NativeDepositAccount,
		QuoteMint:            record.QuoteMint,
		QuoteReserveAccount:  record.QuoteReserveAccount,
		Rate:                 rate,
	}
	encoded, err := event.Encode()
	if err != nil {
		return err
	}
	env.EmitEvent(encoded)

	p.GetLogger().Info("pool initialized",
		"pool", slot.Key,
		"rate", rate,
		"quote_mint", record.QuoteMint,
	)
	p.count(ctx, metrics.MetricPoolsInitialized, 1)
	return nil
}

// tokenAccount checks that info is an initialized account of a known token
// program and returns its state.
func tokenAccount(info *ledger.AccountInfo) (*token.Account, error) {
	if !types.IsTokenProgram(info.Owner) {
		return nil, cerrors.ErrAccountOwnedByWrongProgram.WithDetails(map[string]any{
			"account": info.Key.String(),
			"owner":   info.Owner.String(),
		})
	}
	if info.Token == nil || info.Token.State == token.Uninitialized {
		return nil, cerrors.ErrAccountNotInitialized.WithDetails(map[string]any{"account": info.Key.String()})
	}
	return info.Token, nil
}
