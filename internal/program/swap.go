package program

import (
	"context"
	"math/bits"

	"github.com/lugondev/go-fixedswap/internal/authority"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/metrics"
	"github.com/lugondev/go-fixedswap/internal/pool"
)

// AmountOut returns amountIn * rate, failing with ArithmeticOverflow when the
// product does not fit in 64 bits.
func AmountOut(amountIn, rate uint64) (uint64, error) {
	hi, lo := bits.Mul64(amountIn, rate)
	if hi != 0 {
		return 0, cerrors.ErrArithmeticOverflow.WithDetails(map[string]any{
			"amount_in": amountIn,
			"rate":      rate,
		})
	}
	return lo, nil
}

// Swap moves amountIn native units from the user to the pool deposit account
// and amountIn*rate quote units from the pool reserve to the user. Every
// check runs before the first transfer.
func (p *Processor) Swap(ctx context.Context, env Env, port TransferPort, accts *SwapAccounts, amountIn uint64) error {
	programID := env.ProgramID()

	if !accts.Pool.Owner.Equals(programID) {
		return cerrors.ErrIncorrectProgramID.WithDetails(map[string]any{"account": accts.Pool.Key.String()})
	}
	record, err := pool.Decode(accts.Pool.Data)
	if err != nil {
		return err
	}
	if !accts.User.IsSigner {
		return cerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": accts.User.Key.String()})
	}
	if _, err := tokenAccount(accts.PoolQuote); err != nil {
		return err
	}

	if err := authority.Verify(programID, accts.Pool.Key, record.AuthorityBump, accts.Authority.Key); err != nil {
		return err
	}
	if !accts.PoolNative.Key.Equals(record.NativeDepositAccount) {
		return cerrors.ErrInvalidNativeAccount
	}
	if !accts.PoolQuote.Key.Equals(record.QuoteReserveAccount) {
		return cerrors.ErrInvalidTokenAccount
	}
	if accts.PoolNative.Key.Equals(accts.PoolQuote.Key) {
		return cerrors.ErrInvalidInput
	}
	if !accts.AssetProgram.Key.Equals(record.AssetProgramID) {
		return cerrors.ErrIncorrectTokenProgramID
	}

	amountOut, err := AmountOut(amountIn, record.Rate)
	if err != nil {
		return err
	}

	if err := port.TransferNative(ctx, accts.User.Key, accts.PoolNative.Key, amountIn); err != nil {
		return err
	}
	auth := authority.Authorization{
		Authority: accts.Authority.Key,
		Seeds:     authority.Seeds{Pool: accts.Pool.Key, Bump: record.AuthorityBump},
	}
	if err := port.TransferAsset(ctx, accts.PoolQuote.Key, accts.UserQuote.Key, amountOut, auth); err != nil {
		return err
	}

	event := &SwapExecutedEvent{
		Pool:      accts.Pool.Key,
		User:      accts.User.Key,
		AmountIn:  amountIn,
		AmountOut: amountOut,
	}
	encoded, err := event.Encode()
	if err != nil {
		return err
	}
	env.EmitEvent(encoded)

	p.GetLogger().Info("swap executed",
		"pool", accts.Pool.Key,
		"user", accts.User.Key,
		"amount_in", amountIn,
		"amount_out", amountOut,
	)
	p.count(ctx, metrics.MetricSwapsExecuted, 1)
	p.observe(ctx, metrics.MetricSwapAmountIn, float64(amountIn))
	p.observe(ctx, metrics.MetricSwapAmountOut, float64(amountOut))
	return nil
}
