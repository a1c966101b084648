package ledger

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

func metas(infos []*AccountInfo) []*solana.AccountMeta {
	out := make([]*solana.AccountMeta, 0, len(infos))
	for _, ai := range infos {
		out = append(out, ai.Meta())
	}
	return out
}

func credit(to *AccountInfo, current, amount uint64) (uint64, error) {
	if amount > math.MaxUint64-current {
		return 0, cerrors.ErrArithmeticOverflow.WithDetails(map[string]any{"account": to.Key.String()})
	}
	return current + amount, nil
}

// systemProgram moves lamports between system-owned wallets.
type systemProgram struct{}

func (systemProgram) Process(ctx context.Context, inv *Invocation) error {
	accounts := inv.Accounts()
	inst, err := system.DecodeInstruction(metas(accounts), inv.Data())
	if err != nil {
		return cerrors.ErrInstructionDidNotDeserialize.WithCause(err)
	}

	transfer, ok := inst.Impl.(*system.Transfer)
	if !ok {
		return cerrors.ErrInstructionFallbackNotFound.WithDetails(map[string]any{"program": "system"})
	}
	if len(accounts) < 2 || transfer.Lamports == nil {
		return cerrors.ErrNotEnoughAccountKeys
	}
	from, to := accounts[0], accounts[1]
	amount := *transfer.Lamports

	if !from.IsSigner {
		return cerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": from.Key.String()})
	}
	if !from.IsWritable || !to.IsWritable {
		return cerrors.ErrAccountNotMutable
	}
	if !from.Owner.Equals(types.SystemProgramID) || len(from.Data) > 0 {
		return cerrors.ErrAccountOwnedByWrongProgram.WithDetails(map[string]any{"account": from.Key.String()})
	}
	if from.Lamports < amount {
		return cerrors.ErrInsufficientFunds.WithDetails(map[string]any{
			"account": from.Key.String(),
			"balance": from.Lamports,
			"amount":  amount,
		})
	}
	if from.Account == to.Account {
		return nil
	}

	credited, err := credit(to, to.Lamports, amount)
	if err != nil {
		return err
	}
	from.Lamports -= amount
	to.Lamports = credited
	return nil
}

// tokenProgram moves token amounts between accounts of the same mint held by
// the invoked token program.
type tokenProgram struct{}

func (tokenProgram) Process(ctx context.Context, inv *Invocation) error {
	accounts := inv.Accounts()
	inst, err := token.DecodeInstruction(metas(accounts), inv.Data())
	if err != nil {
		return cerrors.ErrInstructionDidNotDeserialize.WithCause(err)
	}

	transfer, ok := inst.Impl.(*token.Transfer)
	if !ok {
		return cerrors.ErrInstructionFallbackNotFound.WithDetails(map[string]any{"program": "token"})
	}
	if len(accounts) < 3 || transfer.Amount == nil {
		return cerrors.ErrNotEnoughAccountKeys
	}
	source, destination, authority := accounts[0], accounts[1], accounts[2]
	amount := *transfer.Amount

	for _, ai := range []*AccountInfo{source, destination} {
		if !ai.Owner.Equals(inv.ProgramID()) {
			return cerrors.ErrAccountOwnedByWrongProgram.WithDetails(map[string]any{"account": ai.Key.String()})
		}
		if ai.Token == nil || ai.Token.State == token.Uninitialized {
			return cerrors.ErrAccountNotInitialized.WithDetails(map[string]any{"account": ai.Key.String()})
		}
		if ai.Token.State == token.Frozen {
			return cerrors.ErrAccountFrozen.WithDetails(map[string]any{"account": ai.Key.String()})
		}
		if !ai.IsWritable {
			return cerrors.ErrAccountNotMutable.WithDetails(map[string]any{"account": ai.Key.String()})
		}
	}
	if !source.Token.Mint.Equals(destination.Token.Mint) {
		return cerrors.ErrMintMismatch
	}
	if source.Token.Amount < amount {
		return cerrors.ErrInsufficientFunds.WithDetails(map[string]any{
			"account": source.Key.String(),
			"balance": source.Token.Amount,
			"amount":  amount,
		})
	}

	switch {
	case authority.Key.Equals(source.Token.Owner):
		if !authority.IsSigner {
			return cerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": authority.Key.String()})
		}
	case source.Token.Delegate != nil && authority.Key.Equals(*source.Token.Delegate):
		if !authority.IsSigner {
			return cerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": authority.Key.String()})
		}
		if source.Token.DelegatedAmount < amount {
			return cerrors.ErrInsufficientFunds.WithDetails(map[string]any{"delegated": source.Token.DelegatedAmount})
		}
		source.Token.DelegatedAmount -= amount
		if source.Token.DelegatedAmount == 0 {
			source.Token.Delegate = nil
		}
	default:
		return cerrors.ErrOwnerMismatch.WithDetails(map[string]any{"account": source.Key.String()})
	}

	if source.Account == destination.Account {
		return nil
	}
	credited, err := credit(destination, destination.Token.Amount, amount)
	if err != nil {
		return err
	}
	source.Token.Amount -= amount
	destination.Token.Amount = credited
	return nil
}
