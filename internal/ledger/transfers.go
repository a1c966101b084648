package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/lugondev/go-fixedswap/internal/authority"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

// Transfers issues value movements on behalf of the invoking program as
// cross-program invocations of the system and token programs.
type Transfers struct {
	inv          *Invocation
	assetProgram solana.PublicKey
}

// TransferNative moves lamports; from must have signed the transaction.
func (t *Transfers) TransferNative(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	ix := system.NewTransferInstruction(amount, from, to).Build()
	return t.invoke(ctx, types.SystemProgramID, ix, nil)
}

// TransferAsset moves quote units out of reserve, signed by the pool
// authority through its seeds.
func (t *Transfers) TransferAsset(ctx context.Context, reserve, to solana.PublicKey, amount uint64, auth authority.Authorization) error {
	ix := token.NewTransferInstruction(amount, reserve, to, auth.Authority, nil).Build()
	return t.invoke(ctx, t.assetProgram, ix, auth.Seeds.SignerSeeds())
}

func (t *Transfers) invoke(ctx context.Context, programID solana.PublicKey, ix solana.Instruction, seeds [][]byte) error {
	data, err := ix.Data()
	if err != nil {
		return cerrors.ErrInstructionDidNotDeserialize.WithCause(err)
	}
	routed := solana.NewInstruction(programID, ix.Accounts(), data)
	if seeds == nil {
		return t.inv.Invoke(ctx, routed)
	}
	return t.inv.Invoke(ctx, routed, seeds)
}
