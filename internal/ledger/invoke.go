package ledger

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
)

// Invocation is the context of one program call: the program id, the account
// capabilities it was given and its instruction data.
type Invocation struct {
	ledger    *Ledger
	programID solana.PublicKey
	accounts  []*AccountInfo
	data      []byte
	depth     int
	working   map[solana.PublicKey]*Account
	logs      *[]string
}

// ProgramID returns the id of the executing program.
func (inv *Invocation) ProgramID() solana.PublicKey {
	return inv.programID
}

// Accounts returns the capabilities in instruction order.
func (inv *Invocation) Accounts() []*AccountInfo {
	return inv.accounts
}

// Data returns the instruction data.
func (inv *Invocation) Data() []byte {
	return inv.data
}

// Depth returns the stack height of the call, 1 for top-level instructions.
func (inv *Invocation) Depth() int {
	return inv.depth
}

// Log appends a "Program log:" line to the transaction logs.
func (inv *Invocation) Log(format string, args ...any) {
	inv.appendLog("Program log: " + fmt.Sprintf(format, args...))
}

// EmitEvent appends a "Program data:" line carrying data.
func (inv *Invocation) EmitEvent(data []byte) {
	inv.appendLog("Program data: " + base64.StdEncoding.EncodeToString(data))
}

func (inv *Invocation) appendLog(line string) {
	if inv.logs != nil {
		*inv.logs = append(*inv.logs, line)
	}
}

// Invoke calls another program with a subset of this invocation's accounts.
// Each seed list signs for the address it derives under the calling program.
// The callee cannot gain signer or writable access the caller does not hold.
func (inv *Invocation) Invoke(ctx context.Context, ix solana.Instruction, signerSeeds ...[][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdaSigners := make(map[solana.PublicKey]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := solana.CreateProgramAddress(seeds, inv.programID)
		if err != nil {
			return cerrors.ErrPrivilegeEscalation.WithCause(err)
		}
		pdaSigners[addr] = struct{}{}
	}

	held := make(map[solana.PublicKey]*AccountInfo, len(inv.accounts))
	for _, ai := range inv.accounts {
		if prev, ok := held[ai.Key]; ok {
			prev.IsSigner = prev.IsSigner || ai.IsSigner
			prev.IsWritable = prev.IsWritable || ai.IsWritable
			continue
		}
		c := *ai
		held[ai.Key] = &c
	}

	if _, ok := held[ix.ProgramID()]; !ok {
		return cerrors.ErrNotEnoughAccountKeys.WithDetails(map[string]any{"program": ix.ProgramID().String()})
	}

	data, err := ix.Data()
	if err != nil {
		return cerrors.ErrInstructionDidNotDeserialize.WithCause(err)
	}

	metas := ix.Accounts()
	infos := make([]*AccountInfo, 0, len(metas))
	for _, meta := range metas {
		caller, ok := held[meta.PublicKey]
		if !ok {
			return cerrors.ErrNotEnoughAccountKeys.WithDetails(map[string]any{"account": meta.PublicKey.String()})
		}
		_, pdaSigned := pdaSigners[meta.PublicKey]
		if meta.IsSigner && !caller.IsSigner && !pdaSigned {
			return cerrors.ErrPrivilegeEscalation.WithDetails(map[string]any{"account": meta.PublicKey.String(), "privilege": "signer"})
		}
		if meta.IsWritable && !caller.IsWritable {
			return cerrors.ErrPrivilegeEscalation.WithDetails(map[string]any{"account": meta.PublicKey.String(), "privilege": "writable"})
		}
		infos = append(infos, &AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Account:    inv.working[meta.PublicKey],
		})
	}

	callee := &Invocation{
		ledger:    inv.ledger,
		programID: ix.ProgramID(),
		accounts:  infos,
		data:      data,
		depth:     inv.depth + 1,
		working:   inv.working,
		logs:      inv.logs,
	}
	return inv.ledger.run(ctx, callee)
}

// Transfers returns the transfer port of this invocation bound to
// assetProgram for quote asset movements.
func (inv *Invocation) Transfers(assetProgram solana.PublicKey) *Transfers {
	return &Transfers{inv: inv, assetProgram: assetProgram}
}
