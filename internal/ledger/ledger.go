// Package ledger is the host platform the swap program runs on.
//
// It stores accounts, hands programs capability objects for the accounts an
// instruction declares, serializes transactions whose writable sets overlap,
// and applies the effects of a transaction all-or-nothing: programs mutate
// working copies that are committed only when every instruction succeeds.
// Cross-program invocations reach the built-in system and SPL token programs,
// with program derived addresses signing through their seeds.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/lugondev/go-fixedswap/internal/common"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

// MaxInstructionStackDepth is the maximum depth of instruction nesting.
const MaxInstructionStackDepth = 5

// Program processes instructions addressed to its id.
type Program interface {
	Process(ctx context.Context, inv *Invocation) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx context.Context, inv *Invocation) error

// Process implements Program.
func (f ProgramFunc) Process(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}

// Transaction is a signed list of instructions applied as one unit.
type Transaction struct {
	Instructions []solana.Instruction
	Signers      []solana.PublicKey
}

// Receipt is the outcome of an executed transaction.
type Receipt struct {
	ID   uuid.UUID
	Slot uint64
	Logs []string
	Err  error
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool {
	return r.Err == nil
}

// Ledger is an in-memory account store and transaction engine.
type Ledger struct {
	common.LoggerMixin

	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
	programs map[solana.PublicKey]Program
	locks    *lockTable
	slot     atomic.Uint64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.SetLogger(logger)
	}
}

// New creates a ledger with the system and SPL token programs installed.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		LoggerMixin: common.NewLoggerMixin(),
		accounts:    make(map[solana.PublicKey]*Account),
		programs:    make(map[solana.PublicKey]Program),
		locks:       newLockTable(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.programs[types.SystemProgramID] = systemProgram{}
	l.programs[types.TokenProgramID] = tokenProgram{}
	l.programs[types.Token2022ProgramID] = tokenProgram{}
	return l
}

// RegisterProgram installs a program under id.
func (l *Ledger) RegisterProgram(id solana.PublicKey, program Program) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.programs[id] = program
	l.accounts[id] = &Account{Owner: types.LoaderProgramID, Executable: true}
}

// CreateAccount stores a new account.
func (l *Ledger) CreateAccount(key solana.PublicKey, account *Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[key]; ok {
		return cerrors.ErrAccountAlreadyExists.WithDetails(map[string]any{"account": key.String()})
	}
	l.accounts[key] = account.Clone()
	return nil
}

// Allocate creates a zeroed account of space bytes owned by owner.
func (l *Ledger) Allocate(key, owner solana.PublicKey, space int) error {
	return l.CreateAccount(key, &Account{Owner: owner, Data: make([]byte, space)})
}

// Account returns a copy of the stored account.
func (l *Ledger) Account(key solana.PublicKey) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Lamports returns the native balance of key, zero when absent.
func (l *Ledger) Lamports(key solana.PublicKey) uint64 {
	a, ok := l.Account(key)
	if !ok {
		return 0
	}
	return a.Lamports
}

// TokenBalance returns the token amount held by key.
func (l *Ledger) TokenBalance(key solana.PublicKey) (uint64, error) {
	a, ok := l.Account(key)
	if !ok {
		return 0, cerrors.ErrAccountNotFound.WithDetails(map[string]any{"account": key.String()})
	}
	if a.Token == nil {
		return 0, cerrors.ErrAccountNotInitialized.WithDetails(map[string]any{"account": key.String()})
	}
	return a.Token.Amount, nil
}

// Execute runs tx and commits its effects only if every instruction succeeds.
// The returned error equals the receipt error.
func (l *Ledger) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	receipt := &Receipt{ID: uuid.New(), Slot: l.slot.Add(1)}

	if err := ctx.Err(); err != nil {
		receipt.Err = err
		return receipt, err
	}

	access, err := declaredAccess(tx)
	if err != nil {
		receipt.Err = err
		return receipt, err
	}

	release := l.locks.acquire(access)
	defer release()

	working := l.snapshot(access)
	for i, ix := range tx.Instructions {
		if err := l.executeInstruction(ctx, ix, working, &receipt.Logs); err != nil {
			receipt.Err = fmt.Errorf("instruction %d: %w", i, err)
			l.GetLogger().Debug("transaction rolled back", "id", receipt.ID, "slot", receipt.Slot, "error", err)
			return receipt, receipt.Err
		}
	}

	if err := l.commit(access, working); err != nil {
		receipt.Err = err
		return receipt, err
	}
	l.GetLogger().Debug("transaction committed", "id", receipt.ID, "slot", receipt.Slot, "instructions", len(tx.Instructions))
	return receipt, nil
}

// declaredAccess merges the account metas of all instructions into a
// key -> writable map and checks that every declared signer signed.
func declaredAccess(tx *Transaction) (map[solana.PublicKey]bool, error) {
	signed := make(map[solana.PublicKey]struct{}, len(tx.Signers))
	for _, s := range tx.Signers {
		signed[s] = struct{}{}
	}

	access := make(map[solana.PublicKey]bool)
	for _, ix := range tx.Instructions {
		if _, ok := access[ix.ProgramID()]; !ok {
			access[ix.ProgramID()] = false
		}
		for _, meta := range ix.Accounts() {
			if meta.IsSigner {
				if _, ok := signed[meta.PublicKey]; !ok {
					return nil, cerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": meta.PublicKey.String()})
				}
			}
			access[meta.PublicKey] = access[meta.PublicKey] || meta.IsWritable
		}
	}
	return access, nil
}

// snapshot copies every declared account. Unknown keys start as empty
// system-owned accounts.
func (l *Ledger) snapshot(access map[solana.PublicKey]bool) map[solana.PublicKey]*Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	working := make(map[solana.PublicKey]*Account, len(access))
	for key := range access {
		if a, ok := l.accounts[key]; ok {
			working[key] = a.Clone()
		} else {
			working[key] = &Account{Owner: types.SystemProgramID}
		}
	}
	return working
}

func (l *Ledger) commit(access map[solana.PublicKey]bool, working map[solana.PublicKey]*Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, writable := range access {
		if stored, exists := l.accounts[key]; !writable && exists && !stored.equal(working[key]) {
			return cerrors.ErrReadonlyAccountModified.WithDetails(map[string]any{"account": key.String()})
		}
	}
	for key, writable := range access {
		if !writable {
			continue
		}
		a := working[key]
		if _, exists := l.accounts[key]; !exists && a.Lamports == 0 && len(a.Data) == 0 && a.Token == nil {
			continue
		}
		l.accounts[key] = a
	}
	return nil
}

func (l *Ledger) executeInstruction(ctx context.Context, ix solana.Instruction, working map[solana.PublicKey]*Account, logs *[]string) error {
	data, err := ix.Data()
	if err != nil {
		return cerrors.ErrInstructionDidNotDeserialize.WithCause(err)
	}

	metas := ix.Accounts()
	infos := make([]*AccountInfo, 0, len(metas))
	for _, meta := range metas {
		infos = append(infos, &AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Account:    working[meta.PublicKey],
		})
	}

	inv := &Invocation{
		ledger:    l,
		programID: ix.ProgramID(),
		accounts:  infos,
		data:      data,
		depth:     1,
		working:   working,
		logs:      logs,
	}
	return l.run(ctx, inv)
}

// run dispatches inv to its program, framing the call with invoke and
// success/failure log lines.
func (l *Ledger) run(ctx context.Context, inv *Invocation) error {
	if inv.depth > MaxInstructionStackDepth {
		return cerrors.ErrCallDepthExceeded
	}

	l.mu.RLock()
	program, ok := l.programs[inv.programID]
	l.mu.RUnlock()
	if !ok {
		return cerrors.ErrUnsupportedProgramID.WithDetails(map[string]any{"program": inv.programID.String()})
	}

	inv.appendLog(fmt.Sprintf("Program %s invoke [%d]", inv.programID, inv.depth))
	if err := program.Process(ctx, inv); err != nil {
		inv.appendLog(fmt.Sprintf("Program %s failed: %v", inv.programID, err))
		return err
	}
	inv.appendLog(fmt.Sprintf("Program %s success", inv.programID))
	return nil
}
