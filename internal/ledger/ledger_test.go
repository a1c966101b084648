package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-fixedswap/internal/authority"
	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func execute(t *testing.T, l *Ledger, signers []solana.PublicKey, ixs ...solana.Instruction) (*Receipt, error) {
	t.Helper()
	return l.Execute(context.Background(), &Transaction{Instructions: ixs, Signers: signers})
}

func TestSystemTransfer(t *testing.T) {
	l := New()
	from, to := newKey(), newKey()
	require.NoError(t, l.CreateAccount(from, NewWalletAccount(100)))

	receipt, err := execute(t, l, []solana.PublicKey{from}, system.NewTransferInstruction(40, from, to).Build())
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(60), l.Lamports(from))
	assert.Equal(t, uint64(40), l.Lamports(to))

	_, err = execute(t, l, []solana.PublicKey{from}, system.NewTransferInstruction(61, from, to).Build())
	require.ErrorIs(t, err, cerrors.ErrInsufficientFunds)
	assert.Equal(t, uint64(60), l.Lamports(from))

	_, err = execute(t, l, nil, system.NewTransferInstruction(1, from, to).Build())
	require.ErrorIs(t, err, cerrors.ErrMissingRequiredSignature)
}

func TestTransactionIsAtomic(t *testing.T) {
	l := New()
	a, b, c := newKey(), newKey(), newKey()
	require.NoError(t, l.CreateAccount(a, NewWalletAccount(100)))
	require.NoError(t, l.CreateAccount(b, NewWalletAccount(5)))

	receipt, err := execute(t, l, []solana.PublicKey{a, b},
		system.NewTransferInstruction(50, a, c).Build(),
		system.NewTransferInstruction(10, b, c).Build(),
	)
	require.ErrorIs(t, err, cerrors.ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "instruction 1")
	assert.False(t, receipt.Succeeded())

	assert.Equal(t, uint64(100), l.Lamports(a))
	assert.Equal(t, uint64(5), l.Lamports(b))
	_, exists := l.Account(c)
	assert.False(t, exists)
}

func TestCreateAccountTwice(t *testing.T) {
	l := New()
	k := newKey()
	require.NoError(t, l.CreateAccount(k, NewWalletAccount(1)))
	require.ErrorIs(t, l.CreateAccount(k, NewWalletAccount(1)), cerrors.ErrAccountAlreadyExists)
}

func TestAccountReturnsCopy(t *testing.T) {
	l := New()
	k := newKey()
	require.NoError(t, l.Allocate(k, types.SystemProgramID, 4))

	a, ok := l.Account(k)
	require.True(t, ok)
	a.Data[0] = 7

	b, _ := l.Account(k)
	assert.Equal(t, byte(0), b.Data[0])
}

func TestReadonlyAccountModified(t *testing.T) {
	l := New()
	programID, target := newKey(), newKey()
	require.NoError(t, l.CreateAccount(target, NewWalletAccount(10)))
	l.RegisterProgram(programID, ProgramFunc(func(ctx context.Context, inv *Invocation) error {
		inv.Accounts()[0].Lamports++
		return nil
	}))

	_, err := execute(t, l, nil, solana.NewInstruction(programID, solana.AccountMetaSlice{solana.Meta(target)}, nil))
	require.ErrorIs(t, err, cerrors.ErrReadonlyAccountModified)
	assert.Equal(t, uint64(10), l.Lamports(target))
}

func TestUnsupportedProgram(t *testing.T) {
	l := New()
	_, err := execute(t, l, nil, solana.NewInstruction(newKey(), nil, nil))
	require.ErrorIs(t, err, cerrors.ErrUnsupportedProgramID)
}

func TestInvokeCannotEscalateSigner(t *testing.T) {
	l := New()
	programID, victim, thief := newKey(), newKey(), newKey()
	require.NoError(t, l.CreateAccount(victim, NewWalletAccount(100)))
	l.RegisterProgram(programID, ProgramFunc(func(ctx context.Context, inv *Invocation) error {
		return inv.Transfers(types.TokenProgramID).TransferNative(ctx, victim, thief, 100)
	}))

	ix := solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(victim).WRITE(),
		solana.Meta(thief).WRITE(),
		solana.Meta(types.SystemProgramID),
	}, nil)
	_, err := execute(t, l, nil, ix)
	require.ErrorIs(t, err, cerrors.ErrPrivilegeEscalation)
	assert.Equal(t, uint64(100), l.Lamports(victim))
}

func TestInvokeCannotEscalateWritable(t *testing.T) {
	l := New()
	programID, user, dst := newKey(), newKey(), newKey()
	require.NoError(t, l.CreateAccount(user, NewWalletAccount(100)))
	l.RegisterProgram(programID, ProgramFunc(func(ctx context.Context, inv *Invocation) error {
		return inv.Transfers(types.TokenProgramID).TransferNative(ctx, user, dst, 1)
	}))

	ix := solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(dst),
		solana.Meta(types.SystemProgramID),
	}, nil)
	_, err := execute(t, l, []solana.PublicKey{user}, ix)
	require.ErrorIs(t, err, cerrors.ErrPrivilegeEscalation)
}

func TestInvokeRequiresProgramAccount(t *testing.T) {
	l := New()
	programID, user, dst := newKey(), newKey(), newKey()
	require.NoError(t, l.CreateAccount(user, NewWalletAccount(100)))
	l.RegisterProgram(programID, ProgramFunc(func(ctx context.Context, inv *Invocation) error {
		return inv.Transfers(types.TokenProgramID).TransferNative(ctx, user, dst, 1)
	}))

	ix := solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(dst).WRITE(),
	}, nil)
	_, err := execute(t, l, []solana.PublicKey{user}, ix)
	require.ErrorIs(t, err, cerrors.ErrNotEnoughAccountKeys)
}

// vault is a program that pays out of a token account owned by its PDA.
type vault struct {
	programID solana.PublicKey
	seed      solana.PublicKey
	authority solana.PublicKey
	bump      uint8
	reserve   solana.PublicKey
	mint      solana.PublicKey
}

func newVault(t *testing.T, l *Ledger, tokenProgram solana.PublicKey, amount uint64) *vault {
	t.Helper()

	v := &vault{programID: newKey(), seed: newKey(), reserve: newKey(), mint: newKey()}
	var err error
	v.authority, v.bump, err = authority.Find(v.programID, v.seed)
	require.NoError(t, err)
	require.NoError(t, l.CreateAccount(v.reserve, NewTokenAccount(tokenProgram, v.mint, v.authority, amount)))
	return v
}

func (v *vault) payout(routeTo solana.PublicKey, bump uint8) ProgramFunc {
	return func(ctx context.Context, inv *Invocation) error {
		dst := inv.Accounts()[1].Key
		auth := authority.Authorization{
			Authority: v.authority,
			Seeds:     authority.Seeds{Pool: v.seed, Bump: bump},
		}
		return inv.Transfers(routeTo).TransferAsset(ctx, v.reserve, dst, 30, auth)
	}
}

func (v *vault) instruction(dst, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(v.programID, solana.AccountMetaSlice{
		solana.Meta(v.reserve).WRITE(),
		solana.Meta(dst).WRITE(),
		solana.Meta(v.authority),
		solana.Meta(tokenProgram),
	}, nil)
}

func TestTransferAssetSignedBySeeds(t *testing.T) {
	for _, tokenProgram := range []solana.PublicKey{types.TokenProgramID, types.Token2022ProgramID} {
		t.Run(tokenProgram.String(), func(t *testing.T) {
			l := New()
			v := newVault(t, l, tokenProgram, 100)
			dst := newKey()
			require.NoError(t, l.CreateAccount(dst, NewTokenAccount(tokenProgram, v.mint, newKey(), 0)))
			l.RegisterProgram(v.programID, v.payout(tokenProgram, v.bump))

			receipt, err := execute(t, l, nil, v.instruction(dst, tokenProgram))
			require.NoError(t, err)

			got, err := l.TokenBalance(dst)
			require.NoError(t, err)
			assert.Equal(t, uint64(30), got)
			got, err = l.TokenBalance(v.reserve)
			require.NoError(t, err)
			assert.Equal(t, uint64(70), got)

			require.GreaterOrEqual(t, len(receipt.Logs), 4)
			assert.Equal(t, "Program "+v.programID.String()+" invoke [1]", receipt.Logs[0])
			assert.Equal(t, "Program "+tokenProgram.String()+" invoke [2]", receipt.Logs[1])
		})
	}
}

func TestTransferAssetWrongSeeds(t *testing.T) {
	l := New()
	v := newVault(t, l, types.TokenProgramID, 100)
	dst := newKey()
	require.NoError(t, l.CreateAccount(dst, NewTokenAccount(types.TokenProgramID, v.mint, newKey(), 0)))
	l.RegisterProgram(v.programID, v.payout(types.TokenProgramID, v.bump-1))

	_, err := execute(t, l, nil, v.instruction(dst, types.TokenProgramID))
	require.ErrorIs(t, err, cerrors.ErrPrivilegeEscalation)
}

func TestTransferAssetRoutedToWrongTokenProgram(t *testing.T) {
	l := New()
	v := newVault(t, l, types.TokenProgramID, 100)
	dst := newKey()
	require.NoError(t, l.CreateAccount(dst, NewTokenAccount(types.TokenProgramID, v.mint, newKey(), 0)))
	l.RegisterProgram(v.programID, v.payout(types.Token2022ProgramID, v.bump))

	_, err := execute(t, l, nil, v.instruction(dst, types.Token2022ProgramID))
	require.ErrorIs(t, err, cerrors.ErrAccountOwnedByWrongProgram)
}

func tokenTransfer(amount uint64, src, dst, owner solana.PublicKey) solana.Instruction {
	return token.NewTransferInstruction(amount, src, dst, owner, nil).Build()
}

func TestTokenTransferChecks(t *testing.T) {
	mint := newKey()

	tests := []struct {
		name    string
		mutate  func(src, dst *Account)
		wantErr error
	}{
		{
			name:   "ok",
			mutate: func(src, dst *Account) {},
		},
		{
			name:    "frozen source",
			mutate:  func(src, dst *Account) { src.Token.State = token.Frozen },
			wantErr: cerrors.ErrAccountFrozen,
		},
		{
			name:    "mint mismatch",
			mutate:  func(src, dst *Account) { dst.Token.Mint = newKey() },
			wantErr: cerrors.ErrMintMismatch,
		},
		{
			name:    "uninitialized destination",
			mutate:  func(src, dst *Account) { dst.Token.State = token.Uninitialized },
			wantErr: cerrors.ErrAccountNotInitialized,
		},
		{
			name:    "insufficient funds",
			mutate:  func(src, dst *Account) { src.Token.Amount = 5 },
			wantErr: cerrors.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			owner, src, dst := newKey(), newKey(), newKey()
			srcAcct := NewTokenAccount(types.TokenProgramID, mint, owner, 50)
			dstAcct := NewTokenAccount(types.TokenProgramID, mint, newKey(), 0)
			tt.mutate(srcAcct, dstAcct)
			require.NoError(t, l.CreateAccount(src, srcAcct))
			require.NoError(t, l.CreateAccount(dst, dstAcct))

			_, err := execute(t, l, []solana.PublicKey{owner}, tokenTransfer(10, src, dst, owner))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, err := l.TokenBalance(dst)
			require.NoError(t, err)
			assert.Equal(t, uint64(10), got)
		})
	}
}

func TestTokenTransferByDelegate(t *testing.T) {
	l := New()
	mint, owner, delegate, src, dst := newKey(), newKey(), newKey(), newKey(), newKey()
	srcAcct := NewTokenAccount(types.TokenProgramID, mint, owner, 100)
	srcAcct.Token.Delegate = &delegate
	srcAcct.Token.DelegatedAmount = 15
	require.NoError(t, l.CreateAccount(src, srcAcct))
	require.NoError(t, l.CreateAccount(dst, NewTokenAccount(types.TokenProgramID, mint, newKey(), 0)))

	_, err := execute(t, l, []solana.PublicKey{delegate}, tokenTransfer(10, src, dst, delegate))
	require.NoError(t, err)
	a, _ := l.Account(src)
	assert.Equal(t, uint64(5), a.Token.DelegatedAmount)
	require.NotNil(t, a.Token.Delegate)

	_, err = execute(t, l, []solana.PublicKey{delegate}, tokenTransfer(10, src, dst, delegate))
	require.ErrorIs(t, err, cerrors.ErrInsufficientFunds)

	_, err = execute(t, l, []solana.PublicKey{delegate}, tokenTransfer(5, src, dst, delegate))
	require.NoError(t, err)
	a, _ = l.Account(src)
	assert.Nil(t, a.Token.Delegate)
	assert.Equal(t, uint64(85), a.Token.Amount)

	stranger := newKey()
	_, err = execute(t, l, []solana.PublicKey{stranger}, tokenTransfer(1, src, dst, stranger))
	require.ErrorIs(t, err, cerrors.ErrOwnerMismatch)
}

func TestCallDepthLimit(t *testing.T) {
	l := New()
	programID := newKey()
	var calls int
	l.RegisterProgram(programID, ProgramFunc(func(ctx context.Context, inv *Invocation) error {
		calls++
		return inv.Invoke(ctx, solana.NewInstruction(programID, solana.AccountMetaSlice{solana.Meta(programID)}, nil))
	}))

	_, err := execute(t, l, nil, solana.NewInstruction(programID, solana.AccountMetaSlice{solana.Meta(programID)}, nil))
	require.ErrorIs(t, err, cerrors.ErrCallDepthExceeded)
	assert.Equal(t, MaxInstructionStackDepth, calls)
}

func TestEventLogs(t *testing.T) {
	l := New()
	programID := newKey()
	l.RegisterProgram(programID, ProgramFunc(func(ctx context.Context, inv *Invocation) error {
		inv.Log("hello %d", 7)
		inv.EmitEvent([]byte{1, 2, 3})
		return nil
	}))

	receipt, err := execute(t, l, nil, solana.NewInstruction(programID, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Program " + programID.String() + " invoke [1]",
		"Program log: hello 7",
		"Program data: AQID",
		"Program " + programID.String() + " success",
	}, receipt.Logs)
}

func TestConcurrentTransfersConserveLamports(t *testing.T) {
	l := New()
	const wallets = 8
	keys := make([]solana.PublicKey, wallets)
	for i := range keys {
		keys[i] = newKey()
		require.NoError(t, l.CreateAccount(keys[i], NewWalletAccount(1_000)))
	}

	var wg sync.WaitGroup
	for i := 0; i < wallets; i++ {
		for j := 0; j < wallets; j++ {
			if i == j {
				continue
			}
			wg.Add(1)
			go func(from, to solana.PublicKey) {
				defer wg.Done()
				_, _ = l.Execute(context.Background(), &Transaction{
					Instructions: []solana.Instruction{system.NewTransferInstruction(3, from, to).Build()},
					Signers:      []solana.PublicKey{from},
				})
			}(keys[i], keys[j])
		}
	}
	wg.Wait()

	var total uint64
	for _, k := range keys {
		total += l.Lamports(k)
	}
	assert.Equal(t, uint64(wallets*1_000), total)
}

func TestCanceledContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	receipt, err := l.Execute(ctx, &Transaction{})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, strings.Contains(receipt.Err.Error(), "canceled"))
}
