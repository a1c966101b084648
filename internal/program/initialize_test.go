package program

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/ledger"
	"github.com/lugondev/go-fixedswap/internal/pool"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

func TestInitializePool(t *testing.T) {
	f := newFixture(t, 1000)

	receipt, err := f.initialize(f.initKeys(), 5)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())

	rec := f.record()
	assert.True(t, rec.Initialized)
	assert.Equal(t, uint64(5), rec.Rate)
	assert.Equal(t, f.native, rec.NativeDepositAccount)
	assert.Equal(t, f.mint, rec.QuoteMint)
	assert.Equal(t, f.reserve, rec.QuoteReserveAccount)
	assert.Equal(t, f.bump, rec.AuthorityBump)
	assert.Equal(t, types.TokenProgramID, rec.AssetProgramID)

	// No value moves on initialization.
	assert.Equal(t, uint64(1000), f.tokenBalance(f.reserve))
	assert.Zero(t, f.ledger.Lamports(f.native))
}

func TestInitializePoolOnlyOnce(t *testing.T) {
	f := newFixture(t, 1000)
	f.mustInitialize(5)

	_, err := f.initialize(f.initKeys(), 7)
	require.ErrorIs(t, err, cerrors.ErrAlreadyInUse)
	assert.Equal(t, uint64(5), f.record().Rate)
}

func TestInitializePoolEmitsEvent(t *testing.T) {
	f := newFixture(t, 1000)

	receipt, err := f.initialize(f.initKeys(), 42)
	require.NoError(t, err)

	events := decodeReceiptEvents(t, receipt.Logs)
	require.Len(t, events, 1)
	event, ok := events[0].(*PoolInitializedEvent)
	require.True(t, ok)
	assert.Equal(t, PoolInitializedEvent{
		Pool:                 f.pool,
		Authority:            f.authority,
		NativeDepositAccount: f.native,
		QuoteMint:            f.mint,
		QuoteReserveAccount:  f.reserve,
		Rate:                 42,
	}, *event)
}

func TestInitializePoolRejections(t *testing.T) {
	tests := []struct {
		name        string
		initialized bool
		setup       func(f *fixture, keys *InitPoolSwapKeys)
		wantErr     error
	}{
		{
			name:        "initialized pool with a wallet as reserve",
			initialized: true,
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.QuoteReserve = newKey()
				require.NoError(t, f.ledger.CreateAccount(keys.QuoteReserve, ledger.NewWalletAccount(1)))
			},
			wantErr: cerrors.ErrAlreadyInUse,
		},
		{
			name: "authority not derived from pool",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.Authority = newKey()
			},
			wantErr: cerrors.ErrInvalidProgramAddress,
		},
		{
			name: "reserve owned by another party",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.QuoteReserve = newKey()
				require.NoError(t, f.ledger.CreateAccount(keys.QuoteReserve, ledger.NewTokenAccount(types.TokenProgramID, f.mint, newKey(), 1000)))
			},
			wantErr: cerrors.ErrInvalidOwner,
		},
		{
			name: "reserve with delegate",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.QuoteReserve = newKey()
				acct := ledger.NewTokenAccount(types.TokenProgramID, f.mint, f.authority, 1000)
				delegate := newKey()
				acct.Token.Delegate = &delegate
				acct.Token.DelegatedAmount = 10
				require.NoError(t, f.ledger.CreateAccount(keys.QuoteReserve, acct))
			},
			wantErr: cerrors.ErrInvalidDelegate,
		},
		{
			name: "reserve with close authority",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.QuoteReserve = newKey()
				acct := ledger.NewTokenAccount(types.TokenProgramID, f.mint, f.authority, 1000)
				closer := newKey()
				acct.Token.CloseAuthority = &closer
				require.NoError(t, f.ledger.CreateAccount(keys.QuoteReserve, acct))
			},
			wantErr: cerrors.ErrInvalidCloseAuthority,
		},
		{
			name: "native deposit is the reserve",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.NativeDeposit = keys.QuoteReserve
			},
			wantErr: cerrors.ErrInvalidInput,
		},
		{
			name: "reserve is not a token account",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.QuoteReserve = newKey()
				require.NoError(t, f.ledger.CreateAccount(keys.QuoteReserve, ledger.NewWalletAccount(1)))
			},
			wantErr: cerrors.ErrAccountOwnedByWrongProgram,
		},
		{
			name: "pool slot owned by another program",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.Pool = newKey()
				require.NoError(t, f.ledger.Allocate(keys.Pool, types.SystemProgramID, pool.Size))
			},
			wantErr: cerrors.ErrIncorrectProgramID,
		},
		{
			name: "pool slot too small",
			setup: func(f *fixture, keys *InitPoolSwapKeys) {
				keys.Pool = newKey()
				require.NoError(t, f.ledger.Allocate(keys.Pool, ProgramID, 8))
				addr, _, err := solana.FindProgramAddress([][]byte{keys.Pool.Bytes()}, ProgramID)
				require.NoError(t, err)
				keys.Authority = addr
			},
			wantErr: cerrors.ErrAccountDidNotDeserialize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1000)
			want := pool.Uninitialized
			if tt.initialized {
				f.mustInitialize(5)
				want = pool.Initialized
			}
			keys := f.initKeys()
			tt.setup(f, &keys)

			_, err := f.initialize(keys, 7)
			require.ErrorIs(t, err, tt.wantErr)

			acct, ok := f.ledger.Account(keys.Pool)
			require.True(t, ok)
			_, state, _ := pool.Load(acct.Data)
			assert.Equal(t, want, state)
		})
	}
}

func TestInitializePoolRequiresSignedWritableSlot(t *testing.T) {
	f := newFixture(t, 1000)
	reserve := ledger.NewTokenAccount(types.TokenProgramID, f.mint, f.authority, 1000)

	accounts := func(signer, writable bool) *InitPoolSwapAccounts {
		return &InitPoolSwapAccounts{
			Pool: &ledger.AccountInfo{
				Key: f.pool, IsSigner: signer, IsWritable: writable,
				Account: &ledger.Account{Owner: ProgramID, Data: make([]byte, pool.Size)},
			},
			Authority:     &ledger.AccountInfo{Key: f.authority, Account: &ledger.Account{}},
			QuoteReserve:  &ledger.AccountInfo{Key: f.reserve, IsWritable: true, Account: reserve},
			NativeDeposit: &ledger.AccountInfo{Key: f.native, IsWritable: true, Account: &ledger.Account{}},
			AssetProgram:  &ledger.AccountInfo{Key: types.TokenProgramID, Account: &ledger.Account{}},
		}
	}

	p := NewProcessor()
	env := &fakeEnv{programID: ProgramID}

	err := p.InitializePool(testContext(t), env, accounts(false, true), 5)
	assert.ErrorIs(t, err, cerrors.ErrMissingRequiredSignature)

	err = p.InitializePool(testContext(t), env, accounts(true, false), 5)
	assert.ErrorIs(t, err, cerrors.ErrAccountNotMutable)

	require.NoError(t, p.InitializePool(testContext(t), env, accounts(true, true), 5))
	assert.Len(t, env.events, 1)
}
