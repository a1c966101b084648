package program

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-fixedswap/internal/authority"
	"github.com/lugondev/go-fixedswap/internal/ledger"
	"github.com/lugondev/go-fixedswap/internal/pool"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

// fixture is a ledger with the swap program installed, a pool slot, a funded
// reserve owned by the pool authority and one funded user.
type fixture struct {
	t         *testing.T
	ledger    *ledger.Ledger
	pool      solana.PublicKey
	authority solana.PublicKey
	bump      uint8
	mint      solana.PublicKey
	reserve   solana.PublicKey
	native    solana.PublicKey
	user      solana.PublicKey
	userQuote solana.PublicKey
}

func newFixture(t *testing.T, reserveAmount uint64) *fixture {
	t.Helper()

	f := &fixture{
		t:       t,
		ledger:  ledger.New(),
		pool:    newKey(),
		mint:    newKey(),
		reserve: newKey(),
		native:  newKey(),
	}
	f.ledger.RegisterProgram(ProgramID, NewProcessor())

	var err error
	f.authority, f.bump, err = authority.Find(ProgramID, f.pool)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Allocate(f.pool, ProgramID, pool.Size))
	require.NoError(t, f.ledger.CreateAccount(f.reserve, ledger.NewTokenAccount(types.TokenProgramID, f.mint, f.authority, reserveAmount)))
	f.user, f.userQuote = f.addUser(1_000_000_000)
	return f
}

func (f *fixture) addUser(lamports uint64) (wallet, quote solana.PublicKey) {
	f.t.Helper()

	wallet, quote = newKey(), newKey()
	require.NoError(f.t, f.ledger.CreateAccount(wallet, ledger.NewWalletAccount(lamports)))
	require.NoError(f.t, f.ledger.CreateAccount(quote, ledger.NewTokenAccount(types.TokenProgramID, f.mint, wallet, 0)))
	return wallet, quote
}

func (f *fixture) initKeys() InitPoolSwapKeys {
	return InitPoolSwapKeys{
		Pool:          f.pool,
		Authority:     f.authority,
		QuoteReserve:  f.reserve,
		NativeDeposit: f.native,
		AssetProgram:  types.TokenProgramID,
	}
}

func (f *fixture) initialize(keys InitPoolSwapKeys, rate uint64) (*ledger.Receipt, error) {
	return f.ledger.Execute(context.Background(), &ledger.Transaction{
		Instructions: []solana.Instruction{NewInitPoolSwapInstruction(ProgramID, keys, rate)},
		Signers:      []solana.PublicKey{keys.Pool},
	})
}

func (f *fixture) mustInitialize(rate uint64) {
	f.t.Helper()
	_, err := f.initialize(f.initKeys(), rate)
	require.NoError(f.t, err)
}

func (f *fixture) swapKeys(user, userQuote solana.PublicKey) SwapKeys {
	return SwapKeys{
		Pool:         f.pool,
		Authority:    f.authority,
		User:         user,
		UserQuote:    userQuote,
		PoolNative:   f.native,
		PoolQuote:    f.reserve,
		AssetProgram: types.TokenProgramID,
	}
}

func (f *fixture) swap(keys SwapKeys, amountIn uint64) (*ledger.Receipt, error) {
	return f.ledger.Execute(context.Background(), &ledger.Transaction{
		Instructions: []solana.Instruction{NewSwapInstruction(ProgramID, keys, amountIn)},
		Signers:      []solana.PublicKey{keys.User},
	})
}

func (f *fixture) tokenBalance(key solana.PublicKey) uint64 {
	f.t.Helper()
	amount, err := f.ledger.TokenBalance(key)
	require.NoError(f.t, err)
	return amount
}

func (f *fixture) record() *pool.Record {
	f.t.Helper()
	acct, ok := f.ledger.Account(f.pool)
	require.True(f.t, ok)
	rec, err := pool.Decode(acct.Data)
	require.NoError(f.t, err)
	return rec
}

// balances is a snapshot of every balance a swap can touch.
type balances struct {
	userLamports   uint64
	nativeLamports uint64
	userQuote      uint64
	reserve        uint64
}

func (f *fixture) balances() balances {
	return balances{
		userLamports:   f.ledger.Lamports(f.user),
		nativeLamports: f.ledger.Lamports(f.native),
		userQuote:      f.tokenBalance(f.userQuote),
		reserve:        f.tokenBalance(f.reserve),
	}
}

// fakeEnv records logs and events in place of a ledger invocation.
type fakeEnv struct {
	programID solana.PublicKey
	logs      []string
	events    [][]byte
}

func (e *fakeEnv) ProgramID() solana.PublicKey { return e.programID }

func (e *fakeEnv) Log(format string, args ...any) {
	e.logs = append(e.logs, format)
}

func (e *fakeEnv) EmitEvent(data []byte) {
	e.events = append(e.events, data)
}

type transferCall struct {
	kind   string
	from   solana.PublicKey
	to     solana.PublicKey
	amount uint64
	auth   authority.Authorization
}

// recordingPort records transfer requests and optionally fails one kind.
type recordingPort struct {
	calls  []transferCall
	failOn string
	err    error
}

func (p *recordingPort) TransferNative(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	p.calls = append(p.calls, transferCall{kind: "native", from: from, to: to, amount: amount})
	if p.failOn == "native" {
		return p.err
	}
	return nil
}

func (p *recordingPort) TransferAsset(ctx context.Context, reserve, to solana.PublicKey, amount uint64, auth authority.Authorization) error {
	p.calls = append(p.calls, transferCall{kind: "asset", from: reserve, to: to, amount: amount, auth: auth})
	if p.failOn == "asset" {
		return p.err
	}
	return nil
}

func decodeReceiptEvents(t *testing.T, logs []string) []any {
	t.Helper()

	var events []any
	for _, line := range logs {
		payload, ok := strings.CutPrefix(line, "Program data: ")
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		require.NoError(t, err)
		event, err := DecodeEvent(data)
		require.NoError(t, err)
		events = append(events, event)
	}
	return events
}

// testContext returns a context canceled when the test finishes, like t.Context in Go 1.24.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
