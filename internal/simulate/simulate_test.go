package simulate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-fixedswap/internal/indexer"
	"github.com/lugondev/go-fixedswap/internal/metrics"
	"github.com/lugondev/go-fixedswap/internal/program"
	"github.com/lugondev/go-fixedswap/internal/storage"
)

const basicScenario = `
name: basic
rate: 5
reserve: 1000
users:
  - name: alice
    lamports: 1000000000
  - name: bob
    lamports: 1000000000
swaps:
  - user: alice
    amount_in: 100
  - user: bob
    amount_in: 300
    expect: InsufficientFunds
  - user: bob
    amount_in: 0
`

func balanceOf(t *testing.T, report *Report, name string) Balance {
	t.Helper()
	for _, b := range report.Balances {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("no balance for %q", name)
	return Balance{}
}

func TestRunBasic(t *testing.T) {
	sc, err := ParseScenario([]byte(basicScenario))
	require.NoError(t, err)
	assert.Equal(t, AssetProgramToken, sc.AssetProgram)

	m := metrics.NewLogMetrics(nil)
	report, err := NewRunner(WithMetrics(m)).Run(context.Background(), sc)
	require.NoError(t, err)

	require.Len(t, report.Steps, 4)
	assert.Empty(t, report.Mismatches())

	initStep := report.Steps[0]
	assert.Equal(t, StepInit, initStep.Kind)
	require.Len(t, initStep.Events, 1)
	initEvent, ok := initStep.Events[0].(*program.PoolInitializedEvent)
	require.True(t, ok)
	assert.Equal(t, report.Pool, initEvent.Pool)
	assert.Equal(t, report.Authority, initEvent.Authority)
	assert.Equal(t, uint64(5), initEvent.Rate)

	alice := report.Steps[1]
	assert.NoError(t, alice.Err)
	assert.Equal(t, uint64(500), alice.AmountOut)

	bob := report.Steps[2]
	assert.Equal(t, "InsufficientFunds", bob.ErrorName())
	assert.Empty(t, bob.Events)

	zero := report.Steps[3]
	assert.NoError(t, zero.Err)
	assert.Equal(t, uint64(0), zero.AmountOut)

	assert.Equal(t, uint64(500), balanceOf(t, report, "quote_reserve").Quote)
	assert.Equal(t, uint64(100), balanceOf(t, report, "native_deposit").Lamports)
	assert.Equal(t, uint64(500), balanceOf(t, report, "alice").Quote)
	assert.Equal(t, uint64(1_000_000_000-100), balanceOf(t, report, "alice").Lamports)
	assert.Equal(t, uint64(0), balanceOf(t, report, "bob").Quote)
	assert.Equal(t, uint64(1_000_000_000), balanceOf(t, report, "bob").Lamports)

	require.NotNil(t, report.Record)
	assert.Equal(t, uint64(5), report.Record.Rate)
	assert.Equal(t, report.NativeDeposit, report.Record.NativeDepositAccount)

	counters := m.Counters()
	assert.Equal(t, uint64(1), counters[metrics.MetricPoolsInitialized])
	assert.Equal(t, uint64(2), counters[metrics.MetricSwapsExecuted])
}

func TestRunWrongAssetProgram(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: wrong-program
rate: 5
reserve: 1000
swap_program: token2022
users:
  - name: carol
    lamports: 1000
swaps:
  - user: carol
    amount_in: 10
    expect: IncorrectTokenProgramId
`))
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Empty(t, report.Mismatches())
	assert.Equal(t, uint64(1000), balanceOf(t, report, "carol").Lamports)
	assert.Equal(t, uint64(1000), balanceOf(t, report, "quote_reserve").Quote)
}

func TestRunToken2022Pool(t *testing.T) {
	sc, err := ParseScenario([]byte(`
rate: 3
reserve: 30
asset_program: token2022
users:
  - name: dave
    lamports: 10
swaps:
  - user: dave
    amount_in: 10
`))
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Empty(t, report.Mismatches())
	assert.Equal(t, uint64(30), balanceOf(t, report, "dave").Quote)
	assert.Equal(t, uint64(0), balanceOf(t, report, "quote_reserve").Quote)
}

func TestRunMismatchReported(t *testing.T) {
	sc, err := ParseScenario([]byte(`
rate: 1
reserve: 10
users:
  - name: erin
    lamports: 100
swaps:
  - user: erin
    amount_in: 50
`))
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)

	mismatches := report.Mismatches()
	require.Len(t, mismatches, 1)
	assert.Equal(t, "InsufficientFunds", mismatches[0].ErrorName())
	assert.False(t, mismatches[0].Matched())
}

func TestRunConcurrentConservesValue(t *testing.T) {
	sc := &Scenario{
		Name:       "rush",
		Rate:       2,
		Reserve:    100,
		Concurrent: true,
	}
	for i := 0; i < 10; i++ {
		name := string(rune('a' + i))
		sc.Users = append(sc.Users, User{Name: name, Lamports: 1000})
		sc.Swaps = append(sc.Swaps, SwapStep{User: name, AmountIn: 10})
	}
	require.NoError(t, sc.Validate())

	report, err := NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)

	var succeeded int
	for _, step := range report.Steps[1:] {
		if step.Err == nil {
			succeeded++
			assert.Equal(t, uint64(20), step.AmountOut)
		} else {
			assert.Equal(t, "InsufficientFunds", step.ErrorName())
		}
	}
	assert.Equal(t, 5, succeeded)

	var quote, lamports uint64
	for _, b := range report.Balances {
		quote += b.Quote
		lamports += b.Lamports
	}
	assert.Equal(t, uint64(100), quote)
	assert.Equal(t, uint64(10*1000), lamports)
	assert.Equal(t, uint64(50), balanceOf(t, report, "native_deposit").Lamports)
}

func TestRunWithIndexer(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()

	sc, err := ParseScenario([]byte(basicScenario))
	require.NoError(t, err)

	report, err := NewRunner(WithIndexer(indexer.New(repo))).Run(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, &indexer.Result{Pools: 1, Swaps: 2, Events: 3}, report.Indexed)

	stored, err := repo.Pools().FindByAddress(ctx, report.Pool.String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, report.QuoteMint.String(), stored.QuoteMint)

	volume, err := repo.Swaps().Volume(ctx, report.Pool.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), volume.Swaps)
	assert.Equal(t, uint64(100), volume.AmountIn)
	assert.Equal(t, uint64(500), volume.AmountOut)
}

func TestParseScenarioRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "bad yaml", yaml: "rate: [", want: "failed to parse scenario"},
		{name: "unknown program", yaml: "asset_program: token2020", want: "unknown asset program"},
		{name: "unknown swap program", yaml: "swap_program: nope", want: "unknown asset program"},
		{name: "unnamed user", yaml: "users: [{lamports: 1}]", want: "name is required"},
		{name: "duplicate user", yaml: "users: [{name: a}, {name: a}]", want: "duplicate name"},
		{name: "unknown user", yaml: "swaps: [{user: ghost, amount_in: 1}]", want: `unknown user "ghost"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(basicScenario), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "basic", sc.Name)
	assert.Len(t, sc.Users, 2)
	assert.Len(t, sc.Swaps, 3)
	assert.Equal(t, "InsufficientFunds", sc.Swaps[1].Expect)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
