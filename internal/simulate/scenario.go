// Package simulate runs pool scenarios against an in-memory ledger.
//
// A scenario creates one pool with a funded reserve, a set of named users,
// and a list of swaps. Each step is executed as its own transaction and the
// outcome is compared with the error the step expects, if any.
package simulate

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/lugondev/go-fixedswap/pkg/types"
)

// Asset program names accepted in scenario files.
const (
	AssetProgramToken     = "token"
	AssetProgramToken2022 = "token2022"
)

// Scenario describes one simulation run.
type Scenario struct {
	Name    string `yaml:"name"`
	Rate    uint64 `yaml:"rate"`
	Reserve uint64 `yaml:"reserve"`

	// AssetProgram selects the transfer service holding the reserve and
	// user quote accounts. Defaults to "token".
	AssetProgram string `yaml:"asset_program"`

	// SwapProgram, when set, is the asset program named in swap
	// instructions instead of the pool's own.
	SwapProgram string `yaml:"swap_program"`

	// Concurrent submits all swaps at once instead of in order.
	Concurrent bool `yaml:"concurrent"`

	Users []User     `yaml:"users"`
	Swaps []SwapStep `yaml:"swaps"`
}

// User is a wallet with a quote account of the pool's mint.
type User struct {
	Name     string `yaml:"name"`
	Lamports uint64 `yaml:"lamports"`
}

// SwapStep is one swap submitted by a named user.
type SwapStep struct {
	User     string `yaml:"user"`
	AmountIn uint64 `yaml:"amount_in"`

	// Expect is the error name the swap should fail with. Empty means the
	// swap should succeed.
	Expect string `yaml:"expect"`
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.AssetProgram == "" {
		sc.AssetProgram = AssetProgramToken
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that names are unique and every swap refers to a user.
func (sc *Scenario) Validate() error {
	if _, err := assetProgramID(sc.AssetProgram); err != nil {
		return err
	}
	if sc.SwapProgram != "" {
		if _, err := assetProgramID(sc.SwapProgram); err != nil {
			return err
		}
	}

	users := make(map[string]bool, len(sc.Users))
	for i, u := range sc.Users {
		if u.Name == "" {
			return fmt.Errorf("user %d: name is required", i)
		}
		if users[u.Name] {
			return fmt.Errorf("user %q: duplicate name", u.Name)
		}
		users[u.Name] = true
	}

	for i, s := range sc.Swaps {
		if !users[s.User] {
			return fmt.Errorf("swap %d: unknown user %q", i, s.User)
		}
	}
	return nil
}

func assetProgramID(name string) (solana.PublicKey, error) {
	switch name {
	case "", AssetProgramToken:
		return types.TokenProgramID, nil
	case AssetProgramToken2022:
		return types.Token2022ProgramID, nil
	default:
		return solana.PublicKey{}, fmt.Errorf("unknown asset program %q (must be %s or %s)", name, AssetProgramToken, AssetProgramToken2022)
	}
}
