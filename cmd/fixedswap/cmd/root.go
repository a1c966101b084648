package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lugondev/go-fixedswap/internal/common"
	"github.com/lugondev/go-fixedswap/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fixedswap",
	Short: "Fixed-rate swap pool tool",
	Long: `fixedswap works with fixed-rate custodial swap pools: each pool pays a
quote asset from its reserve at a fixed rate per unit of native currency.

It provides commands for:
- Deriving and checking pool authorities
- Decoding pool accounts, locally or from a cluster
- Simulating pool scenarios on an in-memory ledger
- Wallet management`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fixedswap.yaml)")
	rootCmd.PersistentFlags().String("rpc", "", "Solana RPC endpoint (overrides solana.rpc)")
	rootCmd.PersistentFlags().String("program", "", "swap program id (overrides program.id)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	for key, flag := range map[string]string{
		"solana.rpc": "rpc",
		"program.id": "program",
		"log.level":  "log-level",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding flag: %v\n", err)
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger = common.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return nil
}

func programID() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(cfg.Program.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", cfg.Program.ID, err)
	}
	return id, nil
}

func parseKey(name, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return key, nil
}
