package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	fsolana "github.com/lugondev/go-fixedswap/internal/solana"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

var walletOut string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet management commands",
	Long:  `Commands for managing Solana wallets including generation and balance checks.`,
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new wallet",
	Long: `Generate a new Solana wallet keypair.

With --out the keypair is written to a file in Solana CLI format and the
private key is not printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := fsolana.NewWallet()
		out := cmd.OutOrStdout()

		if walletOut != "" {
			if err := w.SaveToFile(walletOut); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wallet written to %s\n", walletOut)
			fmt.Fprintf(out, "  Public Key:  %s\n", w.PublicKey())
			return nil
		}

		fmt.Fprintln(out, "New wallet generated!")
		fmt.Fprintf(out, "  Public Key:  %s\n", w.PublicKey())
		fmt.Fprintf(out, "  Private Key: %s\n", w.PrivateKey())
		fmt.Fprintln(out, "\nWARNING: Save your private key securely. Never share it with anyone!")
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Check wallet balance",
	Long:  `Check the SOL balance of a wallet address on the configured cluster.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pubKey, err := parseKey("address", args[0])
		if err != nil {
			return err
		}

		ctx, cancel := rpcContext(cmd.Context())
		defer cancel()

		client := fsolana.NewClient(cfg.Solana.GetRPCEndpoint())
		defer client.Close()

		lamports, err := client.GetBalance(ctx, pubKey)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Address:  %s\n", pubKey)
		fmt.Fprintf(out, "Balance:  %d lamports (%.9f SOL)\n", lamports, types.LamportsToSOL(lamports))
		return nil
	},
}

// rpcContext bounds a cluster request by solana.timeout.
func rpcContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	timeout := time.Duration(cfg.Solana.Timeout) * time.Second
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletNewCmd)
	walletCmd.AddCommand(walletBalanceCmd)

	walletNewCmd.Flags().StringVarP(&walletOut, "out", "o", "", "write the keypair to this file")
}
