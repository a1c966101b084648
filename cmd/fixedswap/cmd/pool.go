package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-fixedswap/internal/authority"
	"github.com/lugondev/go-fixedswap/internal/pool"
	"github.com/lugondev/go-fixedswap/internal/program"
	fsolana "github.com/lugondev/go-fixedswap/internal/solana"
)

var (
	decodeEncoding string
	decodeFile     string
	decodePool     string
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Pool account commands",
	Long:  `Decode pool accounts from raw data or read them from a cluster.`,
}

var poolDecodeCmd = &cobra.Command{
	Use:   "decode [data]",
	Short: "Decode raw pool account data",
	Long: `Decode the data of a pool account given as base64 or hex, either as an
argument or read from --file.

Example:
  fixedswap pool decode --encoding hex 8f1c...
  fixedswap pool decode --file pool.bin --pool <address>`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readPoolData(args)
		if err != nil {
			return err
		}

		view, err := pool.NewView(data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initialized:     %t\n", view.Initialized())
		fmt.Fprintf(out, "Rate:            %d\n", view.Rate())
		fmt.Fprintf(out, "Native deposit:  %s\n", view.NativeDepositAccount())
		fmt.Fprintf(out, "Quote mint:      %s\n", view.QuoteMint())
		fmt.Fprintf(out, "Quote reserve:   %s\n", view.QuoteReserveAccount())
		fmt.Fprintf(out, "Asset program:   %s\n", view.AssetProgramID())
		fmt.Fprintf(out, "Authority bump:  %d\n", view.AuthorityBump())

		if decodePool == "" {
			return nil
		}
		poolKey, err := parseKey("pool", decodePool)
		if err != nil {
			return err
		}
		programKey, err := programID()
		if err != nil {
			return err
		}
		key, err := authority.Derive(programKey, poolKey, view.AuthorityBump())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Authority:       %s\n", key)
		return nil
	},
}

var poolShowCmd = &cobra.Command{
	Use:   "show [address]",
	Short: "Fetch and decode a pool from the cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := parseKey("address", args[0])
		if err != nil {
			return err
		}
		programKey, err := programID()
		if err != nil {
			return err
		}

		ctx, cancel := rpcContext(cmd.Context())
		defer cancel()

		client := fsolana.NewClient(cfg.Solana.GetRPCEndpoint())
		defer client.Close()

		acct, err := client.FetchPool(ctx, address, programKey)
		if err != nil {
			return err
		}
		rec := acct.Record

		auth, err := authority.Derive(programKey, address, rec.AuthorityBump)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Pool:            %s (slot %d)\n", address, acct.Slot)
		fmt.Fprintf(out, "Authority:       %s (bump %d)\n", auth, rec.AuthorityBump)
		fmt.Fprintf(out, "Rate:            %d\n", rec.Rate)
		fmt.Fprintf(out, "Quote mint:      %s\n", rec.QuoteMint)
		fmt.Fprintf(out, "Asset program:   %s\n", rec.AssetProgramID)

		if lamports, err := client.GetBalance(ctx, rec.NativeDepositAccount); err == nil {
			fmt.Fprintf(out, "Native deposit:  %s (%d lamports)\n", rec.NativeDepositAccount, lamports)
		} else {
			fmt.Fprintf(out, "Native deposit:  %s (%v)\n", rec.NativeDepositAccount, err)
		}

		if reserve, err := client.FetchTokenAccount(ctx, rec.QuoteReserveAccount); err == nil {
			fmt.Fprintf(out, "Quote reserve:   %s (%d)\n", rec.QuoteReserveAccount, reserve.Amount)
		} else {
			fmt.Fprintf(out, "Quote reserve:   %s (%v)\n", rec.QuoteReserveAccount, err)
		}
		return nil
	},
}

var poolEventsCmd = &cobra.Command{
	Use:   "events [signature]",
	Short: "Decode the pool events of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := solana.SignatureFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid signature: %w", err)
		}
		programKey, err := programID()
		if err != nil {
			return err
		}

		ctx, cancel := rpcContext(cmd.Context())
		defer cancel()

		client := fsolana.NewClient(cfg.Solana.GetRPCEndpoint())
		defer client.Close()

		txEvents, err := client.FetchEvents(ctx, sig, programKey)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Transaction %s (slot %d, failed=%t)\n", sig, txEvents.Slot, txEvents.Failed)
		printEvents(out, txEvents.Events)
		return nil
	},
}

func readPoolData(args []string) ([]byte, error) {
	var raw string
	switch {
	case decodeFile != "":
		data, err := os.ReadFile(decodeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", decodeFile, err)
		}
		if decodeEncoding == "raw" {
			return data, nil
		}
		raw = string(data)
	case len(args) == 1:
		raw = args[0]
	default:
		return nil, fmt.Errorf("pool data is required as an argument or --file")
	}
	raw = strings.TrimSpace(raw)

	switch decodeEncoding {
	case "base64":
		return base64.StdEncoding.DecodeString(raw)
	case "hex":
		return hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	default:
		return nil, fmt.Errorf("unsupported encoding %q: want base64, hex or raw", decodeEncoding)
	}
}

func printEvents(out io.Writer, events []any) {
	if len(events) == 0 {
		fmt.Fprintln(out, "  no events")
		return
	}
	for _, e := range events {
		switch event := e.(type) {
		case *program.PoolInitializedEvent:
			fmt.Fprintf(out, "  PoolInitialized pool=%s authority=%s mint=%s reserve=%s native=%s rate=%d\n",
				event.Pool, event.Authority, event.QuoteMint, event.QuoteReserveAccount, event.NativeDepositAccount, event.Rate)
		case *program.SwapExecutedEvent:
			fmt.Fprintf(out, "  SwapExecuted pool=%s user=%s in=%d out=%d\n",
				event.Pool, event.User, event.AmountIn, event.AmountOut)
		}
	}
}

func init() {
	rootCmd.AddCommand(poolCmd)
	poolCmd.AddCommand(poolDecodeCmd)
	poolCmd.AddCommand(poolShowCmd)
	poolCmd.AddCommand(poolEventsCmd)

	poolDecodeCmd.Flags().StringVarP(&decodeEncoding, "encoding", "e", "base64", "data encoding: base64, hex or raw (raw requires --file)")
	poolDecodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "", "read the data from a file")
	poolDecodeCmd.Flags().StringVar(&decodePool, "pool", "", "pool address; also prints the derived authority")
}
