package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-fixedswap/internal/indexer"
	"github.com/lugondev/go-fixedswap/internal/metrics"
	"github.com/lugondev/go-fixedswap/internal/simulate"
	"github.com/lugondev/go-fixedswap/internal/storage"

	// Register the database backends with the storage factory.
	_ "github.com/lugondev/go-fixedswap/internal/storage/mongo"
	_ "github.com/lugondev/go-fixedswap/internal/storage/postgres"
)

var (
	simulatePersist bool
	simulateServe   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario.yaml]",
	Short: "Run a pool scenario on an in-memory ledger",
	Long: `Run a YAML scenario: one pool is created and funded, users are created,
and every swap runs as its own transaction. Balances and decoded events are
printed, and steps that did not end as expected make the command fail.

Scenario file:
  name: basic
  rate: 5
  reserve: 1000
  asset_program: token      # token or token2022
  concurrent: false
  users:
    - name: alice
      lamports: 1000000000
  swaps:
    - user: alice
      amount_in: 100
    - user: alice
      amount_in: 1000
      expect: InsufficientFunds

With --persist the receipts are indexed into the configured database.
With metrics.backend=prometheus, --serve keeps /metrics up until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVar(&simulatePersist, "persist", false, "index receipts into the configured database")
	simulateCmd.Flags().BoolVar(&simulateServe, "serve", false, "keep serving Prometheus metrics after the run")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sc, err := simulate.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, server, err := buildMetrics()
	if err != nil {
		return err
	}
	if err := sink.Initialize(ctx); err != nil {
		return err
	}
	if server != nil {
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	opts := []simulate.Option{
		simulate.WithLogger(logger),
		simulate.WithMetrics(sink),
	}

	if simulatePersist {
		if !cfg.Database.Enabled {
			return errors.New("--persist requires database.enabled")
		}
		cm, err := storage.NewConnectionManager(&cfg.Database)
		if err != nil {
			return err
		}
		defer cm.Close()

		repo, err := cm.Connect(ctx)
		if err != nil {
			return err
		}
		programKey, err := programID()
		if err != nil {
			return err
		}
		opts = append(opts, simulate.WithIndexer(indexer.New(repo,
			indexer.WithLogger(logger),
			indexer.WithMetrics(sink),
			indexer.WithProgramID(programKey),
		)))
	}

	report, err := simulate.NewRunner(opts...).Run(ctx, sc)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}

	if err := sink.Flush(ctx); err != nil {
		logger.Warn("failed to flush metrics", "error", err)
	}

	if simulateServe && server != nil {
		logger.Info("serving metrics, interrupt to exit", "addr", cfg.Metrics.Addr)
		<-ctx.Done()
	}
	_ = sink.Shutdown(context.WithoutCancel(ctx))

	if mismatches := report.Mismatches(); len(mismatches) > 0 {
		return fmt.Errorf("%d step(s) did not end as expected", len(mismatches))
	}
	return nil
}

// buildMetrics returns the configured sink and, for Prometheus, the HTTP
// server exposing it. Prometheus totals are also logged on flush.
func buildMetrics() (metrics.Metrics, *metrics.Server, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoopMetrics(), nil, nil
	}
	switch cfg.Metrics.Backend {
	case "prometheus":
		registry := prometheus.NewRegistry()
		sink := metrics.NewCollection(
			metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, registry),
			metrics.NewLogMetrics(logger),
		)
		return sink, metrics.NewServer(cfg.Metrics.Addr, registry), nil
	case "log":
		return metrics.NewLogMetrics(logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported metrics backend %q", cfg.Metrics.Backend)
	}
}

func printReport(out io.Writer, report *simulate.Report) {
	fmt.Fprintf(out, "Scenario:        %s\n", report.Name)
	fmt.Fprintf(out, "Pool:            %s\n", report.Pool)
	fmt.Fprintf(out, "Authority:       %s\n", report.Authority)
	fmt.Fprintf(out, "Quote mint:      %s\n", report.QuoteMint)
	fmt.Fprintf(out, "Quote reserve:   %s\n", report.QuoteReserve)
	fmt.Fprintf(out, "Native deposit:  %s\n", report.NativeDeposit)

	fmt.Fprintln(out, "\nSteps:")
	for i, step := range report.Steps {
		status := "ok"
		if step.Err != nil {
			status = "rejected: " + step.ErrorName()
		}
		mark := ""
		if !step.Matched() {
			mark = "  <-- expected "
			if step.Expect == "" {
				mark += "success"
			} else {
				mark += step.Expect
			}
		}

		switch step.Kind {
		case simulate.StepSwap:
			fmt.Fprintf(out, "  %d. swap %s in=%d out=%d %s%s\n", i, step.User, step.AmountIn, step.AmountOut, status, mark)
		default:
			fmt.Fprintf(out, "  %d. %s %s%s\n", i, step.Kind, status, mark)
		}
		if len(step.Events) > 0 {
			printEvents(out, step.Events)
		}
	}

	fmt.Fprintln(out, "\nBalances:")
	for _, b := range report.Balances {
		fmt.Fprintf(out, "  %-16s lamports=%-12d quote=%d\n", b.Name, b.Lamports, b.Quote)
	}

	if report.Indexed != nil {
		fmt.Fprintf(out, "\nIndexed: %d pool(s), %d swap(s), %d event(s)\n",
			report.Indexed.Pools, report.Indexed.Swaps, report.Indexed.Events)
	}
}
