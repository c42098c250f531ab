package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"brewgraph/backend/internal/maintain"
	"brewgraph/backend/internal/services"
	"brewgraph/backend/pkg/config"
	"brewgraph/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kgadmin",
		Short: "Coffee knowledge graph administration",
		Long: `kgadmin maintains the coffee knowledge graph.

It applies the graph schema, seeds the flavor taxonomy, ingests canonical
product records and runs the consistency jobs that keep the graph a faithful
derivation of the source records.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output reports as JSON")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newSeedTaxonomyCmd(),
		newIngestCmd(),
		newResyncCmd(),
		newRepairOriginsCmd(),
		newBackfillCoreCountriesCmd(),
		newSweepOrphansCmd(),
		newClassifyCmd(),
	)
	return rootCmd
}

// openServices loads config, starts logging and opens the graph and source
// stores. The returned func releases everything.
func openServices(ctx context.Context) (*services.ServiceManager, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.Named("kgadmin")
	if cfg.GraphBackend == config.BackendMemory {
		log.Warn("GRAPH_BACKEND=memory: changes are discarded when kgadmin exits")
	}

	sm, err := services.Open(ctx, cfg, services.Options{Source: true}, log)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return sm, func() {
		sm.Close()
		logger.Sync()
	}, nil
}

// printReport writes a maintenance report and fails when any unit failed
func printReport(cmd *cobra.Command, report *maintain.Report) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		writeReport(out, report)
	}
	if n := len(report.Errors); n > 0 {
		return fmt.Errorf("%s: %d of %d units failed", report.Operation, n, report.Processed)
	}
	return nil
}

func writeReport(w io.Writer, r *maintain.Report) {
	fmt.Fprintf(w, "%s (run %s) finished in %s\n", r.Operation, r.RunID, r.Duration)
	fmt.Fprintf(w, "  processed: %d\n", r.Processed)
	fmt.Fprintf(w, "  affected:  %d\n", r.Affected)
	for _, k := range sortedKeys(r.Counts) {
		fmt.Fprintf(w, "  %s: %d\n", k, r.Counts[k])
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s: %s\n", e.Unit, e.Error)
	}
}
