package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"brewgraph/backend/internal/maintain"
)

func newResyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Recompute product edges from source records",
		Long: `Rebuild the graph edges of one product, one brand's products, or every
product from the source records. Each product commits on its own, so an
interrupted run can simply be repeated.

Examples:
  kgadmin resync                      # every product
  kgadmin resync --product sm-red-brick
  kgadmin resync --brand "Square Mile"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, _ := cmd.Flags().GetString("product")
			brand, _ := cmd.Flags().GetString("brand")
			if productID != "" && brand != "" {
				return fmt.Errorf("--product and --brand are mutually exclusive")
			}

			ctx := cmd.Context()
			sm, done, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer done()

			report, err := sm.Maintainer.Resync(ctx, maintain.ResyncScope{ProductID: productID, Brand: brand})
			if err != nil {
				return err
			}
			return printReport(cmd, report)
		},
	}
	cmd.Flags().String("product", "", "Resync a single product id")
	cmd.Flags().String("brand", "", "Resync every product of a brand")
	return cmd
}

func newRepairOriginsCmd() *cobra.Command {
	return newJobCmd("repair-origins",
		"Merge malformed origin nodes into their canonical identity",
		func(m *maintain.Maintainer) jobFunc { return m.RepairMalformedOrigins })
}

func newBackfillCoreCountriesCmd() *cobra.Command {
	return newJobCmd("backfill-core-countries",
		"Link products of region origins to the core country node",
		func(m *maintain.Maintainer) jobFunc { return m.BackfillCoreCountries })
}

func newSweepOrphansCmd() *cobra.Command {
	return newJobCmd("sweep-orphans",
		"Delete Origin, Process, Producer and Variety nodes no product references",
		func(m *maintain.Maintainer) jobFunc { return m.SweepOrphans })
}

// jobFunc is a parameterless maintenance job
type jobFunc func(ctx context.Context) (*maintain.Report, error)

// newJobCmd builds a command for a parameterless maintenance job
func newJobCmd(use, short string, job func(*maintain.Maintainer) jobFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sm, done, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer done()

			report, err := job(sm.Maintainer)(ctx)
			if err != nil {
				return err
			}
			return printReport(cmd, report)
		},
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
