package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply uniqueness constraints and indexes, then seed the taxonomy",
		Long: `Apply the graph schema: a uniqueness constraint on id for every node label
plus the product search indexes. The flavor taxonomy is seeded afterwards.

Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sm, done, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer done()

			if err := sm.Maintainer.Setup(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied and taxonomy seeded")
			return nil
		},
	}
}

func newSeedTaxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-taxonomy",
		Short: "MERGE the flavor wheel categories, subcategories and attributes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sm, done, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer done()

			if err := sm.Graph.SeedTaxonomy(ctx, sm.Registry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d subcategories, %d attributes\n",
				len(sm.Registry.Categories()), len(sm.Registry.Subcategories()), len(sm.Registry.Attributes()))
			return nil
		},
	}
}
