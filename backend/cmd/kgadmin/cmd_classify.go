package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"brewgraph/backend/internal/taxonomy"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <note>...",
		Short: "Show where raw tasting notes land in the flavor taxonomy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := taxonomy.Load()
			if err != nil {
				return err
			}
			classifier := taxonomy.NewClassifier(reg)

			type row struct {
				Note string `json:"note"`
				taxonomy.Classification
			}
			rows := make([]row, 0, len(args))
			for _, note := range args {
				rows = append(rows, row{Note: note, Classification: classifier.Classify(note)})
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(rows)
			}
			for _, r := range rows {
				keyword := r.Keyword
				if keyword == "" {
					keyword = "-"
				}
				fmt.Fprintf(out, "%-24s %-40s (keyword: %s)\n", r.Note, r.AttributeID, keyword)
			}
			return nil
		},
	}
}
