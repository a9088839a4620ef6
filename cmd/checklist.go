package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/model"
)

var checklistRegion string

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Inspect region checklists",
}

var checklistShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the parsed checklist for a region",
	RunE: func(cmd *cobra.Command, args []string) error {
		region, ok := model.ParseRegion(checklistRegion)
		if !ok {
			return eris.Errorf("region must be AU or NZ, got %q", checklistRegion)
		}

		store := checklist.NewStore(cfg.Checklists.Dir)
		cl, err := store.Load(region)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(cl, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal checklist")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	checklistShowCmd.Flags().StringVar(&checklistRegion, "region", "AU", "checklist region (AU or NZ)")
	checklistCmd.AddCommand(checklistShowCmd)
	rootCmd.AddCommand(checklistCmd)
}
