package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <run-directory>",
	Short: "Export a run's validation results to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runPath := args[0]

		validations, err := report.LoadRunValidations(runPath)
		if err != nil {
			return err
		}
		if len(validations) == 0 {
			return eris.Errorf("no validation files found in %s", runPath)
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(runPath, filepath.Base(runPath)+"_report.xlsx")
		}

		if err := report.WriteWorkbook(validations, out); err != nil {
			return err
		}

		zap.L().Info("exported run report",
			zap.String("run_path", runPath),
			zap.Int("jobs", len(validations)),
			zap.String("output", out),
		)
		cmd.Println(out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output xlsx path (default <run>/<run>_report.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
