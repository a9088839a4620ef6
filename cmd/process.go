package main

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/engine"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

var (
	processInput  string
	processRegion string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a local folder of PDFs through the audit pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		region, ok := model.ParseRegion(processRegion)
		if !ok {
			return eris.Errorf("region must be AU or NZ, got %q", processRegion)
		}

		files, err := scanInputFolder(processInput)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return eris.Errorf("no PDF files found under %s", processInput)
		}
		zap.L().Info("scanned input folder",
			zap.String("input", processInput),
			zap.Int("pdf_files", len(files)),
		)

		store := checklist.NewStore(cfg.Checklists.Dir)
		client := anthropic.NewClient(cfg.Anthropic.Key)
		eng := engine.New(cfg, client, store, nil)

		manifest, err := eng.ProcessBatch(cmd.Context(), files, region)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal manifest")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processInput, "input", "./input", "folder to scan for PDFs")
	processCmd.Flags().StringVar(&processRegion, "region", "AU", "checklist region (AU or NZ)")
	rootCmd.AddCommand(processCmd)
}

// scanInputFolder collects every PDF under the folder, recursively and
// case-insensitively.
func scanInputFolder(dir string) ([]model.FileUpload, error) {
	var files []model.FileUpload
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		files = append(files, model.FileUpload{
			Filename: filepath.Base(path),
			Content:  content,
		})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scan input folder %s", dir)
	}
	return files, nil
}
