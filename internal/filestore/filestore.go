// Package filestore persists relabeled PDFs and extraction JSON into job
// directories with deterministic naming. It holds no state: every operation
// is a pure function of (bytes, name, path).
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clearfreight/customs-audit/internal/model"
)

// JobDir creates (if needed) and returns the directory for a job within a
// run.
func JobDir(runPath, jobID string) (string, error) {
	path := filepath.Join(runPath, "job_"+jobID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", eris.Wrap(err, "filestore: create job directory")
	}
	return path, nil
}

// SavePDF writes the file under jobPath as {stem}_{documentType}.pdf and
// returns the saved path. The stem is the original filename up to its final
// '.'; special characters such as '^' and spaces are preserved verbatim so
// operators can trace outputs back to source uploads. Collisions overwrite.
func SavePDF(content []byte, originalFilename string, docType model.DocumentType, jobPath string) (string, error) {
	if err := os.MkdirAll(jobPath, 0o755); err != nil {
		return "", eris.Wrap(err, "filestore: create job directory")
	}

	name := Stem(originalFilename) + "_" + string(docType) + ".pdf"
	path := filepath.Join(jobPath, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", eris.Wrap(err, "filestore: write pdf")
	}
	return path, nil
}

// SaveExtraction writes the record as pretty-printed JSON alongside the
// given PDF, sharing its basename with a .json extension.
func SaveExtraction(record *model.ExtractionRecord, pdfPath string) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "filestore: marshal extraction")
	}

	jsonPath := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".json"
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", eris.Wrap(err, "filestore: write extraction json")
	}
	return jsonPath, nil
}

// Stem returns the filename up to its final '.', or the whole name when it
// has no extension.
func Stem(filename string) string {
	if idx := strings.LastIndexByte(filename, '.'); idx > 0 {
		return filename[:idx]
	}
	return filename
}
