package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/clearfreight/customs-audit/internal/model"
)

func writeValidationFixture(t *testing.T, runDir, jobID string) {
	t.Helper()

	vf := model.ValidationFile{
		JobID:  jobID,
		Region: model.RegionAU,
		BatchValidationResult: model.BatchValidationResult{
			Header: []model.Verdict{
				{CheckID: "H1", AuditingCriteria: "importer name", Status: model.StatusPass, SourceValue: "Acme", TargetValue: "ACME"},
			},
			Valuation: []model.Verdict{
				{CheckID: "V1", AuditingCriteria: "invoice total", Status: model.StatusFail, SourceValue: "100", TargetValue: "90"},
			},
			Summary: model.ValidationSummary{Total: 2, Passed: 1, Failed: 1},
		},
	}
	data, err := json.MarshalIndent(vf, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(runDir, "job_"+jobID+"_validation_AU.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoadRunValidations(t *testing.T) {
	runDir := t.TempDir()
	writeValidationFixture(t, runDir, "2555462195")
	writeValidationFixture(t, runDir, "2219477116")
	// Unrelated JSON at the run root is not picked up by the glob.
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "notes.json"), []byte("{}"), 0o644))

	validations, err := LoadRunValidations(runDir)
	require.NoError(t, err)
	require.Len(t, validations, 2)
	// Sorted by filename for stable output.
	assert.Equal(t, "2219477116", validations[0].JobID)
	assert.Equal(t, "2555462195", validations[1].JobID)
}

func TestLoadRunValidationsEmpty(t *testing.T) {
	validations, err := LoadRunValidations(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, validations)
}

func TestWriteWorkbook(t *testing.T) {
	runDir := t.TempDir()
	writeValidationFixture(t, runDir, "2219477116")

	validations, err := LoadRunValidations(runDir)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteWorkbook(validations, out))

	file, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)
	assert.Equal(t, "Summary", file.Sheets[0].Name)
	assert.Equal(t, "job_2219477116", file.Sheets[1].Name)

	// Summary row carries the job's tallies.
	summary := file.Sheets[0]
	require.GreaterOrEqual(t, len(summary.Rows), 2)
	assert.Equal(t, "2219477116", summary.Rows[1].Cells[0].Value)
	assert.Equal(t, "AU", summary.Rows[1].Cells[1].Value)

	// Job sheet has the header row plus one row per verdict.
	job := file.Sheets[1]
	assert.Len(t, job.Rows, 3)
	assert.Equal(t, "H1", job.Rows[1].Cells[1].Value)
	assert.Equal(t, "FAIL", job.Rows[2].Cells[3].Value)
}

func TestSheetNameTruncation(t *testing.T) {
	assert.Equal(t, "job_12345", sheetName("12345"))
	long := sheetName("123456789012345678901234567890123456")
	assert.Len(t, long, maxSheetName)
}
