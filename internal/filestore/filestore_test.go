package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfreight/customs-audit/internal/model"
)

func TestStem(t *testing.T) {
	assert.Equal(t, "2219477116_AWB", Stem("2219477116_AWB.pdf"))
	assert.Equal(t, "2219477116^^13387052^FRML", Stem("2219477116^^13387052^FRML.pdf"))
	assert.Equal(t, "archive.backup", Stem("archive.backup.pdf"))
	assert.Equal(t, "noextension", Stem("noextension"))
	assert.Equal(t, ".hidden", Stem(".hidden"))
}

func TestJobDir(t *testing.T) {
	run := t.TempDir()

	path, err := JobDir(run, "2219477116")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(run, "job_2219477116"), path)

	// Idempotent.
	again, err := JobDir(run, "2219477116")
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestSavePDF(t *testing.T) {
	jobPath := filepath.Join(t.TempDir(), "job_1")
	content := []byte("%PDF-1.7 payload")

	saved, err := SavePDF(content, "2219477116_ENT.pdf", model.DocTypeEntryPrint, jobPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(jobPath, "2219477116_ENT_entry_print.pdf"), saved)
	data, readErr := os.ReadFile(saved)
	require.NoError(t, readErr)
	assert.Equal(t, content, data)
}

func TestSavePDFPreservesSpecialCharacters(t *testing.T) {
	jobPath := t.TempDir()

	saved, err := SavePDF([]byte("x"), "2219477116^^13387052^FRML with space.pdf", model.DocTypeOther, jobPath)
	require.NoError(t, err)
	assert.Equal(t, "2219477116^^13387052^FRML with space_other.pdf", filepath.Base(saved))
}

func TestSavePDFOverwritesOnCollision(t *testing.T) {
	jobPath := t.TempDir()

	_, err := SavePDF([]byte("first"), "1_ENT.pdf", model.DocTypeEntryPrint, jobPath)
	require.NoError(t, err)
	saved, err := SavePDF([]byte("second"), "1_ENT.pdf", model.DocTypeEntryPrint, jobPath)
	require.NoError(t, err)

	data, readErr := os.ReadFile(saved)
	require.NoError(t, readErr)
	assert.Equal(t, "second", string(data))
}

func TestSaveExtraction(t *testing.T) {
	jobPath := t.TempDir()
	saved, err := SavePDF([]byte("x"), "1_ENT.pdf", model.DocTypeEntryPrint, jobPath)
	require.NoError(t, err)

	record := &model.ExtractionRecord{
		Type: model.DocTypeEntryPrint,
		EntryPrint: &model.EntryPrintExtraction{
			EntryNo:   "E99",
			LineItems: []model.EntryPrintLineItem{{LineNo: 1, Tariff: "94012000", Stat: "41"}},
		},
	}

	jsonPath, err := SaveExtraction(record, saved)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(jobPath, "1_ENT_entry_print.json"), jsonPath)

	data, readErr := os.ReadFile(jsonPath)
	require.NoError(t, readErr)
	// Pretty printed and schema-shaped.
	assert.Contains(t, string(data), "\n  \"entryNo\": \"E99\"")

	var decoded model.EntryPrintExtraction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "E99", decoded.EntryNo)
}
