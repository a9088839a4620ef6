package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearfreight/customs-audit/internal/model"
)

func TestJobID(t *testing.T) {
	for _, tc := range []struct {
		filename string
		want     string
	}{
		{"2219477116_AWB.pdf", "2219477116"},
		{"2219477116^^13387052^FRML.pdf", "2219477116"},
		{"2555462195_INV.pdf", "2555462195"},
		{"holdingarea_1470585675_25GBBPO9L3RIAI4AR1___20251023__BACKUP_LV__EMA.pdf", "1470585675"},
		{"HoldingArea_3796663441_25GBBVXD0YBYXQSAR7.pdf", "3796663441"},
		{"invoice.pdf", UnknownJobID},
		{"ABC123_INV.pdf", UnknownJobID},
		{"123.pdf", UnknownJobID},
		{"", UnknownJobID},
	} {
		assert.Equal(t, tc.want, JobID(tc.filename), "filename %q", tc.filename)
	}
}

func TestGroupPreservesEncounterOrder(t *testing.T) {
	files := []model.FileUpload{
		{Filename: "2219477116_AWB.pdf"},
		{Filename: "2555462195_INV.pdf"},
		{Filename: "2219477116_ENT.pdf"},
		{Filename: "2555462195_ENT.pdf"},
	}

	g := Group(files)

	assert.Equal(t, []string{"2219477116", "2555462195"}, g.JobIDs())
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 4, g.TotalFiles())

	// Input order preserved within each group.
	first := g.Files("2219477116")
	assert.Equal(t, "2219477116_AWB.pdf", first[0].Filename)
	assert.Equal(t, "2219477116_ENT.pdf", first[1].Filename)
}

func TestGroupUnknownBucket(t *testing.T) {
	files := []model.FileUpload{
		{Filename: "certificate.pdf"},
		{Filename: "2219477116_ENT.pdf"},
		{Filename: "another doc.pdf"},
	}

	g := Group(files)

	assert.Equal(t, []string{UnknownJobID, "2219477116"}, g.JobIDs())
	assert.Len(t, g.Files(UnknownJobID), 2)
}

func TestSummary(t *testing.T) {
	files := []model.FileUpload{
		{Filename: "2219477116_AWB.pdf", Content: []byte("pdf-a")},
		{Filename: "2219477116_INV.pdf", Content: []byte("pdf-bb")},
	}

	s := Group(files).Summary()

	assert.Equal(t, 2, s.TotalFiles)
	assert.Equal(t, 1, s.TotalJobs)
	assert.Equal(t, "2219477116", s.Jobs[0].JobID)
	assert.Equal(t, 2, s.Jobs[0].FileCount)
	assert.Equal(t, 5, s.Jobs[0].Files[0].Size)
	assert.Equal(t, 6, s.Jobs[0].Files[1].Size)
}
