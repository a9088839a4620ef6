// Package partition groups uploaded files into audit jobs by filename
// convention.
package partition

import (
	"regexp"

	"github.com/clearfreight/customs-audit/internal/model"
)

// UnknownJobID groups files whose names carry no recognizable job prefix.
const UnknownJobID = "unknown"

var (
	jobIDPattern = regexp.MustCompile(`^(\d+)[_^]`)

	// Files staged through a carrier holding area keep the job digits after
	// the prefix, e.g. "holdingarea_1470585675_25GBBPO9L3RIAI4AR1.pdf".
	holdingAreaPattern = regexp.MustCompile(`(?i)^holdingarea_(\d+)`)
)

// JobID extracts the job identifier from a filename. A case-insensitive
// "holdingarea_" prefix is checked first and yields the digits after it;
// otherwise the ID is the leading run of decimal digits terminated by '_'
// or '^'. Filenames matching neither map to UnknownJobID.
func JobID(filename string) string {
	if m := holdingAreaPattern.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	if m := jobIDPattern.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	return UnknownJobID
}

// Grouping is the result of partitioning a batch: files grouped by job ID,
// with job IDs kept in encounter order and input order preserved within
// each group.
type Grouping struct {
	order  []string
	groups map[string][]model.FileUpload
}

// Group partitions the uploads by job ID.
func Group(files []model.FileUpload) *Grouping {
	g := &Grouping{groups: make(map[string][]model.FileUpload)}
	for _, f := range files {
		id := JobID(f.Filename)
		if _, ok := g.groups[id]; !ok {
			g.order = append(g.order, id)
		}
		g.groups[id] = append(g.groups[id], f)
	}
	return g
}

// JobIDs returns the job identifiers in encounter order.
func (g *Grouping) JobIDs() []string {
	return g.order
}

// Files returns the files for a job in input order.
func (g *Grouping) Files(jobID string) []model.FileUpload {
	return g.groups[jobID]
}

// Len returns the number of jobs.
func (g *Grouping) Len() int {
	return len(g.order)
}

// TotalFiles returns the number of files across all jobs.
func (g *Grouping) TotalFiles() int {
	n := 0
	for _, files := range g.groups {
		n += len(files)
	}
	return n
}

// Summary builds the partition-only upload summary.
func (g *Grouping) Summary() model.UploadSummary {
	s := model.UploadSummary{
		TotalFiles: g.TotalFiles(),
		TotalJobs:  g.Len(),
	}
	for _, id := range g.order {
		job := model.UploadJobSummary{JobID: id, FileCount: len(g.groups[id])}
		for _, f := range g.groups[id] {
			job.Files = append(job.Files, model.UploadFileInfo{
				Filename: f.Filename,
				Size:     len(f.Content),
			})
		}
		s.Jobs = append(s.Jobs, job)
	}
	return s
}
