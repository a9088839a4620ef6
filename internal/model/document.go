// Package model defines the core domain types shared across the audit engine.
package model

import "strings"

// Region identifies the customs jurisdiction whose checklist governs a run.
type Region string

const (
	RegionAU Region = "AU"
	RegionNZ Region = "NZ"
)

// ParseRegion normalizes and validates a region string.
func ParseRegion(s string) (Region, bool) {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionAU:
		return RegionAU, true
	case RegionNZ:
		return RegionNZ, true
	default:
		return "", false
	}
}

// DocumentType classifies a customs clearance document.
type DocumentType string

const (
	DocTypeEntryPrint        DocumentType = "entry_print"
	DocTypeAirWaybill        DocumentType = "air_waybill"
	DocTypeCommercialInvoice DocumentType = "commercial_invoice"
	DocTypePackingList       DocumentType = "packing_list"
	DocTypeOther             DocumentType = "other"
)

// AllDocumentTypes returns every valid document type.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeEntryPrint,
		DocTypeAirWaybill,
		DocTypeCommercialInvoice,
		DocTypePackingList,
		DocTypeOther,
	}
}

// ParseDocumentType maps a raw label onto the closed enum. Unknown labels
// resolve to DocTypeOther so classification stays total.
func ParseDocumentType(s string) DocumentType {
	dt := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AllDocumentTypes() {
		if t == dt {
			return dt
		}
	}
	return DocTypeOther
}

// Extractable reports whether structured extraction runs for this type.
func (d DocumentType) Extractable() bool {
	return d == DocTypeEntryPrint || d == DocTypeCommercialInvoice
}

// FileUpload is an in-memory uploaded PDF. The caller guarantees Content is
// a PDF payload.
type FileUpload struct {
	Filename string
	Content  []byte
}

// SavedFileRecord describes one classified and persisted file.
type SavedFileRecord struct {
	OriginalFilename string            `json:"original_filename"`
	SavedFilename    string            `json:"saved_filename"`
	SavedPath        string            `json:"saved_path"`
	DocumentType     DocumentType      `json:"document_type"`
	ExtractedData    *ExtractionRecord `json:"extracted_data,omitempty"`
}

// JobResult is one job's entry in the run manifest.
type JobResult struct {
	JobID             string                 `json:"job_id"`
	JobFolder         string                 `json:"job_folder"`
	FileCount         int                    `json:"file_count"`
	ClassifiedFiles   []SavedFileRecord      `json:"classified_files"`
	ValidationResults *BatchValidationResult `json:"validation_results,omitempty"`
	ValidationFile    string                 `json:"validation_file,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// RunManifest is the top-level result of processing one batch of uploads.
type RunManifest struct {
	RunID      string      `json:"run_id"`
	RunPath    string      `json:"run_path"`
	Region     Region      `json:"region"`
	TotalFiles int         `json:"total_files"`
	TotalJobs  int         `json:"total_jobs"`
	Jobs       []JobResult `json:"jobs"`
}

// UploadFileInfo summarizes a single uploaded file without processing it.
type UploadFileInfo struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// UploadJobSummary summarizes one partitioned job.
type UploadJobSummary struct {
	JobID     string           `json:"job_id"`
	FileCount int              `json:"file_count"`
	Files     []UploadFileInfo `json:"files"`
}

// UploadSummary is the partition-only response for an upload batch.
type UploadSummary struct {
	TotalFiles int                `json:"total_files"`
	TotalJobs  int                `json:"total_jobs"`
	Jobs       []UploadJobSummary `json:"jobs"`
}
