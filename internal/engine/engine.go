// Package engine orchestrates the batch audit pipeline: partition, run
// allocation, per-job classification/extraction/persistence, batched
// validation, and the run manifest.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/classify"
	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/extract"
	"github.com/clearfreight/customs-audit/internal/filestore"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/internal/partition"
	"github.com/clearfreight/customs-audit/internal/resilience"
	"github.com/clearfreight/customs-audit/internal/runalloc"
	"github.com/clearfreight/customs-audit/internal/validate"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

// Engine coordinates one batch run end to end. It exclusively owns the run
// directory and every job directory it creates.
type Engine struct {
	cfg        *config.Config
	classifier *classify.Classifier
	extractor  *extract.Extractor
	validator  *validate.Validator
	allocator  *runalloc.Allocator
	nowFunc    func() time.Time
}

// New wires the pipeline components over a shared, budgeted LLM client.
// tariff may be nil; line-item checks also require engine.tariff_line_checks.
func New(cfg *config.Config, raw anthropic.Client, checklists *checklist.Store, tariff validate.TariffClassifier) *Engine {
	client := wrapClient(raw, cfg)

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: msToDuration(cfg.Retry.InitialBackoffMs),
		MaxBackoff:     msToDuration(cfg.Retry.MaxBackoffMs),
		Multiplier:     cfg.Retry.Multiplier,
		JitterFraction: cfg.Retry.JitterFraction,
		AttemptTimeout: secsToDuration(cfg.Anthropic.TimeoutSecs),
	}

	if !cfg.Engine.TariffLineChecks {
		tariff = nil
	}

	return &Engine{
		cfg:        cfg,
		classifier: classify.New(client, cfg.Anthropic, retry),
		extractor:  extract.New(client, cfg.Anthropic, retry),
		validator:  validate.New(client, checklists, cfg.Anthropic, retry, tariff),
		allocator:  runalloc.New(cfg.Output.Directory, cfg.Engine.AllocatorAttempts),
		nowFunc:    time.Now,
	}
}

// UploadSummary partitions a batch without running the pipeline.
func (e *Engine) UploadSummary(files []model.FileUpload) (*model.UploadSummary, error) {
	if len(files) == 0 {
		return nil, resilience.NewInvalidInputError("no files uploaded")
	}
	s := partition.Group(files).Summary()
	return &s, nil
}

// ProcessBatch runs the full pipeline for one batch of uploads and returns
// the run manifest. Per-job failures are recorded on their manifest entries;
// only run-level faults (bad input, allocation) abort the whole call.
func (e *Engine) ProcessBatch(ctx context.Context, files []model.FileUpload, region model.Region) (*model.RunManifest, error) {
	if _, ok := model.ParseRegion(string(region)); !ok {
		return nil, resilience.NewInvalidInputError(fmt.Sprintf("region must be AU or NZ, got %q", region))
	}
	if len(files) == 0 {
		return nil, resilience.NewInvalidInputError("no files uploaded")
	}

	log := zap.L().With(
		zap.String("trace_id", uuid.NewString()),
		zap.String("region", string(region)),
	)

	runID, runPath, err := e.allocator.Allocate(e.nowFunc())
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_id", runID))
	log.Info("starting batch run", zap.Int("files", len(files)))

	grouping := partition.Group(files)

	// Jobs land in their partition slot so manifest order matches encounter
	// order regardless of completion order.
	jobs := make([]model.JobResult, grouping.Len())
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Engine.MaxParallelJobs)
	for i, jobID := range grouping.JobIDs() {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			jobs[i] = e.processJob(gCtx, log, runPath, region, jobID, grouping.Files(jobID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: batch canceled")
	}

	manifest := &model.RunManifest{
		RunID:      runID,
		RunPath:    runPath,
		Region:     region,
		TotalFiles: grouping.TotalFiles(),
		TotalJobs:  grouping.Len(),
		Jobs:       jobs,
	}

	log.Info("batch run complete",
		zap.Int("total_jobs", manifest.TotalJobs),
		zap.Int("total_files", manifest.TotalFiles),
	)
	return manifest, nil
}

// processJob runs one job to completion. Failures stay confined to the
// returned manifest entry.
func (e *Engine) processJob(ctx context.Context, log *zap.Logger, runPath string, region model.Region, jobID string, files []model.FileUpload) model.JobResult {
	log = log.With(zap.String("job_id", jobID))

	result := model.JobResult{
		JobID:     jobID,
		FileCount: len(files),
	}

	jobPath, err := filestore.JobDir(runPath, jobID)
	if err != nil {
		log.Error("failed to create job directory", zap.Error(err))
		result.Error = err.Error()
		return result
	}
	result.JobFolder = jobPath

	records := e.classifyAndSave(ctx, log, jobPath, files)
	designated := designate(records)
	e.extractDesignated(ctx, log, records, designated)
	result.ClassifiedFiles = records

	entry := designated[model.DocTypeEntryPrint]
	invoice := designated[model.DocTypeCommercialInvoice]
	if entry < 0 || invoice < 0 {
		log.Info("skipping validation: job lacks a designated entry print or commercial invoice")
		return result
	}

	validation, validationErr := e.validateJob(ctx, region, records, designated)
	if validationErr != nil {
		log.Warn("job validation failed", zap.Error(validationErr))
		result.Error = validationErr.Error()
		return result
	}

	// Validation files live at the run root so downstream tooling can glob
	// them with one pattern per run.
	validationPath := filepath.Join(runPath, fmt.Sprintf("job_%s_validation_%s.json", jobID, region))
	if err := writeValidationFile(validationPath, jobID, region, validation); err != nil {
		log.Error("failed to persist validation result", zap.Error(err))
		result.Error = err.Error()
		return result
	}

	result.ValidationResults = validation
	result.ValidationFile = validationPath
	log.Info("job complete",
		zap.Int("checks", validation.Summary.Total),
		zap.Int("passed", validation.Summary.Passed),
		zap.Int("failed", validation.Summary.Failed),
	)
	return result
}

// classifyAndSave runs the per-file stage with bounded parallelism:
// classify each PDF, then persist it under its relabeled name. Records are
// returned in input order.
func (e *Engine) classifyAndSave(ctx context.Context, log *zap.Logger, jobPath string, files []model.FileUpload) []model.SavedFileRecord {
	records := make([]model.SavedFileRecord, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Engine.MaxParallelFiles)
	for i, file := range files {
		g.Go(func() error {
			docType := e.classifier.Classify(gCtx, file.Content, file.Filename)

			records[i] = model.SavedFileRecord{
				OriginalFilename: file.Filename,
				DocumentType:     docType,
			}

			savedPath, err := filestore.SavePDF(file.Content, file.Filename, docType, jobPath)
			if err != nil {
				log.Error("failed to save classified pdf",
					zap.String("filename", file.Filename),
					zap.Error(err),
				)
				return nil
			}
			records[i].SavedFilename = filepath.Base(savedPath)
			records[i].SavedPath = savedPath
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// designate picks, for each document type present, the record that carries
// the job's extraction and validation: the one whose saved filename sorts
// lexicographically first. Returns record indices, -1 when the type is
// absent.
func designate(records []model.SavedFileRecord) map[model.DocumentType]int {
	designated := map[model.DocumentType]int{
		model.DocTypeEntryPrint:        -1,
		model.DocTypeCommercialInvoice: -1,
		model.DocTypeAirWaybill:        -1,
		model.DocTypePackingList:       -1,
	}

	byType := make(map[model.DocumentType][]int)
	for i, rec := range records {
		if rec.SavedFilename == "" {
			continue
		}
		byType[rec.DocumentType] = append(byType[rec.DocumentType], i)
	}

	for docType, indices := range byType {
		if _, tracked := designated[docType]; !tracked {
			continue
		}
		sort.Slice(indices, func(a, b int) bool {
			return records[indices[a]].SavedFilename < records[indices[b]].SavedFilename
		})
		designated[docType] = indices[0]
	}
	return designated
}

// extractDesignated runs structured extraction for the designated entry
// print and commercial invoice concurrently, persisting each record as JSON
// next to its PDF. Non-designated duplicates stay persisted but unextracted.
func (e *Engine) extractDesignated(ctx context.Context, log *zap.Logger, records []model.SavedFileRecord, designated map[model.DocumentType]int) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, docType := range []model.DocumentType{model.DocTypeEntryPrint, model.DocTypeCommercialInvoice} {
		idx := designated[docType]
		if idx < 0 {
			continue
		}
		g.Go(func() error {
			rec := &records[idx]
			content, err := os.ReadFile(rec.SavedPath)
			if err != nil {
				log.Error("failed to re-read designated pdf",
					zap.String("saved_path", rec.SavedPath),
					zap.Error(err),
				)
				return nil
			}

			extraction, err := e.extractor.Extract(gCtx, content, rec.OriginalFilename, rec.DocumentType)
			if err != nil {
				log.Warn("extraction failed, continuing without structured record",
					zap.String("filename", rec.OriginalFilename),
					zap.String("document_type", string(rec.DocumentType)),
					zap.Error(err),
				)
				return nil
			}
			if extraction == nil {
				return nil
			}

			if _, err := filestore.SaveExtraction(extraction, rec.SavedPath); err != nil {
				log.Error("failed to persist extraction json",
					zap.String("saved_path", rec.SavedPath),
					zap.Error(err),
				)
				return nil
			}
			rec.ExtractedData = extraction
			return nil
		})
	}
	_ = g.Wait()
}

// validateJob re-reads the designated PDFs from disk and runs the batched
// checklist validation.
func (e *Engine) validateJob(ctx context.Context, region model.Region, records []model.SavedFileRecord, designated map[model.DocumentType]int) (*model.BatchValidationResult, error) {
	docs := validate.Documents{}
	for _, docType := range []model.DocumentType{model.DocTypeEntryPrint, model.DocTypeCommercialInvoice, model.DocTypeAirWaybill} {
		idx := designated[docType]
		if idx < 0 {
			continue
		}
		content, err := os.ReadFile(records[idx].SavedPath)
		if err != nil {
			return nil, eris.Wrapf(err, "engine: read %s for validation", records[idx].SavedPath)
		}
		docs[docType] = content
	}

	extractions := &validate.Extractions{}
	if idx := designated[model.DocTypeEntryPrint]; idx >= 0 && records[idx].ExtractedData != nil {
		extractions.EntryPrint = records[idx].ExtractedData.EntryPrint
	}
	if idx := designated[model.DocTypeCommercialInvoice]; idx >= 0 && records[idx].ExtractedData != nil {
		extractions.CommercialInvoice = records[idx].ExtractedData.CommercialInvoice
	}

	return e.validator.ValidateJob(ctx, region, docs, extractions)
}

func writeValidationFile(path, jobID string, region model.Region, result *model.BatchValidationResult) error {
	payload := model.ValidationFile{
		JobID:                 jobID,
		Region:                region,
		BatchValidationResult: *result,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return eris.Wrap(err, "engine: marshal validation result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "engine: write validation file")
	}
	return nil
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func secsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
