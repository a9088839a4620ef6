// Package validate runs the batched checklist validation for one job: two
// concurrent multimodal LLM calls (header and valuation) over the job's
// original PDFs, plus the optional per-line tariff checks.
package validate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/internal/resilience"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

const validatorTemperature = 0.05

// Documents maps document types to the original PDF bytes attached to each
// validation call.
type Documents map[model.DocumentType][]byte

// Extractions carries the structured records produced by the extractor,
// consumed by the tariff line checks.
type Extractions struct {
	EntryPrint        *model.EntryPrintExtraction
	CommercialInvoice *model.CommercialInvoiceExtraction
}

// Validator executes batch checklist validation. It never writes files:
// persistence belongs to the orchestrator.
type Validator struct {
	client anthropic.Client
	store  *checklist.Store
	model  string
	retry  resilience.RetryConfig
	tariff TariffClassifier
}

// New builds a validator. tariff may be nil to disable line-item checks.
func New(client anthropic.Client, store *checklist.Store, aiCfg config.AnthropicConfig, retry resilience.RetryConfig, tariff TariffClassifier) *Validator {
	retry.OnRetry = resilience.RetryLogger("validate")
	return &Validator{
		client: client,
		store:  store,
		model:  aiCfg.ValidatorModel,
		retry:  retry,
		tariff: tariff,
	}
}

// ValidateJob runs header and valuation validation concurrently and, when a
// tariff classifier is configured, the per-line tariff checks. Total
// wall-clock time is the maximum of the two category calls, not the sum.
func (v *Validator) ValidateJob(ctx context.Context, region model.Region, docs Documents, extractions *Extractions) (*model.BatchValidationResult, error) {
	if len(docs[model.DocTypeEntryPrint]) == 0 || len(docs[model.DocTypeCommercialInvoice]) == 0 {
		return nil, resilience.NewInvalidInputError("validate: entry_print and commercial_invoice documents are required")
	}

	cl, err := v.store.Load(region)
	if err != nil {
		return nil, err
	}

	var header, valuation []model.Verdict
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var catErr error
		header, catErr = v.runCategory(gCtx, "header", cl.HeaderChecks(), docs)
		return catErr
	})
	g.Go(func() error {
		var catErr error
		valuation, catErr = v.runCategory(gCtx, "valuation", cl.ValuationChecks(), docs)
		return catErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &model.BatchValidationResult{
		Header:    header,
		Valuation: valuation,
		Summary:   model.Summarize(header, valuation),
	}

	if v.tariff != nil && extractions != nil && extractions.EntryPrint != nil && extractions.CommercialInvoice != nil {
		lines, lineErr := v.runTariffLineChecks(ctx, extractions)
		if lineErr != nil {
			zap.L().Warn("tariff line checks failed",
				zap.String("region", string(region)),
				zap.Error(lineErr),
			)
		} else {
			result.TariffLineChecks = lines
		}
	}

	return result, nil
}

// runCategory validates one category's checks in a single batched LLM call.
// An empty check list short-circuits to an empty verdict slice.
func (v *Validator) runCategory(ctx context.Context, category string, checks []checklist.Check, docs Documents) ([]model.Verdict, error) {
	if len(checks) == 0 {
		return []model.Verdict{}, nil
	}

	parts := []anthropic.ContentPart{
		anthropic.TextPart(buildCategoryPrompt(category, checks)),
	}
	for _, dl := range documentLabels {
		if pdf := docs[dl.Type]; len(pdf) > 0 {
			parts = append(parts, anthropic.PDFPart(dl.Label, pdf))
		}
	}

	temp := validatorTemperature
	req := anthropic.MessageRequest{
		Model:       v.model,
		MaxTokens:   16384,
		System:      validatorSystemPrompt,
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Parts: parts}},
	}

	resp, err := resilience.DoVal(ctx, v.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return v.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, resilience.NewProviderFaultError("validate:"+category, err)
	}

	resp.Usage.LogUsage(v.model, "validate:"+category)

	return parseVerdicts(anthropic.FirstText(resp), category, checks)
}

// parseVerdicts decodes the batched response, enforces the one-verdict-per-
// check contract, and pins provenance fields to the checklist configuration
// so the output order and attribution cannot drift with the model.
func parseVerdicts(text, category string, checks []checklist.Check) ([]model.Verdict, error) {
	var out struct {
		Validations []model.Verdict `json:"validations"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &out); err != nil {
		return nil, resilience.NewSchemaFaultError("validate:"+category, "response is not valid json: "+err.Error())
	}
	if len(out.Validations) != len(checks) {
		return nil, resilience.NewSchemaFaultError("validate:"+category,
			fmt.Sprintf("expected %d verdicts, got %d", len(checks), len(out.Validations)))
	}

	for i := range out.Validations {
		verdict := &out.Validations[i]
		check := checks[i]

		verdict.CheckID = check.ID
		verdict.AuditingCriteria = check.AuditingCriteria
		verdict.SourceDocument = check.CompareFields.SourceDoc
		verdict.TargetDocument = check.CompareFields.TargetDoc

		switch verdict.Status {
		case model.StatusPass, model.StatusFail, model.StatusQuestionable, model.StatusNotApplicable:
		default:
			return nil, resilience.NewSchemaFaultError("validate:"+category,
				fmt.Sprintf("check %s: unknown status %q", check.ID, verdict.Status))
		}

		// Citations are mandatory on substantive verdicts.
		if verdict.Status != model.StatusNotApplicable {
			if verdict.SourceValue == "" {
				verdict.SourceValue = "NOT FOUND"
			}
			if verdict.TargetValue == "" {
				verdict.TargetValue = "NOT FOUND"
			}
		}
	}

	return out.Validations, nil
}
