// Package extract pulls schema-bound structured records out of classified
// customs PDFs.
package extract

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/internal/resilience"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

const entryPrintSystemPrompt = `You are an expert at extracting structured data from customs entry print documents.

Extract every field of the schema accurately. Pay special attention to:
- Line items with tariff codes, statistical codes, quantities, and values
- Monetary values in both foreign currency and local currency
- Owner versus supplier details (they are different parties)
- INVOICE PRICE versus CUSTOMS VALUE columns (extract from the correct column)
- Origin/Pref codes: country code before the slash, treatment code after

Return valid JSON matching the exact schema structure. Use 0 for missing numbers and "" for missing strings.`

const invoiceSystemPrompt = `You are an expert at extracting structured data from commercial invoice documents.

Extract every field of the schema accurately. Pay special attention to:
- The supplier is the foreign entity, never the importing party
- Incoterms as the 3-letter code (FOB, CIF, DDP, ...)
- Material number is NOT the HS/tariff code
- FOB amount is the net value of goods, NOT the invoice total
- Line items with quantities, unit prices, and country of origin

Return valid JSON matching the exact schema structure. Use null for optional amounts that are not listed.`

const extractTemperature = 0.1

// Extractor performs per-PDF structured extraction for the active document
// types.
type Extractor struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// New builds an extractor over the shared LLM client.
func New(client anthropic.Client, aiCfg config.AnthropicConfig, retry resilience.RetryConfig) *Extractor {
	retry.OnRetry = resilience.RetryLogger("extract")
	return &Extractor{
		client: client,
		model:  aiCfg.ExtractorModel,
		retry:  retry,
	}
}

// Extract returns the structured record for an entry print or commercial
// invoice, or nil (without calling the model) for any other document type.
// The record is schema-validated: it comes back whole or not at all.
func (e *Extractor) Extract(ctx context.Context, pdf []byte, filename string, docType model.DocumentType) (*model.ExtractionRecord, error) {
	if !docType.Extractable() {
		return nil, nil
	}

	var system, task string
	switch docType {
	case model.DocTypeEntryPrint:
		system = entryPrintSystemPrompt
		task = "Extract all data from this customs entry print document: " + filename + "\n\n" + entryPrintSchemaHint
	case model.DocTypeCommercialInvoice:
		system = invoiceSystemPrompt
		task = "Extract all data from this commercial invoice document: " + filename + "\n\n" + invoiceSchemaHint
	}

	temp := extractTemperature
	req := anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   8192,
		System:      system,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.UserMessage(
				anthropic.TextPart(task),
				anthropic.PDFPart(filename, pdf),
			),
		},
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, resilience.NewProviderFaultError("extract", err)
	}

	resp.Usage.LogUsage(e.model, "extract")

	record, err := decodeRecord(anthropic.FirstText(resp), docType)
	if err != nil {
		zap.L().Warn("extraction response failed schema validation",
			zap.String("filename", filename),
			zap.String("document_type", string(docType)),
			zap.Error(err),
		)
		return nil, err
	}
	return record, nil
}

func decodeRecord(text string, docType model.DocumentType) (*model.ExtractionRecord, error) {
	payload := []byte(anthropic.CleanJSON(text))

	switch docType {
	case model.DocTypeEntryPrint:
		var rec model.EntryPrintExtraction
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, resilience.NewSchemaFaultError("extract", "entry print response is not valid json: "+err.Error())
		}
		record := &model.ExtractionRecord{Type: docType, EntryPrint: &rec}
		if err := record.Validate(); err != nil {
			return nil, resilience.NewSchemaFaultError("extract", err.Error())
		}
		return record, nil
	case model.DocTypeCommercialInvoice:
		var rec model.CommercialInvoiceExtraction
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, resilience.NewSchemaFaultError("extract", "commercial invoice response is not valid json: "+err.Error())
		}
		record := &model.ExtractionRecord{Type: docType, CommercialInvoice: &rec}
		if err := record.Validate(); err != nil {
			return nil, resilience.NewSchemaFaultError("extract", err.Error())
		}
		return record, nil
	default:
		return nil, resilience.NewSchemaFaultError("extract", "unsupported document type "+string(docType))
	}
}
