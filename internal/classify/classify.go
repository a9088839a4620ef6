// Package classify labels customs PDFs with a document type via a single
// multimodal LLM call per file.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/internal/resilience"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

const systemPrompt = `You are a customs document classification expert for express air freight shipments.

Classify the attached PDF into exactly one of these categories:

1. entry_print - Customs entry/declaration form. Entry number, declarant details, line items with HS codes, customs values. Keywords: "Entry", "Declaration", "Declarant", "Tariff".
2. air_waybill - Air Waybill. AWB number, shipper/consignee details, weight, pieces, flight info. Keywords: "Air Waybill", "AWB", "Shipper", "Consignee", "MAWB", "HAWB".
3. commercial_invoice - Commercial invoice from the supplier. Invoice number, supplier/buyer details, line items with prices, totals. Keywords: "Commercial Invoice", "Payment Terms", "Total Amount".
4. packing_list - Packing list. Package details, dimensions, weights, item quantities. Keywords: "Packing List", "Carton", "Gross Weight".
5. other - Anything else: certificates, licenses, unrecognizable documents.

Respond with a valid JSON object: {"document_type": "<category>"}`

const classifyTemperature = 0.1

// Classifier performs per-PDF document type classification.
type Classifier struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// New builds a classifier over the shared LLM client.
func New(client anthropic.Client, aiCfg config.AnthropicConfig, retry resilience.RetryConfig) *Classifier {
	retry.OnRetry = resilience.RetryLogger("classify")
	return &Classifier{
		client: client,
		model:  aiCfg.ClassifierModel,
		retry:  retry,
	}
}

// Classify returns the document type for a PDF. Classification is total:
// when the provider fails after all retries the file resolves to "other"
// and the run continues without it being extracted.
func (c *Classifier) Classify(ctx context.Context, pdf []byte, filename string) model.DocumentType {
	temp := classifyTemperature
	req := anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   128,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.UserMessage(
				anthropic.TextPart(fmt.Sprintf("Classify this customs document.\n\nFilename: %s\n\nReturn the classification as JSON with the document_type field.", filename)),
				anthropic.PDFPart(filename, pdf),
			),
		},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.client.CreateMessage(ctx, req)
	})
	if err != nil {
		zap.L().Warn("classification failed after retries, labeling as other",
			zap.String("filename", filename),
			zap.Error(resilience.NewProviderFaultError("classify", err)),
		)
		return model.DocTypeOther
	}

	resp.Usage.LogUsage(c.model, "classify")

	return parseLabel(anthropic.FirstText(resp), filename)
}

func parseLabel(text, filename string) model.DocumentType {
	var out struct {
		DocumentType string `json:"document_type"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &out); err != nil {
		zap.L().Warn("classification response was not valid json, labeling as other",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return model.DocTypeOther
	}
	return model.ParseDocumentType(out.DocumentType)
}
