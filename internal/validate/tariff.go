package validate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/model"
)

// SuggestedCode is one alternative tariff classification.
type SuggestedCode struct {
	HSCode   string
	StatCode string
	TCOLink  string
}

// TariffSuggestion is the external classification agent's answer for one
// line item.
type TariffSuggestion struct {
	BestHSCode   string
	BestStatCode string
	BestTCOLink  string
	OtherCodes   []SuggestedCode
	Reasoning    string
}

// TariffClassifier suggests tariff and statistical codes for a product
// description. Implementations live outside the engine.
type TariffClassifier interface {
	ClassifyLine(ctx context.Context, description string) (*TariffSuggestion, error)
}

// quantityRelTolerance is the relative difference treated as rounding noise
// when comparing declared quantities.
const quantityRelTolerance = 0.005

// runTariffLineChecks matches entry print lines to invoice lines by line
// number and emits one LineVerdict per matched pair.
func (v *Validator) runTariffLineChecks(ctx context.Context, ex *Extractions) ([]model.LineVerdict, error) {
	invoiceByNo := make(map[int]model.InvoiceLineItem, len(ex.CommercialInvoice.InvoiceItems))
	for _, item := range ex.CommercialInvoice.InvoiceItems {
		invoiceByNo[item.ItemNumber] = item
	}

	var verdicts []model.LineVerdict
	for _, line := range ex.EntryPrint.LineItems {
		invoice, matched := invoiceByNo[line.LineNo]
		if !matched {
			continue
		}

		description := invoice.Description
		if description == "" {
			description = line.Description
		}

		verdicts = append(verdicts, v.checkLine(ctx, line, invoice, description))
	}
	return verdicts, nil
}

func (v *Validator) checkLine(ctx context.Context, line model.EntryPrintLineItem, invoice model.InvoiceLineItem, description string) model.LineVerdict {
	verdict := model.LineVerdict{
		LineNumber:          line.LineNo,
		Description:         description,
		ExtractedTariffCode: line.Tariff,
		ExtractedStatCode:   line.Stat,
		OtherSuggestedCodes: []string{},
	}

	suggestion, err := v.tariff.ClassifyLine(ctx, description)
	if err != nil {
		zap.L().Warn("tariff classification failed for line",
			zap.Int("line_number", line.LineNo),
			zap.Error(err),
		)
		verdict.SuggestedTariffCode = "ERROR"
		verdict.SuggestedStatCode = "ER"
		verdict.Status = model.StatusFail
		verdict.Assessment = "Classification error: " + err.Error()
		verdict.ConcessionStatus = model.StatusNotApplicable
		verdict.QuantityStatus = model.StatusNotApplicable
		verdict.GSTExemptionStatus = model.StatusNotApplicable
		verdict.OverallStatus = model.StatusFail
		return verdict
	}

	verdict.SuggestedTariffCode = suggestion.BestHSCode
	verdict.SuggestedStatCode = suggestion.BestStatCode
	for _, alt := range suggestion.OtherCodes {
		verdict.OtherSuggestedCodes = append(verdict.OtherSuggestedCodes, alt.HSCode+"."+alt.StatCode)
	}

	verdict.Status, verdict.Assessment = tariffStatus(line, suggestion)
	verdict.ConcessionStatus = concessionStatus(line, suggestion)
	verdict.QuantityStatus = quantityStatus(line, invoice)
	verdict.GSTExemptionStatus = gstExemptionStatus(line)
	verdict.OverallStatus = model.WorstStatus(
		verdict.Status,
		verdict.ConcessionStatus,
		verdict.QuantityStatus,
		verdict.GSTExemptionStatus,
	)
	return verdict
}

// tariffStatus grades the declared classification against the suggestion:
// exact HS+stat match passes, a shared first six HS digits is questionable,
// anything else fails.
func tariffStatus(line model.EntryPrintLineItem, s *TariffSuggestion) (model.CheckStatus, string) {
	if line.Tariff == s.BestHSCode && line.Stat == s.BestStatCode {
		return model.StatusPass, "Exact match with suggested classification.\n" + s.Reasoning
	}
	if len(line.Tariff) >= 6 && len(s.BestHSCode) >= 6 && line.Tariff[:6] == s.BestHSCode[:6] {
		return model.StatusQuestionable, fmt.Sprintf(
			"Declared %s.%s shares the first six digits with suggested %s.%s.\n%s",
			line.Tariff, line.Stat, s.BestHSCode, s.BestStatCode, s.Reasoning)
	}
	return model.StatusFail, fmt.Sprintf(
		"Declared %s.%s does not match suggested %s.%s.\n%s",
		line.Tariff, line.Stat, s.BestHSCode, s.BestStatCode, s.Reasoning)
}

// concessionStatus grades a claimed concession instrument. No claim is N/A;
// a claim backed by a concession reference from the classifier passes; an
// unverifiable claim needs human review.
func concessionStatus(line model.EntryPrintLineItem, s *TariffSuggestion) model.CheckStatus {
	if strings.TrimSpace(line.InstrumentNo) == "" {
		return model.StatusNotApplicable
	}
	if s.BestTCOLink != "" {
		return model.StatusPass
	}
	return model.StatusQuestionable
}

// quantityStatus compares declared quantities on the two documents within
// rounding tolerance. Differing units are flagged rather than failed.
func quantityStatus(line model.EntryPrintLineItem, invoice model.InvoiceLineItem) model.CheckStatus {
	if line.Quantity == 0 && invoice.Quantity == 0 {
		return model.StatusNotApplicable
	}
	if !strings.EqualFold(strings.TrimSpace(line.QuantityUnit), strings.TrimSpace(invoice.QuantityUnit)) {
		return model.StatusQuestionable
	}
	diff := math.Abs(line.Quantity - invoice.Quantity)
	if diff <= 0.01 {
		return model.StatusPass
	}
	base := math.Max(math.Abs(line.Quantity), math.Abs(invoice.Quantity))
	if diff/base <= quantityRelTolerance {
		return model.StatusPass
	}
	return model.StatusFail
}

// gstExemptionStatus flags lines that declare customs value but computed
// zero GST, which indicates an exemption claim that needs review.
func gstExemptionStatus(line model.EntryPrintLineItem) model.CheckStatus {
	if line.GST == 0 && line.CustomsValue > 0 {
		return model.StatusQuestionable
	}
	return model.StatusNotApplicable
}
