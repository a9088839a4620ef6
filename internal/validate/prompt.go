package validate

import (
	"fmt"
	"strings"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/model"
)

const validatorSystemPrompt = `You are an expert customs compliance auditor for express air freight shipments into Australia and New Zealand.

Your task is to validate MULTIPLE checklist items in a single pass by directly analyzing the attached PDF documents (entry print, commercial invoice, and air waybill).

Responsibilities:
1. Read ALL the checklist items in the prompt.
2. Analyze the PDFs to locate and extract the relevant fields for ALL checks.
3. For EACH checklist item, compare the values between source and target documents according to its checking logic and decide the status.
4. Return validation results for ALL checklist items, in the same order.

Validation rules:
- PASS: clear match or acceptable variation according to the pass conditions
- FAIL: clear mismatch or violation of the pass conditions
- QUESTIONABLE: genuine ambiguity requiring human review
- N/A: the relevant field is absent from both documents

Special considerations:
- If both source and target values are missing, the comparison of null to null is a PASS
- Company names: allow fuzzy matching (abbreviations, case, punctuation, corporate suffixes)
- Numeric values: allow standard rounding differences (100.00 vs 100); the checklist may state a tighter rounding tolerance per check
- Currencies, codes, and incoterms: allow abbreviations ("USD" vs "US Dollar", "DDP" vs "Delivered Duty Paid")
- Dates: allow different formats

Critical:
- Return a validation result for EVERY checklist item, one per item, in order
- Always cite the specific values you found in each document; write "NOT FOUND" when a value is absent
- Reference the document labels (e.g. "Found in ENTRY PRINT DOCUMENT") in your assessments
- When in doubt between PASS and QUESTIONABLE, choose QUESTIONABLE

Respond with a JSON object containing exactly a "validations" array with one entry per checklist item:
{"validations": [{"check_id": string, "auditing_criteria": string, "status": "PASS"|"FAIL"|"QUESTIONABLE"|"N/A", "assessment": string, "source_document": string, "target_document": string, "source_value": string, "target_value": string}]}`

// documentLabels fixes the attachment labels the prompt references, in the
// order documents are attached.
var documentLabels = []struct {
	Type  model.DocumentType
	Label string
}{
	{model.DocTypeEntryPrint, "ENTRY PRINT DOCUMENT"},
	{model.DocTypeCommercialInvoice, "COMMERCIAL INVOICE DOCUMENT"},
	{model.DocTypeAirWaybill, "AIR WAYBILL DOCUMENT"},
	{model.DocTypePackingList, "PACKING LIST DOCUMENT"},
}

// buildCategoryPrompt enumerates every check of one category for a single
// batched validation call.
func buildCategoryPrompt(category string, checks []checklist.Check) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing PDF documents to validate %d %s checklist items in a SINGLE pass.\n\n", len(checks), category)
	b.WriteString("The PDF documents are attached after this prompt, each labeled with its document type (ENTRY PRINT DOCUMENT, COMMERCIAL INVOICE DOCUMENT, AIR WAYBILL DOCUMENT).\n\n")
	fmt.Fprintf(&b, "CHECKLIST ITEMS TO VALIDATE (%d total):\n", len(checks))

	for i, check := range checks {
		fmt.Fprintf(&b, "\n### [%d/%d] Check ID: %s\n", i+1, len(checks), check.ID)
		fmt.Fprintf(&b, "Auditing Criteria: %s\n", check.AuditingCriteria)
		fmt.Fprintf(&b, "Description: %s\n", check.Description)
		fmt.Fprintf(&b, "Checking Logic: %s\n", check.CheckingLogic)
		fmt.Fprintf(&b, "Pass Conditions: %s\n", check.PassConditions)
		fmt.Fprintf(&b, "Compare:\n- Source: %s -> %s\n- Target: %s -> %s\n",
			check.CompareFields.SourceDoc, strings.Join(check.CompareFields.SourceField, ", "),
			check.CompareFields.TargetDoc, strings.Join(check.CompareFields.TargetField, ", "),
		)
	}

	fmt.Fprintf(&b, "\nReturn a JSON object with a \"validations\" array containing exactly %d results, one per checklist item above, in the same order.\n", len(checks))
	return b.String()
}
