// Package report renders a run's validation results into an XLSX workbook
// for downstream audit review.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clearfreight/customs-audit/internal/model"
)

// maxSheetName is the XLSX sheet name limit.
const maxSheetName = 31

// LoadRunValidations reads every job validation file at the root of a run
// directory, sorted by filename for stable output.
func LoadRunValidations(runPath string) ([]model.ValidationFile, error) {
	matches, err := filepath.Glob(filepath.Join(runPath, "*_validation_*.json"))
	if err != nil {
		return nil, eris.Wrap(err, "report: glob validation files")
	}
	sort.Strings(matches)

	var out []model.ValidationFile
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "report: read %s", path)
		}
		var vf model.ValidationFile
		if err := json.Unmarshal(data, &vf); err != nil {
			return nil, eris.Wrapf(err, "report: parse %s", path)
		}
		out = append(out, vf)
	}
	return out, nil
}

// WriteWorkbook renders the validations to an XLSX file at outPath: one
// summary sheet plus a verdict sheet per job.
func WriteWorkbook(validations []model.ValidationFile, outPath string) error {
	file := xlsx.NewFile()

	if err := addSummarySheet(file, validations); err != nil {
		return err
	}
	for _, vf := range validations {
		if err := addJobSheet(file, vf); err != nil {
			return err
		}
	}

	if err := file.Save(outPath); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", outPath)
	}
	return nil
}

func addSummarySheet(file *xlsx.File, validations []model.ValidationFile) error {
	sheet, err := file.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Job ID", "Region", "Checks", "Passed", "Failed", "Questionable", "N/A"} {
		header.AddCell().Value = h
	}

	printer := message.NewPrinter(language.English)
	for _, vf := range validations {
		row := sheet.AddRow()
		row.AddCell().Value = vf.JobID
		row.AddCell().Value = string(vf.Region)
		row.AddCell().Value = printer.Sprintf("%d", vf.Summary.Total)
		row.AddCell().SetInt(vf.Summary.Passed)
		row.AddCell().SetInt(vf.Summary.Failed)
		row.AddCell().SetInt(vf.Summary.Questionable)
		row.AddCell().SetInt(vf.Summary.NotApplicable)
	}
	return nil
}

func addJobSheet(file *xlsx.File, vf model.ValidationFile) error {
	sheet, err := file.AddSheet(sheetName(vf.JobID))
	if err != nil {
		return eris.Wrapf(err, "report: add sheet for job %s", vf.JobID)
	}

	header := sheet.AddRow()
	for _, h := range []string{"Category", "Check ID", "Criteria", "Status", "Source Value", "Target Value", "Assessment"} {
		header.AddCell().Value = h
	}

	writeVerdicts := func(category string, verdicts []model.Verdict) {
		for _, v := range verdicts {
			row := sheet.AddRow()
			row.AddCell().Value = category
			row.AddCell().Value = v.CheckID
			row.AddCell().Value = v.AuditingCriteria
			row.AddCell().Value = string(v.Status)
			row.AddCell().Value = v.SourceValue
			row.AddCell().Value = v.TargetValue
			row.AddCell().Value = v.Assessment
		}
	}
	writeVerdicts("header", vf.Header)
	writeVerdicts("valuation", vf.Valuation)

	for _, lv := range vf.TariffLineChecks {
		row := sheet.AddRow()
		row.AddCell().Value = "tariff_line"
		row.AddCell().Value = fmt.Sprintf("line_%d", lv.LineNumber)
		row.AddCell().Value = lv.Description
		row.AddCell().Value = string(lv.OverallStatus)
		row.AddCell().Value = lv.ExtractedTariffCode + "." + lv.ExtractedStatCode
		row.AddCell().Value = lv.SuggestedTariffCode + "." + lv.SuggestedStatCode
		row.AddCell().Value = lv.Assessment
	}
	return nil
}

func sheetName(jobID string) string {
	name := "job_" + jobID
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
