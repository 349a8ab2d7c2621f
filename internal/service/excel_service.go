package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"management-web/internal/entities"
	"management-web/internal/reconcile"
)

// ErrInvalidWorkbook is returned when an upload cannot be read as a sheet of rows.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// Sheet is the first worksheet of an uploaded workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []reconcile.RawRow
}

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ReadRows reads the first sheet of the workbook at filePath.
func (s *ExcelService) ReadRows(filePath string, specs []reconcile.FieldSpec) (*Sheet, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()
	return s.readSheet(f, specs)
}

// ParseRows is ReadRows over an in-memory upload.
func (s *ExcelService) ParseRows(r io.Reader, specs []reconcile.FieldSpec) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()
	return s.readSheet(f, specs)
}

// readSheet turns the header row into cell keys. Row numbers are the sheet's
// own so messages point at what the user sees; blank rows are skipped. Cells
// under date columns holding an Excel serial become time.Time.
func (s *ExcelService) readSheet(f *excelize.File, specs []reconcile.FieldSpec) (*Sheet, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found in Excel file", ErrInvalidWorkbook)
	}

	sheetName := sheets[0]
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", ErrInvalidWorkbook, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file must contain a header row", ErrInvalidWorkbook)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	dateColumns := dateColumnIndexes(headers, specs)

	sheet := &Sheet{Name: sheetName, Headers: headers}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		cells := make(map[string]reconcile.Cell, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			value := getCellValue(row, col)
			if dateColumns[col] {
				cells[header] = excelDate(value)
				continue
			}
			cells[header] = value
		}
		sheet.Rows = append(sheet.Rows, reconcile.RawRow{Number: i + 1, Cells: cells})
	}

	return sheet, nil
}

// GenerateTemplate writes an empty import workbook for e with sample rows and instructions.
func (s *ExcelService) GenerateTemplate(e entities.Entity, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := sheetTitle(e.Title)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	headers := e.Headers()
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
		f.SetColWidth(sheetName, getColumnName(i), getColumnName(i), float64(max(12, len(header)+4)))
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	for rowIdx, sample := range e.Samples {
		row := rowIdx + 2
		for colIdx, header := range headers {
			if value, ok := sample[header]; ok {
				f.SetCellValue(sheetName, fmt.Sprintf("%s%d", getColumnName(colIdx), row), value)
			}
		}
	}

	// Instructions live on their own sheet so an untouched template imports cleanly
	instructionSheet := "Instructions"
	if _, err := f.NewSheet(instructionSheet); err != nil {
		return err
	}
	instructions := []string{"Instructions:"}
	for i, spec := range e.Specs {
		instructions = append(instructions, fmt.Sprintf("%d. %s", i+1, describeField(spec)))
	}
	instructions = append(instructions,
		"",
		fmt.Sprintf("Rows with the same %s update the existing record instead of creating a new one.", strings.Join(keyLabels(e), ", ")),
		fmt.Sprintf("Note: Only the %q sheet is imported. Do not modify the header row. Fill data starting from row 2.", sheetName),
	)
	for i, instruction := range instructions {
		f.SetCellValue(instructionSheet, fmt.Sprintf("A%d", i+1), instruction)
	}
	f.SetColWidth(instructionSheet, "A", "A", 100)

	instructionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F8FF"}, Pattern: 1},
	})
	f.SetCellStyle(instructionSheet, "A1", "A1", instructionStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// GenerateErrorReport writes the failed rows of report next to their original cells.
func (s *ExcelService) GenerateErrorReport(sheet *Sheet, report *reconcile.BatchReport, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	headers := append([]string{"Row Number", "Error Message"}, sheet.Headers...)
	for i, header := range headers {
		f.SetCellValue(sheetName, fmt.Sprintf("%s1", getColumnName(i)), header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	errorStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFFFCC"}, Pattern: 1},
	})

	byNumber := make(map[int]reconcile.RawRow, len(sheet.Rows))
	for _, r := range sheet.Rows {
		byNumber[r.Number] = r
	}

	for rowIdx, failure := range report.Failures {
		row := rowIdx + 2
		values := []interface{}{failure.RowNumber, failure.Error}
		raw := byNumber[failure.RowNumber]
		for _, h := range sheet.Headers {
			values = append(values, raw.Cells[h])
		}
		for colIdx, value := range values {
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", getColumnName(colIdx), row), value)
		}
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), errorStyle)
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 60)

	summaryStartRow := len(report.Failures) + 4
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow), "Import Summary")
	summary := [][2]interface{}{
		{"Total Rows Processed:", report.Total},
		{"Inserted:", report.Inserted},
		{"Updated:", report.Updated},
		{"Errors Found:", len(report.Failures)},
		{"Success Rate:", successRate(report)},
	}
	for i, line := range summary {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+1+i), line[0])
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+1+i), line[1])
	}

	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryStartRow), fmt.Sprintf("A%d", summaryStartRow), summaryStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

func successRate(report *reconcile.BatchReport) string {
	if report.Total == 0 {
		return "100.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(report.Succeeded())/float64(report.Total)*100)
}

func describeField(spec reconcile.FieldSpec) string {
	label := spec.Label
	if label == "" {
		label = spec.Name
	}
	var hint string
	switch spec.Kind() {
	case reconcile.KindDate:
		hint = "date (YYYY-MM-DD)"
	case reconcile.KindNumber:
		hint = spec.Coerce.Expect
	case reconcile.KindTriState:
		hint = spec.Coerce.Expect
	default:
		hint = "text"
	}
	line := fmt.Sprintf("%s: %s", label, hint)
	if spec.Required {
		line += ", required"
	}
	if spec.Default != nil {
		line += fmt.Sprintf(", defaults to %v", spec.Default)
	}
	return line
}

func keyLabels(e entities.Entity) []string {
	labels := make([]string, 0, len(e.KeyFields))
	for _, k := range e.KeyFields {
		if spec, ok := e.Spec(k); ok && spec.Label != "" {
			labels = append(labels, spec.Label)
			continue
		}
		labels = append(labels, k)
	}
	return labels
}

// dateColumnIndexes marks the sheet columns that feed a date field.
func dateColumnIndexes(headers []string, specs []reconcile.FieldSpec) map[int]bool {
	out := map[int]bool{}
	for _, spec := range specs {
		if spec.Kind() != reconcile.KindDate {
			continue
		}
		columns := spec.Columns
		if len(columns) == 0 {
			columns = []string{spec.Name}
		}
		for i, h := range headers {
			for _, c := range columns {
				if strings.EqualFold(h, strings.TrimSpace(c)) {
					out[i] = true
				}
			}
		}
	}
	return out
}

// excelDate converts a raw serial into a time; anything else is returned untouched.
func excelDate(value string) reconcile.Cell {
	serial, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || serial <= 0 {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t
}

func sheetTitle(title string) string {
	if title == "" {
		return "Import"
	}
	if len(title) > 31 {
		return title[:31]
	}
	return title
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper functions
func getCellValue(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}
	return ""
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
