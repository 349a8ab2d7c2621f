package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"management-web/internal/entities"
	"management-web/internal/reconcile"
)

const (
	outputDir = "./storage/samples"
	rowCount  = 50
)

// Writes one workbook per import entity: rowCount valid rows built from the
// entity samples, one row repeating the first key and one row missing a
// required value.
func main() {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", outputDir, err)
	}

	for _, e := range entities.All() {
		path := filepath.Join(outputDir, fmt.Sprintf("%s.xlsx", e.Name))
		if err := writeWorkbook(e, path); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("Test Excel file created: %s\n", path)
	}

	fmt.Printf("Each file has %d valid rows, 1 in-file duplicate and 1 invalid row\n", rowCount)
}

func writeWorkbook(e entities.Entity, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	headers := e.Headers()

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	rows := make([]map[string]any, 0, rowCount+2)
	for i := 0; i < rowCount; i++ {
		rows = append(rows, varyKey(e, e.Samples[i%len(e.Samples)], i))
	}
	rows = append(rows, rows[0], invalidRow(e, rows[1]))

	for i, row := range rows {
		values := make([]interface{}, len(headers))
		for col, h := range headers {
			values[col] = row[h]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

// varyKey suffixes the text key columns of sample so every generated row has its own key.
func varyKey(e entities.Entity, sample map[string]any, n int) map[string]any {
	row := make(map[string]any, len(sample))
	for k, v := range sample {
		row[k] = v
	}
	for _, name := range e.KeyFields {
		spec, ok := e.Spec(name)
		if !ok || spec.Kind() != reconcile.KindText {
			continue
		}
		if v, ok := row[spec.Label].(string); ok && v != "" {
			row[spec.Label] = fmt.Sprintf("%s-%03d", v, n)
		}
	}
	return row
}

func invalidRow(e entities.Entity, base map[string]any) map[string]any {
	row := make(map[string]any, len(base))
	for k, v := range base {
		row[k] = v
	}
	for _, spec := range e.Specs {
		if spec.Required && spec.Default == nil {
			if _, ok := row[spec.Label]; ok {
				row[spec.Label] = ""
				break
			}
		}
	}
	return row
}
