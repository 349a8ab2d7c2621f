package service

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"management-web/internal/models"
)

var jobStatusFills = map[string]string{
	models.JobStatusCompleted:  "#D4EDDA",
	models.JobStatusPartial:    "#FFF3CD",
	models.JobStatusFailed:     "#F8D7DA",
	models.JobStatusCanceled:   "#F8D7DA",
	models.JobStatusProcessing: "#D1ECF1",
}

// ExportJobs writes an import job history sheet with a per-status summary below it.
func (s *ExcelService) ExportJobs(jobs []models.ImportJob, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Jobs"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	headers := []string{
		"Job Code", "Entity", "User ID", "Filename", "Total Rows",
		"Inserted", "Updated", "Failed", "Status", "Error Message", "Created At",
	}
	statusCol := getColumnName(8)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	for i, header := range headers {
		f.SetCellValue(sheetName, fmt.Sprintf("%s1", getColumnName(i)), header)
	}
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	statusStyles := make(map[string]int, len(jobStatusFills))
	for status, color := range jobStatusFills {
		statusStyles[status], _ = f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
	}

	statusCounts := make(map[string]int)
	for i, job := range jobs {
		row := i + 2
		values := []interface{}{
			job.JobCode, job.Entity, job.UserID, job.Filename, job.TotalRows,
			job.InsertedRows, job.UpdatedRows, job.FailedRows, job.Status, job.ErrorMessage,
			job.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, v := range values {
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", getColumnName(j), row), v)
		}

		if style, ok := statusStyles[job.Status]; ok {
			cell := fmt.Sprintf("%s%d", statusCol, row)
			f.SetCellStyle(sheetName, cell, cell, style)
		}
		statusCounts[job.Status]++
	}

	f.SetColWidth(sheetName, "A", getColumnName(len(headers)-1), 15)
	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "D", "D", 25)
	f.SetColWidth(sheetName, "J", "J", 40)
	f.SetColWidth(sheetName, "K", "K", 20)

	if len(jobs) > 0 {
		summaryRow := len(jobs) + 3
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Summary:")
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("Total Jobs: %d", len(jobs)))

		title := cases.Title(language.English)
		row := summaryRow + 1
		for _, status := range []string{
			models.JobStatusPending, models.JobStatusProcessing, models.JobStatusCompleted,
			models.JobStatusPartial, models.JobStatusFailed, models.JobStatusCanceled,
		} {
			if statusCounts[status] == 0 {
				continue
			}
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), fmt.Sprintf("%s: %d", title.String(status), statusCounts[status]))
			row++
		}

		summaryStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F0F0"}, Pattern: 1},
		})
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("A%d", summaryRow), summaryStyle)
	}

	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}
