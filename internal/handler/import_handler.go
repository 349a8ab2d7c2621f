package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"management-web/internal/config"
	"management-web/internal/entities"
	"management-web/internal/middleware"
	"management-web/internal/models"
	"management-web/internal/reconcile"
	"management-web/internal/service"
	"management-web/internal/utils"
)

const maxExportJobs = 1000

type ImportHandler struct {
	importService *service.ImportService
	excelService  *service.ExcelService
	cfg           *config.Config
}

func NewImportHandler(importService *service.ImportService, excelService *service.ExcelService, cfg *config.Config) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		excelService:  excelService,
		cfg:           cfg,
	}
}

type entityInfo struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Headers   []string `json:"headers"`
	KeyFields []string `json:"key_fields"`
}

func (h *ImportHandler) GetEntities(c *fiber.Ctx) error {
	all := entities.All()
	out := make([]entityInfo, len(all))
	for i, e := range all {
		out[i] = entityInfo{Name: e.Name, Title: e.Title, Headers: e.Headers(), KeyFields: e.KeyFields}
	}
	return utils.SuccessResponse(c, "Entities retrieved successfully", out)
}

func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	entity, ok := entities.Lookup(c.Params("entity"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Unknown import entity", nil)
	}

	templateFileName := fmt.Sprintf("template_%s.xlsx", strings.ReplaceAll(entity.Name, "-", "_"))
	templatePath := filepath.Join(h.cfg.ExportPath, templateFileName)
	if err := h.excelService.GenerateTemplate(entity, templatePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}

	return c.Download(templatePath, templateFileName)
}

func (h *ImportHandler) Import(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)

	entity, ok := entities.Lookup(c.Params("entity"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Unknown import entity", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".xlsx" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only Excel files (.xlsx) are allowed", nil)
	}

	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	filePath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("UPLOAD-%s%s", uuid.New().String()[:8], ext))
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	async, _ := strconv.ParseBool(c.FormValue("async", c.Query("async")))
	dryRun, _ := strconv.ParseBool(c.FormValue("dry_run", c.Query("dry_run")))
	if dryRun {
		// No job keeps a reference to a previewed workbook.
		defer os.Remove(filePath)
	}
	res, err := h.importService.Submit(c.UserContext(), service.ImportRequest{
		Entity:   entity.Name,
		UserID:   userID,
		Filename: file.Filename,
		FilePath: filePath,
		Async:    async && !dryRun,
		DryRun:   dryRun,
	})
	if err != nil {
		return importError(c, err)
	}

	if res.Queued {
		return utils.StatusResponse(c, fiber.StatusAccepted, "Import queued", res)
	}

	message := importMessage(res.Report)
	if res.DryRun {
		message = previewMessage(res.Report)
	}
	switch res.Report.Outcome() {
	case reconcile.OutcomeSuccess:
		return utils.SuccessResponse(c, message, res)
	case reconcile.OutcomePartial:
		return utils.StatusResponse(c, fiber.StatusPartialContent, message, res)
	default:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(utils.Response{
			Success: false,
			Message: message,
			Data:    res,
		})
	}
}

func importError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownEntity):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Unknown import entity", err)
	case errors.Is(err, service.ErrInvalidWorkbook):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse Excel file", err)
	case errors.Is(err, reconcile.ErrLookup):
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to look up existing records, nothing was imported", err)
	case errors.Is(err, service.ErrQueueDisabled):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Import failed", err)
	}
}

func previewMessage(report *reconcile.BatchReport) string {
	return fmt.Sprintf("Preview: %d would be inserted, %d updated, %d failed", report.Inserted, report.Updated, len(report.Failures))
}

func importMessage(report *reconcile.BatchReport) string {
	msg := fmt.Sprintf("Import finished: %d inserted, %d updated, %d failed", report.Inserted, report.Updated, len(report.Failures))
	if report.Canceled {
		msg += " (interrupted)"
	}
	return msg
}

func (h *ImportHandler) GetJobs(c *fiber.Ctx) error {
	userID, role := middleware.CurrentUser(c)

	params := utils.GetPaginationParams(c)

	// Admin can see all jobs, user can only see their own
	filterUserID := 0
	if role != models.RoleAdmin {
		filterUserID = userID
	}

	jobs, total, err := h.importService.ListJobs(params.Limit, params.Offset(), filterUserID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import jobs", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, total)

	return utils.PaginatedResponseBuilder(c, "Import jobs retrieved successfully", jobs, pagination)
}

// ExportJobs downloads the caller's most recent jobs as a workbook.
func (h *ImportHandler) ExportJobs(c *fiber.Ctx) error {
	userID, role := middleware.CurrentUser(c)

	filterUserID := 0
	if role != models.RoleAdmin {
		filterUserID = userID
	}

	jobs, _, err := h.importService.ListJobs(maxExportJobs, 0, filterUserID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import jobs", err)
	}

	exportFileName := fmt.Sprintf("import_jobs_%s.xlsx", time.Now().Format("20060102_150405"))
	exportPath := filepath.Join(h.cfg.ExportPath, exportFileName)
	if err := h.excelService.ExportJobs(jobs, exportPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export import jobs", err)
	}

	return c.Download(exportPath, exportFileName)
}

func (h *ImportHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.ownedJob(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job not found", nil)
	}

	report, err := h.importService.JobReport(job)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decode import report", err)
	}

	return utils.SuccessResponse(c, "Import job retrieved successfully", fiber.Map{
		"job":    job,
		"report": report,
	})
}

func (h *ImportHandler) GetProgress(c *fiber.Ctx) error {
	job, err := h.ownedJob(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job not found", nil)
	}

	progress, err := h.importService.Progress(c.UserContext(), job.JobCode)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve progress", err)
	}

	return utils.SuccessResponse(c, "Progress retrieved successfully", progress)
}

// ownedJob loads the job in the :code param; users only see their own jobs.
func (h *ImportHandler) ownedJob(c *fiber.Ctx) (*models.ImportJob, error) {
	userID, role := middleware.CurrentUser(c)

	job, err := h.importService.GetJob(c.Params("code"))
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && job.UserID != userID {
		return nil, errors.New("import job belongs to another user")
	}
	return job, nil
}

// DownloadErrorReport serves the error workbook of a job the caller may see.
func (h *ImportHandler) DownloadErrorReport(c *fiber.Ctx) error {
	job, err := h.ownedJob(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job not found", nil)
	}

	filename := job.ErrorReport
	if filename == "" {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job has no error report", nil)
	}
	if !isValidFilename(filename) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filename", nil)
	}

	filePath := filepath.Join(h.cfg.ExportPath, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Error report file not found", err)
	}

	return c.Download(filePath, filename)
}

// isValidFilename only lets generated error reports through, blocking directory traversal.
func isValidFilename(filename string) bool {
	if len(filename) == 0 || len(filename) > 255 {
		return false
	}

	dangerousChars := []string{"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range dangerousChars {
		if strings.Contains(filename, char) {
			return false
		}
	}

	return strings.HasPrefix(filename, "import_errors_") && strings.HasSuffix(filename, ".xlsx")
}
