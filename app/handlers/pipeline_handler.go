package handlers

import (
	"context"
	"log"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/dto"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/scheduler"
	businessflow "github.com/steelferguson/basin-climbing-data-pipeline-sub000/business_flow"
)

// PipelineHandlerInterface defines the operational endpoints of the pipeline
type PipelineHandlerInterface interface {
	ImportContacts(c fiber.Ctx) error
	ResolveContacts(c fiber.Ctx) error
	RunEvaluation(c fiber.Ctx) error
	DownloadFlagsReport(c fiber.Ctx) error
}

// PipelineHandler implements the pipeline endpoints
type PipelineHandler struct {
	importFlow     businessflow.ContactImportFlow
	resolutionFlow businessflow.IdentityResolutionFlow
	reportFlow     businessflow.FlagReportFlow
	sched          *scheduler.PipelineScheduler
	validator      *validator.Validate
}

func NewPipelineHandler(
	importFlow businessflow.ContactImportFlow,
	resolutionFlow businessflow.IdentityResolutionFlow,
	reportFlow businessflow.FlagReportFlow,
	sched *scheduler.PipelineScheduler,
) PipelineHandlerInterface {
	return &PipelineHandler{
		importFlow:     importFlow,
		resolutionFlow: resolutionFlow,
		reportFlow:     reportFlow,
		sched:          sched,
		validator:      validator.New(),
	}
}

func (h *PipelineHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, code string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

// ImportContacts accepts multipart/form-data with a file (CSV or XLSX) and a
// source field, parses it, and resolves the parsed records.
func (h *PipelineHandler) ImportContacts(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "file is required", "INVALID_REQUEST", nil)
	}
	source := c.FormValue("source")
	if source == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "source is required", "VALIDATION_ERROR", nil)
	}
	fh, err := openFormFile(fileHeader)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer fh.Close()

	ctx, cancel := requestContext()
	defer cancel()
	summary, flowErr := h.importFlow.ImportContactsFile(ctx, fh, fileHeader.Filename, source)
	if flowErr != nil {
		log.Println("Contact import failed:", flowErr)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import contacts", "IMPORT_FAILED", nil)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.APIResponse{
		Success: true,
		Message: "Contacts imported",
		Data: dto.ImportContactsResponse{
			Filename:    fileHeader.Filename,
			RowsRead:    summary.RowsRead,
			RowsSkipped: summary.RowsSkipped,
			Resolution:  summary.Resolution,
		},
	})
}

// ResolveContacts accepts a JSON batch of contact records and resolves them.
func (h *PipelineHandler) ResolveContacts(c fiber.Ctx) error {
	var req dto.ResolveContactsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		details := make([]string, 0)
		for _, fe := range err.(validator.ValidationErrors) {
			details = append(details, getValidationErrorMessage(fe))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
	}

	records := make([]businessflow.ContactRecord, 0, len(req.Records))
	for _, r := range req.Records {
		records = append(records, businessflow.ContactRecord{
			Email:     r.Email,
			Phone:     r.Phone,
			Name:      r.Name,
			Source:    req.Source,
			SourceID:  r.SourceID,
			FirstSeen: parseRecordTime(r.FirstSeen),
		})
	}

	ctx, cancel := requestContext()
	defer cancel()
	summary, err := h.resolutionFlow.ResolveContacts(ctx, records)
	if err != nil {
		log.Println("Contact resolution failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve contacts", "RESOLUTION_FAILED", nil)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Contacts resolved", Data: summary})
}

// RunEvaluation triggers a flag evaluation run in the background. The run is
// serialized through the scheduler's lock like scheduled runs.
func (h *PipelineHandler) RunEvaluation(c fiber.Ctx) error {
	go h.sched.RunOnce(context.Background())
	return c.Status(fiber.StatusAccepted).JSON(dto.APIResponse{
		Success: true,
		Message: "Evaluation run started",
		Data:    dto.RunEvaluationResponse{Started: true, Message: "run queued"},
	})
}

// DownloadFlagsReport returns the current flags table as an Excel workbook.
func (h *PipelineHandler) DownloadFlagsReport(c fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()
	filename, data, err := h.reportFlow.DownloadFlagsExcel(ctx)
	if err != nil {
		log.Println("Flags report download failed:", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate report", "DOWNLOAD_FAILED", nil)
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

func openFormFile(fh *multipart.FileHeader) (multipart.File, error) {
	return fh.Open()
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func parseRecordTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
