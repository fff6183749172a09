package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/service"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/response"
)

type studentReportService interface {
	StudentReport(ctx context.Context, studentID, year string) (*models.ReportDocument, error)
	StudentReportPDF(ctx context.Context, studentID, year string) (*service.RenderedFile, error)
}

type exportJobService interface {
	CreateSectionExport(ctx context.Context, req models.SectionExportRequest) (*models.ReportJob, error)
	GetStatus(ctx context.Context, id string) (*models.ReportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes report rendering and section export endpoints.
type ReportHandler struct {
	reports studentReportService
	exports exportJobService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports studentReportService, exports exportJobService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// StudentReport godoc
// @Summary Student year report
// @Description format=pdf downloads the printable report card.
// @Tags Reports
// @Produce json
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param year query string false "School year, defaults to the active year"
// @Param format query string false "json or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	year := strings.TrimSpace(c.Query("year"))
	if strings.EqualFold(c.Query("format"), "pdf") {
		file, err := h.reports.StudentReportPDF(c.Request.Context(), c.Param("id"), year)
		if err != nil {
			response.Error(c, err)
			return
		}
		sendFile(c, file.Filename, file.ContentType, file.Data)
		return
	}
	doc, err := h.reports.StudentReport(c.Request.Context(), c.Param("id"), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// CreateSectionExport godoc
// @Summary Queue a section report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.SectionExportRequest true "Section"
// @Success 202 {object} response.Envelope
// @Router /reports/sections/export [post]
func (h *ReportHandler) CreateSectionExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	var req models.SectionExportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.exports.CreateSectionExport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Section export status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/jobs/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	job, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Download godoc
// @Summary Download a finished section export via signed token
// @Tags Reports
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	result, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", result.File, nil)
}
