package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/service"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/response"
)

// ClassHandler exposes class section endpoints.
type ClassHandler struct {
	classes     *service.ClassService
	enrollments *service.EnrollmentService
	grades      *service.ReportCardService
	reports     *service.ReportService
	pager       Pager
}

// ClassHandlerParams groups ClassHandler dependencies.
type ClassHandlerParams struct {
	Classes     *service.ClassService
	Enrollments *service.EnrollmentService
	Grades      *service.ReportCardService
	Reports     *service.ReportService
	Pager       Pager
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(params ClassHandlerParams) *ClassHandler {
	return &ClassHandler{
		classes:     params.Classes,
		enrollments: params.Enrollments,
		grades:      params.Grades,
		reports:     params.Reports,
		pager:       params.Pager,
	}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param search query string false "Search by subject, teacher, section or room"
// @Param gradeLevel query int false "Filter by grade level"
// @Param schoolYear query string false "Filter by school year"
// @Param sort query string false "Sort key (id, subject, teacher, gradeLevel, sectionName, schoolYear, enrolled)"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	grade, ok := intQuery(c, "gradeLevel")
	if !ok {
		return
	}
	filter := models.ClassFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		GradeLevel: grade,
		SchoolYear: strings.TrimSpace(c.Query("schoolYear")),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	filter.Page, filter.PageSize = h.pager.Parse(c)
	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body models.Class true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req models.Class
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.Class true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req models.Class
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
}

// Delete godoc
// @Summary Delete class
// @Description Rejected with 409 while the class has active enrollments.
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Class roster
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Param status query string false "active, dropped or transferred"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	status := models.EnrollmentStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status != "" && !status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status"))
		return
	}
	roster, err := h.enrollments.ClassRoster(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

// GradingSheet godoc
// @Summary Class grading sheet
// @Description Quarter grades of every active student; format=csv downloads the sheet.
// @Tags Classes
// @Produce json
// @Produce text/csv
// @Param id path string true "Class ID"
// @Param format query string false "json or csv"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/grading-sheet [get]
func (h *ClassHandler) GradingSheet(c *gin.Context) {
	if strings.EqualFold(c.Query("format"), "csv") {
		file, err := h.reports.GradingSheetCSV(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		sendFile(c, file.Filename, file.ContentType, file.Data)
		return
	}
	sheet, err := h.grades.GradingSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sheet)
}
