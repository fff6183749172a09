package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cnhs-records-api/internal/service"
	"github.com/noah-isme/cnhs-records-api/pkg/response"
)

// ReportCardHandler exposes quarter grade entry.
type ReportCardHandler struct {
	grades *service.ReportCardService
}

// NewReportCardHandler constructs ReportCardHandler.
func NewReportCardHandler(grades *service.ReportCardService) *ReportCardHandler {
	return &ReportCardHandler{grades: grades}
}

// Get godoc
// @Summary Get the report card of an enrollment
// @Tags Grades
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /report-cards/{enrollmentId} [get]
func (h *ReportCardHandler) Get(c *gin.Context) {
	card, err := h.grades.Get(c.Request.Context(), c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// Save godoc
// @Summary Record quarter grades
// @Description Grades are 0-100 or null. The final grade is derived once every quarter is present.
// @Tags Grades
// @Accept json
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Param payload body service.SaveReportCardRequest true "Quarter grades"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /report-cards/{enrollmentId} [put]
func (h *ReportCardHandler) Save(c *gin.Context) {
	var req service.SaveReportCardRequest
	if !bindJSON(c, &req) {
		return
	}
	card, err := h.grades.Save(c.Request.Context(), c.Param("enrollmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}
