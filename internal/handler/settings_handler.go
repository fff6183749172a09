package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cnhs-records-api/pkg/response"
)

type activeYearService interface {
	ActiveYear(ctx context.Context) (string, error)
	SetActiveYear(ctx context.Context, year string) (string, error)
}

// ActiveYearPayload carries the active school year.
type ActiveYearPayload struct {
	SchoolYear string `json:"schoolYear" binding:"required" example:"2024-2025"`
}

// SettingsHandler exposes global settings.
type SettingsHandler struct {
	settings activeYearService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(settings activeYearService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// ActiveYear godoc
// @Summary Get the active school year
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/active-year [get]
func (h *SettingsHandler) ActiveYear(c *gin.Context) {
	year, err := h.settings.ActiveYear(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ActiveYearPayload{SchoolYear: year})
}

// SetActiveYear godoc
// @Summary Switch the active school year
// @Description Records of other years become read-only.
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body ActiveYearPayload true "School year"
// @Success 200 {object} response.Envelope
// @Router /settings/active-year [put]
func (h *SettingsHandler) SetActiveYear(c *gin.Context) {
	var req ActiveYearPayload
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.settings.SetActiveYear(c.Request.Context(), req.SchoolYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ActiveYearPayload{SchoolYear: year})
}
