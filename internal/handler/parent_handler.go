package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/service"
	"github.com/noah-isme/cnhs-records-api/pkg/response"
)

// ParentHandler exposes parent and guardian endpoints.
type ParentHandler struct {
	parents *service.ParentService
	pager   Pager
}

// NewParentHandler constructs ParentHandler.
func NewParentHandler(parents *service.ParentService, pager Pager) *ParentHandler {
	return &ParentHandler{parents: parents, pager: pager}
}

// List godoc
// @Summary List parents
// @Tags Parents
// @Produce json
// @Param search query string false "Search by name or contact"
// @Param sort query string false "Sort key (id, name)"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /parents [get]
func (h *ParentHandler) List(c *gin.Context) {
	filter := models.ParentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = h.pager.Parse(c)
	parents, pagination, err := h.parents.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parents, pagination)
}

// Get godoc
// @Summary Get parent
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /parents/{id} [get]
func (h *ParentHandler) Get(c *gin.Context) {
	parent, err := h.parents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, parent)
}

// Create godoc
// @Summary Create parent
// @Tags Parents
// @Accept json
// @Produce json
// @Param payload body models.Parent true "Parent payload"
// @Success 201 {object} response.Envelope
// @Router /parents [post]
func (h *ParentHandler) Create(c *gin.Context) {
	var req models.Parent
	if !bindJSON(c, &req) {
		return
	}
	parent, err := h.parents.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, parent)
}

// Update godoc
// @Summary Update parent
// @Description A rename is written through to the name fields of linked students.
// @Tags Parents
// @Accept json
// @Produce json
// @Param id path string true "Parent ID"
// @Param payload body models.Parent true "Parent payload"
// @Success 200 {object} response.Envelope
// @Router /parents/{id} [put]
func (h *ParentHandler) Update(c *gin.Context) {
	var req models.Parent
	if !bindJSON(c, &req) {
		return
	}
	parent, err := h.parents.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, parent)
}

// Delete godoc
// @Summary Delete parent
// @Description Rejected with 409 while any student is linked.
// @Tags Parents
// @Param id path string true "Parent ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /parents/{id} [delete]
func (h *ParentHandler) Delete(c *gin.Context) {
	if err := h.parents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Students godoc
// @Summary Students linked to a parent
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /parents/{id}/links [get]
func (h *ParentHandler) Students(c *gin.Context) {
	students, err := h.parents.Students(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// Link godoc
// @Summary Link a student to a parent
// @Tags Parents
// @Accept json
// @Produce json
// @Param id path string true "Parent ID"
// @Param payload body service.LinkParentRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Router /parents/{id}/links [post]
func (h *ParentHandler) Link(c *gin.Context) {
	var req service.LinkParentRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := h.parents.Link(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Unlink godoc
// @Summary Unlink a student from a parent
// @Tags Parents
// @Param id path string true "Parent ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /parents/{id}/links/{studentId} [delete]
func (h *ParentHandler) Unlink(c *gin.Context) {
	if err := h.parents.Unlink(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
