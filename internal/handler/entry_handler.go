package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/middleware"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/response"
)

type entryService interface {
	Current(ctx context.Context, actorID, spaceID, fileID string) (*dto.EntryView, error)
	Submit(ctx context.Context, actorID, spaceID, fileID string, req dto.SubmitEntryRequest) (*dto.SubmitEntryResult, error)
	Update(ctx context.Context, actorID, spaceID, fileID, studentID string, req dto.UpdateEntryRequest) (*dto.StudentHistory, error)
	Resolve(ctx context.Context, actorID, spaceID, fileID, studentID string) (*models.Student, error)
	FollowUps(ctx context.Context, actorID, spaceID, fileID string) ([]dto.FollowUpItem, error)
	Responses(ctx context.Context, actorID, spaceID, fileID, studentID string) (*dto.StudentHistory, error)
	ExportFollowUps(ctx context.Context, actorID, spaceID, fileID, format string) (*dto.ExportResult, error)
}

// EntryHandler exposes the row by row data entry flow of a data file.
type EntryHandler struct {
	service entryService
}

// NewEntryHandler builds an EntryHandler.
func NewEntryHandler(service entryService) *EntryHandler {
	return &EntryHandler{service: service}
}

// Current godoc
// @Summary Current row of a data file
// @Description Returns the student at the cursor, skipping blank rows, or a completion message.
// @Tags Entries
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/entry [get]
func (h *EntryHandler) Current(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	view, err := h.service.Current(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil, middleware.ResponseMeta(c))
}

// Submit godoc
// @Summary Record the first response for the current row
// @Tags Entries
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Param payload body dto.SubmitEntryRequest true "Response"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/entry [post]
func (h *EntryHandler) Submit(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.SubmitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid entry payload"))
		return
	}
	res, err := h.service.Submit(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// FollowUps godoc
// @Summary Unresolved students of a data file
// @Tags Entries
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/followups [get]
func (h *EntryHandler) FollowUps(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	items, err := h.service.FollowUps(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, middleware.ResponseMeta(c))
}

// ExportFollowUps godoc
// @Summary Export the follow up list
// @Tags Entries
// @Produce text/csv
// @Produce application/pdf
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/followups/export [get]
func (h *EntryHandler) ExportFollowUps(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	res, err := h.service.ExportFollowUps(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, res.FileName, res.ContentType, res.Body)
}

// Responses godoc
// @Summary Response history of a student
// @Tags Entries
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/students/{studentId}/responses [get]
func (h *EntryHandler) Responses(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	history, err := h.service.Responses(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Update godoc
// @Summary Append a follow up response
// @Tags Entries
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.UpdateEntryRequest true "Response"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/students/{studentId}/responses [post]
func (h *EntryHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid entry payload"))
		return
	}
	history, err := h.service.Update(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, history)
}

// Resolve godoc
// @Summary Mark a student as resolved
// @Tags Entries
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId}/students/{studentId}/resolve [post]
func (h *EntryHandler) Resolve(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	student, err := h.service.Resolve(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
