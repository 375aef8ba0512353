package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/middleware"
	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
	"github.com/noah-isme/leads-portal-api/pkg/response"
)

type fileService interface {
	List(ctx context.Context, actorID, spaceID string) ([]models.DataFileDetail, error)
	Upload(ctx context.Context, actorID, spaceID string, in dto.UploadFileInput) (*models.DataFileDetail, error)
	Delete(ctx context.Context, actorID, spaceID, fileID string, req dto.DeleteFileRequest) error
}

// FileHandler exposes data file endpoints of a space.
type FileHandler struct {
	service fileService
}

// NewFileHandler builds a FileHandler.
func NewFileHandler(service fileService) *FileHandler {
	return &FileHandler{service: service}
}

// List godoc
// @Summary List data files of a space
// @Tags Files
// @Produce json
// @Param spaceId path string true "Space ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files [get]
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	files, err := h.service.List(c.Request.Context(), userID, c.Param("spaceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil, middleware.ResponseMeta(c))
}

// Upload godoc
// @Summary Upload a spreadsheet
// @Description Stores the spreadsheet in Drive, creates its response spreadsheet and registers both.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param file formData file true "Spreadsheet"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, invalidPayload(err, "a spreadsheet file is required"))
		return
	}
	body, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer body.Close()

	file, err := h.service.Upload(c.Request.Context(), userID, c.Param("spaceId"), dto.UploadFileInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// Delete godoc
// @Summary Delete a data file
// @Description The caller repeats the file name and confirms.
// @Tags Files
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param fileId path string true "Data file ID"
// @Param payload body dto.DeleteFileRequest true "Confirmation"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/files/{fileId} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.DeleteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid delete payload"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, c.Param("spaceId"), c.Param("fileId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
