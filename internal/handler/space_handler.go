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

type spaceService interface {
	Initialize(ctx context.Context, actorID string, req dto.InitializeSpaceRequest) (*dto.InitializeSpaceResult, error)
	ListSpaces(ctx context.Context, actorID string) ([]models.SpaceSummary, error)
	Overview(ctx context.Context, actorID, spaceID string) (*dto.SpaceOverview, error)
	AddMember(ctx context.Context, actorID, spaceID string, kind models.MemberKind, req dto.MemberRequest) (*dto.MemberChangeResult, error)
	RemoveMember(ctx context.Context, actorID, spaceID string, kind models.MemberKind, req dto.MemberRequest) (*dto.MemberChangeResult, error)
	CreateMember(ctx context.Context, actorID, spaceID string, req dto.CreateMemberRequest) (*dto.MemberChangeResult, error)
	DeleteSpace(ctx context.Context, actorID, spaceID string, req dto.DeleteSpaceRequest) (*dto.DeleteSpaceResult, error)
}

// SpaceHandler exposes document space endpoints.
type SpaceHandler struct {
	service spaceService
}

// NewSpaceHandler builds a SpaceHandler.
func NewSpaceHandler(service spaceService) *SpaceHandler {
	return &SpaceHandler{service: service}
}

// Initialize godoc
// @Summary Create the caller's document space
// @Description Provisions the Drive folders and the space record. The confirmation text must be "create space".
// @Tags Spaces
// @Accept json
// @Produce json
// @Param payload body dto.InitializeSpaceRequest true "Confirmation"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/initialize [post]
func (h *SpaceHandler) Initialize(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.InitializeSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid space payload"))
		return
	}
	res, err := h.service.Initialize(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, res, nil)
}

// List godoc
// @Summary List the spaces the caller can access
// @Tags Spaces
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces [get]
func (h *SpaceHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	spaces, err := h.service.ListSpaces(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, spaces, nil, middleware.ResponseMeta(c))
}

// Get godoc
// @Summary Space overview
// @Tags Spaces
// @Produce json
// @Param spaceId path string true "Space ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId} [get]
func (h *SpaceHandler) Get(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	overview, err := h.service.Overview(c.Request.Context(), userID, c.Param("spaceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil, middleware.ResponseMeta(c))
}

// Delete godoc
// @Summary Delete a space and its Drive folders
// @Description The confirmation text must be "delete space".
// @Tags Spaces
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param payload body dto.DeleteSpaceRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId} [delete]
func (h *SpaceHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.DeleteSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid delete payload"))
		return
	}
	res, err := h.service.DeleteSpace(c.Request.Context(), userID, c.Param("spaceId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// AddManager godoc
// @Summary Add a manager to a space
// @Tags Spaces
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param payload body dto.MemberRequest true "Member email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/managers [post]
func (h *SpaceHandler) AddManager(c *gin.Context) {
	h.changeMember(c, models.MemberKindManager, true)
}

// RemoveManager godoc
// @Summary Remove a manager from a space
// @Tags Spaces
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param payload body dto.MemberRequest true "Member email"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/managers [delete]
func (h *SpaceHandler) RemoveManager(c *gin.Context) {
	h.changeMember(c, models.MemberKindManager, false)
}

// AddWriter godoc
// @Summary Add a writer to a space
// @Tags Spaces
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param payload body dto.MemberRequest true "Member email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/writers [post]
func (h *SpaceHandler) AddWriter(c *gin.Context) {
	h.changeMember(c, models.MemberKindWriter, true)
}

// RemoveWriter godoc
// @Summary Remove a writer from a space
// @Tags Spaces
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param payload body dto.MemberRequest true "Member email"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/writers [delete]
func (h *SpaceHandler) RemoveWriter(c *gin.Context) {
	h.changeMember(c, models.MemberKindWriter, false)
}

// CreateMember godoc
// @Summary Create a manager or writer account inside a space
// @Tags Spaces
// @Accept json
// @Produce json
// @Param spaceId path string true "Space ID"
// @Param payload body dto.CreateMemberRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /spaces/{spaceId}/members [post]
func (h *SpaceHandler) CreateMember(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid member payload"))
		return
	}
	res, err := h.service.CreateMember(c.Request.Context(), userID, c.Param("spaceId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

func (h *SpaceHandler) changeMember(c *gin.Context, kind models.MemberKind, add bool) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid member payload"))
		return
	}

	var (
		res *dto.MemberChangeResult
		err error
	)
	if add {
		res, err = h.service.AddMember(c.Request.Context(), userID, c.Param("spaceId"), kind, req)
	} else {
		res, err = h.service.RemoveMember(c.Request.Context(), userID, c.Param("spaceId"), kind, req)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
