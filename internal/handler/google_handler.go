package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/response"
)

type googleLinkService interface {
	ConnectURL(ctx context.Context, actorID string) (*dto.GoogleConnectResponse, error)
	Callback(ctx context.Context, req dto.GoogleCallbackRequest, meta models.LoginRequest) (*dto.GoogleLinkResult, error)
}

// GoogleHandler links space owners to their Google account.
type GoogleHandler struct {
	service googleLinkService
}

// NewGoogleHandler builds a GoogleHandler.
func NewGoogleHandler(service googleLinkService) *GoogleHandler {
	return &GoogleHandler{service: service}
}

// Connect godoc
// @Summary Start Google account linking
// @Tags Google
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/google/connect [get]
func (h *GoogleHandler) Connect(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	res, err := h.service.ConnectURL(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Callback godoc
// @Summary Complete Google account linking
// @Description Google redirects here with the signed state and an authorization code
// @Tags Google
// @Produce json
// @Param state query string true "Signed state"
// @Param code query string true "Authorization code"
// @Param error query string false "Consent error"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 424 {object} response.Envelope
// @Router /auth/google/callback [get]
func (h *GoogleHandler) Callback(c *gin.Context) {
	var req dto.GoogleCallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid callback query"))
		return
	}
	res, err := h.service.Callback(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
