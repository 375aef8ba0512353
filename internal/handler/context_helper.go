package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leads-portal-api/internal/middleware"
	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
	"github.com/noah-isme/leads-portal-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// actorID returns the authenticated user id or writes a 401.
func actorID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func invalidPayload(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
