package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/middleware"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/internal/tenant"
	"github.com/huangang/hackfest/pkg/response"
)

// respondError maps service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	if ve, ok := services.IsValidationError(err); ok {
		response.Error(c, response.NewUnprocessable("validation failed", gin.H{"fields": ve.Fields}))
		return
	}

	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrPresentationNotFound):
		response.Error(c, response.NewNotFound(err.Error()))
	case errors.Is(err, services.ErrForbidden):
		response.Error(c, response.NewForbidden(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(c, response.NewUnauthorized(err.Error()))
	case errors.Is(err, tenant.ErrNoTenant):
		response.Error(c, response.NewBadRequest(err.Error()))
	default:
		response.Error(c, err)
	}
}

// requireUser returns the signed-in user or answers 401.
func requireUser(c *gin.Context) (*models.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "sign in required")
		return nil, false
	}
	return user, true
}
