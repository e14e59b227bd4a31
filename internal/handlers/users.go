package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

type UserHandler struct {
	svc    *jobs.Service
	logger *zap.Logger
}

func NewUserHandler(svc *jobs.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// SetBanRequest sets the ban flag explicitly. Omitting it toggles.
type SetBanRequest struct {
	Banned *bool `json:"banned"`
}

// ListUsers handles the moderation user directory
// @Summary List users
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	users, err := h.svc.ListUsers(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	items := make([]models.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, users[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"users": items, "total": len(items)})
}

// SetBan handles banning and unbanning a user
// @Summary Ban or unban user
// @Description Sets the ban flag when "banned" is given, toggles it otherwise
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body SetBanRequest false "Ban flag"
// @Success 200 {object} models.UserResponse
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/users/{id}/ban [post]
func (h *UserHandler) SetBan(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req SetBanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	var (
		target *models.User
		err    error
	)
	if req.Banned != nil {
		target, err = h.svc.SetBanned(c.Request.Context(), user, targetID, *req.Banned)
	} else {
		target, err = h.svc.ToggleBan(c.Request.Context(), user, targetID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, target.ToResponse())
}
