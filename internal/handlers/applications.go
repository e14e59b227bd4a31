package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

type ApplicationHandler struct {
	svc    *jobs.Service
	logger *zap.Logger
}

func NewApplicationHandler(svc *jobs.Service, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		svc:    svc,
		logger: logger,
	}
}

// ApplyRequest represents an application submission
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" binding:"required,max=5000"`
}

// UpdateApplicationStatusRequest represents a review decision
type UpdateApplicationStatusRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required"`
	Notes  *string                  `json:"notes,omitempty"`
}

// Apply handles submitting an application to an offer
// @Summary Apply to offer
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body ApplyRequest true "Cover letter"
// @Success 201 {object} models.JobApplicationResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/offers/{id}/apply [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	jobID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	app, err := h.svc.Apply(c.Request.Context(), user, jobID, req.CoverLetter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, app.ToResponse(false))
}

// ListForOffer handles listing the applications of one offer
// @Summary List applications of an offer
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Offer ID"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/offers/{id}/applications [get]
func (h *ApplicationHandler) ListForOffer(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	jobID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	apps, err := h.svc.ApplicationsForJob(c.Request.Context(), user, jobID, models.ApplicationStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applicationResponses(apps, user), "total": len(apps)})
}

// Received handles listing applications across the caller's offers
// @Summary List applications received
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/applications/received [get]
func (h *ApplicationHandler) Received(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	apps, err := h.svc.ApplicationsToMyOffers(c.Request.Context(), user, models.ApplicationStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applicationResponses(apps, user), "total": len(apps)})
}

// Mine handles listing the caller's own applications
// @Summary List my applications
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param q query string false "Keyword in offer title"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/applications/mine [get]
func (h *ApplicationHandler) Mine(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	apps, err := h.svc.ApplicationsForUser(c.Request.Context(), user, c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applicationResponses(apps, user), "total": len(apps)})
}

// GetApplication handles fetching a single application
// @Summary Get application
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.JobApplicationResponse
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/applications/{id} [get]
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	app, err := h.svc.GetApplication(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app.ToResponse(jobs.CanReadNotes(user, app)))
}

// UpdateStatus handles the publisher's review decision
// @Summary Update application status
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body UpdateApplicationStatusRequest true "New status"
// @Success 200 {object} models.JobApplicationResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/applications/{id}/status [put]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	app, err := h.svc.UpdateApplicationStatus(c.Request.Context(), user, id, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app.ToResponse(true))
}

// Cancel handles the applicant withdrawing an application
// @Summary Cancel application
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.JobApplicationResponse
// @Failure 403 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/applications/{id}/cancel [post]
func (h *ApplicationHandler) Cancel(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	app, err := h.svc.CancelApplication(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app.ToResponse(false))
}
