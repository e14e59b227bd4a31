package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"job-portal/config"
	"job-portal/internal/database"
	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

type OfferHandler struct {
	svc        *jobs.Service
	logger     *zap.Logger
	pagination config.PaginationConfig
}

func NewOfferHandler(svc *jobs.Service, logger *zap.Logger, pagination config.PaginationConfig) *OfferHandler {
	return &OfferHandler{
		svc:        svc,
		logger:     logger,
		pagination: pagination,
	}
}

// CreateOfferRequest represents the offer creation request
type CreateOfferRequest struct {
	Title       string             `json:"title" binding:"required,max=200"`
	Description string             `json:"description"`
	Company     string             `json:"company" binding:"max=200"`
	Location    string             `json:"location" binding:"max=200"`
	SalaryRange string             `json:"salary_range" binding:"max=100"`
	ExpiresAt   time.Time          `json:"expires_at" binding:"required"`
	Status      models.OfferStatus `json:"status,omitempty"`
}

// UpdateOfferRequest represents a partial offer update
type UpdateOfferRequest struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	Company     *string             `json:"company,omitempty"`
	Location    *string             `json:"location,omitempty"`
	SalaryRange *string             `json:"salary_range,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Status      *models.OfferStatus `json:"status,omitempty"`
}

// OfferSearchParams are the query parameters of offer listings
type OfferSearchParams struct {
	Keyword   string `form:"q"`
	Location  string `form:"location"`
	MinSalary *int   `form:"min_salary"`
	MaxSalary *int   `form:"max_salary"`
	Date      string `form:"date"`
	Sort      string `form:"sort"`
}

// OfferDetailResponse is an offer with flags for the requesting user
type OfferDetailResponse struct {
	Offer             models.JobOfferResponse        `json:"offer"`
	IsOwner           bool                           `json:"is_owner"`
	CanEdit           bool                           `json:"can_edit"`
	CanApply          bool                           `json:"can_apply"`
	HasApplied        bool                           `json:"has_applied"`
	Application       *models.JobApplicationResponse `json:"application,omitempty"`
	TotalApplications int64                          `json:"total_applications"`
}

// ListOffers handles browsing the offers open to applications
// @Summary List available offers
// @Description Offers that are active and not expired, excluding the caller's own
// @Tags offers
// @Produce json
// @Param q query string false "Keyword in title, company or description"
// @Param location query string false "Exact location"
// @Param min_salary query int false "Lower salary bound"
// @Param max_salary query int false "Upper salary bound"
// @Param date query string false "today, week or month"
// @Param sort query string false "date_desc, date_asc, salary_desc or salary_asc"
// @Param page query int false "Page number"
// @Param page_size query int false "Items per page"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/offers [get]
func (h *OfferHandler) ListOffers(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}

	offers, total, err := h.svc.AvailableOffers(c.Request.Context(), optionalUser(c, h.svc), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondPage(c, offers, q, total)
}

// MyOffers handles listing the caller's published offers
// @Summary List my offers
// @Description Offers published by the caller, whatever their status
// @Tags offers
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/offers/mine [get]
func (h *OfferHandler) MyOffers(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	q, ok := h.query(c)
	if !ok {
		return
	}

	offers, total, err := h.svc.PublishedBy(c.Request.Context(), user, q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondPage(c, offers, q, total)
}

// AllOffers handles the moderation listing of every offer
// @Summary List all offers
// @Tags offers
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/admin/offers [get]
func (h *OfferHandler) AllOffers(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	if !user.IsModerator() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "code": "PERMISSION_DENIED"})
		return
	}
	q, ok := h.query(c)
	if !ok {
		return
	}

	offers, total, err := h.svc.ListOffers(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondPage(c, offers, q, total)
}

// GetOffer handles fetching a single offer
// @Summary Get offer
// @Tags offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} OfferDetailResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/offers/{id} [get]
func (h *OfferHandler) GetOffer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	viewer := optionalUser(c, h.svc)
	detail, err := h.svc.OfferDetail(c.Request.Context(), viewer, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := OfferDetailResponse{
		Offer:             detail.Offer.ToResponse(h.svc.Now()),
		IsOwner:           detail.IsOwner,
		CanEdit:           detail.CanEdit,
		CanApply:          detail.CanApply,
		HasApplied:        detail.HasApplied,
		TotalApplications: detail.TotalApplications,
	}
	if detail.Application != nil {
		app := detail.Application.ToResponse(false)
		resp.Application = &app
	}
	c.JSON(http.StatusOK, resp)
}

// CreateOffer handles publishing a new offer
// @Summary Create offer
// @Tags offers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateOfferRequest true "Offer data"
// @Success 201 {object} models.JobOfferResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/offers [post]
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	offer, err := h.svc.CreateOffer(c.Request.Context(), user, jobs.OfferInput{
		Title:       req.Title,
		Description: req.Description,
		Company:     req.Company,
		Location:    req.Location,
		SalaryRange: req.SalaryRange,
		ExpiresAt:   req.ExpiresAt,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, offer.ToResponse(h.svc.Now()))
}

// UpdateOffer handles partial offer updates
// @Summary Update offer
// @Tags offers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body UpdateOfferRequest true "Fields to change"
// @Success 200 {object} models.JobOfferResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/offers/{id} [put]
func (h *OfferHandler) UpdateOffer(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	offer, err := h.svc.UpdateOffer(c.Request.Context(), user, id, jobs.OfferPatch{
		Title:       req.Title,
		Description: req.Description,
		Company:     req.Company,
		Location:    req.Location,
		SalaryRange: req.SalaryRange,
		ExpiresAt:   req.ExpiresAt,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, offer.ToResponse(h.svc.Now()))
}

// DeleteOffer handles offer deletion together with its applications
// @Summary Delete offer
// @Tags offers
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/offers/{id} [delete]
func (h *OfferHandler) DeleteOffer(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteOffer(c.Request.Context(), user, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Offer deleted successfully"})
}

// CanApply reports whether the caller may apply to the offer
// @Summary Check application eligibility
// @Tags offers
// @Security BearerAuth
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/offers/{id}/can-apply [get]
func (h *OfferHandler) CanApply(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	allowed, err := h.svc.CanApply(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_apply": allowed})
}

func (h *OfferHandler) query(c *gin.Context) (jobs.Query, bool) {
	var params OfferSearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return jobs.Query{}, false
	}

	page, pageSize := pageParams(c, h.pagination)
	return jobs.Query{
		Filter: jobs.Filter{
			Keyword:    params.Keyword,
			Location:   params.Location,
			MinSalary:  params.MinSalary,
			MaxSalary:  params.MaxSalary,
			DateBucket: jobs.DateBucket(params.Date),
			Sort:       jobs.SortOrder(params.Sort),
		},
		Page:     page,
		PageSize: pageSize,
	}, true
}

func (h *OfferHandler) respondPage(c *gin.Context, offers []models.JobOffer, q jobs.Query, total int64) {
	now := h.svc.Now()
	items := make([]models.JobOfferResponse, 0, len(offers))
	for i := range offers {
		items = append(items, offers[i].ToResponse(now))
	}

	c.JSON(http.StatusOK, gin.H{
		"offers":     items,
		"pagination": database.CalculatePagination(q.Page, q.PageSize, total),
	})
}
