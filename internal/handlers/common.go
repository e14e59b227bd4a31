package handlers

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"job-portal/config"
	"job-portal/internal/jobs"
	"job-portal/internal/middleware"
	"job-portal/internal/models"
)

// respondError writes err as a JSON error body. Domain errors map to their
// HTTP status; anything else is logged and reported as a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	e, ok := jobs.AsError(err)
	if !ok {
		middleware.RequestLogger(c, logger).Error("Unhandled error",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL_ERROR"})
		return
	}

	body := gin.H{"error": e.Message, "code": e.Code()}
	if e.Field != "" {
		body["field"] = e.Field
	}
	c.JSON(statusFor(e), body)
}

func statusFor(e *jobs.Error) int {
	switch {
	case errors.Is(e, jobs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(e, jobs.ErrPermission):
		return http.StatusForbidden
	case errors.Is(e, jobs.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(e, jobs.ErrConflict):
		return http.StatusConflict
	case errors.Is(e, jobs.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "code": "VALIDATION_ERROR", "details": err.Error()})
}

// currentUser reloads the authenticated user from storage so that role and
// ban changes take effect before the token expires.
func currentUser(c *gin.Context, svc *jobs.Service, logger *zap.Logger) (*models.User, bool) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "UNAUTHENTICATED"})
		return nil, false
	}

	user, err := svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists", "code": "UNAUTHENTICATED"})
			return nil, false
		}
		respondError(c, logger, err)
		return nil, false
	}
	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "This account has been banned", "code": "ACCOUNT_BANNED"})
		return nil, false
	}
	return user, true
}

// optionalUser is currentUser for routes that also serve anonymous visitors.
// Unknown or banned users are treated as anonymous.
func optionalUser(c *gin.Context, svc *jobs.Service) *models.User {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return nil
	}
	user, err := svc.GetUser(c.Request.Context(), userID)
	if err != nil || user.IsBanned {
		return nil
	}
	return user
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "code": "VALIDATION_ERROR", "field": name})
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and page_size, clamped to the configured bounds.
func pageParams(c *gin.Context, cfg config.PaginationConfig) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(cfg.DefaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = cfg.DefaultPageSize
	}
	if pageSize > cfg.MaxPageSize {
		pageSize = cfg.MaxPageSize
	}
	return page, pageSize
}

func applicationResponses(apps []models.JobApplication, viewer *models.User) []models.JobApplicationResponse {
	out := make([]models.JobApplicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, apps[i].ToResponse(jobs.CanReadNotes(viewer, &apps[i])))
	}
	return out
}
