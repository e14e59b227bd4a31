package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"job-portal/internal/models"
)

// Repository is the persistence contract of the service.
//
// Find methods return an error matching ErrNotFound when nothing matches.
// CreateApplication and CreateUser return an error matching ErrConflict on a
// uniqueness violation. SaveApplication only succeeds when app.Version still
// matches the stored row; it increments app.Version on success and returns
// an ErrConflict error otherwise.
type Repository interface {
	FindOffer(ctx context.Context, id uuid.UUID) (*models.JobOffer, error)
	// SaveOffer inserts or updates offer, normalizing its stored status.
	SaveOffer(ctx context.Context, offer *models.JobOffer) error
	// DeleteOffer removes the offer and its applications.
	DeleteOffer(ctx context.Context, id uuid.UUID) error
	ListOffers(ctx context.Context, q Query) ([]models.JobOffer, int64, error)
	// ExpireOffers persists the expired status on offers past their expiry at now.
	ExpireOffers(ctx context.Context, now time.Time) (int64, error)

	FindApplication(ctx context.Context, jobID, applicantID uuid.UUID) (*models.JobApplication, error)
	FindApplicationByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	CreateApplication(ctx context.Context, app *models.JobApplication) error
	SaveApplication(ctx context.Context, app *models.JobApplication) error
	// ListApplicationsForJob returns the job's applications, newest first.
	// An empty status returns every status.
	ListApplicationsForJob(ctx context.Context, jobID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error)
	// ListApplicationsForPublisher returns applications to any offer of publisherID.
	ListApplicationsForPublisher(ctx context.Context, publisherID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error)
	ListApplicationsForUser(ctx context.Context, userID uuid.UUID) ([]models.JobApplication, error)
	CountApplications(ctx context.Context, jobID uuid.UUID) (int64, error)

	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]models.User, error)
}
