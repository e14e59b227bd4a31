package jobs

import (
	"strings"
	"time"

	"job-portal/internal/models"
)

// reviewTransitions lists the moves a publisher may make from each
// non-terminal status. Cancellation belongs to the applicant.
var reviewTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationStatusPending: {
		models.ApplicationStatusReviewing,
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusReviewing: {
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
	},
}

// NewApplication runs the creation guards and builds a pending application.
// Whether the pair already applied is checked by the caller against the
// repository, which also enforces it with a unique index.
func NewApplication(applicant *models.User, job *models.JobOffer, coverLetter string, now time.Time) (*models.JobApplication, error) {
	if err := checkApply(applicant, job, now); err != nil {
		return nil, err
	}

	coverLetter = strings.TrimSpace(coverLetter)
	if coverLetter == "" {
		return nil, ValidationError("cover_letter", "cover letter is required")
	}

	return &models.JobApplication{
		JobID:       job.ID,
		Job:         job,
		ApplicantID: applicant.ID,
		Applicant:   applicant,
		Status:      models.ApplicationStatusPending,
		CoverLetter: coverLetter,
		Version:     1,
		AppliedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func checkApply(applicant *models.User, job *models.JobOffer, now time.Time) error {
	switch {
	case applicant == nil:
		return PermissionError("authentication required")
	case applicant.IsRecruiter:
		return PermissionError("recruiters cannot apply to offers")
	case job.PublisherID == applicant.ID:
		return PermissionError("you cannot apply to your own offer")
	case !job.IsVisibleAt(now):
		return PermissionError("offer no longer available")
	}
	return nil
}

// ReviewApplication moves app to status on behalf of the offer's publisher.
// app.Job must be loaded. A nil notes leaves the recruiter notes unchanged.
// Asking for the current status of a non-terminal application only updates notes.
func ReviewApplication(app *models.JobApplication, actor *models.User, status models.ApplicationStatus, notes *string, now time.Time) error {
	if !CanReviewApplication(actor, app) {
		return PermissionError("only the offer's publisher can review its applications")
	}
	if !status.IsValid() || app.Status.IsTerminal() {
		return TransitionError(string(app.Status), string(status))
	}
	if status != app.Status && !canMove(app.Status, status) {
		return TransitionError(string(app.Status), string(status))
	}

	app.Status = status
	if notes != nil {
		app.Notes = strings.TrimSpace(*notes)
	}
	app.UpdatedAt = now
	return nil
}

// CancelApplication withdraws app on behalf of its applicant.
func CancelApplication(app *models.JobApplication, actor *models.User, now time.Time) error {
	if actor == nil || actor.ID != app.ApplicantID {
		return PermissionError("only the applicant can cancel an application")
	}
	if app.Status.IsTerminal() {
		return TransitionError(string(app.Status), string(models.ApplicationStatusCancelled))
	}

	app.Status = models.ApplicationStatusCancelled
	app.UpdatedAt = now
	return nil
}

func canMove(from, to models.ApplicationStatus) bool {
	for _, allowed := range reviewTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
