package jobs

import (
	"time"

	"job-portal/internal/models"
)

// CanCreateOffer reports whether u may publish offers.
func CanCreateOffer(u *models.User) bool {
	return u != nil && (u.IsRecruiter || u.IsStaff)
}

// CanEditOffer reports whether u may modify offer.
func CanEditOffer(u *models.User, offer *models.JobOffer) bool {
	return u != nil && (u.IsModerator() || offer.PublisherID == u.ID)
}

// CanDeleteOffer reports whether u may delete offer.
func CanDeleteOffer(u *models.User, offer *models.JobOffer) bool {
	return CanEditOffer(u, offer)
}

// CanApply is the side-effect free form of the creation guards. It does not
// know about existing applications; Service.CanApply adds that check.
func CanApply(u *models.User, job *models.JobOffer, now time.Time) bool {
	return checkApply(u, job, now) == nil
}

// CanReviewApplication reports whether u published the offer app belongs to.
func CanReviewApplication(u *models.User, app *models.JobApplication) bool {
	return u != nil && app.Job != nil && app.Job.PublisherID == u.ID
}

// CanViewApplication reports whether u may read app, notes aside.
func CanViewApplication(u *models.User, app *models.JobApplication) bool {
	if u == nil {
		return false
	}
	return u.ID == app.ApplicantID || u.IsModerator() || CanReviewApplication(u, app)
}

// CanReadNotes reports whether u may see the recruiter notes on app.
func CanReadNotes(u *models.User, app *models.JobApplication) bool {
	return u != nil && (u.IsModerator() || CanReviewApplication(u, app))
}

// CanManageApplications reports whether u may list the applications of job.
func CanManageApplications(u *models.User, job *models.JobOffer) bool {
	return u != nil && (u.IsModerator() || job.PublisherID == u.ID)
}

// CanBan reports whether actor may ban or unban target.
func CanBan(actor, target *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	return actor.IsModerator() && !target.IsModerator() && actor.ID != target.ID
}

// CanListUsers reports whether u may browse the user directory.
func CanListUsers(u *models.User) bool {
	return u != nil && u.IsModerator()
}
