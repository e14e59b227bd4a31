package jobs

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"job-portal/internal/models"
)

const minPasswordLength = 8

// Service runs the job board commands: authorize, apply the lifecycle rules,
// then persist through the repository.
type Service struct {
	repo     Repository
	clock    Clock
	reporter Reporter
	logger   *zap.Logger
}

// NewService wires a service. Nil collaborators fall back to the system
// clock, a no-op reporter and a no-op logger.
func NewService(repo Repository, clock Clock, reporter Reporter, logger *zap.Logger) *Service {
	if clock == nil {
		clock = SystemClock
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, clock: clock, reporter: reporter, logger: logger}
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// OfferDetail is an offer as seen by a specific viewer.
type OfferDetail struct {
	Offer             *models.JobOffer
	IsOwner           bool
	CanEdit           bool
	CanApply          bool
	HasApplied        bool
	Application       *models.JobApplication
	TotalApplications int64
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	PhoneNumber string
	IsRecruiter bool
	IsStaff     bool
	IsSuperuser bool
}

// CreateOffer publishes a new offer owned by actor.
func (s *Service) CreateOffer(ctx context.Context, actor *models.User, in OfferInput) (*models.JobOffer, error) {
	if !CanCreateOffer(actor) {
		return nil, s.reject(ctx, actor, uuid.Nil, PermissionError("only recruiters and staff can publish offers"))
	}

	offer, err := NewOffer(actor, in, s.clock.Now())
	if err != nil {
		return nil, s.reject(ctx, actor, uuid.Nil, err)
	}
	if err := s.repo.SaveOffer(ctx, offer); err != nil {
		return nil, errors.Wrap(err, "save offer")
	}

	s.logger.Info("Offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("publisher_id", actor.ID.String()),
	)
	s.reporter.Report(ctx, Event{Kind: EventOfferCreated, ActorID: actor.ID, SubjectID: offer.ID, Status: string(offer.Status)})
	return offer, nil
}

// UpdateOffer applies patch to the offer if actor may edit it.
func (s *Service) UpdateOffer(ctx context.Context, actor *models.User, id uuid.UUID, patch OfferPatch) (*models.JobOffer, error) {
	offer, err := s.repo.FindOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEditOffer(actor, offer) {
		return nil, s.reject(ctx, actor, id, PermissionError("you cannot edit this offer"))
	}

	if err := ApplyOfferPatch(offer, patch, s.clock.Now()); err != nil {
		return nil, s.reject(ctx, actor, id, err)
	}
	if err := s.repo.SaveOffer(ctx, offer); err != nil {
		return nil, errors.Wrap(err, "save offer")
	}

	s.logger.Info("Offer updated", zap.String("offer_id", id.String()), zap.String("actor_id", actor.ID.String()))
	s.reporter.Report(ctx, Event{Kind: EventOfferUpdated, ActorID: actor.ID, SubjectID: id, Status: string(offer.Status)})
	return offer, nil
}

// DeleteOffer removes the offer and its applications if actor may delete it.
func (s *Service) DeleteOffer(ctx context.Context, actor *models.User, id uuid.UUID) error {
	offer, err := s.repo.FindOffer(ctx, id)
	if err != nil {
		return err
	}
	if !CanDeleteOffer(actor, offer) {
		return s.reject(ctx, actor, id, PermissionError("you cannot delete this offer"))
	}

	if err := s.repo.DeleteOffer(ctx, id); err != nil {
		return errors.Wrap(err, "delete offer")
	}

	s.logger.Info("Offer deleted", zap.String("offer_id", id.String()), zap.String("actor_id", actor.ID.String()))
	s.reporter.Report(ctx, Event{Kind: EventOfferDeleted, ActorID: actor.ID, SubjectID: id})
	return nil
}

// GetOffer loads an offer by id.
func (s *Service) GetOffer(ctx context.Context, id uuid.UUID) (*models.JobOffer, error) {
	return s.repo.FindOffer(ctx, id)
}

// OfferDetail loads an offer with viewer specific flags. viewer may be nil.
func (s *Service) OfferDetail(ctx context.Context, viewer *models.User, id uuid.UUID) (*OfferDetail, error) {
	offer, err := s.repo.FindOffer(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &OfferDetail{Offer: offer}
	if viewer == nil {
		return detail, nil
	}

	detail.IsOwner = offer.PublisherID == viewer.ID
	detail.CanEdit = CanEditOffer(viewer, offer)

	app, err := s.repo.FindApplication(ctx, offer.ID, viewer.ID)
	switch {
	case err == nil:
		detail.HasApplied = true
		detail.Application = app
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "find application")
	}
	detail.CanApply = !detail.HasApplied && CanApply(viewer, offer, s.clock.Now())

	if CanManageApplications(viewer, offer) {
		if detail.TotalApplications, err = s.repo.CountApplications(ctx, offer.ID); err != nil {
			return nil, errors.Wrap(err, "count applications")
		}
	}
	return detail, nil
}

// ListOffers runs q against every offer regardless of status.
func (s *Service) ListOffers(ctx context.Context, q Query) ([]models.JobOffer, int64, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	q.Now = s.clock.Now()
	return s.repo.ListOffers(ctx, q)
}

// AvailableOffers lists the offers a candidate can apply to: effectively
// active and not published by viewer. viewer may be nil.
func (s *Service) AvailableOffers(ctx context.Context, viewer *models.User, q Query) ([]models.JobOffer, int64, error) {
	q.ActiveOnly = true
	q.PublisherID = nil
	q.ExcludePublisherID = nil
	if viewer != nil {
		q.ExcludePublisherID = &viewer.ID
	}
	return s.ListOffers(ctx, q)
}

// PublishedBy lists the offers published by actor, whatever their status.
func (s *Service) PublishedBy(ctx context.Context, actor *models.User, q Query) ([]models.JobOffer, int64, error) {
	if !CanCreateOffer(actor) {
		return nil, 0, PermissionError("only recruiters and staff publish offers")
	}
	q.ActiveOnly = false
	q.PublisherID = &actor.ID
	q.ExcludePublisherID = nil
	return s.ListOffers(ctx, q)
}

// ExpireOffers persists the expired status on every offer past its expiry.
func (s *Service) ExpireOffers(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOffers(ctx, s.clock.Now())
	if err != nil {
		return 0, errors.Wrap(err, "expire offers")
	}
	if n > 0 {
		s.logger.Info("Expired offers", zap.Int64("count", n))
	}
	s.reporter.Report(ctx, Event{Kind: EventOffersExpired, Count: n})
	return n, nil
}

// Apply submits actor's application to the offer.
func (s *Service) Apply(ctx context.Context, actor *models.User, jobID uuid.UUID, coverLetter string) (*models.JobApplication, error) {
	job, err := s.repo.FindOffer(ctx, jobID)
	if err != nil {
		return nil, err
	}

	app, err := NewApplication(actor, job, coverLetter, s.clock.Now())
	if err != nil {
		return nil, s.reject(ctx, actor, jobID, err)
	}

	if _, err := s.repo.FindApplication(ctx, jobID, actor.ID); err == nil {
		return nil, s.reject(ctx, actor, jobID, ConflictError("you have already applied to this offer"))
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "find application")
	}

	// the unique index catches a concurrent duplicate that passed the check above
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, s.reject(ctx, actor, jobID, err)
		}
		return nil, errors.Wrap(err, "create application")
	}

	s.logger.Info("Application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("job_id", jobID.String()),
		zap.String("applicant_id", actor.ID.String()),
	)
	s.reporter.Report(ctx, Event{Kind: EventApplicationCreated, ActorID: actor.ID, SubjectID: app.ID, Status: string(app.Status)})
	return app, nil
}

// CanApply is the pre-flight check for Apply, including existing applications.
func (s *Service) CanApply(ctx context.Context, actor *models.User, jobID uuid.UUID) (bool, error) {
	job, err := s.repo.FindOffer(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !CanApply(actor, job, s.clock.Now()) {
		return false, nil
	}

	_, err = s.repo.FindApplication(ctx, jobID, actor.ID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrNotFound):
		return true, nil
	default:
		return false, errors.Wrap(err, "find application")
	}
}

// UpdateApplicationStatus moves an application on behalf of the offer's publisher.
func (s *Service) UpdateApplicationStatus(ctx context.Context, actor *models.User, appID uuid.UUID, status models.ApplicationStatus, notes *string) (*models.JobApplication, error) {
	app, err := s.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	from := app.Status
	if err := ReviewApplication(app, actor, status, notes, s.clock.Now()); err != nil {
		return nil, s.reject(ctx, actor, appID, err)
	}
	if err := s.saveApplication(ctx, actor, app); err != nil {
		return nil, err
	}

	s.logger.Info("Application status updated",
		zap.String("application_id", appID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(app.Status)),
	)
	s.reporter.Report(ctx, Event{Kind: EventApplicationStatus, ActorID: actor.ID, SubjectID: appID, Status: string(app.Status)})
	return app, nil
}

// CancelApplication withdraws an application on behalf of its applicant.
func (s *Service) CancelApplication(ctx context.Context, actor *models.User, appID uuid.UUID) (*models.JobApplication, error) {
	app, err := s.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	if err := CancelApplication(app, actor, s.clock.Now()); err != nil {
		return nil, s.reject(ctx, actor, appID, err)
	}
	if err := s.saveApplication(ctx, actor, app); err != nil {
		return nil, err
	}

	s.logger.Info("Application cancelled", zap.String("application_id", appID.String()))
	s.reporter.Report(ctx, Event{Kind: EventApplicationCancel, ActorID: actor.ID, SubjectID: appID, Status: string(app.Status)})
	return app, nil
}

// GetApplication loads an application if actor may see it.
func (s *Service) GetApplication(ctx context.Context, actor *models.User, appID uuid.UUID) (*models.JobApplication, error) {
	app, err := s.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !CanViewApplication(actor, app) {
		return nil, PermissionError("you cannot view this application")
	}
	return app, nil
}

// ApplicationsForJob lists the applications of an offer for its publisher or staff.
func (s *Service) ApplicationsForJob(ctx context.Context, actor *models.User, jobID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error) {
	job, err := s.repo.FindOffer(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !CanManageApplications(actor, job) {
		return nil, PermissionError("you cannot manage applications of this offer")
	}
	if status != "" && !status.IsValid() {
		return nil, ValidationError("status", "unknown application status")
	}
	return s.repo.ListApplicationsForJob(ctx, jobID, status)
}

// ApplicationsToMyOffers lists applications across every offer actor published.
func (s *Service) ApplicationsToMyOffers(ctx context.Context, actor *models.User, status models.ApplicationStatus) ([]models.JobApplication, error) {
	if !CanCreateOffer(actor) {
		return nil, PermissionError("only recruiters and staff publish offers")
	}
	if status != "" && !status.IsValid() {
		return nil, ValidationError("status", "unknown application status")
	}
	return s.repo.ListApplicationsForPublisher(ctx, actor.ID, status)
}

// ApplicationsForUser lists actor's own applications, optionally narrowed to
// offers whose title contains keyword.
func (s *Service) ApplicationsForUser(ctx context.Context, actor *models.User, keyword string) ([]models.JobApplication, error) {
	if actor == nil {
		return nil, PermissionError("authentication required")
	}
	apps, err := s.repo.ListApplicationsForUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return apps, nil
	}
	filtered := apps[:0]
	for _, app := range apps {
		if app.Job != nil && strings.Contains(strings.ToLower(app.Job.Title), keyword) {
			filtered = append(filtered, app)
		}
	}
	return filtered, nil
}

// RegisterUser creates an account with a hashed password.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ValidationError("username", "username is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ValidationError("email", "a valid email address is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, ValidationError("password", "password must be at least 8 characters")
	}

	user := &models.User{
		ID:          uuid.New(),
		Username:    username,
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		IsRecruiter: in.IsRecruiter,
		IsStaff:     in.IsStaff,
		IsSuperuser: in.IsSuperuser,
		CreatedAt:   s.clock.Now(),
		UpdatedAt:   s.clock.Now(),
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	s.reporter.Report(ctx, Event{Kind: EventUserRegistered, ActorID: user.ID, SubjectID: user.ID})
	return user, nil
}

// Authenticate checks credentials. Banned users cannot log in.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, PermissionError("invalid username or password")
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, PermissionError("invalid username or password")
	}
	if user.IsBanned {
		s.logger.Warn("Banned user attempted to log in", zap.String("user_id", user.ID.String()))
		return nil, PermissionError("this account has been banned")
	}
	return user, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.FindUser(ctx, id)
}

// ListUsers returns every account for staff.
func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if !CanListUsers(actor) {
		return nil, PermissionError("only staff can list users")
	}
	return s.repo.ListUsers(ctx)
}

// SetBanned bans or unbans target on behalf of actor.
func (s *Service) SetBanned(ctx context.Context, actor *models.User, targetID uuid.UUID, banned bool) (*models.User, error) {
	target, err := s.repo.FindUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !CanBan(actor, target) {
		return nil, s.reject(ctx, actor, targetID, PermissionError("you cannot change the ban status of this user"))
	}

	target.IsBanned = banned
	target.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveUser(ctx, target); err != nil {
		return nil, errors.Wrap(err, "save user")
	}

	kind := EventUserUnbanned
	if banned {
		kind = EventUserBanned
	}
	s.logger.Info("User ban status changed",
		zap.String("user_id", targetID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Bool("banned", banned),
	)
	s.reporter.Report(ctx, Event{Kind: kind, ActorID: actor.ID, SubjectID: targetID})
	return target, nil
}

// ProfileInput carries the editable fields of an account. Nil fields are
// left unchanged.
type ProfileInput struct {
	Email       *string
	PhoneNumber *string
}

// UpdateProfile edits actor's own email address and phone number.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.User, error) {
	user, err := s.self(ctx, actor)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ValidationError("email", "a valid email address is required")
		}
		user.Email = strings.ToLower(email)
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if err := s.repo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, s.reject(ctx, actor, user.ID, err)
		}
		return nil, errors.Wrap(err, "save user")
	}

	s.logger.Info("Profile updated", zap.String("user_id", user.ID.String()))
	s.reporter.Report(ctx, Event{Kind: EventProfileUpdated, ActorID: user.ID, SubjectID: user.ID})
	return user, nil
}

// ChangePassword replaces actor's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor *models.User, current, next string) error {
	user, err := s.self(ctx, actor)
	if err != nil {
		return err
	}
	if !user.CheckPassword(current) {
		return s.reject(ctx, actor, user.ID, ValidationError("current_password", "current password is incorrect"))
	}
	if len(next) < minPasswordLength {
		return ValidationError("new_password", "password must be at least 8 characters")
	}

	if err := user.SetPassword(next); err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return errors.Wrap(err, "save user")
	}

	s.logger.Info("Password changed", zap.String("user_id", user.ID.String()))
	s.reporter.Report(ctx, Event{Kind: EventPasswordChanged, ActorID: user.ID, SubjectID: user.ID})
	return nil
}

// DeleteAccount removes actor's account with their offers and applications.
func (s *Service) DeleteAccount(ctx context.Context, actor *models.User) error {
	user, err := s.self(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
		return errors.Wrap(err, "delete user")
	}

	s.logger.Info("Account deleted", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	s.reporter.Report(ctx, Event{Kind: EventUserDeleted, ActorID: user.ID, SubjectID: user.ID})
	return nil
}

// self reloads actor so account commands never write a stale copy.
func (s *Service) self(ctx context.Context, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, PermissionError("authentication required")
	}
	return s.repo.FindUser(ctx, actor.ID)
}

// ToggleBan flips the ban status of target.
func (s *Service) ToggleBan(ctx context.Context, actor *models.User, targetID uuid.UUID) (*models.User, error) {
	target, err := s.repo.FindUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return s.SetBanned(ctx, actor, targetID, !target.IsBanned)
}

func (s *Service) loadApplication(ctx context.Context, appID uuid.UUID) (*models.JobApplication, error) {
	app, err := s.repo.FindApplicationByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.Job == nil {
		if app.Job, err = s.repo.FindOffer(ctx, app.JobID); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func (s *Service) saveApplication(ctx context.Context, actor *models.User, app *models.JobApplication) error {
	if err := s.repo.SaveApplication(ctx, app); err != nil {
		if errors.Is(err, ErrConflict) {
			return s.reject(ctx, actor, app.ID, err)
		}
		return errors.Wrap(err, "save application")
	}
	return nil
}

// reject reports a refused command and returns err unchanged.
func (s *Service) reject(ctx context.Context, actor *models.User, subject uuid.UUID, err error) error {
	event := Event{Kind: EventCommandRejected, SubjectID: subject}
	if actor != nil {
		event.ActorID = actor.ID
	}
	if e, ok := AsError(err); ok {
		event.Status = e.Code()
	}
	s.logger.Debug("Command rejected", zap.String("subject_id", subject.String()), zap.Error(err))
	s.reporter.Report(ctx, event)
	return err
}
