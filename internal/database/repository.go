package database

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

// Repository implements jobs.Repository on top of GORM.
type Repository struct {
	db    *gorm.DB
	clock jobs.Clock
}

var _ jobs.Repository = (*Repository)(nil)

// NewRepository wraps db. Write hooks and timestamps read the time from clock.
func NewRepository(db *gorm.DB, clock jobs.Clock) *Repository {
	if clock == nil {
		clock = jobs.SystemClock
	}
	return &Repository{
		db:    db.Session(&gorm.Session{NowFunc: clock.Now}),
		clock: clock,
	}
}

// --- Offers ---

func (r *Repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.JobOffer, error) {
	var offer models.JobOffer
	err := r.db.WithContext(ctx).Preload("Publisher").First(&offer, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "offer")
	}
	return &offer, nil
}

func (r *Repository) SaveOffer(ctx context.Context, offer *models.JobOffer) error {
	tx := r.db.WithContext(ctx).Omit(clause.Associations)
	if offer.ID == uuid.Nil {
		return translate(tx.Create(offer).Error, "offer")
	}
	return translate(tx.Save(offer).Error, "offer")
}

func (r *Repository) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&models.JobApplication{}).Error; err != nil {
			return errors.Wrap(err, "delete applications")
		}
		res := tx.Where("id = ?", id).Delete(&models.JobOffer{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete offer")
		}
		if res.RowsAffected == 0 {
			return jobs.NotFoundError("offer")
		}
		return nil
	})
}

func (r *Repository) ListOffers(ctx context.Context, q jobs.Query) ([]models.JobOffer, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.JobOffer{}).Scopes(offerFilter(q)).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count offers")
	}

	tx := r.db.WithContext(ctx).Scopes(offerFilter(q), offerOrder(q.SortOrDefault()))
	if _, _, paged := q.Window(); paged {
		tx = tx.Scopes(Paginate(q.Page, q.PageSize))
	}

	offers := make([]models.JobOffer, 0)
	if err := tx.Preload("Publisher").Find(&offers).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list offers")
	}
	return offers, total, nil
}

func (r *Repository) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.JobOffer{}).
		Where("status <> ? AND expires_at < ?", models.OfferStatusExpired, now).
		UpdateColumns(map[string]interface{}{
			"status":     models.OfferStatusExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expire offers")
	}
	return res.RowsAffected, nil
}

// offerFilter translates q into WHERE clauses. It mirrors Query.Matches.
func offerFilter(q jobs.Query) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if q.ActiveOnly {
			tx = tx.Where("status = ? AND expires_at >= ?", models.OfferStatusActive, q.Now)
		}
		if q.PublisherID != nil {
			tx = tx.Where("publisher_id = ?", *q.PublisherID)
		}
		if q.ExcludePublisherID != nil {
			tx = tx.Where("publisher_id <> ?", *q.ExcludePublisherID)
		}
		if kw := q.KeywordPattern(); kw != "" {
			tx = tx.Where(`search_text LIKE ? ESCAPE '\'`, "%"+escapeLike(kw)+"%")
		}
		if loc := q.LocationKey(); loc != "" {
			tx = tx.Where("location_key = ?", loc)
		}
		if q.MinSalary != nil {
			tx = tx.Where("salary_min IS NOT NULL AND salary_min >= ?", *q.MinSalary)
		}
		if q.MaxSalary != nil {
			tx = tx.Where("salary_max IS NOT NULL AND salary_max <= ?", *q.MaxSalary)
		}
		if from, to, ok := q.CreatedWindow(q.Now); ok {
			tx = tx.Where("created_at >= ?", from)
			if !to.IsZero() {
				tx = tx.Where("created_at < ?", to)
			}
		}
		return tx
	}
}

func offerOrder(order jobs.SortOrder) func(*gorm.DB) *gorm.DB {
	createdAt := func(desc bool) clause.OrderByColumn {
		return clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: desc}
	}
	// id breaks whatever ties remain
	byID := clause.OrderByColumn{Column: clause.Column{Name: "id"}}
	return func(tx *gorm.DB) *gorm.DB {
		switch order {
		case jobs.SortDateAsc:
			return tx.Order(createdAt(false)).Order(byID)
		case jobs.SortSalaryAsc, jobs.SortSalaryDesc:
			// unparsable ranges have no salary_min and sort last either way
			return tx.Order("salary_min IS NULL").
				Order(clause.OrderByColumn{Column: clause.Column{Name: "salary_min"}, Desc: order == jobs.SortSalaryDesc}).
				Order(createdAt(true)).
				Order(byID)
		default:
			return tx.Order(createdAt(true)).Order(byID)
		}
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// --- Applications ---

func (r *Repository) applications(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Job.Publisher").Preload("Applicant")
}

func (r *Repository) FindApplication(ctx context.Context, jobID, applicantID uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	err := r.applications(ctx).Where("job_id = ? AND applicant_id = ?", jobID, applicantID).First(&app).Error
	if err != nil {
		return nil, translate(err, "application")
	}
	return &app, nil
}

func (r *Repository) FindApplicationByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	if err := r.applications(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, translate(err, "application")
	}
	return &app, nil
}

func (r *Repository) CreateApplication(ctx context.Context, app *models.JobApplication) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(app).Error
	if isDuplicate(err) {
		return jobs.ConflictError("you have already applied to this offer")
	}
	return translate(err, "application")
}

// SaveApplication writes status and notes only if the row still carries app.Version.
func (r *Repository) SaveApplication(ctx context.Context, app *models.JobApplication) error {
	now := r.clock.Now()
	res := r.db.WithContext(ctx).Model(&models.JobApplication{}).
		Where("id = ? AND version = ?", app.ID, app.Version).
		UpdateColumns(map[string]interface{}{
			"status":     app.Status,
			"notes":      app.Notes,
			"version":    app.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update application")
	}

	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.JobApplication{}).Where("id = ?", app.ID).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check application")
		}
		if n == 0 {
			return jobs.NotFoundError("application")
		}
		return jobs.ConflictError("application was modified concurrently")
	}

	app.Version++
	app.UpdatedAt = now
	return nil
}

func (r *Repository) ListApplicationsForJob(ctx context.Context, jobID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error) {
	tx := r.applications(ctx).Where("job_id = ?", jobID)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	return findApplications(tx)
}

func (r *Repository) ListApplicationsForPublisher(ctx context.Context, publisherID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error) {
	tx := r.applications(ctx).
		Joins("JOIN job_offers ON job_offers.id = job_applications.job_id").
		Where("job_offers.publisher_id = ?", publisherID)
	if status != "" {
		tx = tx.Where("job_applications.status = ?", status)
	}
	return findApplications(tx)
}

func (r *Repository) ListApplicationsForUser(ctx context.Context, userID uuid.UUID) ([]models.JobApplication, error) {
	return findApplications(r.applications(ctx).Where("applicant_id = ?", userID))
}

func (r *Repository) CountApplications(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.JobApplication{}).Where("job_id = ?", jobID).Count(&n).Error
	return n, errors.Wrap(err, "count applications")
}

func findApplications(tx *gorm.DB) ([]models.JobApplication, error) {
	apps := make([]models.JobApplication, 0)
	err := tx.Order("job_applications.applied_at DESC").Order("job_applications.id").Find(&apps).Error
	if err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	return apps, nil
}

// --- Users ---

func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
		return errors.Wrap(err, "check username")
	}
	if n > 0 {
		return jobs.ConflictError("username is already taken")
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(user.Email)).Count(&n).Error; err != nil {
		return errors.Wrap(err, "check email")
	}
	if n > 0 {
		return jobs.ConflictError("email is already registered")
	}

	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
	if isDuplicate(err) {
		return jobs.ConflictError("username or email is already registered")
	}
	return translate(err, "user")
}

func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(user.Email), user.ID).
		Count(&n).Error; err != nil {
		return errors.Wrap(err, "check email")
	}
	if n > 0 {
		return jobs.ConflictError("email is already registered")
	}

	res := r.db.WithContext(ctx).Model(user).
		Select("*").Omit("id", "created_at", clause.Associations).
		Updates(user)
	if isDuplicate(res.Error) {
		return jobs.ConflictError("email is already registered")
	}
	if res.Error != nil {
		return errors.Wrap(res.Error, "save user")
	}
	if res.RowsAffected == 0 {
		return jobs.NotFoundError("user")
	}
	return nil
}

// DeleteUser removes the user together with their applications, their
// offers and the applications to those offers.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := tx.Model(&models.JobOffer{}).Select("id").Where("publisher_id = ?", id)
		if err := tx.Where("applicant_id = ? OR job_id IN (?)", id, offers).Delete(&models.JobApplication{}).Error; err != nil {
			return errors.Wrap(err, "delete applications")
		}
		if err := tx.Where("publisher_id = ?", id).Delete(&models.JobOffer{}).Error; err != nil {
			return errors.Wrap(err, "delete offers")
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete user")
		}
		if res.RowsAffected == 0 {
			return jobs.NotFoundError("user")
		}
		return nil
	})
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	if err := r.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// translate maps GORM errors onto the service error kinds.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return jobs.NotFoundError(entity)
	case isDuplicate(err):
		return jobs.ConflictError(entity + " already exists")
	default:
		return errors.Wrapf(err, "%s query", entity)
	}
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
