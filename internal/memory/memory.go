// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

// DB implements jobs.Repository in process memory. Stored rows are copies;
// callers never share pointers with the store.
type DB struct {
	mu           sync.Mutex
	clock        jobs.Clock
	users        map[uuid.UUID]models.User
	offers       map[uuid.UUID]models.JobOffer
	applications map[uuid.UUID]models.JobApplication
}

// New creates a new in-memory database. clock drives write-time normalization.
func New(clock jobs.Clock) *DB {
	if clock == nil {
		clock = jobs.SystemClock
	}
	return &DB{
		clock:        clock,
		users:        make(map[uuid.UUID]models.User),
		offers:       make(map[uuid.UUID]models.JobOffer),
		applications: make(map[uuid.UUID]models.JobApplication),
	}
}

// Ensure interfaces are met.
var _ jobs.Repository = (*DB)(nil)

// --- Offers ---

func (db *DB) FindOffer(ctx context.Context, id uuid.UUID) (*models.JobOffer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	offer, ok := db.offers[id]
	if !ok {
		return nil, jobs.NotFoundError("offer")
	}
	return db.withPublisher(offer), nil
}

func (db *DB) SaveOffer(ctx context.Context, offer *models.JobOffer) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.clock.Now()
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	offer.UpdatedAt = now
	offer.Normalize(now)

	stored := *offer
	stored.Publisher = nil
	stored.Applications = nil
	db.offers[offer.ID] = stored
	return nil
}

func (db *DB) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.offers[id]; !ok {
		return jobs.NotFoundError("offer")
	}
	delete(db.offers, id)
	for appID, app := range db.applications {
		if app.JobID == id {
			delete(db.applications, appID)
		}
	}
	return nil
}

func (db *DB) ListOffers(ctx context.Context, q jobs.Query) ([]models.JobOffer, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	all := make([]models.JobOffer, 0, len(db.offers))
	for _, offer := range db.offers {
		all = append(all, offer)
	}
	page, total := q.Apply(all)
	for i := range page {
		page[i] = *db.withPublisher(page[i])
	}
	return page, total, nil
}

func (db *DB) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var n int64
	for id, offer := range db.offers {
		if offer.Status != models.OfferStatusExpired && offer.IsExpiredAt(now) {
			offer.Status = models.OfferStatusExpired
			offer.UpdatedAt = now
			db.offers[id] = offer
			n++
		}
	}
	return n, nil
}

// --- Applications ---

func (db *DB) FindApplication(ctx context.Context, jobID, applicantID uuid.UUID) (*models.JobApplication, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, app := range db.applications {
		if app.JobID == jobID && app.ApplicantID == applicantID {
			return db.withRelations(app), nil
		}
	}
	return nil, jobs.NotFoundError("application")
}

func (db *DB) FindApplicationByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	app, ok := db.applications[id]
	if !ok {
		return nil, jobs.NotFoundError("application")
	}
	return db.withRelations(app), nil
}

func (db *DB) CreateApplication(ctx context.Context, app *models.JobApplication) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.applications {
		if existing.JobID == app.JobID && existing.ApplicantID == app.ApplicantID {
			return jobs.ConflictError("you have already applied to this offer")
		}
	}

	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if app.Version == 0 {
		app.Version = 1
	}
	db.applications[app.ID] = detach(*app)
	return nil
}

func (db *DB) SaveApplication(ctx context.Context, app *models.JobApplication) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.applications[app.ID]
	if !ok {
		return jobs.NotFoundError("application")
	}
	if stored.Version != app.Version {
		return jobs.ConflictError("application was modified concurrently")
	}

	app.Version++
	stored.Status = app.Status
	stored.Notes = app.Notes
	stored.Version = app.Version
	stored.UpdatedAt = db.clock.Now()
	db.applications[app.ID] = stored
	return nil
}

func (db *DB) ListApplicationsForJob(ctx context.Context, jobID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error) {
	return db.listApplications(func(app models.JobApplication) bool {
		return app.JobID == jobID && (status == "" || app.Status == status)
	}), nil
}

func (db *DB) ListApplicationsForPublisher(ctx context.Context, publisherID uuid.UUID, status models.ApplicationStatus) ([]models.JobApplication, error) {
	db.mu.Lock()
	owned := make(map[uuid.UUID]bool)
	for id, offer := range db.offers {
		if offer.PublisherID == publisherID {
			owned[id] = true
		}
	}
	db.mu.Unlock()

	return db.listApplications(func(app models.JobApplication) bool {
		return owned[app.JobID] && (status == "" || app.Status == status)
	}), nil
}

func (db *DB) ListApplicationsForUser(ctx context.Context, userID uuid.UUID) ([]models.JobApplication, error) {
	return db.listApplications(func(app models.JobApplication) bool {
		return app.ApplicantID == userID
	}), nil
}

func (db *DB) CountApplications(ctx context.Context, jobID uuid.UUID) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var n int64
	for _, app := range db.applications {
		if app.JobID == jobID {
			n++
		}
	}
	return n, nil
}

// --- Users ---

func (db *DB) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.users[id]
	if !ok {
		return nil, jobs.NotFoundError("user")
	}
	return &user, nil
}

func (db *DB) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, user := range db.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, jobs.NotFoundError("user")
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.users {
		if existing.Username == user.Username {
			return jobs.ConflictError("username is already taken")
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return jobs.ConflictError("email is already registered")
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := db.clock.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	db.users[user.ID] = *user
	return nil
}

func (db *DB) SaveUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[user.ID]; !ok {
		return jobs.NotFoundError("user")
	}
	for id, existing := range db.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return jobs.ConflictError("email is already registered")
		}
	}
	user.UpdatedAt = db.clock.Now()
	db.users[user.ID] = *user
	return nil
}

func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return jobs.NotFoundError("user")
	}
	for appID, app := range db.applications {
		if app.ApplicantID == id || db.offers[app.JobID].PublisherID == id {
			delete(db.applications, appID)
		}
	}
	for offerID, offer := range db.offers {
		if offer.PublisherID == id {
			delete(db.offers, offerID)
		}
	}
	delete(db.users, id)
	return nil
}

func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	users := make([]models.User, 0, len(db.users))
	for _, user := range db.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// --- helpers (callers hold db.mu unless noted) ---

func (db *DB) withPublisher(offer models.JobOffer) *models.JobOffer {
	if publisher, ok := db.users[offer.PublisherID]; ok {
		offer.Publisher = &publisher
	}
	return &offer
}

func (db *DB) withRelations(app models.JobApplication) *models.JobApplication {
	if offer, ok := db.offers[app.JobID]; ok {
		app.Job = db.withPublisher(offer)
	}
	if applicant, ok := db.users[app.ApplicantID]; ok {
		app.Applicant = &applicant
	}
	return &app
}

// listApplications acquires db.mu itself.
func (db *DB) listApplications(keep func(models.JobApplication) bool) []models.JobApplication {
	db.mu.Lock()
	defer db.mu.Unlock()

	apps := make([]models.JobApplication, 0)
	for _, app := range db.applications {
		if keep(app) {
			apps = append(apps, *db.withRelations(app))
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].AppliedAt.Equal(apps[j].AppliedAt) {
			return apps[i].ID.String() < apps[j].ID.String()
		}
		return apps[i].AppliedAt.After(apps[j].AppliedAt)
	})
	return apps
}

func detach(app models.JobApplication) models.JobApplication {
	app.Job = nil
	app.Applicant = nil
	return app
}
