package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"job-portal/config"
	"job-portal/internal/jobs"
	"job-portal/internal/memory"
	"job-portal/internal/models"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	now  time.Time
	repo *Repository
	svc  *jobs.Service

	recruiter *models.User
	candidate *models.User
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	clock := jobs.ClockFunc(func() time.Time { return s.now })

	s.repo = NewRepository(setupTestDB(s.T()), clock)
	s.svc = jobs.NewService(s.repo, clock, nil, zap.NewNop())

	var err error
	s.recruiter, err = s.svc.RegisterUser(s.ctx, jobs.RegisterInput{Username: "recruiter", Email: "r@example.com", Password: "password123", IsRecruiter: true})
	s.Require().NoError(err)
	s.candidate, err = s.svc.RegisterUser(s.ctx, jobs.RegisterInput{Username: "candidate", Email: "c@example.com", Password: "password123"})
	s.Require().NoError(err)
}

func (s *RepositoryTestSuite) createOffer(title, location, salary string, createdAgo time.Duration) *models.JobOffer {
	offer := &models.JobOffer{
		Title:       title,
		Description: "About " + title,
		Company:     "Acme",
		Location:    location,
		SalaryRange: salary,
		PublisherID: s.recruiter.ID,
		Status:      models.OfferStatusActive,
		CreatedAt:   s.now.Add(-createdAgo),
		ExpiresAt:   s.now.Add(30 * 24 * time.Hour),
	}
	s.Require().NoError(s.repo.SaveOffer(s.ctx, offer))
	return offer
}

func (s *RepositoryTestSuite) titles(q jobs.Query) []string {
	offers, _, err := s.svc.ListOffers(s.ctx, q)
	s.Require().NoError(err)
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.Title
	}
	return out
}

func (s *RepositoryTestSuite) TestSaveOfferNormalizes() {
	offer := s.createOffer("SRE", "Paris", " 50000 - 70000 ", time.Hour)
	s.NotEqual(uuid.Nil, offer.ID)

	stored, err := s.repo.FindOffer(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.SalaryMin)
	s.Equal(50000, *stored.SalaryMin)
	s.Equal(70000, *stored.SalaryMax)
	s.Require().NotNil(stored.Publisher)
	s.Equal("recruiter", stored.Publisher.Username)

	stored.ExpiresAt = s.now.Add(-time.Minute)
	s.Require().NoError(s.repo.SaveOffer(s.ctx, stored))

	reloaded, err := s.repo.FindOffer(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(models.OfferStatusExpired, reloaded.Status)
}

func (s *RepositoryTestSuite) TestFindMissing() {
	_, err := s.repo.FindOffer(s.ctx, uuid.New())
	s.True(errors.Is(err, jobs.ErrNotFound))

	_, err = s.repo.FindApplicationByID(s.ctx, uuid.New())
	s.True(errors.Is(err, jobs.ErrNotFound))

	_, err = s.repo.FindUserByUsername(s.ctx, "ghost")
	s.True(errors.Is(err, jobs.ErrNotFound))

	s.True(errors.Is(s.repo.DeleteOffer(s.ctx, uuid.New()), jobs.ErrNotFound))
	s.True(errors.Is(s.repo.SaveUser(s.ctx, &models.User{ID: uuid.New(), Username: "x", Email: "x@x"}), jobs.ErrNotFound))
}

func (s *RepositoryTestSuite) TestSalaryFilterAndSort() {
	s.createOffer("low", "Paris", "40000-50000", time.Hour)
	s.createOffer("mid", "Paris", "45000-55000", 2*time.Hour)
	s.createOffer("high", "Paris", "70000-80000", 3*time.Hour)
	s.createOffer("unparsable", "Paris", "competitive", 4*time.Hour)

	lo, hi := 45000, 60000
	s.Equal([]string{"mid"}, s.titles(jobs.Query{Filter: jobs.Filter{MinSalary: &lo, MaxSalary: &hi}}))

	s.Equal([]string{"low", "mid", "high", "unparsable"}, s.titles(jobs.Query{Filter: jobs.Filter{Sort: jobs.SortSalaryAsc}}))
	s.Equal([]string{"high", "mid", "low", "unparsable"}, s.titles(jobs.Query{Filter: jobs.Filter{Sort: jobs.SortSalaryDesc}}))
	s.Equal([]string{"unparsable", "high", "mid", "low"}, s.titles(jobs.Query{Filter: jobs.Filter{Sort: jobs.SortDateAsc}}))
}

func (s *RepositoryTestSuite) TestKeywordLocationAndDate() {
	s.createOffer("Senior Go Developer", "Paris", "", time.Hour)
	s.createOffer("100% Remote Designer", "paris", "", 2*time.Hour)
	s.createOffer("Accountant", "Lyon", "", 3*24*time.Hour)
	s.createOffer("Archivist", "Lyon", "", 40*24*time.Hour)

	s.Equal([]string{"Senior Go Developer"}, s.titles(jobs.Query{Filter: jobs.Filter{Keyword: "GO DEV"}}))
	s.Equal([]string{"100% Remote Designer"}, s.titles(jobs.Query{Filter: jobs.Filter{Keyword: "100%"}}))
	s.Equal([]string{"Senior Go Developer", "100% Remote Designer"}, s.titles(jobs.Query{Filter: jobs.Filter{Location: "PARIS"}}))
	s.Equal([]string{"Senior Go Developer", "100% Remote Designer"}, s.titles(jobs.Query{Filter: jobs.Filter{DateBucket: jobs.DateToday}}))
	s.Equal([]string{"Senior Go Developer", "100% Remote Designer", "Accountant"}, s.titles(jobs.Query{Filter: jobs.Filter{DateBucket: jobs.DateWeek}}))
	s.Equal([]string{"Accountant"}, s.titles(jobs.Query{Filter: jobs.Filter{Location: "lyon", DateBucket: jobs.DateMonth}}))
}

func (s *RepositoryTestSuite) TestAccentedKeywordAndLocation() {
	offer := s.createOffer("DÉVELOPPEUR BACKEND", "GENÈVE", "", time.Hour)
	s.createOffer("Comptable", "Lausanne", "", 2*time.Hour)

	stored, err := s.repo.FindOffer(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal("genève", stored.LocationKey)
	s.Contains(stored.SearchText, "développeur backend")

	want := []string{"DÉVELOPPEUR BACKEND"}
	s.Equal(want, s.titles(jobs.Query{Filter: jobs.Filter{Keyword: "développeur"}}))
	s.Equal(want, s.titles(jobs.Query{Filter: jobs.Filter{Location: "genève"}}))
	s.Equal(want, s.titles(jobs.Query{Filter: jobs.Filter{Keyword: "Développeur", Location: " Genève "}}))
	s.Empty(s.titles(jobs.Query{Filter: jobs.Filter{Location: "gen"}}))
}

func (s *RepositoryTestSuite) TestEqualTimestampsOrderByID() {
	var ids []string
	byID := map[string]string{}
	for _, title := range []string{"one", "two", "three", "four"} {
		offer := s.createOffer(title, "", "50000-60000", time.Hour)
		ids = append(ids, offer.ID.String())
		byID[offer.ID.String()] = title
	}
	sort.Strings(ids)
	want := make([]string, len(ids))
	for i, id := range ids {
		want[i] = byID[id]
	}

	for _, order := range []jobs.SortOrder{jobs.SortDateDesc, jobs.SortDateAsc, jobs.SortSalaryAsc, jobs.SortSalaryDesc} {
		s.Equal(want, s.titles(jobs.Query{Filter: jobs.Filter{Sort: order}}), order)
	}
}

func (s *RepositoryTestSuite) TestScopeAndPagination() {
	for i := 0; i < 12; i++ {
		s.createOffer(string(rune('a'+i)), "", "", time.Duration(i+1)*time.Hour)
	}
	closed := s.createOffer("closed", "", "", 20*time.Hour)
	closed.Status = models.OfferStatusClosed
	s.Require().NoError(s.repo.SaveOffer(s.ctx, closed))

	page, total, err := s.svc.AvailableOffers(s.ctx, s.candidate, jobs.Query{Page: 2, PageSize: 5})
	s.Require().NoError(err)
	s.Equal(int64(12), total)
	s.Require().Len(page, 5)
	s.Equal("f", page[0].Title)

	page, total, err = s.svc.AvailableOffers(s.ctx, s.candidate, jobs.Query{Page: 1, PageSize: 500})
	s.Require().NoError(err)
	s.Equal(int64(12), total)
	s.Len(page, 12)

	page, _, err = s.svc.AvailableOffers(s.ctx, s.candidate, jobs.Query{Page: 4, PageSize: 5})
	s.Require().NoError(err)
	s.Empty(page)

	_, total, err = s.svc.AvailableOffers(s.ctx, s.recruiter, jobs.Query{})
	s.Require().NoError(err)
	s.Zero(total)

	_, total, err = s.svc.PublishedBy(s.ctx, s.recruiter, jobs.Query{})
	s.Require().NoError(err)
	s.Equal(int64(13), total)
}

func (s *RepositoryTestSuite) TestExpireOffers() {
	offer := s.createOffer("short", "", "", time.Hour)
	s.createOffer("long", "", "", time.Hour)

	offer.ExpiresAt = s.now.Add(time.Minute)
	s.Require().NoError(s.repo.SaveOffer(s.ctx, offer))

	n, err := s.repo.ExpireOffers(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.repo.ExpireOffers(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RepositoryTestSuite) TestApplicationLifecycle() {
	offer := s.createOffer("Backend", "", "", time.Hour)

	app, err := s.svc.Apply(s.ctx, s.candidate, offer.ID, "hire me")
	s.Require().NoError(err)
	s.Equal(1, app.Version)

	_, err = s.svc.Apply(s.ctx, s.candidate, offer.ID, "again")
	s.True(errors.Is(err, jobs.ErrConflict))

	dup := &models.JobApplication{JobID: offer.ID, ApplicantID: s.candidate.ID, Status: models.ApplicationStatusPending, CoverLetter: "x", AppliedAt: s.now}
	s.True(errors.Is(s.repo.CreateApplication(s.ctx, dup), jobs.ErrConflict))

	stale, err := s.repo.FindApplicationByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stale.Job)
	s.Require().NotNil(stale.Job.Publisher)
	s.Equal(s.recruiter.ID, stale.Job.Publisher.ID)
	s.Equal("candidate", stale.Applicant.Username)

	notes := "strong profile"
	updated, err := s.svc.UpdateApplicationStatus(s.ctx, s.recruiter, app.ID, models.ApplicationStatusReviewing, &notes)
	s.Require().NoError(err)
	s.Equal(2, updated.Version)

	stale.Status = models.ApplicationStatusCancelled
	s.True(errors.Is(s.repo.SaveApplication(s.ctx, stale), jobs.ErrConflict))

	reloaded, err := s.repo.FindApplication(s.ctx, offer.ID, s.candidate.ID)
	s.Require().NoError(err)
	s.Equal(models.ApplicationStatusReviewing, reloaded.Status)
	s.Equal("strong profile", reloaded.Notes)

	forJob, err := s.repo.ListApplicationsForJob(s.ctx, offer.ID, models.ApplicationStatusReviewing)
	s.Require().NoError(err)
	s.Len(forJob, 1)

	forPublisher, err := s.repo.ListApplicationsForPublisher(s.ctx, s.recruiter.ID, models.ApplicationStatusPending)
	s.Require().NoError(err)
	s.Empty(forPublisher)

	forUser, err := s.repo.ListApplicationsForUser(s.ctx, s.candidate.ID)
	s.Require().NoError(err)
	s.Len(forUser, 1)

	count, err := s.repo.CountApplications(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	s.Require().NoError(s.svc.DeleteOffer(s.ctx, s.recruiter, offer.ID))
	_, err = s.repo.FindApplicationByID(s.ctx, app.ID)
	s.True(errors.Is(err, jobs.ErrNotFound))
}

func (s *RepositoryTestSuite) TestConcurrentApply() {
	offer := s.createOffer("Backend", "", "", time.Hour)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.Apply(s.ctx, s.candidate, offer.ID, "me")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(errors.Is(err, jobs.ErrConflict), "got %v", err)
	}
	s.Equal(1, succeeded)
}

func (s *RepositoryTestSuite) TestUsers() {
	_, err := s.svc.RegisterUser(s.ctx, jobs.RegisterInput{Username: "recruiter", Email: "new@example.com", Password: "password123"})
	s.True(errors.Is(err, jobs.ErrConflict))

	_, err = s.svc.RegisterUser(s.ctx, jobs.RegisterInput{Username: "other", Email: "R@EXAMPLE.COM", Password: "password123"})
	s.True(errors.Is(err, jobs.ErrConflict))

	s.candidate.IsBanned = true
	s.Require().NoError(s.repo.SaveUser(s.ctx, s.candidate))
	reloaded, err := s.repo.FindUser(s.ctx, s.candidate.ID)
	s.Require().NoError(err)
	s.True(reloaded.IsBanned)

	s.candidate.IsBanned = false
	s.Require().NoError(s.repo.SaveUser(s.ctx, s.candidate))
	reloaded, err = s.repo.FindUser(s.ctx, s.candidate.ID)
	s.Require().NoError(err)
	s.False(reloaded.IsBanned)

	users, err := s.repo.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("candidate", users[0].Username)
}

// Both repositories must return the same page for the same query.
func TestListOffersAgreesWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	clock := jobs.ClockFunc(func() time.Time { return now })

	stores := map[string]jobs.Repository{
		"gorm":   NewRepository(setupTestDB(t), clock),
		"memory": memory.New(clock),
	}

	fixtures := []struct {
		title, company, location, salary string
		age                              time.Duration
	}{
		{"DÉVELOPPEUR BACKEND", "Société Générale", "GENÈVE", "60000-80000", time.Hour},
		{"Développeuse Frontend", "ÉCOLE 42", "Genève", "45000-55000", time.Hour},
		{"Ingénieur Données", "Straße GmbH", "MÜNCHEN", "competitive", 2 * time.Hour},
		{"Go Developer", "Acme", "Paris", "50000-60000", 3 * 24 * time.Hour},
		{"Ops", "Acme", "paris", "50000-60000", 3 * 24 * time.Hour},
		{"Archivist", "Acme", "Lyon", "30000-35000", 40 * 24 * time.Hour},
	}

	for name, repo := range stores {
		publisher := &models.User{Username: "publisher", Email: "p@example.com", Password: "x", IsRecruiter: true}
		require.NoError(t, repo.CreateUser(ctx, publisher), name)
		for i, f := range fixtures {
			offer := &models.JobOffer{
				// fixed ids keep the id tie-break identical across stores
				ID:          uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1)),
				Title:       f.title,
				Description: "Poste à pourvoir",
				Company:     f.company,
				Location:    f.location,
				SalaryRange: f.salary,
				PublisherID: publisher.ID,
				Status:      models.OfferStatusActive,
				CreatedAt:   now.Add(-f.age),
				ExpiresAt:   now.Add(30 * 24 * time.Hour),
			}
			if repo, ok := repo.(*Repository); ok {
				require.NoError(t, repo.db.WithContext(ctx).Create(offer).Error, name)
				continue
			}
			require.NoError(t, repo.SaveOffer(ctx, offer), name)
		}
	}

	floor, ceiling := 45000, 60000
	queries := map[string]jobs.Query{
		"accented keyword": {Filter: jobs.Filter{Keyword: "développeu"}},
		"company keyword":  {Filter: jobs.Filter{Keyword: "société"}},
		"sharp s":          {Filter: jobs.Filter{Keyword: "STRAßE"}},
		"upper location":   {Filter: jobs.Filter{Location: "genève"}},
		"umlaut location":  {Filter: jobs.Filter{Location: "münchen"}},
		"salary window":    {Filter: jobs.Filter{MinSalary: &floor, MaxSalary: &ceiling, Sort: jobs.SortSalaryDesc}},
		"salary asc":       {Filter: jobs.Filter{Sort: jobs.SortSalaryAsc}},
		"date asc paged":   {Filter: jobs.Filter{Sort: jobs.SortDateAsc}, Page: 2, PageSize: 2},
		"week":             {Filter: jobs.Filter{DateBucket: jobs.DateWeek, Location: "PARIS"}},
		"description":      {Filter: jobs.Filter{Keyword: "À POURVOIR"}},
		"no match":         {Filter: jobs.Filter{Keyword: "rust"}},
	}

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			q.Now = now
			q.ActiveOnly = true

			want, wantTotal, err := stores["memory"].ListOffers(ctx, q)
			require.NoError(t, err)
			got, gotTotal, err := stores["gorm"].ListOffers(ctx, q)
			require.NoError(t, err)

			assert.Equal(t, wantTotal, gotTotal)
			assert.Equal(t, offerTitles(want), offerTitles(got))
		})
	}
}

func offerTitles(offers []models.JobOffer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.Title
	}
	return out
}

func (s *RepositoryTestSuite) TestSaveUserEmailConflict() {
	s.candidate.Email = "R@example.com"
	s.True(errors.Is(s.repo.SaveUser(s.ctx, s.candidate), jobs.ErrConflict))

	s.candidate.Email = "c@example.com"
	s.candidate.PhoneNumber = "0600000000"
	s.Require().NoError(s.repo.SaveUser(s.ctx, s.candidate))
}

func (s *RepositoryTestSuite) TestDeleteUserCascades() {
	kept := s.createOffer("Kept", "", "", time.Hour)
	other, err := s.svc.RegisterUser(s.ctx, jobs.RegisterInput{Username: "other", Email: "o@example.com", Password: "password123", IsRecruiter: true})
	s.Require().NoError(err)
	foreign := &models.JobOffer{Title: "Foreign", PublisherID: other.ID, Status: models.OfferStatusActive, ExpiresAt: s.now.Add(time.Hour)}
	s.Require().NoError(s.repo.SaveOffer(s.ctx, foreign))

	toKept, err := s.svc.Apply(s.ctx, s.candidate, kept.ID, "a")
	s.Require().NoError(err)
	toForeign, err := s.svc.Apply(s.ctx, s.candidate, foreign.ID, "b")
	s.Require().NoError(err)

	s.Require().NoError(s.repo.DeleteUser(s.ctx, s.recruiter.ID))
	_, err = s.repo.FindOffer(s.ctx, kept.ID)
	s.True(errors.Is(err, jobs.ErrNotFound))
	_, err = s.repo.FindApplicationByID(s.ctx, toKept.ID)
	s.True(errors.Is(err, jobs.ErrNotFound))
	_, err = s.repo.FindApplicationByID(s.ctx, toForeign.ID)
	s.NoError(err)

	s.Require().NoError(s.repo.DeleteUser(s.ctx, s.candidate.ID))
	_, err = s.repo.FindApplicationByID(s.ctx, toForeign.ID)
	s.True(errors.Is(err, jobs.ErrNotFound))
	_, err = s.repo.FindOffer(s.ctx, foreign.ID)
	s.NoError(err)

	s.True(errors.Is(s.repo.DeleteUser(s.ctx, s.candidate.ID), jobs.ErrNotFound))
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), nil)
	svc := jobs.NewService(repo, nil, nil, zap.NewNop())
	seeder := NewSeeder(svc, repo, zap.NewNop())

	admin, created, err := seeder.EnsureAdmin(ctx, adminConfig())
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, admin.IsSuperuser)

	_, created, err = seeder.EnsureAdmin(ctx, adminConfig())
	require.NoError(t, err)
	assert.False(t, created)

	result, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Users: 3, Offers: 5}, result)

	result, err = seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, result)

	floor := 60000
	offers, total, err := svc.AvailableOffers(ctx, nil, jobs.Query{Filter: jobs.Filter{MinSalary: &floor}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, offers, 3)
}

func adminConfig() config.AdminConfig {
	return config.AdminConfig{Username: "admin", Email: "admin@example.com", Password: "admin12345"}
}
