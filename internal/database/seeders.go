package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"job-portal/config"
	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

// Seeder creates development data through the service so every seeded row
// passes the same rules as API traffic.
type Seeder struct {
	svc    *jobs.Service
	repo   jobs.Repository
	logger *zap.Logger
}

func NewSeeder(svc *jobs.Service, repo jobs.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{svc: svc, repo: repo, logger: logger}
}

// SeedResult counts the rows created by a seeding run.
type SeedResult struct {
	Users  int
	Offers int
}

var seedUsers = []jobs.RegisterInput{
	{Username: "testuser", Email: "test@example.com", Password: "testpass123", IsStaff: true},
	{Username: "recruiter", Email: "recruiter@example.com", Password: "recruiter123", IsRecruiter: true},
	{Username: "candidate", Email: "candidate@example.com", Password: "candidate123", PhoneNumber: "+33 6 12 34 56 78"},
}

var (
	seedTitles    = []string{"Senior Python Developer", "Full Stack Developer", "Data Scientist", "DevOps Engineer", "Product Manager"}
	seedCompanies = []string{"Tech Corp", "Digital Solutions", "AI Labs", "Cloud Systems", "Innovation Inc"}
	seedLocations = []string{"Paris", "Lyon", "Marseille", "Bordeaux", "Toulouse"}
)

// EnsureAdmin creates the configured staff superuser unless the username exists.
func (s *Seeder) EnsureAdmin(ctx context.Context, admin config.AdminConfig) (*models.User, bool, error) {
	return s.ensureUser(ctx, jobs.RegisterInput{
		Username:    admin.Username,
		Email:       admin.Email,
		Password:    admin.Password,
		IsStaff:     true,
		IsSuperuser: true,
	})
}

// Seed creates the test accounts and one batch of offers published by the
// staff test account. Existing rows are left untouched.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	s.logger.Info("Seeding development data...")

	var result SeedResult
	var publisher *models.User
	for _, u := range seedUsers {
		user, created, err := s.ensureUser(ctx, u)
		if err != nil {
			return result, errors.Wrapf(err, "seed user %s", u.Username)
		}
		if created {
			result.Users++
		}
		if publisher == nil && jobs.CanCreateOffer(user) {
			publisher = user
		}
	}

	existing, _, err := s.svc.PublishedBy(ctx, publisher, jobs.Query{})
	if err != nil {
		return result, errors.Wrap(err, "list seeded offers")
	}
	titles := make(map[string]bool, len(existing))
	for _, o := range existing {
		titles[o.Title] = true
	}

	expiresAt := s.svc.Now().Add(30 * 24 * time.Hour)
	for i, title := range seedTitles {
		if titles[title] {
			s.logger.Debug("Offer already exists", zap.String("title", title))
			continue
		}
		_, err := s.svc.CreateOffer(ctx, publisher, jobs.OfferInput{
			Title:       title,
			Description: fmt.Sprintf("We are looking for an experienced %s to join our team.", title),
			Company:     seedCompanies[i],
			Location:    seedLocations[i],
			SalaryRange: fmt.Sprintf("%d-%d", 40000+i*10000, 50000+i*10000),
			ExpiresAt:   expiresAt,
		})
		if err != nil {
			return result, errors.Wrapf(err, "seed offer %q", title)
		}
		result.Offers++
	}

	s.logger.Info("Seed data created",
		zap.Int("users", result.Users),
		zap.Int("offers", result.Offers),
	)
	return result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, in jobs.RegisterInput) (*models.User, bool, error) {
	existing, err := s.repo.FindUserByUsername(ctx, in.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, jobs.ErrNotFound) {
		return nil, false, err
	}

	user, err := s.svc.RegisterUser(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
