package jobs

import (
	"strings"
	"time"

	"job-portal/internal/models"
)

// OfferInput carries the fields of a new offer.
type OfferInput struct {
	Title       string
	Description string
	Company     string
	Location    string
	SalaryRange string
	ExpiresAt   time.Time
	// Status defaults to active. Only active and closed may be set by hand.
	Status models.OfferStatus
}

// OfferPatch carries a partial update. Nil fields are left untouched.
type OfferPatch struct {
	Title       *string
	Description *string
	Company     *string
	Location    *string
	SalaryRange *string
	ExpiresAt   *time.Time
	Status      *models.OfferStatus
}

// EffectiveStatus is expired once expires_at has passed, the stored status otherwise.
func EffectiveStatus(offer *models.JobOffer, now time.Time) models.OfferStatus {
	return offer.EffectiveStatus(now)
}

// IsVisibleToCandidates reports whether the offer's effective status is active.
func IsVisibleToCandidates(offer *models.JobOffer, now time.Time) bool {
	return offer.IsVisibleAt(now)
}

// NewOffer validates in and builds an offer owned by publisher.
func NewOffer(publisher *models.User, in OfferInput, now time.Time) (*models.JobOffer, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ValidationError("title", "title is required")
	}
	if in.ExpiresAt.IsZero() {
		return nil, ValidationError("expires_at", "expiration is required")
	}
	// an offer expiring exactly now is not yet expired, see IsExpiredAt
	if in.ExpiresAt.Before(now) {
		return nil, ValidationError("expires_at", "expiration must be in the future")
	}

	status := in.Status
	if status == "" {
		status = models.OfferStatusActive
	}
	if err := validateManualStatus(status); err != nil {
		return nil, err
	}

	offer := &models.JobOffer{
		Title:       title,
		Description: in.Description,
		Company:     strings.TrimSpace(in.Company),
		Location:    strings.TrimSpace(in.Location),
		SalaryRange: strings.TrimSpace(in.SalaryRange),
		PublisherID: publisher.ID,
		Publisher:   publisher,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   in.ExpiresAt.UTC(),
		UpdatedAt:   now,
	}
	offer.Normalize(now)
	return offer, nil
}

// ApplyOfferPatch updates offer in place. Past expiry dates are accepted on
// update; normalization marks the offer expired. Moving the expiry of an
// expired offer into the future reactivates it unless a status is given.
func ApplyOfferPatch(offer *models.JobOffer, patch OfferPatch, now time.Time) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return ValidationError("title", "title is required")
		}
		offer.Title = title
	}
	if patch.Status != nil {
		if err := validateManualStatus(*patch.Status); err != nil {
			return err
		}
	}
	if patch.ExpiresAt != nil && patch.ExpiresAt.IsZero() {
		return ValidationError("expires_at", "expiration is required")
	}

	if patch.Description != nil {
		offer.Description = *patch.Description
	}
	if patch.Company != nil {
		offer.Company = strings.TrimSpace(*patch.Company)
	}
	if patch.Location != nil {
		offer.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.SalaryRange != nil {
		offer.SalaryRange = strings.TrimSpace(*patch.SalaryRange)
	}
	if patch.ExpiresAt != nil {
		offer.ExpiresAt = patch.ExpiresAt.UTC()
		if offer.Status == models.OfferStatusExpired && !offer.IsExpiredAt(now) {
			offer.Status = models.OfferStatusActive
		}
	}
	if patch.Status != nil {
		offer.Status = *patch.Status
	}

	offer.UpdatedAt = now
	offer.Normalize(now)
	return nil
}

func validateManualStatus(status models.OfferStatus) error {
	switch status {
	case models.OfferStatusActive, models.OfferStatusClosed:
		return nil
	case models.OfferStatusExpired:
		return ValidationError("status", "expired is derived from the expiration date")
	default:
		return ValidationError("status", "unknown offer status")
	}
}
