package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferStatusActive  OfferStatus = "active"
	OfferStatusExpired OfferStatus = "expired"
	OfferStatusClosed  OfferStatus = "closed"
)

// JobOffer represents a published job listing.
//
// Status is the stored value and may lag behind the clock; use EffectiveStatus
// for anything visibility related. SalaryMin and SalaryMax are projections of
// SalaryRange kept for range queries and are nil when the range does not parse.
// SearchText and LocationKey are folded copies of the searchable text, so the
// database never has to case-fold non-ASCII input itself.
type JobOffer struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Company     string    `json:"company" gorm:"not null;default:''"`
	Location    string    `json:"location" gorm:"index"`
	SalaryRange string    `json:"salary_range" gorm:""`
	SalaryMin   *int      `json:"-" gorm:"index"`
	SalaryMax   *int      `json:"-" gorm:""`
	SearchText  string    `json:"-" gorm:"type:text"`
	LocationKey string    `json:"-" gorm:"index"`

	PublisherID uuid.UUID `json:"publisher_id" gorm:"type:char(36);not null;index"`
	Publisher   *User     `json:"publisher,omitempty" gorm:"foreignKey:PublisherID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Status    OfferStatus `json:"status" gorm:"not null;default:'active';index"`
	CreatedAt time.Time   `json:"created_at" gorm:"not null;index"`
	ExpiresAt time.Time   `json:"expires_at" gorm:"not null;index"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"not null"`

	Applications []JobApplication `json:"-" gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE;"`
}

// JobOfferResponse represents an offer as returned by the API.
type JobOfferResponse struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Company         string        `json:"company"`
	Location        string        `json:"location"`
	SalaryRange     string        `json:"salary_range"`
	PublisherID     uuid.UUID     `json:"publisher_id"`
	Publisher       *UserResponse `json:"publisher,omitempty"`
	Status          OfferStatus   `json:"status"`
	EffectiveStatus OfferStatus   `json:"effective_status"`
	IsExpired       bool          `json:"is_expired"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// BeforeCreate is a GORM hook that runs before creating an offer
func (o *JobOffer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BeforeSave normalizes the stored status and projections on every write.
func (o *JobOffer) BeforeSave(tx *gorm.DB) error {
	o.Normalize(tx.NowFunc())
	return nil
}

// Normalize forces the stored status to expired when the offer is past its
// expiry at now, and recomputes the salary and search projections.
func (o *JobOffer) Normalize(now time.Time) {
	if o.IsExpiredAt(now) {
		o.Status = OfferStatusExpired
	}
	if lo, hi, ok := ParseSalaryRange(o.SalaryRange); ok {
		o.SalaryMin, o.SalaryMax = &lo, &hi
	} else {
		o.SalaryMin, o.SalaryMax = nil, nil
	}
	o.SearchText = OfferSearchText(o.Title, o.Company, o.Description)
	o.LocationKey = FoldText(o.Location)
}

// FoldText trims s and lowercases it with Unicode case mapping.
func FoldText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// OfferSearchText is the keyword haystack of an offer: its title, company
// and description, lowercased and separated by newlines.
func OfferSearchText(title, company, description string) string {
	return strings.ToLower(title + "\n" + company + "\n" + description)
}

// IsExpiredAt reports whether the offer expired strictly before now.
func (o *JobOffer) IsExpiredAt(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}

// EffectiveStatus is the status used for visibility decisions at now.
func (o *JobOffer) EffectiveStatus(now time.Time) OfferStatus {
	if o.IsExpiredAt(now) {
		return OfferStatusExpired
	}
	return o.Status
}

// IsVisibleAt reports whether candidates may see and apply to the offer at now.
func (o *JobOffer) IsVisibleAt(now time.Time) bool {
	return o.EffectiveStatus(now) == OfferStatusActive
}

// ToResponse converts a JobOffer to its API representation at now.
func (o *JobOffer) ToResponse(now time.Time) JobOfferResponse {
	resp := JobOfferResponse{
		ID:              o.ID,
		Title:           o.Title,
		Description:     o.Description,
		Company:         o.Company,
		Location:        o.Location,
		SalaryRange:     o.SalaryRange,
		PublisherID:     o.PublisherID,
		Status:          o.Status,
		EffectiveStatus: o.EffectiveStatus(now),
		IsExpired:       o.IsExpiredAt(now),
		CreatedAt:       o.CreatedAt,
		ExpiresAt:       o.ExpiresAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Publisher != nil {
		publisher := o.Publisher.ToResponse()
		resp.Publisher = &publisher
	}
	return resp
}

// ParseSalaryRange parses the canonical "lo-hi" form, e.g. "45000-55000".
// Both bounds must be non-negative integers with lo <= hi.
func ParseSalaryRange(s string) (lo, hi int, ok bool) {
	left, right, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return 0, 0, false
	}

	lo, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil || lo < 0 {
		return 0, 0, false
	}
	hi, err = strconv.Atoi(strings.TrimSpace(right))
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// IsValid reports whether s is a known offer status.
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferStatusActive, OfferStatusExpired, OfferStatusClosed:
		return true
	}
	return false
}

// GetDisplayName returns the display name for offer status
func (s OfferStatus) GetDisplayName() string {
	switch s {
	case OfferStatusActive:
		return "Active"
	case OfferStatusExpired:
		return "Expired"
	case OfferStatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}
