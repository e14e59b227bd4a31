package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusReviewing ApplicationStatus = "reviewing"
	ApplicationStatusAccepted  ApplicationStatus = "accepted"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
)

// JobApplication represents a candidate's submission against an offer.
// The (job_id, applicant_id) pair is unique for the lifetime of the offer.
type JobApplication struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	JobID       uuid.UUID `json:"job_id" gorm:"type:char(36);not null;uniqueIndex:idx_job_applications_job_applicant"`
	Job         *JobOffer `json:"job,omitempty" gorm:"foreignKey:JobID"`
	ApplicantID uuid.UUID `json:"applicant_id" gorm:"type:char(36);not null;uniqueIndex:idx_job_applications_job_applicant;index"`
	Applicant   *User     `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Status      ApplicationStatus `json:"status" gorm:"not null;default:'pending';index"`
	CoverLetter string            `json:"cover_letter" gorm:"type:text;not null"`
	Notes       string            `json:"notes,omitempty" gorm:"type:text"`

	// Version is bumped on every status write and guards concurrent transitions.
	Version int `json:"-" gorm:"not null;default:1"`

	AppliedAt time.Time `json:"applied_at" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// JobApplicationResponse represents an application as returned by the API.
// Notes are only filled in for the offer's publisher and staff.
type JobApplicationResponse struct {
	ID          uuid.UUID         `json:"id"`
	JobID       uuid.UUID         `json:"job_id"`
	JobTitle    string            `json:"job_title,omitempty"`
	Company     string            `json:"company,omitempty"`
	ApplicantID uuid.UUID         `json:"applicant_id"`
	Applicant   string            `json:"applicant,omitempty"`
	Status      ApplicationStatus `json:"status"`
	StatusLabel string            `json:"status_label"`
	CoverLetter string            `json:"cover_letter"`
	Notes       string            `json:"notes,omitempty"`
	AppliedAt   time.Time         `json:"applied_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// BeforeCreate is a GORM hook that runs before creating an application
func (ja *JobApplication) BeforeCreate(tx *gorm.DB) error {
	if ja.ID == uuid.Nil {
		ja.ID = uuid.New()
	}
	if ja.Version == 0 {
		ja.Version = 1
	}
	return nil
}

// ToResponse converts a JobApplication to its API representation.
func (ja *JobApplication) ToResponse(includeNotes bool) JobApplicationResponse {
	resp := JobApplicationResponse{
		ID:          ja.ID,
		JobID:       ja.JobID,
		ApplicantID: ja.ApplicantID,
		Status:      ja.Status,
		StatusLabel: ja.Status.GetDisplayName(),
		CoverLetter: ja.CoverLetter,
		AppliedAt:   ja.AppliedAt,
		UpdatedAt:   ja.UpdatedAt,
	}
	if includeNotes {
		resp.Notes = ja.Notes
	}
	if ja.Job != nil {
		resp.JobTitle = ja.Job.Title
		resp.Company = ja.Job.Company
	}
	if ja.Applicant != nil {
		resp.Applicant = ja.Applicant.Username
	}
	return resp
}

// IsValid reports whether s is a known application status.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusReviewing, ApplicationStatusAccepted,
		ApplicationStatusRejected, ApplicationStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationStatusAccepted, ApplicationStatusRejected, ApplicationStatusCancelled:
		return true
	}
	return false
}

// GetDisplayName returns the display name for application status
func (s ApplicationStatus) GetDisplayName() string {
	switch s {
	case ApplicationStatusPending:
		return "Pending"
	case ApplicationStatusReviewing:
		return "Under review"
	case ApplicationStatusAccepted:
		return "Accepted"
	case ApplicationStatusRejected:
		return "Rejected"
	case ApplicationStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}
