package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User represents an account on the job board.
// Candidates are plain users; recruiters publish offers; staff and superusers moderate.
type User struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	Username    string    `json:"username" gorm:"uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"not null"`
	PhoneNumber string    `json:"phone_number" gorm:""`

	IsRecruiter bool `json:"is_recruiter" gorm:"not null;default:false"`
	IsStaff     bool `json:"is_staff" gorm:"not null;default:false"`
	IsSuperuser bool `json:"is_superuser" gorm:"not null;default:false"`
	IsBanned    bool `json:"is_banned" gorm:"not null;default:false;index"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	PublishedOffers []JobOffer       `json:"-" gorm:"foreignKey:PublisherID"`
	Applications    []JobApplication `json:"-" gorm:"foreignKey:ApplicantID"`
}

// UserResponse represents the user data returned in API responses
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	IsRecruiter bool      `json:"is_recruiter"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	IsBanned    bool      `json:"is_banned"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SetPassword replaces the stored hash with a bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword checks if the provided password matches the user's password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsModerator reports whether the user has staff or superuser rights.
func (u *User) IsModerator() bool {
	return u.IsStaff || u.IsSuperuser
}

// ToResponse converts a User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		IsRecruiter: u.IsRecruiter,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsBanned:    u.IsBanned,
		CreatedAt:   u.CreatedAt,
	}
}
