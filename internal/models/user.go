package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification purposes.
const (
	PurposeSignup = "signup"
	PurposeLogin  = "login"
)

// User represents an account holder. PasswordHash is empty for accounts
// created through a social provider.
type User struct {
	BaseModel
	Email        string `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Name         string `gorm:"size:255" json:"name,omitempty"`
	Avatar       string `gorm:"size:512" json:"avatar,omitempty"`
	Provider     string `gorm:"size:50" json:"-"`
	IsVerified   bool   `json:"-"`
}

// VerificationCode tracks a one-time-code challenge. Its ID doubles as the
// session handle the client presents back. Rows are never deleted; used and
// expired ones simply stop matching.
type VerificationCode struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index:idx_verification_user_purpose" json:"user_id"`
	Code      string    `gorm:"size:6" json:"-"`
	Purpose   string    `gorm:"size:10;index:idx_verification_user_purpose" json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	Attempts  int       `json:"attempts"`
	// EpisodeStart anchors the resend quota: every session in a resend
	// chain carries the creation time of the chain's first session.
	EpisodeStart time.Time `json:"-"`
}
