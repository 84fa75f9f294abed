package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/models"
	"github.com/example/fintrack/internal/utils"
)

// VerificationService manages one-time-code challenge records. Policy
// (attempt caps, resend caps, expiry checks) lives with the caller; this
// service only guarantees field mutation and record creation.
type VerificationService struct {
	db *gorm.DB
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(db *gorm.DB) *VerificationService {
	return &VerificationService{db: db}
}

// Create generates a fresh code and stores a challenge for the user,
// starting a new resend episode.
func (s *VerificationService) Create(userID uuid.UUID, purpose string, ttl time.Duration) (*models.VerificationCode, error) {
	return s.create(userID, purpose, ttl, time.Now())
}

// Resend stores a replacement challenge that stays anchored to the old
// session's episode.
func (s *VerificationService) Resend(old *models.VerificationCode, ttl time.Duration) (*models.VerificationCode, error) {
	return s.create(old.UserID, old.Purpose, ttl, old.EpisodeStart)
}

func (s *VerificationService) create(userID uuid.UUID, purpose string, ttl time.Duration, episodeStart time.Time) (*models.VerificationCode, error) {
	code, err := utils.GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	record := models.VerificationCode{
		UserID:       userID,
		Code:         code,
		Purpose:      purpose,
		ExpiresAt:    time.Now().Add(ttl),
		EpisodeStart: episodeStart,
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

// Get looks up a challenge by its session handle.
func (s *VerificationService) Get(id uuid.UUID) (*models.VerificationCode, error) {
	var record models.VerificationCode
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CountSince returns how many challenges exist for the user and purpose
// created at or after the given time. Used to bound resend episodes.
func (s *VerificationService) CountSince(userID uuid.UUID, purpose string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.VerificationCode{}).
		Where("user_id = ? AND purpose = ? AND created_at >= ?", userID, purpose, since).
		Count(&count).Error
	return count, err
}

// MarkUsed flips the used flag with a conditional update. Returns false
// when the record was already consumed by a concurrent request.
func (s *VerificationService) MarkUsed(record *models.VerificationCode) (bool, error) {
	res := s.db.Model(&models.VerificationCode{}).
		Where("id = ? AND used = ?", record.ID, false).
		Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	record.Used = true
	return true, nil
}

// IncrementAttempts bumps the attempt counter by one.
func (s *VerificationService) IncrementAttempts(record *models.VerificationCode) error {
	err := s.db.Model(&models.VerificationCode{}).
		Where("id = ?", record.ID).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return err
	}
	record.Attempts++
	return nil
}
