package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReviewSchedule holds the spaced-repetition state for one (user, question)
// pair. The unique index enforces at most one active row per pair; Version
// guards concurrent read-modify-write cycles.
type ReviewSchedule struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_schedule_user_question,unique" json:"user_id"`
	User           *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	QuestionID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_schedule_user_question,unique" json:"question_id"`
	Question       *Question      `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	Stage          string         `gorm:"column:stage;not null;default:'new'" json:"stage"`
	IntervalTier   string         `gorm:"column:interval_tier;not null;default:'1d'" json:"interval_tier"`
	TimesReviewed  int            `gorm:"column:times_reviewed;not null;default:0" json:"times_reviewed"`
	CorrectStreak  int            `gorm:"column:correct_streak;not null;default:0" json:"correct_streak"`
	NextDueAt      time.Time      `gorm:"column:next_due_at;not null;index" json:"next_due_at"`
	LastReviewedAt *time.Time     `gorm:"column:last_reviewed_at" json:"last_reviewed_at,omitempty"`
	Version        int            `gorm:"column:version;not null;default:0" json:"version"`
	Metadata       datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReviewSchedule) TableName() string { return "review_schedule" }

func (r *ReviewSchedule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
