package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attempt is an append-only fact written by the answer-submission endpoint.
// The engine never mutates or deletes rows here.
type Attempt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_user" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	QuestionID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_question" json:"question_id"`
	Question         *Question      `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	ChosenKey        string         `gorm:"column:chosen_key;not null" json:"chosen_key"`
	IsCorrect        bool           `gorm:"column:is_correct;not null" json:"is_correct"`
	AnsweredAt       time.Time      `gorm:"column:answered_at;not null;index" json:"answered_at"`
	TimeSpentSeconds int            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	Confidence       *int           `gorm:"column:confidence" json:"confidence,omitempty"`
	Metadata         datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (Attempt) TableName() string { return "attempt" }

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
