package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is immutable once authored. The engine reads it, content
// management owns it.
type Question struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Prompt        string         `gorm:"column:prompt;not null" json:"prompt"`
	Choices       datatypes.JSON `gorm:"type:jsonb;column:choices;not null" json:"choices"`
	CorrectKey    string         `gorm:"column:correct_key;not null" json:"correct_key"`
	Specialty     string         `gorm:"column:specialty;not null;index" json:"specialty"`
	Source        string         `gorm:"column:source;not null;index" json:"source"`
	RecencyWeight float64        `gorm:"column:recency_weight;not null;default:0.5" json:"recency_weight"`
	Difficulty    *float64       `gorm:"column:difficulty" json:"difficulty,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Choice is one answer option inside Question.Choices.
type Choice struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}
