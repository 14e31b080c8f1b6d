package db

import (
	"time"

	"gorm.io/datatypes"
)

// Preference is a persisted key/value setting such as the access token or
// a UI flag.
type Preference struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type QuizResult struct {
	ID         uint           `gorm:"primaryKey"`
	RoundID    string         `gorm:"size:36;uniqueIndex;not null"`
	QuestionID int            `gorm:"not null"`
	Answer     string         `gorm:"size:1"`
	IsCorrect  bool           `gorm:"not null;default:false"`
	PrizeMoney int            `gorm:"not null;default:0"`
	Submitted  bool           `gorm:"not null;default:false"`
	Response   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}
