package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attachment describes an uploaded file linked to a task or submission.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Task is an assignment definition published by an admin. It is read-only
// input for the grading pipeline.
type Task struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	Title        string                           `gorm:"size:255;not null" json:"title"`
	Instructions string                           `gorm:"type:text;not null" json:"instructions"`
	Content      string                           `gorm:"type:text" json:"content"`
	MaxScore     int                              `gorm:"not null;default:100" json:"max_score"`
	DueDate      *time.Time                       `json:"due_date"`
	Attachments  datatypes.JSONSlice[Attachment]  `json:"attachments"`
	Published    bool                             `gorm:"not null;default:false" json:"published"`
	TopicID      *uint                            `json:"topic_id"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`

	Submissions []Submission `json:"submissions,omitempty"`
}

// IsPastDue returns true when the task deadline has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return t.DueDate != nil && reference.After(*t.DueDate)
}
