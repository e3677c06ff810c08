package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission statuses.
const (
	// SubmissionStatusSubmitted indicates the submission awaits grading.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusPendingReview indicates an AI grade awaits human confirmation.
	SubmissionStatusPendingReview = "pending_review"
	// SubmissionStatusGraded indicates the submission reached its terminal state.
	SubmissionStatusGraded = "graded"
)

// Submission represents one student's attempt at one task.
//
// Points and GradedAt are non-nil once Status is graded. AIScore is written
// only by the auto-grading pass and survives a later human override.
type Submission struct {
	ID           uint                            `gorm:"primaryKey" json:"id"`
	TaskID       uint                            `gorm:"not null;index" json:"task_id"`
	StudentID    uint                            `gorm:"not null;index" json:"student_id"`
	Content      string                          `gorm:"type:text" json:"content"`
	Attachments  datatypes.JSONSlice[Attachment] `json:"attachments"`
	Status       string                          `gorm:"size:32;not null;default:submitted;index" json:"status"`
	Points       *int                            `json:"points"`
	Feedback     string                          `gorm:"type:text" json:"feedback"`
	AIScore      *int                            `gorm:"column:ai_score" json:"ai_score"`
	NeedsReview  bool                            `gorm:"not null;default:false;index" json:"needs_review"`
	AutoGradedAt *time.Time                      `json:"auto_graded_at"`
	GradedAt     *time.Time                      `json:"graded_at"`
	GradedBy     *uint                           `json:"graded_by"`
	SubmittedAt  time.Time                       `json:"submitted_at"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`

	Task    Task        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
	Student UserProfile `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsGraded reports whether the submission reached its terminal state.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// InReviewQueue reports review-queue membership. Both signals are checked
// because older rows may carry one without the other.
func (s Submission) InReviewQueue() bool {
	return s.Status == SubmissionStatusPendingReview || s.NeedsReview
}
