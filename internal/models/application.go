package models

import "time"

// Application statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Application captures a prospective student's registration form. Approval
// creates a student profile and, when a class is chosen, an enrollment.
type Application struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Reference  string    `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	FullName   string    `gorm:"size:255;not null" json:"full_name"`
	Email      string    `gorm:"size:255;not null" json:"email"`
	Phone      string    `gorm:"size:32;not null" json:"phone"`
	CourseID   *uint     `json:"course_id"`
	ClassID    *uint     `json:"class_id"`
	StudyMode  StudyMode `gorm:"size:32;not null;default:offline" json:"study_mode"`
	Motivation string    `gorm:"type:text" json:"motivation"`
	Status     string    `gorm:"size:32;not null;default:pending" json:"status"`
	DecidedBy  *uint     `json:"decided_by"`
	DecidedAt  *time.Time `json:"decided_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
