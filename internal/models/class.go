package models

import "time"

// StudyMode describes how an enrolled student attends a class.
type StudyMode string

const (
	StudyModeOffline   StudyMode = "offline"
	StudyModeOnline    StudyMode = "online"
	StudyModeSelfStudy StudyMode = "self_study"
)

// Valid returns true when the study mode is a supported value.
func (m StudyMode) Valid() bool {
	switch m {
	case StudyModeOffline, StudyModeOnline, StudyModeSelfStudy:
		return true
	default:
		return false
	}
}

// Class groups students that study a course together.
type Class struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CourseID    *uint     `json:"course_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Enrollments []ClassEnrollment `json:"enrollments,omitempty"`
}

// ClassEnrollment links a student to a class. A blacklisted enrollment keeps
// the history row but blocks access to class material.
type ClassEnrollment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClassID     uint      `gorm:"not null;uniqueIndex:idx_class_student" json:"class_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_class_student" json:"student_id"`
	StudyMode   StudyMode `gorm:"size:32;not null;default:offline" json:"study_mode"`
	Blacklisted bool      `gorm:"not null;default:false" json:"blacklisted"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Student UserProfile `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}
