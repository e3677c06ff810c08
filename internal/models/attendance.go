package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord marks one student's presence during one lesson. A lesson
// is not stored directly: it is the set of rows sharing the same
// (class, lesson_date, lesson_number) key.
type AttendanceRecord struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	ClassID      uint             `gorm:"not null;uniqueIndex:idx_attendance_key" json:"class_id"`
	StudentID    uint             `gorm:"not null;uniqueIndex:idx_attendance_key" json:"student_id"`
	LessonDate   time.Time        `gorm:"type:date;not null;uniqueIndex:idx_attendance_key" json:"lesson_date"`
	LessonNumber int              `gorm:"not null;uniqueIndex:idx_attendance_key" json:"lesson_number"`
	Status       AttendanceStatus `gorm:"size:16;not null" json:"status"`
	Notes        string           `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Student UserProfile `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}
