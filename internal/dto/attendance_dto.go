package dto

import (
	"time"

	"github.com/tedris-app/tedris-api/internal/models"
)

// AttendanceEntry marks one student within a lesson sheet.
type AttendanceEntry struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required,oneof=present absent excused"`
	Notes     string `json:"notes"`
}

// AttendanceMarkRequest upserts the attendance sheet for one lesson.
type AttendanceMarkRequest struct {
	LessonDate   time.Time         `json:"lesson_date" validate:"required"`
	LessonNumber int               `json:"lesson_number" validate:"required,gt=0"`
	Entries      []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceRecordResponse serializes a single attendance row.
type AttendanceRecordResponse struct {
	ID           uint      `json:"id"`
	ClassID      uint      `json:"class_id"`
	StudentID    uint      `json:"student_id"`
	StudentName  string    `json:"student_name"`
	LessonDate   time.Time `json:"lesson_date"`
	LessonNumber int       `json:"lesson_number"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
}

// LessonRollup aggregates one lesson's attendance counts. It is recomputed
// from raw rows on every read.
type LessonRollup struct {
	LessonDate     time.Time `json:"lesson_date"`
	LessonNumber   int       `json:"lesson_number"`
	Present        int       `json:"present"`
	Absent         int       `json:"absent"`
	Excused        int       `json:"excused"`
	Total          int       `json:"total"`
	PercentPresent float64   `json:"percent_present"`
}

// StudentRollup aggregates one student's attendance across all lessons.
type StudentRollup struct {
	StudentID      uint    `json:"student_id"`
	StudentName    string  `json:"student_name"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Excused        int     `json:"excused"`
	Total          int     `json:"total"`
	PercentPresent float64 `json:"percent_present"`
}

// NewAttendanceRecordResponse converts an attendance row into a DTO.
func NewAttendanceRecordResponse(model models.AttendanceRecord) AttendanceRecordResponse {
	return AttendanceRecordResponse{
		ID:           model.ID,
		ClassID:      model.ClassID,
		StudentID:    model.StudentID,
		StudentName:  model.Student.Name,
		LessonDate:   model.LessonDate,
		LessonNumber: model.LessonNumber,
		Status:       string(model.Status),
		Notes:        model.Notes,
	}
}

// NewAttendanceRecordResponseSlice converts attendance rows into DTOs.
func NewAttendanceRecordResponseSlice(records []models.AttendanceRecord) []AttendanceRecordResponse {
	responses := make([]AttendanceRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewAttendanceRecordResponse(record))
	}

	return responses
}
