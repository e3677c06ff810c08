package dto

import (
	"time"

	"github.com/tedris-app/tedris-api/internal/models"
)

// EnrollRequest links a student to a class.
type EnrollRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	StudyMode string `json:"study_mode" validate:"required,oneof=offline online self_study"`
}

// BlacklistRequest toggles the blacklist flag on an enrollment. The
// enrollment row itself is preserved.
type BlacklistRequest struct {
	Blacklisted *bool `json:"blacklisted" validate:"required"`
}

// EnrollmentResponse serializes a class enrollment.
type EnrollmentResponse struct {
	ID          uint        `json:"id"`
	ClassID     uint        `json:"class_id"`
	StudentID   uint        `json:"student_id"`
	StudyMode   string      `json:"study_mode"`
	Blacklisted bool        `json:"blacklisted"`
	EnrolledAt  time.Time   `json:"enrolled_at"`
	Student     StudentLite `json:"student"`
}

// NewEnrollmentResponse converts an enrollment model into a DTO.
func NewEnrollmentResponse(model models.ClassEnrollment) EnrollmentResponse {
	response := EnrollmentResponse{
		ID:          model.ID,
		ClassID:     model.ClassID,
		StudentID:   model.StudentID,
		StudyMode:   string(model.StudyMode),
		Blacklisted: model.Blacklisted,
		EnrolledAt:  model.EnrolledAt,
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewEnrollmentResponseSlice converts enrollment models into DTOs.
func NewEnrollmentResponseSlice(enrollments []models.ClassEnrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}

	return responses
}
