package dto

import (
	"time"

	"github.com/tedris-app/tedris-api/internal/models"
)

// ApplicationSubmitRequest carries the registration form. The web client
// collects it over several steps; the API receives the merged payload.
type ApplicationSubmitRequest struct {
	FullName   string `json:"full_name" validate:"required,min=3,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=7,max=32"`
	CourseID   *uint  `json:"course_id" validate:"omitempty,gt=0"`
	ClassID    *uint  `json:"class_id" validate:"omitempty,gt=0"`
	StudyMode  string `json:"study_mode" validate:"required,oneof=offline online self_study"`
	Motivation string `json:"motivation" validate:"omitempty,max=2000"`
}

// ApplicationDecisionRequest records an admin's decision on an application.
type ApplicationDecisionRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// ApplicationResponse serializes an application.
type ApplicationResponse struct {
	ID         uint       `json:"id"`
	Reference  string     `json:"reference"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	CourseID   *uint      `json:"course_id"`
	ClassID    *uint      `json:"class_id"`
	StudyMode  string     `json:"study_mode"`
	Motivation string     `json:"motivation"`
	Status     string     `json:"status"`
	DecidedBy  *uint      `json:"decided_by"`
	DecidedAt  *time.Time `json:"decided_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewApplicationResponse converts an application model into a DTO.
func NewApplicationResponse(model models.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:         model.ID,
		Reference:  model.Reference,
		FullName:   model.FullName,
		Email:      model.Email,
		Phone:      model.Phone,
		CourseID:   model.CourseID,
		ClassID:    model.ClassID,
		StudyMode:  string(model.StudyMode),
		Motivation: model.Motivation,
		Status:     model.Status,
		DecidedBy:  model.DecidedBy,
		DecidedAt:  model.DecidedAt,
		CreatedAt:  model.CreatedAt,
	}
}

// NewApplicationResponseSlice converts application models into DTOs.
func NewApplicationResponseSlice(applications []models.Application) []ApplicationResponse {
	responses := make([]ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		responses = append(responses, NewApplicationResponse(application))
	}

	return responses
}
