package dto

import (
	"time"

	"github.com/tedris-app/tedris-api/internal/models"
)

// SubmissionCreateRequest describes the payload for submitting an answer.
// The optional attachment travels as a multipart file next to the fields.
type SubmissionCreateRequest struct {
	TaskID  uint   `form:"task_id" validate:"required,gt=0"`
	Content string `form:"content" validate:"omitempty,min=1"`
}

// SubmissionEditRequest lets a student revise an answer that has not been
// graded yet.
type SubmissionEditRequest struct {
	Content string `json:"content" form:"content" validate:"required,min=1"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	TaskID    *uint   `query:"task_id"`
	StudentID *uint   `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=submitted pending_review graded"`
}

// TaskLite summarizes a task in submission responses.
type TaskLite struct {
	ID       uint       `json:"id"`
	Title    string     `json:"title"`
	MaxScore int        `json:"max_score"`
	DueDate  *time.Time `json:"due_date"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                `json:"id"`
	TaskID       uint                `json:"task_id"`
	StudentID    uint                `json:"student_id"`
	Content      string              `json:"content"`
	Attachments  []models.Attachment `json:"attachments"`
	Status       string              `json:"status"`
	Points       *int                `json:"points"`
	Feedback     string              `json:"feedback"`
	AIScore      *int                `json:"ai_score"`
	NeedsReview  bool                `json:"needs_review"`
	AutoGradedAt *time.Time          `json:"auto_graded_at"`
	GradedAt     *time.Time          `json:"graded_at"`
	GradedBy     *uint               `json:"graded_by"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Task         TaskLite            `json:"task"`
	Student      StudentLite         `json:"student"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		TaskID:       model.TaskID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		Attachments:  model.Attachments,
		Status:       model.Status,
		Points:       model.Points,
		Feedback:     model.Feedback,
		AIScore:      model.AIScore,
		NeedsReview:  model.NeedsReview,
		AutoGradedAt: model.AutoGradedAt,
		GradedAt:     model.GradedAt,
		GradedBy:     model.GradedBy,
		SubmittedAt:  model.SubmittedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Task.ID != 0 {
		response.Task = TaskLite{
			ID:       model.Task.ID,
			Title:    model.Task.Title,
			MaxScore: model.Task.MaxScore,
			DueDate:  model.Task.DueDate,
		}
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

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
