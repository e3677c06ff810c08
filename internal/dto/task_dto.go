package dto

import (
	"time"

	"github.com/tedris-app/tedris-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a task.
type TaskCreateRequest struct {
	Title        string     `json:"title" validate:"required,min=3,max=255"`
	Instructions string     `json:"instructions" validate:"required,min=3"`
	Content      string     `json:"content"`
	MaxScore     int        `json:"max_score" validate:"required,gt=0"`
	DueDate      *time.Time `json:"due_date"`
	Published    bool       `json:"published"`
	TopicID      *uint      `json:"topic_id" validate:"omitempty,gt=0"`
}

// TaskUpdateRequest describes a partial task update.
type TaskUpdateRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Instructions *string    `json:"instructions" validate:"omitempty,min=3"`
	Content      *string    `json:"content"`
	MaxScore     *int       `json:"max_score" validate:"omitempty,gt=0"`
	DueDate      *time.Time `json:"due_date"`
	Published    *bool      `json:"published"`
	TopicID      *uint      `json:"topic_id" validate:"omitempty,gt=0"`
}

// TaskResponse is returned to API clients when viewing tasks.
type TaskResponse struct {
	ID           uint                `json:"id"`
	Title        string              `json:"title"`
	Instructions string              `json:"instructions"`
	Content      string              `json:"content"`
	MaxScore     int                 `json:"max_score"`
	DueDate      *time.Time          `json:"due_date"`
	Attachments  []models.Attachment `json:"attachments"`
	Published    bool                `json:"published"`
	TopicID      *uint               `json:"topic_id"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewTaskResponse converts a Task model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	return TaskResponse{
		ID:           model.ID,
		Title:        model.Title,
		Instructions: model.Instructions,
		Content:      model.Content,
		MaxScore:     model.MaxScore,
		DueDate:      model.DueDate,
		Attachments:  model.Attachments,
		Published:    model.Published,
		TopicID:      model.TopicID,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewTaskResponseSlice converts task models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}

	return responses
}
