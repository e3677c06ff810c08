package dto

import (
	"time"

	"github.com/tedris-app/tedris-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description"`
	Published   bool   `json:"published"`
}

// ModuleCreateRequest adds a module to a course.
type ModuleCreateRequest struct {
	Title    string `json:"title" validate:"required,min=3,max=255"`
	Position int    `json:"position" validate:"gte=0"`
}

// TopicCreateRequest adds a topic to a module.
type TopicCreateRequest struct {
	Title     string `json:"title" validate:"required,min=3,max=255"`
	Content   string `json:"content"`
	Position  int    `json:"position" validate:"gte=0"`
	Published bool   `json:"published"`
}

// TopicResponse serializes a topic.
type TopicResponse struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Position  int    `json:"position"`
	Published bool   `json:"published"`
}

// ModuleResponse serializes a module with its topics.
type ModuleResponse struct {
	ID       uint            `json:"id"`
	Title    string          `json:"title"`
	Position int             `json:"position"`
	Topics   []TopicResponse `json:"topics"`
}

// CourseResponse serializes a course with its full module/topic tree.
type CourseResponse struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Published   bool             `json:"published"`
	Modules     []ModuleResponse `json:"modules"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewCourseResponse converts a course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	modules := make([]ModuleResponse, 0, len(model.Modules))
	for _, module := range model.Modules {
		topics := make([]TopicResponse, 0, len(module.Topics))
		for _, topic := range module.Topics {
			topics = append(topics, TopicResponse{
				ID:        topic.ID,
				Title:     topic.Title,
				Content:   topic.Content,
				Position:  topic.Position,
				Published: topic.Published,
			})
		}
		modules = append(modules, ModuleResponse{
			ID:       module.ID,
			Title:    module.Title,
			Position: module.Position,
			Topics:   topics,
		})
	}

	return CourseResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Published:   model.Published,
		Modules:     modules,
		CreatedAt:   model.CreatedAt,
	}
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}
