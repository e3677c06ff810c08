package ai

import "context"

// GradeInput contains the artefacts needed to grade one submission.
type GradeInput struct {
	TaskTitle     string
	Instructions  string
	MaxScore      int
	StudentName   string
	Content       string
	AttachmentURL string
}

// GradeResult is the parsed outcome of a grading request.
type GradeResult struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	// Fallback is true when the structured reply failed schema validation
	// and the score was recovered by the secondary extraction strategy.
	Fallback bool   `json:"fallback"`
	Raw      string `json:"raw,omitempty"`
}

// Grader describes a model capable of scoring a submission against a task.
type Grader interface {
	Grade(ctx context.Context, input GradeInput) (GradeResult, error)
	Model() string
	Probe(ctx context.Context) error
}
