package dto

// AutoGradeRequest configures one auto-grading batch run.
type AutoGradeRequest struct {
	BatchSize *int `json:"batch_size" validate:"omitempty,gte=0,lte=50"`
}

// AutoGradeSummary reports the outcome of a batch so an operator can see
// partial progress; it is returned even when some jobs failed.
type AutoGradeSummary struct {
	Processed        int `json:"processed"`
	Graded           int `json:"graded"`
	FlaggedForReview int `json:"flagged_for_review"`
	Failed           int `json:"failed"`
}

// GradeHealthResponse reports connectivity to the completion service.
type GradeHealthResponse struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
}

// GradeTestTier is one canned reference answer graded by the regression
// probe.
type GradeTestTier struct {
	Tier     string `json:"tier"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// GradeTestResponse reports whether the relative ordering of the reference
// tiers held, guarding against prompt or parsing drift.
type GradeTestResponse struct {
	Passed bool            `json:"passed"`
	Model  string          `json:"model"`
	Tiers  []GradeTestTier `json:"tiers"`
}

// ManualGradeRequest carries an admin's direct grade for a submission.
type ManualGradeRequest struct {
	Points   *int   `json:"points" validate:"required,gte=0"`
	Feedback string `json:"feedback" validate:"omitempty,min=3"`
}

// ReviewOverrideRequest carries corrected values for a flagged submission.
type ReviewOverrideRequest struct {
	Points   *int   `json:"points" validate:"required,gte=0"`
	Feedback string `json:"feedback" validate:"omitempty,min=3"`
}
