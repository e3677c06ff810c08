package dto

// SubmissionStats summarizes a student's grading progress.
type SubmissionStats struct {
	Total          int     `json:"total"`
	Graded         int     `json:"graded"`
	PendingReview  int     `json:"pending_review"`
	AwaitingGrade  int     `json:"awaiting_grade"`
	AveragePercent float64 `json:"average_percent"`
}

// StudentDashboardResponse is the cached per-student summary.
type StudentDashboardResponse struct {
	StudentID         uint            `json:"student_id"`
	Submissions       SubmissionStats `json:"submissions"`
	AttendancePercent float64         `json:"attendance_percent"`
	LessonsAttended   int             `json:"lessons_attended"`
	LessonsTotal      int             `json:"lessons_total"`
}
