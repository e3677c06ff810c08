package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// GradeEvent is broadcast when a submission reaches its terminal state.
type GradeEvent struct {
	SubmissionID uint      `json:"submission_id"`
	TaskID       uint      `json:"task_id"`
	StudentID    uint      `json:"student_id"`
	Points       int       `json:"points"`
	MaxScore     int       `json:"max_score"`
	AutoGraded   bool      `json:"auto_graded"`
	GradedAt     time.Time `json:"graded_at"`
}

// GradeNotifier publishes grade events for downstream consumers.
type GradeNotifier interface {
	GradeFinalized(event GradeEvent)
}

type natsNotifier struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSNotifier builds a notifier backed by a NATS subject. Publishing is
// best effort: failures are logged, never propagated to the grading write.
func NewNATSNotifier(conn *nats.Conn, subject string, logger zerolog.Logger) GradeNotifier {
	return &natsNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "grade_notifier").Logger(),
	}
}

func (n *natsNotifier) GradeFinalized(event GradeEvent) {
	if n.conn == nil || n.subject == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to encode grade event")
		return
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		n.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish grade event")
	}
}
