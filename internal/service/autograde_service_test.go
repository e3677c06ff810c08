package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tedris-app/tedris-api/internal/models"
	"github.com/tedris-app/tedris-api/internal/repository"
	"github.com/tedris-app/tedris-api/pkg/ai"
)

// fakeGrader grades by submission content: results are keyed by the answer
// text so each job in a batch can behave differently.
type fakeGrader struct {
	results  map[string]ai.GradeResult
	errs     map[string]error
	probeErr error
	calls    int
}

func (f *fakeGrader) Grade(_ context.Context, input ai.GradeInput) (ai.GradeResult, error) {
	f.calls++
	if err, ok := f.errs[input.Content]; ok {
		return ai.GradeResult{}, err
	}
	return f.results[input.Content], nil
}

func (f *fakeGrader) Model() string { return "fake-model" }

func (f *fakeGrader) Probe(context.Context) error { return f.probeErr }

type stubNotifier struct {
	events []GradeEvent
}

func (s *stubNotifier) GradeFinalized(event GradeEvent) {
	s.events = append(s.events, event)
}

type stubInvalidator struct {
	studentIDs []uint
}

func (s *stubInvalidator) Invalidate(_ context.Context, studentID uint) {
	s.studentIDs = append(s.studentIDs, studentID)
}

func setupAutoGradeDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:autograde_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.Task{}, &models.Submission{}))

	return db
}

func seedPendingSubmission(t *testing.T, db *gorm.DB, task models.Task, student models.UserProfile, content string) models.Submission {
	t.Helper()

	submission := models.Submission{
		TaskID:      task.ID,
		StudentID:   student.ID,
		Content:     content,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestAutoGradeRunBatchTriage(t *testing.T) {
	db := setupAutoGradeDB(t)

	task := models.Task{Title: "Essay", Instructions: "Write about Baku.", MaxScore: 100, Published: true}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Aysel", Email: "aysel@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	good := seedPendingSubmission(t, db, task, student, "strong answer")
	weak := seedPendingSubmission(t, db, task, student, "weak answer")
	fallback := seedPendingSubmission(t, db, task, student, "messy answer")

	grader := &fakeGrader{
		results: map[string]ai.GradeResult{
			"strong answer": {Score: 90, Feedback: "Əla cavab."},
			"weak answer":   {Score: 20, Feedback: "Zəif cavab."},
			"messy answer":  {Score: 75, Feedback: "75", Fallback: true},
		},
	}
	notifier := &stubNotifier{}
	repo := repository.NewGradingRepository(db)
	svc := NewAutoGradeService(repo, grader, notifier, nil, nil, zerolog.Nop(), AutoGradeConfig{
		BatchSize:          10,
		JobTimeout:         time.Second,
		ReviewThresholdPct: 40,
	})

	summary, err := svc.RunBatch(context.Background(), -1)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, 1, summary.Graded)
	require.Equal(t, 2, summary.FlaggedForReview)
	require.Equal(t, 0, summary.Failed)

	var graded models.Submission
	require.NoError(t, db.First(&graded, good.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
	require.NotNil(t, graded.Points)
	require.Equal(t, 90, *graded.Points)
	require.NotNil(t, graded.AIScore)
	require.Equal(t, 90, *graded.AIScore)
	require.NotNil(t, graded.GradedAt)
	require.Nil(t, graded.GradedBy)
	require.False(t, graded.NeedsReview)

	var flagged models.Submission
	require.NoError(t, db.First(&flagged, weak.ID).Error)
	require.Equal(t, models.SubmissionStatusPendingReview, flagged.Status)
	require.True(t, flagged.NeedsReview)
	require.Nil(t, flagged.Points)
	require.NotNil(t, flagged.AIScore)
	require.Equal(t, 20, *flagged.AIScore)

	var recovered models.Submission
	require.NoError(t, db.First(&recovered, fallback.ID).Error)
	require.Equal(t, models.SubmissionStatusPendingReview, recovered.Status)
	require.True(t, recovered.NeedsReview)

	// Only the auto-accepted grade gets broadcast.
	require.Len(t, notifier.events, 1)
	require.Equal(t, good.ID, notifier.events[0].SubmissionID)
	require.True(t, notifier.events[0].AutoGraded)
}

func TestAutoGradeRunBatchFaultIsolation(t *testing.T) {
	db := setupAutoGradeDB(t)

	task := models.Task{Title: "Quiz", Instructions: "Answer.", MaxScore: 100, Published: true}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Murad", Email: "murad@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	broken := seedPendingSubmission(t, db, task, student, "times out")
	fine := seedPendingSubmission(t, db, task, student, "works")

	grader := &fakeGrader{
		results: map[string]ai.GradeResult{"works": {Score: 80, Feedback: "Yaxşı."}},
		errs:    map[string]error{"times out": errors.New("completion timeout")},
	}
	repo := repository.NewGradingRepository(db)
	svc := NewAutoGradeService(repo, grader, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{
		BatchSize:          5,
		JobTimeout:         time.Second,
		ReviewThresholdPct: 40,
	})

	summary, err := svc.RunBatch(context.Background(), -1)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Graded)
	require.Equal(t, 1, summary.Failed)

	// The failed job wrote nothing: the submission stays pending for a
	// later batch.
	var untouched models.Submission
	require.NoError(t, db.First(&untouched, broken.ID).Error)
	require.Equal(t, models.SubmissionStatusSubmitted, untouched.Status)
	require.Nil(t, untouched.AIScore)
	require.Nil(t, untouched.AutoGradedAt)

	var graded models.Submission
	require.NoError(t, db.First(&graded, fine.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
}

func TestAutoGradeRunBatchEmpty(t *testing.T) {
	db := setupAutoGradeDB(t)

	repo := repository.NewGradingRepository(db)
	grader := &fakeGrader{}
	svc := NewAutoGradeService(repo, grader, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{
		BatchSize:          3,
		JobTimeout:         time.Second,
		ReviewThresholdPct: 40,
	})

	summary, err := svc.RunBatch(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 0, grader.calls)
}

func TestAutoGradeRunBatchRespectsLimit(t *testing.T) {
	db := setupAutoGradeDB(t)

	task := models.Task{Title: "Drill", Instructions: "Solve.", MaxScore: 10, Published: true}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Leyla", Email: "leyla@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	for i := 0; i < 5; i++ {
		seedPendingSubmission(t, db, task, student, fmt.Sprintf("answer %d", i))
	}

	grader := &fakeGrader{results: map[string]ai.GradeResult{}}
	repo := repository.NewGradingRepository(db)
	svc := NewAutoGradeService(repo, grader, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{
		BatchSize:          3,
		JobTimeout:         time.Second,
		ReviewThresholdPct: 40,
	})

	summary, err := svc.RunBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 2, grader.calls)
}

func TestAutoGradeHealth(t *testing.T) {
	db := setupAutoGradeDB(t)
	repo := repository.NewGradingRepository(db)

	healthy := NewAutoGradeService(repo, &fakeGrader{}, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{JobTimeout: time.Second})
	health, err := healthy.Health(context.Background())
	require.NoError(t, err)
	require.True(t, health.Success)
	require.Equal(t, "fake-model", health.Model)

	unhealthy := NewAutoGradeService(repo, &fakeGrader{probeErr: errors.New("dial refused")}, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{JobTimeout: time.Second})
	health, err = unhealthy.Health(context.Background())
	require.NoError(t, err)
	require.False(t, health.Success)
}

func TestAutoGradeNilGrader(t *testing.T) {
	db := setupAutoGradeDB(t)
	repo := repository.NewGradingRepository(db)
	svc := NewAutoGradeService(repo, nil, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{})

	_, err := svc.RunBatch(context.Background(), -1)
	require.ErrorIs(t, err, ErrGraderUnavailable)

	_, err = svc.Health(context.Background())
	require.ErrorIs(t, err, ErrGraderUnavailable)
}

func TestNeedsReviewPredicate(t *testing.T) {
	require.True(t, needsReview(ai.GradeResult{Score: 95, Fallback: true}, 100, 40))
	require.True(t, needsReview(ai.GradeResult{Score: 39}, 100, 40))
	require.False(t, needsReview(ai.GradeResult{Score: 40}, 100, 40))
	require.False(t, needsReview(ai.GradeResult{Score: 90}, 100, 40))
	// Threshold scales with the task maximum.
	require.True(t, needsReview(ai.GradeResult{Score: 3}, 10, 40))
	require.False(t, needsReview(ai.GradeResult{Score: 4}, 10, 40))
}

func TestAutoGradeSelfTestOrdering(t *testing.T) {
	db := setupAutoGradeDB(t)
	repo := repository.NewGradingRepository(db)

	monotone := &fakeGrader{results: map[string]ai.GradeResult{}}
	// SelfTest grades canned answers; an empty result map yields identical
	// zero scores, which still counts as non-increasing.
	svc := NewAutoGradeService(repo, monotone, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{JobTimeout: time.Second})

	result, err := svc.SelfTest(context.Background())
	require.NoError(t, err)
	require.True(t, result.Passed)
	require.Len(t, result.Tiers, 3)
	require.Equal(t, "excellent", result.Tiers[0].Tier)
	require.Equal(t, "fake-model", result.Model)
}

func TestAutoGradeRunBatchSkipsUnpublishedTasks(t *testing.T) {
	db := setupAutoGradeDB(t)

	draft := models.Task{Title: "Draft", Instructions: "Sketch.", MaxScore: 100}
	require.NoError(t, db.Create(&draft).Error)
	live := models.Task{Title: "Live", Instructions: "Answer.", MaxScore: 100, Published: true}
	require.NoError(t, db.Create(&live).Error)
	student := models.UserProfile{Name: "Aysel", Email: "aysel.draft@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	hidden := seedPendingSubmission(t, db, draft, student, "draft answer")
	seedPendingSubmission(t, db, live, student, "live answer")

	grader := &fakeGrader{
		results: map[string]ai.GradeResult{
			"live answer": {Score: 80, Feedback: "Yaxşı."},
		},
	}
	repo := repository.NewGradingRepository(db)
	svc := NewAutoGradeService(repo, grader, nil, nil, nil, zerolog.Nop(), AutoGradeConfig{
		BatchSize:  10,
		JobTimeout: time.Second,
	})

	summary, err := svc.RunBatch(context.Background(), -1)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, grader.calls)

	var untouched models.Submission
	require.NoError(t, db.First(&untouched, hidden.ID).Error)
	require.Equal(t, models.SubmissionStatusSubmitted, untouched.Status)
	require.Nil(t, untouched.AIScore)
}

func TestAutoGradeRunBatchInvalidatesDashboards(t *testing.T) {
	db := setupAutoGradeDB(t)

	task := models.Task{Title: "Essay", Instructions: "Write.", MaxScore: 100, Published: true}
	require.NoError(t, db.Create(&task).Error)
	student := models.UserProfile{Name: "Murad", Email: "murad.cache@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	seedPendingSubmission(t, db, task, student, "strong answer")
	seedPendingSubmission(t, db, task, student, "weak answer")

	grader := &fakeGrader{
		results: map[string]ai.GradeResult{
			"strong answer": {Score: 90, Feedback: "Əla."},
			"weak answer":   {Score: 10, Feedback: "Zəif."},
		},
	}
	invalidator := &stubInvalidator{}
	repo := repository.NewGradingRepository(db)
	svc := NewAutoGradeService(repo, grader, nil, nil, invalidator, zerolog.Nop(), AutoGradeConfig{
		BatchSize:          10,
		JobTimeout:         time.Second,
		ReviewThresholdPct: 40,
	})

	_, err := svc.RunBatch(context.Background(), -1)
	require.NoError(t, err)

	// Auto-accepted and flagged rows both change the student's counters.
	require.Equal(t, []uint{student.ID, student.ID}, invalidator.studentIDs)
}
