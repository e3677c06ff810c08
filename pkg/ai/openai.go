package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tedris",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tedris",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model"})

	aiFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tedris",
		Subsystem: "ai",
		Name:      "grading_fallback_parses_total",
		Help:      "Number of replies recovered by the fallback score extractor",
	}, []string{"model"})
)

const gradeReplySchema = `{
	"type": "object",
	"required": ["score", "feedback"],
	"properties": {
		"score": {"type": "integer", "minimum": 0},
		"feedback": {"type": "string", "minLength": 1}
	}
}`

var gradeSchema = jsonschema.MustCompileString("grade_reply.json", gradeReplySchema)

var scorePattern = regexp.MustCompile(`-?\d+`)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGrader{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/tedris-app/tedris-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Model reports the configured completion model identifier.
func (g *OpenAIGrader) Model() string {
	return g.cfg.Model
}

// Probe verifies connectivity to the completion service.
func (g *OpenAIGrader) Probe(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai probe: %w", err)
	}
	return nil
}

// Grade sends the grading request to OpenAI and parses the reply.
func (g *OpenAIGrader) Grade(parent context.Context, input GradeInput) (GradeResult, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("grade.max_score", input.MaxScore),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(input.MaxScore),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildGradePrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradeResult{}, fmt.Errorf("openai grade: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradeResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := ParseGradeReply(content, input.MaxScore)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradeResult{}, err
	}

	if result.Fallback {
		aiFallbacks.WithLabelValues(g.cfg.Model).Inc()
		g.logger.Warn().Str("model", g.cfg.Model).Msg("grade reply recovered via fallback extraction")
	}

	span.SetAttributes(
		attribute.Int("grade.score", result.Score),
		attribute.Bool("grade.fallback", result.Fallback),
	)

	return result, nil
}

// ParseGradeReply extracts a score and feedback from a model reply. The reply
// is validated against a JSON schema first; when validation fails the first
// integer found in the text becomes the score and the raw text the feedback.
func ParseGradeReply(content string, maxScore int) (GradeResult, error) {
	if maxScore <= 0 {
		maxScore = 100
	}

	if result, ok := parseStructuredReply(content, maxScore); ok {
		return result, nil
	}

	match := scorePattern.FindString(content)
	if match == "" || strings.TrimSpace(content) == "" {
		return GradeResult{}, fmt.Errorf("no extractable score in reply")
	}

	score, err := strconv.Atoi(match)
	if err != nil {
		return GradeResult{}, fmt.Errorf("parse fallback score: %w", err)
	}

	return GradeResult{
		Score:    clampScore(score, maxScore),
		Feedback: strings.TrimSpace(content),
		Fallback: true,
		Raw:      content,
	}, nil
}

func parseStructuredReply(content string, maxScore int) (GradeResult, bool) {
	var generic interface{}
	if err := json.Unmarshal([]byte(content), &generic); err != nil {
		return GradeResult{}, false
	}

	if err := gradeSchema.Validate(generic); err != nil {
		return GradeResult{}, false
	}

	var payload struct {
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return GradeResult{}, false
	}

	return GradeResult{
		Score:    clampScore(payload.Score, maxScore),
		Feedback: strings.TrimSpace(payload.Feedback),
		Raw:      content,
	}, true
}

func clampScore(score, maxScore int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func graderSystemPrompt(maxScore int) string {
	return fmt.Sprintf("You are a strict but fair teacher grading a student's answer to an assignment. "+
		"Respond with a JSON object containing \"score\" (an integer between 0 and %d) and \"feedback\" "+
		"(a short narrative for the student, written in Azerbaijani). Judge only the submitted answer "+
		"against the task instructions.", maxScore)
}

func buildGradePrompt(input GradeInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Task\n")
	builder.WriteString(input.TaskTitle)
	builder.WriteString("\n\n## Instructions\n")
	builder.WriteString(input.Instructions)
	builder.WriteString(fmt.Sprintf("\n\n## Maximum score\n%d", input.MaxScore))
	builder.WriteString("\n\n## Student\n")
	builder.WriteString(input.StudentName)
	builder.WriteString("\n\n## Answer\n")
	builder.WriteString(input.Content)
	if input.AttachmentURL != "" {
		builder.WriteString("\n\n## Attached file\n")
		builder.WriteString(input.AttachmentURL)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}
