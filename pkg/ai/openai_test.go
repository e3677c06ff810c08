package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGradeReplyStructured(t *testing.T) {
	result, err := ParseGradeReply(`{"score": 85, "feedback": "Çox yaxşı cavab."}`, 100)
	require.NoError(t, err)
	require.Equal(t, 85, result.Score)
	require.Equal(t, "Çox yaxşı cavab.", result.Feedback)
	require.False(t, result.Fallback)
}

func TestParseGradeReplyClampsAboveMax(t *testing.T) {
	result, err := ParseGradeReply(`{"score": 120, "feedback": "ok"}`, 50)
	require.NoError(t, err)
	require.Equal(t, 50, result.Score)
	require.False(t, result.Fallback)
}

func TestParseGradeReplyFallbackExtraction(t *testing.T) {
	result, err := ParseGradeReply("The answer deserves 42 out of 100 points.", 100)
	require.NoError(t, err)
	require.Equal(t, 42, result.Score)
	require.True(t, result.Fallback)
	require.Equal(t, "The answer deserves 42 out of 100 points.", result.Feedback)
}

func TestParseGradeReplyFallbackClampsNegative(t *testing.T) {
	result, err := ParseGradeReply("score: -3, very weak", 100)
	require.NoError(t, err)
	require.Equal(t, 0, result.Score)
	require.True(t, result.Fallback)
}

func TestParseGradeReplyInvalidSchemaFallsBack(t *testing.T) {
	// Feedback missing, so the schema rejects the object; the fallback
	// extractor still recovers a score from the text.
	result, err := ParseGradeReply(`{"score": 70}`, 100)
	require.NoError(t, err)
	require.Equal(t, 70, result.Score)
	require.True(t, result.Fallback)
}

func TestParseGradeReplyNoScore(t *testing.T) {
	_, err := ParseGradeReply("I cannot grade this submission.", 100)
	require.Error(t, err)
}

func TestParseGradeReplyEmpty(t *testing.T) {
	_, err := ParseGradeReply("", 100)
	require.Error(t, err)
}
