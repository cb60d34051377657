package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-quality/internal/models"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLoop(store Store) *Loop {
	return NewLoop(nil, store, Options{Now: func() time.Time { return fixedNow }})
}

func repeat(n int, dim models.Dimension, action string, outcome models.Outcome) []models.Feedback {
	out := make([]models.Feedback, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Feedback{
			Timestamp: fixedNow.Add(-time.Duration(i+1) * time.Hour),
			Dimension: dim,
			Action:    action,
			Outcome:   outcome,
			Impact:    5,
		})
	}
	return out
}

func TestScaleSuccessOpportunity(t *testing.T) {
	var feedback []models.Feedback
	feedback = append(feedback, repeat(4, models.DimensionPerformance, "automated_fix", models.OutcomeSuccess)...)
	feedback = append(feedback, repeat(2, models.DimensionCode, "refactor", models.OutcomeSuccess)...)
	feedback = append(feedback, repeat(2, models.DimensionSecurity, "patch", models.OutcomeFailure)...)
	feedback = append(feedback, repeat(1, models.DimensionPerformance, "automated_fix", models.OutcomeFailure)...)
	feedback = append(feedback, repeat(1, models.DimensionTesting, "add_tests", models.OutcomePartial)...)
	require.Len(t, feedback, 10)

	res, err := newTestLoop(nil).Learn(context.Background(), feedback)
	require.NoError(t, err)

	require.Len(t, res.SuccessOpportunities, 1)
	op := res.SuccessOpportunities[0]
	assert.Equal(t, models.DimensionPerformance, op.Dimension)
	assert.Equal(t, "automated_fix", op.Action)
	assert.Equal(t, 4, op.Frequency)
	assert.Greater(t, op.Confidence, 0.0)
	assert.InDelta(t, 0.4, op.Confidence, 1e-9)

	assert.Empty(t, res.FailureOpportunities)
	require.Len(t, res.Patterns, 1)
	assert.Equal(t, "pattern-performance-automated_fix-success", res.Patterns[0].ID)
	assert.Equal(t, 10, res.Considered)
	assert.Contains(t, res.NextFocus, "extend automated_fix across performance")
}

func TestPatternsSplitByOutcome(t *testing.T) {
	var feedback []models.Feedback
	feedback = append(feedback, repeat(4, models.DimensionSecurity, "patch", models.OutcomeSuccess)...)
	feedback = append(feedback, repeat(4, models.DimensionSecurity, "patch", models.OutcomeFailure)...)

	res, err := newTestLoop(nil).Learn(context.Background(), feedback)
	require.NoError(t, err)

	require.Len(t, res.Patterns, 2)
	ids := []string{res.Patterns[0].ID, res.Patterns[1].ID}
	assert.ElementsMatch(t, []string{"pattern-security-patch-success", "pattern-security-patch-failure"}, ids)
	for _, p := range res.Patterns {
		assert.Equal(t, 4, p.Frequency, p.ID)
	}
}

func TestFailureOpportunityBoundary(t *testing.T) {
	res, err := newTestLoop(nil).Learn(context.Background(), repeat(3, models.DimensionSecurity, "patch", models.OutcomeFailure))
	require.NoError(t, err)
	assert.Empty(t, res.FailureOpportunities, "frequency 3 must not qualify")
	assert.Empty(t, res.Patterns)

	res, err = newTestLoop(nil).Learn(context.Background(), repeat(4, models.DimensionSecurity, "patch", models.OutcomeFailure))
	require.NoError(t, err)
	require.Len(t, res.FailureOpportunities, 1, "frequency 4 qualifies")
	assert.Equal(t, OpportunityAddressFailure, res.FailureOpportunities[0].Kind)
	assert.InDelta(t, 1.0, res.FailureOpportunities[0].Confidence, 1e-9)
	assert.Equal(t, []string{"stabilise security: patch keeps failing"}, res.NextFocus)
}

func TestSuccessOpportunityBoundary(t *testing.T) {
	res, err := newTestLoop(nil).Learn(context.Background(), repeat(2, models.DimensionCode, "lint", models.OutcomeSuccess))
	require.NoError(t, err)
	assert.Empty(t, res.SuccessOpportunities)

	res, err = newTestLoop(nil).Learn(context.Background(), repeat(3, models.DimensionCode, "lint", models.OutcomeSuccess))
	require.NoError(t, err)
	assert.Len(t, res.SuccessOpportunities, 1)
	assert.Empty(t, res.Patterns, "frequency 3 is an opportunity but not a pattern")
}

func TestWindowDiscardsStaleAndFutureFeedback(t *testing.T) {
	feedback := repeat(4, models.DimensionCode, "lint", models.OutcomeFailure)
	feedback[0].Timestamp = fixedNow.Add(-31 * 24 * time.Hour)
	feedback[1].Timestamp = fixedNow.Add(time.Hour)

	res, err := newTestLoop(nil).Learn(context.Background(), feedback)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Considered)
	assert.Equal(t, 2, res.Discarded)
	assert.Empty(t, res.FailureOpportunities)
}

func TestAccuracyAdjustmentsAreBounded(t *testing.T) {
	loop := newTestLoop(nil)
	before := loop.Accuracy()

	res, err := loop.Learn(context.Background(), repeat(20, models.DimensionCode, "lint", models.OutcomeSuccess))
	require.NoError(t, err)
	require.Len(t, res.Adjustments, 3)
	for _, adj := range res.Adjustments {
		assert.InDelta(t, 0.05, adj.Delta(), 1e-9, "%s", adj.Engine)
		assert.InDelta(t, before[adj.Engine]+0.05, loop.Accuracy()[adj.Engine], 1e-9)
	}

	res, err = loop.Learn(context.Background(), repeat(5, models.DimensionCode, "lint", models.OutcomeFailure))
	require.NoError(t, err)
	for _, adj := range res.Adjustments {
		assert.InDelta(t, -0.05, adj.Delta(), 1e-9, "%s", adj.Engine)
	}

	for i := 0; i < 30; i++ {
		_, err = loop.Learn(context.Background(), repeat(20, models.DimensionCode, "lint", models.OutcomeFailure))
		require.NoError(t, err)
	}
	for engine, acc := range loop.Accuracy() {
		assert.GreaterOrEqual(t, acc, minAccuracy, "%s", engine)
	}
}

func TestProcessRecommendations(t *testing.T) {
	var feedback []models.Feedback
	feedback = append(feedback, repeat(2, models.DimensionSecurity, "patch", models.OutcomeFailure)...)
	feedback = append(feedback, repeat(1, models.DimensionSecurity, "patch", models.OutcomeSuccess)...)
	feedback = append(feedback, repeat(3, models.DimensionCode, "lint", models.OutcomeSuccess)...)

	res, err := newTestLoop(nil).Learn(context.Background(), feedback)
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	rec := res.Recommendations[0]
	assert.Equal(t, "security/patch", rec.Process)
	assert.InDelta(t, 1.0/3.0, rec.CurrentEfficiency, 1e-9)
	assert.Greater(t, rec.ProposedEfficiency, rec.CurrentEfficiency)
	assert.NotEmpty(t, rec.Steps)
}

func TestPatternsStoredAndLessonsRanked(t *testing.T) {
	var stored []models.LearnedPattern
	store := StoreFunc(func(ctx context.Context, patterns []models.LearnedPattern) error {
		stored = append(stored, patterns...)
		return nil
	})
	feedback := repeat(4, models.DimensionPerformance, "cache_warmup", models.OutcomeSuccess)
	feedback[0].Lessons = []string{"warm before deploy", "watch memory"}
	feedback[1].Lessons = []string{"warm before deploy"}

	res, err := newTestLoop(store).Learn(context.Background(), feedback)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Patterns, stored)
	assert.Equal(t, []string{"warm before deploy", "watch memory"}, stored[0].Lessons)
	assert.Equal(t, fixedNow.Add(-time.Hour), stored[0].LastSeen)
}

func TestStoreErrorDoesNotFailPass(t *testing.T) {
	store := StoreFunc(func(ctx context.Context, patterns []models.LearnedPattern) error {
		return errors.New("unavailable")
	})
	res, err := newTestLoop(store).Learn(context.Background(), repeat(4, models.DimensionCode, "lint", models.OutcomeSuccess))
	require.NoError(t, err)
	assert.Len(t, res.Patterns, 1)
}

func TestLearnHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestLoop(nil).Learn(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
