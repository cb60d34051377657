// Package learning turns outcome feedback into learned patterns, tuning
// opportunities and per-engine accuracy.
//
// Patterns are grouped by (dimension, action, outcome), not by (dimension,
// action) alone: a success pattern and a failure pattern for the same action
// are reported as two LearnedPattern values, each with its own frequency
// and average impact. Efficiency across outcomes is tracked per
// (dimension, action) and drives the process recommendations.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

// Engine names a sub-engine whose accuracy the loop tunes.
type Engine string

const (
	EngineForecasting Engine = "forecasting"
	EngineDecision    Engine = "decision"
	EngineRemediation Engine = "remediation"
)

// Engines lists the tuned engines in reporting order.
func Engines() []Engine {
	return []Engine{EngineForecasting, EngineDecision, EngineRemediation}
}

// OpportunityKind distinguishes failure modes from successes worth scaling.
type OpportunityKind string

const (
	OpportunityAddressFailure OpportunityKind = "address_failure"
	OpportunityScaleSuccess   OpportunityKind = "scale_success"
)

// Opportunity is an improvement suggestion mined from a feedback group.
type Opportunity struct {
	Kind        OpportunityKind  `json:"kind"`
	Dimension   models.Dimension `json:"dimension"`
	Action      string           `json:"action"`
	Description string           `json:"description"`
	Frequency   int              `json:"frequency"`
	Confidence  float64          `json:"confidence"`
}

// Adjustment is the change applied to one engine's accuracy score.
type Adjustment struct {
	Engine   Engine  `json:"engine"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

// Delta returns Current - Previous.
func (a Adjustment) Delta() float64 {
	return a.Current - a.Previous
}

// ProcessRecommendation proposes an efficiency improvement for an action.
type ProcessRecommendation struct {
	Process            string   `json:"process"`
	CurrentEfficiency  float64  `json:"current_efficiency"`
	ProposedEfficiency float64  `json:"proposed_efficiency"`
	Steps              []string `json:"steps"`
}

// Result is the output of one learning pass.
type Result struct {
	GeneratedAt          time.Time               `json:"generated_at"`
	Considered           int                     `json:"considered"`
	Discarded            int                     `json:"discarded"`
	Patterns             []models.LearnedPattern `json:"patterns"`
	FailureOpportunities []Opportunity           `json:"failure_opportunities"`
	SuccessOpportunities []Opportunity           `json:"success_opportunities"`
	Adjustments          []Adjustment            `json:"adjustments"`
	Recommendations      []ProcessRecommendation `json:"recommendations"`
	NextFocus            []string                `json:"next_focus"`
}

// Options tunes the loop. Zero values select defaults.
type Options struct {
	// Window bounds how old feedback may be. Default 30 days.
	Window time.Duration
	// PatternThreshold is the frequency a group must exceed to become a
	// pattern and a failure opportunity. Default 3.
	PatternThreshold int
	// SuccessThreshold is the frequency a success group must exceed to
	// become a scale opportunity. Default 2.
	SuccessThreshold int
	// AdjustmentStep is the accuracy change per unit of net evidence. Default 0.01.
	AdjustmentStep float64
	// MaxAdjustment bounds the change applied in one pass. Default 0.05.
	MaxAdjustment float64
	// Now overrides the clock.
	Now func() time.Time
}

const (
	minAccuracy               = 0.5
	maxAccuracy               = 0.99
	efficiencyTarget          = 0.7
	maxProcessRecommendations = 3
	maxLessonsPerPattern      = 3
)

// Loop mines feedback for patterns and keeps per-engine accuracy across passes.
type Loop struct {
	logger *slog.Logger
	store  Store
	opts   Options

	mu       sync.Mutex
	accuracy map[Engine]float64
	last     Result
}

// NewLoop constructs a Loop; store may be nil.
func NewLoop(logger *slog.Logger, store Store, opts Options) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Window <= 0 {
		opts.Window = 30 * 24 * time.Hour
	}
	if opts.PatternThreshold <= 0 {
		opts.PatternThreshold = 3
	}
	if opts.SuccessThreshold <= 0 {
		opts.SuccessThreshold = 2
	}
	if opts.AdjustmentStep <= 0 {
		opts.AdjustmentStep = 0.01
	}
	if opts.MaxAdjustment <= 0 {
		opts.MaxAdjustment = 0.05
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Loop{
		logger: logger,
		store:  store,
		opts:   opts,
		accuracy: map[Engine]float64{
			EngineForecasting: 0.80,
			EngineDecision:    0.85,
			EngineRemediation: 0.75,
		},
	}
}

// Accuracy returns a copy of the current per-engine accuracy scores.
func (l *Loop) Accuracy() map[Engine]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Engine]float64, len(l.accuracy))
	for k, v := range l.accuracy {
		out[k] = v
	}
	return out
}

// Last returns the most recent learning result.
func (l *Loop) Last() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Learn analyses feedback inside the window. Feedback is grouped by
// (dimension, action, outcome).
func (l *Loop) Learn(ctx context.Context, feedback []models.Feedback) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	now := l.opts.Now()
	result := Result{GeneratedAt: now}

	groups := make(map[groupKey]*groupAggregate)
	actions := make(map[actionKey]*actionAggregate)
	for _, fb := range feedback {
		if !utils.WithinWindow(fb.Timestamp, now, l.opts.Window) {
			result.Discarded++
			continue
		}
		result.Considered++

		g := ensureGroup(groups, groupKey{fb.Dimension, fb.Action, fb.Outcome})
		g.count++
		g.impact += fb.Impact
		g.addLessons(fb.Lessons)
		if fb.Timestamp.After(g.lastSeen) {
			g.lastSeen = fb.Timestamp
		}

		a := ensureAction(actions, actionKey{fb.Dimension, fb.Action})
		a.total++
		switch fb.Outcome {
		case models.OutcomeSuccess:
			a.success++
		case models.OutcomePartial:
			a.partial++
		}
	}

	keys := sortedGroupKeys(groups)
	var successEvidence, failureEvidence int
	for _, key := range keys {
		g := groups[key]
		if g.count > l.opts.PatternThreshold {
			result.Patterns = append(result.Patterns, g.pattern(key))
			switch key.outcome {
			case models.OutcomeSuccess:
				successEvidence += g.count
			case models.OutcomeFailure:
				failureEvidence += g.count
				result.FailureOpportunities = append(result.FailureOpportunities, Opportunity{
					Kind:        OpportunityAddressFailure,
					Dimension:   key.dimension,
					Action:      key.action,
					Description: fmt.Sprintf("Address recurring failure of %s on %s", key.action, key.dimension),
					Frequency:   g.count,
					Confidence:  frequencyConfidence(g.count, result.Considered),
				})
			}
		}
		if key.outcome == models.OutcomeSuccess && g.count > l.opts.SuccessThreshold {
			result.SuccessOpportunities = append(result.SuccessOpportunities, Opportunity{
				Kind:        OpportunityScaleSuccess,
				Dimension:   key.dimension,
				Action:      key.action,
				Description: fmt.Sprintf("Scale %s to other %s targets", key.action, key.dimension),
				Frequency:   g.count,
				Confidence:  frequencyConfidence(g.count, result.Considered),
			})
		}
	}
	sortOpportunities(result.FailureOpportunities)
	sortOpportunities(result.SuccessOpportunities)

	result.Recommendations = processRecommendations(actions)
	result.NextFocus = nextFocus(result)

	l.mu.Lock()
	result.Adjustments = l.adjust(successEvidence, failureEvidence)
	l.last = result
	l.mu.Unlock()

	if l.store != nil && len(result.Patterns) > 0 {
		if err := l.store.StorePatterns(ctx, result.Patterns); err != nil {
			l.logger.Warn("pattern store failed", slog.Any("error", err))
		}
	}

	l.logger.Debug("learning pass complete",
		slog.Int("considered", result.Considered),
		slog.Int("discarded", result.Discarded),
		slog.Int("patterns", len(result.Patterns)),
	)
	return result, nil
}

// adjust applies bounded accuracy changes; callers hold l.mu.
func (l *Loop) adjust(success, failure int) []Adjustment {
	delta := utils.Clamp(l.opts.AdjustmentStep*float64(success-failure), -l.opts.MaxAdjustment, l.opts.MaxAdjustment)
	out := make([]Adjustment, 0, len(l.accuracy))
	for _, engine := range Engines() {
		prev := l.accuracy[engine]
		next := utils.Clamp(prev+delta, minAccuracy, maxAccuracy)
		l.accuracy[engine] = next
		out = append(out, Adjustment{Engine: engine, Previous: prev, Current: next})
	}
	return out
}

func frequencyConfidence(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return utils.Clamp(float64(count)/float64(total), 0, 1)
}

func sortOpportunities(ops []Opportunity) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Frequency > ops[j].Frequency
	})
}

func nextFocus(r Result) []string {
	focus := make([]string, 0, len(r.FailureOpportunities)+len(r.SuccessOpportunities))
	seen := make(map[models.Dimension]struct{})
	for _, op := range r.FailureOpportunities {
		if _, ok := seen[op.Dimension]; ok {
			continue
		}
		seen[op.Dimension] = struct{}{}
		focus = append(focus, fmt.Sprintf("stabilise %s: %s keeps failing", op.Dimension, op.Action))
	}
	for _, op := range r.SuccessOpportunities {
		focus = append(focus, fmt.Sprintf("extend %s across %s", op.Action, op.Dimension))
	}
	return focus
}

func processRecommendations(actions map[actionKey]*actionAggregate) []ProcessRecommendation {
	recs := make([]ProcessRecommendation, 0)
	for key, a := range actions {
		if a.total < 2 {
			continue
		}
		efficiency := a.efficiency()
		if efficiency >= efficiencyTarget {
			continue
		}
		recs = append(recs, ProcessRecommendation{
			Process:            fmt.Sprintf("%s/%s", key.dimension, key.action),
			CurrentEfficiency:  efficiency,
			ProposedEfficiency: utils.Clamp(efficiency+0.2, 0, 0.95),
			Steps: []string{
				fmt.Sprintf("Review failed %s runs and record root causes", key.action),
				fmt.Sprintf("Add a verification gate after %s", key.action),
				fmt.Sprintf("Update the %s playbook with recorded lessons", key.dimension),
			},
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CurrentEfficiency != recs[j].CurrentEfficiency {
			return recs[i].CurrentEfficiency < recs[j].CurrentEfficiency
		}
		return recs[i].Process < recs[j].Process
	})
	if len(recs) > maxProcessRecommendations {
		recs = recs[:maxProcessRecommendations]
	}
	return recs
}

type groupKey struct {
	dimension models.Dimension
	action    string
	outcome   models.Outcome
}

type groupAggregate struct {
	count    int
	impact   float64
	lastSeen time.Time
	lessons  map[string]int
}

func ensureGroup(m map[groupKey]*groupAggregate, key groupKey) *groupAggregate {
	g, ok := m[key]
	if !ok {
		g = &groupAggregate{lessons: make(map[string]int)}
		m[key] = g
	}
	return g
}

func (g *groupAggregate) addLessons(lessons []string) {
	for _, lesson := range lessons {
		if lesson != "" {
			g.lessons[lesson]++
		}
	}
}

func (g *groupAggregate) pattern(key groupKey) models.LearnedPattern {
	return models.LearnedPattern{
		ID:        fmt.Sprintf("pattern-%s-%s-%s", key.dimension, key.action, key.outcome),
		Dimension: key.dimension,
		Action:    key.action,
		Outcome:   key.outcome,
		Frequency: g.count,
		AvgImpact: g.impact / float64(g.count),
		Lessons:   g.topLessons(maxLessonsPerPattern),
		LastSeen:  g.lastSeen,
	}
}

func (g *groupAggregate) topLessons(limit int) []string {
	lessons := make([]string, 0, len(g.lessons))
	for lesson := range g.lessons {
		lessons = append(lessons, lesson)
	}
	sort.Slice(lessons, func(i, j int) bool {
		if g.lessons[lessons[i]] != g.lessons[lessons[j]] {
			return g.lessons[lessons[i]] > g.lessons[lessons[j]]
		}
		return lessons[i] < lessons[j]
	})
	if len(lessons) > limit {
		lessons = lessons[:limit]
	}
	return lessons
}

func sortedGroupKeys(m map[groupKey]*groupAggregate) []groupKey {
	keys := make([]groupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.dimension != b.dimension {
			return a.dimension < b.dimension
		}
		if a.action != b.action {
			return a.action < b.action
		}
		return a.outcome < b.outcome
	})
	return keys
}

type actionKey struct {
	dimension models.Dimension
	action    string
}

type actionAggregate struct {
	total   int
	success int
	partial int
}

func ensureAction(m map[actionKey]*actionAggregate, key actionKey) *actionAggregate {
	a, ok := m[key]
	if !ok {
		a = &actionAggregate{}
		m[key] = a
	}
	return a
}

// efficiency counts partial outcomes as half a success.
func (a *actionAggregate) efficiency() float64 {
	return (float64(a.success) + 0.5*float64(a.partial)) / float64(a.total)
}
