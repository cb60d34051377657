package repo

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

// Snapshot is the on-disk layout read by SnapshotSource. When AsOf is set,
// every recorded timestamp is shifted by the time elapsed since AsOf, so a
// snapshot captured once keeps falling inside the history and feedback windows.
type Snapshot struct {
	AsOf     time.Time                                      `yaml:"asOf"`
	Metrics  map[models.Dimension]models.DimensionMetrics   `yaml:"metrics"`
	History  map[models.Dimension][]models.DimensionMetrics `yaml:"history"`
	Feedback []models.Feedback                              `yaml:"feedback"`
}

// SnapshotSource serves metrics and feedback from a YAML file. It is used for
// offline runs and local development.
type SnapshotSource struct {
	mu       sync.Mutex
	snapshot Snapshot
	patterns []models.LearnedPattern
	now      func() time.Time
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*SnapshotSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return NewSnapshotSource(snap), nil
}

// NewSnapshotSource wraps an in-memory snapshot.
func NewSnapshotSource(snap Snapshot) *SnapshotSource {
	for dim, history := range snap.History {
		sorted := append([]models.DimensionMetrics(nil), history...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
		snap.History[dim] = sorted
	}
	return &SnapshotSource{snapshot: snap, now: time.Now}
}

func (s *SnapshotSource) GetCurrentMetrics(_ context.Context, dimension models.Dimension) (models.DimensionMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.snapshot.Metrics[dimension]
	if !ok {
		return models.DimensionMetrics{}, fmt.Errorf("snapshot has no %s metrics: %w", dimension, models.ErrDataUnavailable)
	}
	m.Dimension = dimension
	if !m.Timestamp.IsZero() {
		m.Timestamp = s.shift(m.Timestamp, s.now())
	}
	return m, nil
}

func (s *SnapshotSource) shift(ts, now time.Time) time.Time {
	if s.snapshot.AsOf.IsZero() || ts.IsZero() {
		return ts
	}
	return ts.Add(now.Sub(s.snapshot.AsOf))
}

func (s *SnapshotSource) GetHistoricalMetrics(_ context.Context, dimension models.Dimension, window time.Duration) ([]models.DimensionMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []models.DimensionMetrics
	for _, m := range s.snapshot.History[dimension] {
		m.Timestamp = s.shift(m.Timestamp, now)
		if utils.WithinWindow(m.Timestamp, now, window) {
			m.Dimension = dimension
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("snapshot has no %s history within %s: %w", dimension, window, models.ErrDataUnavailable)
	}
	return out, nil
}

func (s *SnapshotSource) CollectFeedback(_ context.Context, window time.Duration) ([]models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []models.Feedback
	for _, f := range s.snapshot.Feedback {
		f.Timestamp = s.shift(f.Timestamp, now)
		if utils.WithinWindow(f.Timestamp, now, window) {
			out = append(out, f)
		}
	}
	return out, nil
}

// StorePatterns keeps the latest learned patterns in memory.
func (s *SnapshotSource) StorePatterns(_ context.Context, patterns []models.LearnedPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append([]models.LearnedPattern(nil), patterns...)
	return nil
}

// Patterns returns what StorePatterns last received.
func (s *SnapshotSource) Patterns() []models.LearnedPattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LearnedPattern(nil), s.patterns...)
}
