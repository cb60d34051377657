package remediation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// Edge records that Step depends on DependsOn.
type Edge struct {
	Step      string `json:"step"`
	DependsOn string `json:"depends_on"`
	Reason    string `json:"reason"`
}

const (
	reasonChain    = "chain"
	reasonReview   = "review-before-manual"
	reasonSequence = "causal-sequence"
)

// Workflow is the flattened step graph for a set of strategies.
type Workflow struct {
	ID    string                   `json:"id"`
	Steps []models.RemediationStep `json:"steps"`
	Edges []Edge                   `json:"edges"`

	graph *Graph
}

// BuildWorkflow flattens strategies into one graph. Steps of the same issue
// are chained in template order and every review step precedes every manual
// step. Steps of different issues stay independent unless a sequenced causal
// relationship links them.
func BuildWorkflow(strategies []Strategy, relationships []Relationship) (*Workflow, error) {
	w := &Workflow{ID: uuid.NewString(), graph: NewGraph()}

	byIssue := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		if _, dup := byIssue[s.IssueID]; dup {
			return nil, fmt.Errorf("duplicate issue id %q", s.IssueID)
		}
		byIssue[s.IssueID] = s
		for _, step := range s.Steps {
			if _, exists := w.graph.Lookup(step.ID); exists {
				return nil, fmt.Errorf("duplicate step id %q", step.ID)
			}
			w.graph.AddNode(step.ID)
			step.Dependencies = nil
			w.Steps = append(w.Steps, step)
		}
	}

	for _, s := range strategies {
		for i := 1; i < len(s.Steps); i++ {
			if err := w.link(s.Steps[i].ID, s.Steps[i-1].ID, reasonChain); err != nil {
				return nil, err
			}
		}
		for _, manual := range s.Steps {
			if manual.Type != models.StepManual {
				continue
			}
			for _, review := range s.Steps {
				if review.Type != models.StepReview {
					continue
				}
				if err := w.link(manual.ID, review.ID, reasonReview); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, rel := range relationships {
		if rel.Kind != RelationCauses || !rel.Sequence {
			continue
		}
		cause, okCause := byIssue[rel.From]
		effect, okEffect := byIssue[rel.To]
		if !okCause || !okEffect || len(cause.Steps) == 0 || len(effect.Steps) == 0 {
			continue
		}
		last := cause.Steps[len(cause.Steps)-1].ID
		first := effect.Steps[0].ID
		if err := w.link(first, last, reasonSequence); err != nil {
			return nil, err
		}
	}

	for i := range w.Steps {
		id, _ := w.graph.Lookup(w.Steps[i].ID)
		for _, dep := range w.graph.Dependencies(id) {
			w.Steps[i].Dependencies = append(w.Steps[i].Dependencies, w.graph.Key(dep))
		}
	}
	return w, nil
}

func (w *Workflow) link(step, dependsOn, reason string) error {
	from, _ := w.graph.Lookup(step)
	to, _ := w.graph.Lookup(dependsOn)
	added, err := w.graph.AddDependency(from, to)
	if err != nil {
		return err
	}
	if added {
		w.Edges = append(w.Edges, Edge{Step: step, DependsOn: dependsOn, Reason: reason})
	}
	return nil
}

// ExecutionOrder returns the steps in dependency order, or a *CycleError.
func (w *Workflow) ExecutionOrder() ([]models.RemediationStep, error) {
	order, err := w.graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.RemediationStep, len(w.Steps))
	for _, s := range w.Steps {
		byID[s.ID] = s
	}
	steps := make([]models.RemediationStep, 0, len(order))
	for _, id := range order {
		steps = append(steps, byID[w.graph.Key(id)])
	}
	return steps, nil
}
