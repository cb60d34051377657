package remediation

import "github.com/miradorstack/mirador-quality/internal/models"

// RelationKind classifies how two issues relate.
type RelationKind string

const (
	RelationRelated RelationKind = "related"
	RelationCauses  RelationKind = "causes"
)

// Relationship links two issues. For RelationCauses, From is the cause.
type Relationship struct {
	From     string       `json:"from"`
	To       string       `json:"to"`
	Kind     RelationKind `json:"kind"`
	Sequence bool         `json:"sequence,omitempty"`
	Note     string       `json:"note,omitempty"`
}

// RootCause is a heuristic explanation for an issue.
type RootCause struct {
	IssueID string `json:"issue_id"`
	Cause   string `json:"cause"`
	Keyword string `json:"keyword"`
}

// AnalyzeRelationships inspects every issue pair. Same-dimension pairs are
// related; pairs matching a causal rule in either direction are causes.
// Related issues never gain ordering dependencies.
func AnalyzeRelationships(issues []models.QualityIssue, table *RuleTable) ([]Relationship, []RootCause) {
	relationships := make([]Relationship, 0)
	for i := 0; i < len(issues); i++ {
		for j := i + 1; j < len(issues); j++ {
			a, b := issues[i], issues[j]
			if a.Dimension == b.Dimension {
				relationships = append(relationships, Relationship{From: a.ID, To: b.ID, Kind: RelationRelated})
				continue
			}
			if rule, ok := table.LookupCausal(a.Dimension, b.Dimension); ok {
				relationships = append(relationships, Relationship{From: a.ID, To: b.ID, Kind: RelationCauses, Sequence: rule.Sequence, Note: rule.Note})
				continue
			}
			if rule, ok := table.LookupCausal(b.Dimension, a.Dimension); ok {
				relationships = append(relationships, Relationship{From: b.ID, To: a.ID, Kind: RelationCauses, Sequence: rule.Sequence, Note: rule.Note})
			}
		}
	}

	causes := make([]RootCause, 0)
	for _, issue := range issues {
		if rule, kw, ok := table.MatchRootCause(issue.Dimension, issue.Description); ok {
			causes = append(causes, RootCause{IssueID: issue.ID, Cause: rule.Cause, Keyword: kw})
		}
	}
	return relationships, causes
}
