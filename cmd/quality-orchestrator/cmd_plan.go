package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// planInput is the file format accepted by the plan command. A missing
// context falls back to the configured remediation context.
type planInput struct {
	Issues  []models.QualityIssue      `yaml:"issues"`
	Context *models.RemediationContext `yaml:"context"`
}

var errInvalidPlan = errors.New("remediation plan is invalid")

func (c *cli) planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <issues.yaml|->",
		Short: "Build and validate a remediation plan; exits non-zero when the plan is invalid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in planInput
			if err := readYAML(args[0], &in); err != nil {
				return err
			}
			rc := c.cfg.Orchestrator.Remediation
			if in.Context != nil {
				rc = *in.Context
			}

			orch, err := newRemediator(c.cfg, c.logger)
			if err != nil {
				return err
			}
			result, planErr := orch.Plan(cmd.Context(), in.Issues, rc)
			if planErr != nil && result.Workflow == nil {
				return planErr
			}
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Validation.IsValid {
				return fmt.Errorf("%w: %d validation issues", errInvalidPlan, len(result.Validation.Issues))
			}
			return nil
		},
	}
}
