package main

import (
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-quality/internal/engine"
	"github.com/miradorstack/mirador-quality/internal/models"
)

type analyzeOutput struct {
	Cycle  engine.CycleReport         `json:"cycle"`
	Status models.OrchestrationStatus `json:"status"`
}

func (c *cli) analyzeCmd() *cobra.Command {
	var autoRemediate bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one orchestration cycle and print the report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			if cmd.Flags().Changed("auto-remediate") {
				rt.options.AutoRemediation = autoRemediate
			}
			controller, err := engine.NewController(c.logger, rt.components, rt.options)
			if err != nil {
				return err
			}

			report, cycleErr := controller.RunCycle(ctx)
			if err := writeJSON(cmd.OutOrStdout(), analyzeOutput{Cycle: report, Status: controller.GetStatus()}); err != nil {
				return err
			}
			return cycleErr
		},
	}
	cmd.Flags().BoolVar(&autoRemediate, "auto-remediate", false, "Plan remediation for critical alerts in this cycle")
	return cmd
}
