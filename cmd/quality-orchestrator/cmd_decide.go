package main

import (
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-quality/internal/decision"
)

func (c *cli) decideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decide <context.yaml|->",
		Short: "Evaluate the options in a decision context file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dc decision.Context
			if err := readYAML(args[0], &dc); err != nil {
				return err
			}
			result, err := decision.NewEngine(c.logger).Decide(dc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}
