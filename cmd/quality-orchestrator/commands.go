package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-quality/internal/config"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	rulesPath  string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "quality-orchestrator",
		Short:         "Quality intelligence orchestration for software projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if c.rulesPath != "" {
				cfg.Rules.Path = c.rulesPath
			}
			c.cfg = cfg
			// stdout carries command output, so logs go to stderr.
			c.logger = utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to configuration file (env MIRADOR_QUALITY_CONFIG)")
	root.PersistentFlags().StringVar(&c.rulesPath, "rules", "", "Override the remediation rule table path")

	root.AddCommand(
		c.serveCmd(),
		c.analyzeCmd(),
		c.decideCmd(),
		c.planCmd(),
	)
	return root
}

func readYAML(path string, out any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
