package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/msgguard/msgguard/internal/config"
	"github.com/msgguard/msgguard/internal/server"
)

// cli carries state shared by all subcommands.
type cli struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Classify messages and assess URLs",
		Long:          "riskctl runs the text and URL verdict pipelines locally and manages the domain blocklist.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = server.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to YAML config file")

	root.AddCommand(c.classifyCmd(), c.assessCmd(), c.blocklistCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
