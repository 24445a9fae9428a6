package main

import (
	"github.com/spf13/cobra"

	"github.com/msgguard/msgguard/internal/db"
	"github.com/msgguard/msgguard/internal/risk"
	"github.com/msgguard/msgguard/internal/urlintel"
)

func (c *cli) assessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess <url>",
		Short: "Assess a URL for phishing or malware",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := urlintel.Options{
				Timeout:      c.cfg.URLIntel.FetchTimeout,
				MaxBodyBytes: c.cfg.URLIntel.MaxBodyBytes,
				UserAgent:    c.cfg.URLIntel.UserAgent,
			}
			if c.cfg.DatabaseURL != "" {
				database, err := db.Connect(cmd.Context(), c.cfg.DatabaseURL, c.logger)
				if err != nil {
					return err
				}
				defer database.Close()
				opts.Reputation = database
			}

			target := args[0]
			engine := risk.NewEngine(nil, urlintel.New(opts, c.logger), c.logger)
			v, err := engine.AssessURL(cmd.Context(), risk.URLInput{URL: &target})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}
