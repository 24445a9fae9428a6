package main

import (
	"github.com/spf13/cobra"

	"github.com/msgguard/msgguard/internal/classify"
	"github.com/msgguard/msgguard/internal/risk"
)

func (c *cli) classifyCmd() *cobra.Command {
	var modelPath string
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a message as SAFE or SPAM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath != "" {
				c.cfg.Classifier.ModelPath = modelPath
			}
			classifier, err := classify.New(cmd.Context(), classify.Options{
				Backend:   c.cfg.Classifier.Backend,
				ModelPath: c.cfg.Classifier.ModelPath,
				Claude: classify.ClaudeOptions{
					Model:  c.cfg.Classifier.AnthropicModel,
					APIKey: c.cfg.Classifier.AnthropicAPIKey,
				},
			}, c.logger)
			if err != nil {
				return err
			}

			text := args[0]
			v, err := risk.NewEngine(classifier, nil, c.logger).ClassifyText(cmd.Context(), risk.TextInput{Text: &text})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "path to the model artifact (overrides config)")
	return cmd
}
