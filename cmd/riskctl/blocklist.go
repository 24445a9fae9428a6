package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msgguard/msgguard/internal/db"
)

func (c *cli) blocklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocklist",
		Short: "Manage the domain blocklist",
	}

	var source, category string
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import domains from a file (one per line, optional ,category,source)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required for blocklist import")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening blocklist: %w", err)
			}
			defer f.Close()

			entries, err := parseBlocklist(f, category, source)
			if err != nil {
				return err
			}

			database, err := db.Connect(cmd.Context(), c.cfg.DatabaseURL, c.logger)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := database.UpsertDomains(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d domains from %s\n", n, args[0])
			return nil
		},
	}
	importCmd.Flags().StringVar(&source, "source", "manual", "source recorded for entries without one")
	importCmd.Flags().StringVar(&category, "category", "phishing", "category recorded for entries without one")

	cmd.AddCommand(importCmd)
	return cmd
}

// parseBlocklist reads "domain[,category[,source]]" lines. Blank lines and
// lines starting with # are skipped.
func parseBlocklist(r io.Reader, category, source string) ([]db.DomainEntry, error) {
	var entries []db.DomainEntry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		domain := db.NormalizeDomain(fields[0])
		if domain == "" || strings.ContainsAny(domain, " /") {
			return nil, fmt.Errorf("line %d: invalid domain %q", line, fields[0])
		}

		entry := db.DomainEntry{Domain: domain, Category: category, Source: source}
		if len(fields) > 1 && fields[1] != "" {
			entry.Category = fields[1]
		}
		if len(fields) > 2 && fields[2] != "" {
			entry.Source = fields[2]
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading blocklist: %w", err)
	}
	return entries, nil
}
