package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harwood/breachdb/internal/cli"
	"github.com/harwood/breachdb/internal/legislation"
)

func legislationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legislation",
		Short: "Browse canonical legislation references",
	}

	cmd.AddCommand(legislationListCmd())
	cmd.AddCommand(legislationSeedCmd())

	return cmd
}

func legislationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every canonical legislation reference",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			refs, err := store.ListLegislation(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list legislation: %w", err)
			}

			fmt.Println(cli.RenderLegislationTable(refs))
			return nil
		},
	}
}

func legislationSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Pre-populate the canonical legislation table",
		Long: `Pre-populate the canonical legislation table from the built-in
statute catalog, so the first ingest resolves against canonical rows
instead of creating them on the fly. Safe to re-run; existing rows are
reused.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cfg := legislation.DefaultConfig()
			normalizer := legislation.New(cfg, store)

			// Each canonical title runs through the normal find-or-create
			// path, picking up its known year and instrument type.
			seen := make(map[string]bool)
			var seeded int
			for _, title := range cfg.CanonicalTitles {
				if seen[title] {
					continue
				}
				seen[title] = true

				if _, err := normalizer.Normalize(cmd.Context(), title); err != nil {
					return fmt.Errorf("failed to seed %q: %w", title, err)
				}
				seeded++
			}

			slog.Info("Seeded canonical legislation", "titles", seeded)
			return nil
		},
	}
}
