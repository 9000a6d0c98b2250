package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harwood/breachdb/internal/cli"
	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/resolve"
	"github.com/harwood/breachdb/internal/storage"
)

func offendersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offenders",
		Short: "Browse resolved offender entities",
	}

	cmd.AddCommand(offendersSearchCmd())
	cmd.AddCommand(offendersShowCmd())
	cmd.AddCommand(offendersResolveCmd())

	return cmd
}

func offendersSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search offenders by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			results, err := store.SearchOffenders(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			fmt.Println(cli.RenderOffenderTable(results))
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum results to show")
	return cmd
}

func offendersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an offender and its enforcement history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid offender id %q: %w", args[0], err)
			}

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			offender, err := store.GetOffenderByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load offender: %w", err)
			}
			cases, err := store.GetCasesByOffender(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load cases: %w", err)
			}

			fmt.Println(cli.FormatTitle(offender.Name))
			fmt.Printf("Postcode:      %s\n", orDash(offender.Postcode))
			fmt.Printf("Business type: %s\n", offender.BusinessType)
			fmt.Printf("Total cases:   %d\n", offender.TotalCases)
			fmt.Printf("Total fines:   £%s\n", offender.TotalFines.StringFixed(2))
			fmt.Println()

			for _, c := range cases {
				date := "unknown date"
				if c.ActionDate != nil {
					date = c.ActionDate.Format("2006-01-02")
				}
				fmt.Printf("%s  £%s  %s\n", date, c.Fine.StringFixed(2), c.Breach)
				for _, ref := range c.Legislation {
					label := ref.Title
					if ref.Year != nil {
						label = fmt.Sprintf("%s %d", label, *ref.Year)
					}
					if ref.SectionLabel != "" {
						label = fmt.Sprintf("%s / %s", label, ref.SectionLabel)
					}
					fmt.Printf("  %s\n", cli.SubtleStyle.Render(label))
				}
			}
			return nil
		},
	}
}

func offendersResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Preview how a name would resolve, without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postcode, _ := cmd.Flags().GetString("postcode")

			store, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			candidate := model.OffenderCandidate{
				RawName:        args[0],
				NormalizedName: common.NormalizeName(args[0]),
				Postcode:       common.NormalizePostcode(postcode),
			}

			decision, err := resolve.New(store).Resolve(cmd.Context(), candidate)
			if err != nil {
				return fmt.Errorf("resolution failed: %w", err)
			}

			fmt.Printf("Normalized name: %s\n", candidate.NormalizedName)
			if !decision.Matched {
				fmt.Println(cli.FormatWarning("No match; ingesting this record would create a new offender"))
				return nil
			}

			offender, err := store.GetOffenderByID(cmd.Context(), decision.OffenderID)
			if err != nil {
				return fmt.Errorf("failed to load matched offender: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Matches offender %d (%s) with score %.2f",
				offender.ID, offender.Name, decision.Score)))
			return nil
		},
	}

	cmd.Flags().StringP("postcode", "p", "", "Postcode to corroborate the match")
	return cmd
}

func openStorage(cmd *cobra.Command) (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
