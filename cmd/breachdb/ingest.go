package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harwood/breachdb/internal/cli"
	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/engine"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/parse"
	"github.com/harwood/breachdb/internal/storage"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file or directory]",
		Short: "Ingest scraped enforcement records",
		Long: `Ingest scraped enforcement records from JSON files.

Each file holds an array of raw records as produced by the scraper. Records
are parsed into typed fields, legislation references are canonicalized and
offenders are resolved against the existing pool. Re-ingesting the same
scrape is a no-op; duplicates are detected by content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers (0 = default)")
	cmd.Flags().Bool("dry-run", false, "Parse and report without writing to the database")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")

	_ = viper.BindPFlag("ingest.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

// scrapeRecord is the on-disk JSON shape of one scraped record.
type scrapeRecord struct {
	OffenderName string `json:"offender_name"`
	Address      string `json:"address"`
	Postcode     string `json:"postcode"`
	ActionDate   string `json:"action_date"`
	HearingDate  string `json:"hearing_date"`
	Fine         string `json:"fine"`
	Costs        string `json:"costs"`
	Breach       string `json:"breach"`
	BusinessType string `json:"business_type"`
	SourceURL    string `json:"source_url"`
}

func (s scrapeRecord) toModel() model.RawRecord {
	return model.RawRecord{
		OffenderName:     s.OffenderName,
		Address:          s.Address,
		Postcode:         s.Postcode,
		ActionDate:       s.ActionDate,
		HearingDate:      s.HearingDate,
		Fine:             s.Fine,
		Costs:            s.Costs,
		Breach:           s.Breach,
		BusinessTypeHint: s.BusinessType,
		SourceURL:        s.SourceURL,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	records, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		slog.Warn("No records found", "path", args[0])
		return nil
	}

	slog.Info("Loaded scraped records", "count", len(records), "path", args[0])

	if dryRun {
		return reportDryRun(records)
	}

	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	config := engine.DefaultConfig()
	if workers := viper.GetInt("ingest.workers"); workers > 0 {
		config.Workers = workers
	}
	e := engine.New(store, config)

	var progress func()
	if !noProgress {
		bar := progressbar.NewOptions(len(records),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Ingesting records...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
		progress = func() { _ = bar.Add(1) }
	}

	stats, err := e.ProcessBatch(ctx, records, progress)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Println(cli.RenderIngestSummary(stats))
	return nil
}

// loadRecords reads one JSON scrape file, or every *.json file in a
// directory, in name order.
func loadRecords(path string) ([]model.RawRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		sort.Strings(matches)
		files = matches
	}

	var records []model.RawRecord
	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		var scraped []scrapeRecord
		if err := json.Unmarshal(data, &scraped); err != nil {
			return nil, common.NewUserError(
				fmt.Sprintf("%s is not a valid scrape file (expected a JSON array of records)", file), err)
		}
		for _, s := range scraped {
			records = append(records, s.toModel())
		}
	}
	return records, nil
}

// reportDryRun parses every record without touching the database and
// reports how the typed-field stage would fare.
func reportDryRun(records []model.RawRecord) error {
	var fallbacks, unparsedDates int
	for i := range records {
		fields := parse.ParseFields(records[i])
		fallbacks += len(fields.Fallbacks)
		if fields.ActionDate == nil {
			unparsedDates++
		}
	}

	slog.Info("Dry run complete",
		"records", len(records),
		"field_fallbacks", fallbacks,
		"missing_action_dates", unparsedDates)
	return nil
}
