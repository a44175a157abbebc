package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/pagetrans/internal/cli"
)

func runRuns(args []string) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	limit := fs.Int("limit", 20, "Maximum number of runs")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "runs does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, os.Stderr, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	rows, err := rt.pool.ListRecentPageRuns(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query page runs: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			truncateForTable(row.RunUUID, 12),
			row.Mode,
			row.TargetLang,
			row.Outcome,
			fmt.Sprintf("%d/%d", row.Translated, row.Units),
			fmt.Sprintf("%d", row.Failed),
			formatUTCTimestamp(row.StartedAt),
			formatUTCTimestampPtr(row.FinishedAt),
		})
	}
	if err := writeTable([]string{"run", "mode", "lang", "outcome", "translated", "failed", "started_at", "finished_at"}, tableRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render runs table: %v\n", err)
		return 1
	}
	return 0
}
