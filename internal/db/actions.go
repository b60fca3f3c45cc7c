package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/wiki-harvester/internal/common"
	dbpkg "github.com/dtnitsch/wiki-harvester/pkg/db"
	"github.com/urfave/cli/v2"
)

const timeLayout = "2006-01-02 15:04:05"

func RunsAction(c *cli.Context) error {
	database, err := openLedger(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to list runs: %v", err), 2)
	}

	w := c.App.Writer
	if c.String("format") == "json" {
		data, err := common.Marshal(runs, "json")
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-16s %-10s %-10s %-8s %-8s %-8s %s\n",
		"ID", "Started", "Status", "Discovered", "Written", "Skipped", "Failed", "Duration", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-16s %-10d %-10d %-8d %-8d %-8s %s\n",
			r.RunID,
			r.StartedAt.Local().Format(timeLayout),
			r.Status,
			r.Counts.Discovered,
			r.Counts.Written,
			r.Counts.Skipped,
			r.Counts.Failed,
			runDuration(r),
			r.Source,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'wikiharvest run <id>' to see details\n")
	return nil
}

// RunAction shows the details and page results of one run.
func RunAction(c *cli.Context) error {
	database, err := openLedger(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	run, err := database.GetRun(runID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to get run: %v", err), 2)
	}
	results, err := database.GetRunResults(runID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to get run results: %v", err), 2)
	}
	if c.Bool("failed-only") {
		results = failedResults(results)
	}

	w := c.App.Writer
	if c.String("format") == "json" {
		data, err := common.Marshal(struct {
			Run     *dbpkg.Run         `json:"run"`
			Results []dbpkg.PageResult `json:"results"`
		}{run, results}, "json")
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "Run %d\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format(timeLayout))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:    %s (%s)\n", run.FinishedAt.Local().Format(timeLayout), runDuration(*run))
	}
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	fmt.Fprintf(w, "API:         %s\n", run.APIURL)
	fmt.Fprintf(w, "Source:      %s\n", run.Source)
	fmt.Fprintf(w, "Output:      %s\n", run.OutputDir)
	fmt.Fprintf(w, "Pages:       %d discovered (%d written, %d skipped, %d failed)\n",
		run.Counts.Discovered, run.Counts.Written, run.Counts.Skipped, run.Counts.Failed)
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:       %s\n", run.ErrorMessage)
	}

	if len(results) > 0 {
		fmt.Fprintf(w, "\nPages (%d):\n", len(results))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for i, r := range results {
			fmt.Fprintf(w, "%3d. [%s] %s (page %d, batch %d)\n", i+1, r.Status, r.Title, r.PageID, r.Batch)
			switch r.Status {
			case dbpkg.StatusFailed:
				fmt.Fprintf(w, "     Error: [%s] %s\n", r.ErrorType, r.ErrorMessage)
			case dbpkg.StatusSkipped:
				fmt.Fprintf(w, "     Reason: %s\n", r.Reason)
			default:
				lang := r.Language
				if lang == "" {
					lang = "-"
				}
				fmt.Fprintf(w, "     Template: %s | Size: %d bytes | Language: %s | File: %s\n",
					r.Template, r.FileSizeBytes, lang, r.FilePath)
			}
		}
	}

	if run.Counts.Failed > 0 {
		fmt.Fprintf(w, "\nTip: Use 'wikiharvest crawl --retry-failed %d' to retry failed pages\n", run.RunID)
	}
	return nil
}

func failedResults(results []dbpkg.PageResult) []dbpkg.PageResult {
	var out []dbpkg.PageResult
	for _, r := range results {
		if r.Status == dbpkg.StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

func runDuration(r dbpkg.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
