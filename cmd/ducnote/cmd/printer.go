package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/ducnote/ducnote/internal/core"
	"github.com/ducnote/ducnote/internal/history"
)

var (
	headerFmt  = color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt  = color.New(color.FgYellow).SprintfFunc()
	errorFmt   = color.New(color.FgRed).SprintfFunc()
	successFmt = color.New(color.FgGreen).SprintfFunc()
)

func newTable(w io.Writer, headers ...interface{}) table.Table {
	tbl := table.New(headers...)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt).WithWriter(w)
	return tbl
}

// printRecords prints one row per installation record.
func printRecords(records []core.InstallationRecord) {
	tbl := newTable(os.Stdout, "Category", "Locator", "Kind", "Outcome", "Size", "Time")
	for _, r := range records {
		outcome := string(r.Outcome)
		if r.Err != nil {
			outcome = fmt.Sprintf("%s: %v", r.Outcome, r.Err)
		}
		size := ""
		if r.Outcome == core.OutcomeInstalled {
			size = humanize.IBytes(uint64(r.Bytes))
		}
		tbl.AddRow(r.Category, core.Basename(r.Locator), r.Kind, outcome, size, r.Duration.Round(time.Millisecond))
	}
	tbl.Print()
}

// printRunSummary prints the outcome block after an install run.
func printRunSummary(res *core.RunResult) {
	fmt.Fprintf(os.Stdout, "\nRun %s: %s\n", res.ID, res.Outcome)
	fmt.Fprintf(os.Stdout, "  Destination: %s\n", res.Destination)
	fmt.Fprintf(os.Stdout, "  Installed: %d, already present: %d, failed: %d\n",
		res.Count(core.OutcomeInstalled), res.Count(core.OutcomeAlreadyPresent), res.Count(core.OutcomeFailed))
	switch res.Outcome {
	case core.RunPublic:
		fmt.Fprintf(os.Stdout, "  Public URL: %s\n", successFmt("%s", res.PublicURL))
	case core.RunLocalOnly:
		fmt.Fprintf(os.Stdout, "  Local only: http://localhost:%d\n", res.Port)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stdout, "  Warning: %s\n", w)
	}
}

// printHistory prints one row per stored run.
func printHistory(entries []history.Entry) {
	tbl := newTable(os.Stdout, "ID", "Started", "Outcome", "Installed", "Present", "Failed", "Duration")
	for _, e := range entries {
		tbl.AddRow(e.ID, e.StartedAt.Local().Format("2006-01-02 15:04"), e.Outcome,
			e.Count(core.OutcomeInstalled), e.Count(core.OutcomeAlreadyPresent), e.Count(core.OutcomeFailed),
			e.Duration().Round(time.Second))
	}
	tbl.Print()
}
