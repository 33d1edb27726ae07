package display

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/backmassage/symguard/internal/health"
	"github.com/backmassage/symguard/internal/notify"
	"github.com/backmassage/symguard/internal/pipeline"
)

// statusOrder is the row order of the per-status breakdown.
var statusOrder = []health.Status{
	health.StatusOK,
	health.StatusBroken,
	health.StatusInaccessible,
	health.StatusSmallFile,
	health.StatusIOError,
	health.StatusError,
	health.StatusCorrupted,
}

var statusLabels = map[health.Status]string{
	health.StatusOK:           "valid links",
	health.StatusBroken:       "broken links",
	health.StatusInaccessible: "inaccessible targets",
	health.StatusSmallFile:    "small files",
	health.StatusIOError:      "I/O errors",
	health.StatusError:        "check errors",
	health.StatusCorrupted:    "corrupted media",
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// RenderSummary prints the final run summary: totals, per-status counts,
// deletions and notifications.
func RenderSummary(w io.Writer, res *pipeline.Result) {
	s := res.Stats
	t := newTable(w)
	t.SetTitle("Run %s (%s)", res.RunID, res.Mode)
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	t.AppendRow(table.Row{"symlinks found", FormatCount(s.Collected)})
	t.AppendRow(table.Row{"phase 1 checked", FormatCount(s.Checked)})
	if res.Phase2Skipped {
		t.AppendRow(table.Row{"phase 2 checked", "skipped"})
	} else {
		t.AppendRow(table.Row{"phase 2 checked", FormatCount(s.Probed)})
	}
	t.AppendSeparator()
	for _, st := range statusOrder {
		n := s.ByStatus[st]
		if n == 0 && st != health.StatusOK {
			continue
		}
		t.AppendRow(table.Row{statusLabels[st], FormatCount(n)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"problems", FormatCount(int64(len(res.Problems)))})
	if len(res.Deleted) > 0 {
		t.AppendRow(table.Row{"deleted", fmt.Sprintf("%s (%s)", FormatCount(s.Deleted), FormatBytes(s.DeletedBytes))})
	}
	if n := res.Notification; n != nil {
		t.AppendRow(table.Row{"notifications sent", FormatCount(int64(n.Sent))})
		if n.Failed > 0 {
			t.AppendRow(table.Row{"notifications failed", FormatCount(int64(n.Failed))})
		}
	}
	footer := FormatDuration(res.Duration())
	if res.Interrupted {
		footer += " (interrupted)"
	}
	t.AppendFooter(table.Row{"elapsed", footer})
	t.Render()
}

// RenderProblems lists up to limit problem entries; limit <= 0 lists all.
func RenderProblems(w io.Writer, problems health.ProblemSet, limit int) {
	if len(problems) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Status", "Path", "Target"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 70},
		{Number: 3, WidthMax: 50},
	})
	for i, p := range problems {
		if limit > 0 && i == limit {
			t.AppendFooter(table.Row{"", fmt.Sprintf("... %d more", len(problems)-limit), ""})
			break
		}
		t.AppendRow(table.Row{p.Status, p.Path, p.Target})
	}
	t.Render()
}

// RenderServices prints the per-service notification outcome.
func RenderServices(w io.Writer, sum *notify.Summary) {
	if sum == nil || len(sum.Services) == 0 {
		return
	}
	t := newTable(w)
	t.SetTitle("Notifications (%s)", sum.Mode)
	t.AppendHeader(table.Row{"Service", "Status", "Commands", "Unmatched"})
	for _, s := range sum.Services {
		t.AppendRow(table.Row{s.Service, s.Status, len(s.Commands), len(s.Unmatched)})
	}
	t.Render()
}

// RenderDirCounts prints the symlink count of each sub-directory.
func RenderDirCounts(w io.Writer, base string, counts []pipeline.DirCount) {
	t := newTable(w)
	t.SetTitle(base)
	t.AppendHeader(table.Row{"#", "Directory", "Symlinks"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	var total int64
	for i, c := range counts {
		t.AppendRow(table.Row{i + 1, c.Name, FormatCount(int64(c.Links))})
		total += int64(c.Links)
	}
	t.AppendFooter(table.Row{"", "Total", FormatCount(total)})
	t.Render()
}
