package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/health"
	"github.com/backmassage/symguard/internal/notify"
	"github.com/backmassage/symguard/internal/pipeline"
	"github.com/backmassage/symguard/internal/remediate"
)

// ReportName is the JSON report file name for a run started at t.
func ReportName(t time.Time) string {
	return "symlink_report_" + t.Format(fileStamp) + ".json"
}

// Host identifies the machine a run happened on.
type Host struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Platform string `json:"platform,omitempty"`
	Kernel   string `json:"kernel,omitempty"`
}

// HostInfo describes the current machine. Fields gopsutil cannot read are
// left empty.
func HostInfo(ctx context.Context) Host {
	h := Host{OS: runtime.GOOS}
	if info, err := host.InfoWithContext(ctx); err == nil {
		h.Hostname = info.Hostname
		h.Platform = info.Platform
		h.Kernel = info.KernelVersion
	}
	if h.Hostname == "" {
		h.Hostname, _ = os.Hostname()
	}
	return h
}

// Statistics is the "statistics" object of the report.
type Statistics struct {
	pipeline.Snapshot
	DurationSeconds float64 `json:"duration_seconds"`
	Phase2Skipped   bool    `json:"phase2_skipped"`
	Interrupted     bool    `json:"interrupted"`
}

// Document is the full JSON report.
type Document struct {
	RunID         string             `json:"run_id"`
	ScanDate      time.Time          `json:"scan_date"`
	Mode          string             `json:"mode"`
	Depth         string             `json:"depth"`
	Roots         []string           `json:"roots"`
	Statistics    Statistics         `json:"statistics"`
	ProblemsFound []health.Result    `json:"problems_found"`
	DeletedFiles  []remediate.Record `json:"deleted_files"`
	Notifications *notify.Summary    `json:"notifications,omitempty"`
	Host          Host               `json:"host"`
}

// NewDocument builds the report for res. Deleted files are listed only for
// real runs.
func NewDocument(res *pipeline.Result, h Host) Document {
	doc := Document{
		RunID:    res.RunID,
		ScanDate: res.Started,
		Mode:     string(res.Mode),
		Depth:    string(res.Depth),
		Roots:    res.Roots,
		Statistics: Statistics{
			Snapshot:        res.Stats,
			DurationSeconds: res.Duration().Seconds(),
			Phase2Skipped:   res.Phase2Skipped,
			Interrupted:     res.Interrupted,
		},
		ProblemsFound: res.Problems,
		DeletedFiles:  []remediate.Record{},
		Notifications: res.Notification,
		Host:          h,
	}
	if doc.ProblemsFound == nil {
		doc.ProblemsFound = []health.Result{}
	}
	if res.Mode == config.ModeReal && len(res.Deleted) > 0 {
		doc.DeletedFiles = res.Deleted
	}
	return doc
}

// Encode writes doc as indented JSON.
func (d Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteReport writes doc into dir and returns its path.
func WriteReport(dir string, doc Document) (string, error) {
	path := filepath.Join(dir, ReportName(doc.ScanDate))
	if err := writeFile(path, doc.Encode); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
