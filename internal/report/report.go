package report

import (
	"context"
	"errors"

	"github.com/backmassage/symguard/internal/pipeline"
)

// Paths lists the files written for one run. Empty fields were not written.
type Paths struct {
	Ledger  string
	Report  string
	Metrics string
}

// WriteAll writes the ledger and JSON report into dir, and the metrics
// textfile when metricsFile is set. Every output is attempted; the errors
// are joined.
func WriteAll(ctx context.Context, dir, metricsFile string, res *pipeline.Result) (Paths, error) {
	var p Paths
	var errs []error

	ledger, err := WriteLedger(dir, res.Started, res.Deleted)
	if err != nil {
		errs = append(errs, err)
	}
	p.Ledger = ledger

	rep, err := WriteReport(dir, NewDocument(res, HostInfo(ctx)))
	if err != nil {
		errs = append(errs, err)
	}
	p.Report = rep

	if metricsFile != "" {
		if err := WriteMetrics(metricsFile, res); err != nil {
			errs = append(errs, err)
		} else {
			p.Metrics = metricsFile
		}
	}
	return p, errors.Join(errs...)
}
