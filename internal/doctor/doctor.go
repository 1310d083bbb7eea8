// Package doctor runs preflight checks against the client configuration,
// the ledger endpoints and the local wallet.
package doctor

import (
	"context"
	"encoding/json"
	"io"
	"os"
)

// Doctor runs a list of checkers and reports their results
type Doctor struct {
	checkers []Checker
	output   *Output
	writer   io.Writer
	options  Options
}

// New creates a Doctor writing to w
func New(opts Options, w io.Writer, useColors bool, checkers ...Checker) *Doctor {
	if w == nil {
		w = os.Stdout
	}
	return &Doctor{
		checkers: checkers,
		output:   NewOutput(w, useColors),
		writer:   w,
		options:  opts,
	}
}

// AddChecker appends a checker
func (d *Doctor) AddChecker(c Checker) {
	d.checkers = append(d.checkers, c)
}

// Run executes the checks in order and returns a report
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	checkers := d.filterCheckers()
	report := &Report{
		Checks: make([]CheckResult, 0, len(checkers)),
	}

	if d.options.JSON {
		for _, checker := range checkers {
			result := d.check(ctx, checker)
			report.Checks = append(report.Checks, result)
			updateSummary(&report.Summary, result)
		}
		return report, d.outputJSON(report)
	}

	d.output.Header()
	for i, checker := range checkers {
		d.output.CheckStart(i+1, len(checkers), checker.Name())
		result := d.check(ctx, checker)
		d.output.CheckResult(result)
		report.Checks = append(report.Checks, result)
		updateSummary(&report.Summary, result)
	}
	d.output.Summary(report.Summary)

	return report, nil
}

// check stops early when ctx is already done
func (d *Doctor) check(ctx context.Context, c Checker) CheckResult {
	if err := ctx.Err(); err != nil {
		return CheckResult{
			Name:     c.Name(),
			Category: c.Category(),
			Status:   StatusSkipped,
			Message:  c.Name() + ": skipped",
			Details:  err.Error(),
		}
	}
	return c.Check(ctx)
}

func (d *Doctor) filterCheckers() []Checker {
	if d.options.Category == "" {
		return d.checkers
	}

	filtered := make([]Checker, 0)
	for _, c := range d.checkers {
		if c.Category() == d.options.Category {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func updateSummary(summary *Summary, result CheckResult) {
	summary.Total++
	switch result.Status {
	case StatusOK:
		summary.Passed++
	case StatusError:
		summary.Failed++
	case StatusWarning:
		summary.Warned++
	case StatusSkipped:
		summary.Skipped++
	}
}

func (d *Doctor) outputJSON(report *Report) error {
	enc := json.NewEncoder(d.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
