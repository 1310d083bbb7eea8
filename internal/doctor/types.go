package doctor

import (
	"context"
)

// Category groups related checks
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryNetwork Category = "network"
	CategoryLedger  Category = "ledger"
	CategoryWallet  Category = "wallet"
)

// Status is the outcome of a check
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// CheckResult is the outcome of a single check
type CheckResult struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Status   Status   `json:"status"`
	Message  string   `json:"message"`
	Details  string   `json:"details,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

// Checker is implemented by every check
type Checker interface {
	// Name returns the display name of the checker
	Name() string
	// Category returns the category this checker belongs to
	Category() Category
	// Check performs the check and returns the result
	Check(ctx context.Context) CheckResult
}

// Options configures a doctor run
type Options struct {
	// JSON outputs the report as JSON instead of progress lines
	JSON bool
	// Category limits the run to one category
	Category Category
}

// Report is the complete result of a run
type Report struct {
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Summary counts results by status
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Warned  int `json:"warned"`
	Skipped int `json:"skipped"`
}

// IsHealthy returns true if no check failed
func (s Summary) IsHealthy() bool {
	return s.Failed == 0
}
