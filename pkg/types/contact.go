package types

import "time"

// UnknownName is the display-name sentinel used when an email is found
// outside any comment container (whole-page fallback) or when the comment
// carries no resolvable author name.
const UnknownName = "(unknown)"

// ContactRecord is one harvested contact. Two records are the same contact
// only when both the name and the email match.
type ContactRecord struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
}

// HarvestConfig parameterizes a single harvesting run. It is immutable for
// the lifetime of the run.
type HarvestConfig struct {
	Headless          bool
	ActionTimeout     time.Duration
	MaxRunDuration    time.Duration
	InactivityTimeout time.Duration
	ScrollSteps       int
	ScrollStepPixels  int
	SettleInterval    time.Duration
	ResultsDir        string
	LoginURL          string
	UserAgent         string
}

// DefaultHarvestConfig mirrors the timings the extraction loop was tuned
// with: 20s per browser action, 5 minute run ceiling, 90s inactivity window.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		Headless:          true,
		ActionTimeout:     20 * time.Second,
		MaxRunDuration:    5 * time.Minute,
		InactivityTimeout: 90 * time.Second,
		ScrollSteps:       1,
		ScrollStepPixels:  800,
		SettleInterval:    1200 * time.Millisecond,
		ResultsDir:        "results",
		LoginURL:          "https://www.linkedin.com/login",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
	}
}

// RunResult is the snapshot returned to the caller when a run ends, whether
// it ended normally or with a fatal session/navigation error.
type RunResult struct {
	RunID          string  `json:"run_id"`
	EmailsFound    int     `json:"emails_found"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	ResultFile     string  `json:"result_file"`
	Error          string  `json:"error,omitempty"`
}
