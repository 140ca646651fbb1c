package domain

import "time"

type RunRequest struct {
	// Dir overrides the configured data directory when non-empty.
	Dir string `json:"dir"`
}

// FileReport summarizes one CSV feed.
type FileReport struct {
	File         string   `json:"file"`
	Imported     int      `json:"imported"`
	Skipped      int      `json:"skipped"`
	SampleErrors []string `json:"sample_errors,omitempty"`
}

// Summary is the batch-level report returned to the caller. Skipped and
// orphaned records are counted and sampled, never silently dropped.
type Summary struct {
	RunID              string     `json:"run_id"`
	Customers          FileReport `json:"customers"`
	Bills              FileReport `json:"bills"`
	Payments           FileReport `json:"payments"`
	Actions            FileReport `json:"collections_actions"`
	UnknownCustomerIDs int        `json:"unknown_customer_ids"`
	SampleUnknownKeys  []string   `json:"sample_unknown_keys,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         time.Time  `json:"finished_at"`
}

func (s Summary) TotalImported() int {
	return s.Customers.Imported + s.Bills.Imported + s.Payments.Imported + s.Actions.Imported
}
