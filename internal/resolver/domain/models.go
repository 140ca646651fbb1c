package domain

import "time"

// BillOutcome is a pure function of a bill and its customer's payments.
// It is recomputed on every resolution pass and never stored apart from
// its source bill.
type BillOutcome struct {
	CustomerID    string    `json:"customer_id"`
	Region        string    `json:"region"`
	IncomeBand    string    `json:"income_band"`
	BillPeriodEnd time.Time `json:"bill_period_end"`
	DueDate       time.Time `json:"due_date"`
	BillAmount    float64   `json:"bill_amount"`
	UsageM3       float64   `json:"usage_m3"`
	PaidInWindow  float64   `json:"paid_in_window"`
	IsDefault     bool      `json:"is_default"`
}

// IntegrityReport counts records that reference customers absent from the
// customer table. Such records are excluded from resolution but always
// surfaced to the caller.
type IntegrityReport struct {
	OrphanBills    int      `json:"orphan_bills"`
	OrphanPayments int      `json:"orphan_payments"`
	SampleKeys     []string `json:"sample_keys,omitempty"`
}

func (r IntegrityReport) Empty() bool {
	return r.OrphanBills == 0 && r.OrphanPayments == 0
}

func (r IntegrityReport) Total() int {
	return r.OrphanBills + r.OrphanPayments
}

type Resolution struct {
	Outcomes   []BillOutcome   `json:"outcomes"`
	Report     IntegrityReport `json:"integrity_report"`
	ResolvedAt time.Time       `json:"resolved_at"`
}
