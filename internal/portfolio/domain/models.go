package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer attributes are immutable for the analysis horizon.
type Customer struct {
	CustomerID string `gorm:"column:customer_id;primaryKey" json:"customer_id"`
	Region     string `gorm:"not null;index:ix_customers_region" json:"region"`
	IncomeBand string `gorm:"not null;index:ix_customers_income" json:"income_band"`
}

func (Customer) TableName() string { return "customers" }

type Bill struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID    string       `gorm:"not null;index:ix_bills_cid_date,priority:1" json:"customer_id"`
	BillPeriodEnd time.Time    `gorm:"not null;index:ix_bills_cid_date,priority:2" json:"bill_period_end"`
	DueDate       time.Time    `gorm:"not null;index:ix_bills_due_date" json:"due_date"`
	BillAmount    float64      `gorm:"not null" json:"bill_amount"`
	UsageM3       float64      `gorm:"column:usage_m3" json:"usage_m3"`
}

func (Bill) TableName() string { return "bills" }

// Payment is not pre-linked to a bill; the window resolver links it by date.
type Payment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID  string       `gorm:"not null;index:ix_payments_cid_date,priority:1" json:"customer_id"`
	PaymentDate time.Time    `gorm:"not null;index:ix_payments_cid_date,priority:2;index:ix_payments_date" json:"payment_date"`
	Amount      float64      `gorm:"not null" json:"amount"`
}

func (Payment) TableName() string { return "payments" }

type CollectionAction struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID string       `gorm:"not null;index:ix_actions_cid_date,priority:1" json:"customer_id"`
	ActionDate time.Time    `gorm:"not null;index:ix_actions_cid_date,priority:2;index:ix_actions_date" json:"action_date"`
	Action     string       `gorm:"column:action;not null" json:"action"`
}

func (CollectionAction) TableName() string { return "collections_actions" }

// ImportRun records one CSV ingestion pass for auditing.
type ImportRun struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	StartedAt  time.Time         `gorm:"not null" json:"started_at"`
	FinishedAt time.Time         `gorm:"not null" json:"finished_at"`
	Summary    datatypes.JSONMap `gorm:"type:jsonb" json:"summary"`
}

func (ImportRun) TableName() string { return "import_runs" }
