package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

type Dimension string

const (
	DimensionMonth      Dimension = "month"
	DimensionIncomeBand Dimension = "income_band"
	DimensionRegion     Dimension = "region"
)

var ErrInvalidDimension = errors.New("invalid_dimension")

func ParseDimension(raw string) (Dimension, error) {
	switch Dimension(strings.ToLower(strings.TrimSpace(raw))) {
	case DimensionMonth:
		return DimensionMonth, nil
	case DimensionIncomeBand:
		return DimensionIncomeBand, nil
	case DimensionRegion:
		return DimensionRegion, nil
	default:
		return "", ErrInvalidDimension
	}
}

// Rate is a ratio with an explicit undefined state for zero denominators.
// Undefined rates marshal as JSON null instead of NaN.
type Rate struct {
	Value float64
	Valid bool
}

func NewRate(numerator, denominator float64) Rate {
	if denominator == 0 {
		return Rate{}
	}
	return Rate{Value: numerator / denominator, Valid: true}
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rate{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Rate{Value: v, Valid: true}
	return nil
}

// SegmentRollup summarizes bill outcomes for one bucket of a dimension.
type SegmentRollup struct {
	BucketKey    string  `json:"bucket_key"`
	BillCount    int     `json:"bill_count"`
	DefaultCount int     `json:"default_count"`
	DefaultRate  Rate    `json:"default_rate"`
	TotalBilled  float64 `json:"total_billed"`
	TotalPaid    float64 `json:"total_paid"`
}

// PortfolioSummary is the whole-portfolio rollup.
type PortfolioSummary struct {
	BillCount      int     `json:"bill_count"`
	DefaultCount   int     `json:"default_count"`
	DefaultRate    Rate    `json:"default_rate"`
	TotalBilled    float64 `json:"total_billed"`
	TotalPaid      float64 `json:"total_paid"`
	CollectionRate Rate    `json:"collection_rate"`
}

type ActionVolume struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}
