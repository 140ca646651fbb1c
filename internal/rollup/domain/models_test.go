package domain

import (
	"encoding/json"
	"testing"
)

func TestRateMarshalsNullWhenUndefined(t *testing.T) {
	b, err := json.Marshal(Rate{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("expected null, got %s", b)
	}

	b, err = json.Marshal(Rate{Value: 0.25, Valid: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "0.25" {
		t.Fatalf("expected 0.25, got %s", b)
	}
}

func TestRateRoundTrip(t *testing.T) {
	var r Rate
	if err := json.Unmarshal([]byte("null"), &r); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if r.Valid {
		t.Fatal("null should be undefined")
	}

	if err := json.Unmarshal([]byte("0.5"), &r); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !r.Valid || r.Value != 0.5 {
		t.Fatalf("unexpected rate %+v", r)
	}
}

func TestNewRateZeroDenominator(t *testing.T) {
	if r := NewRate(3, 0); r.Valid {
		t.Fatal("zero denominator must be undefined")
	}
	if r := NewRate(1, 4); !r.Valid || r.Value != 0.25 {
		t.Fatalf("unexpected rate %+v", r)
	}
}

func TestParseDimension(t *testing.T) {
	for _, raw := range []string{"month", "income_band", "region", " REGION "} {
		if _, err := ParseDimension(raw); err != nil {
			t.Fatalf("expected %q to parse, got %v", raw, err)
		}
	}
	if _, err := ParseDimension("postcode"); err == nil {
		t.Fatal("expected invalid dimension error")
	}
}
