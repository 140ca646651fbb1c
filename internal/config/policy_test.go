package config

import "testing"

func TestValidatePolicy(t *testing.T) {
	if err := validatePolicy(DefaultPolicy()); err != nil {
		t.Fatalf("default policy should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"negative window before", func(p *Policy) { p.WindowDaysBefore = -1 }},
		{"zero window after", func(p *Policy) { p.WindowDaysAfter = 0 }},
		{"negative tolerance", func(p *Policy) { p.Tolerance = -0.5 }},
		{"zero workers", func(p *Policy) { p.ResolverWorkers = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPolicy()
			tc.mutate(&p)
			if err := validatePolicy(p); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestStaticPolicyHolder(t *testing.T) {
	p := Policy{WindowDaysBefore: 5, WindowDaysAfter: 30, Tolerance: 2, ResolverWorkers: 2}
	holder := NewStaticPolicyHolder(p)
	if got := holder.Get(); got != p {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}
