package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/smallbiznis/arrears/internal/config"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func bill(customerID, periodEnd, due string, amount float64) *portfoliodomain.Bill {
	return &portfoliodomain.Bill{
		CustomerID:    customerID,
		BillPeriodEnd: day(periodEnd),
		DueDate:       day(due),
		BillAmount:    amount,
	}
}

func payment(customerID, date string, amount float64) *portfoliodomain.Payment {
	return &portfoliodomain.Payment{
		CustomerID:  customerID,
		PaymentDate: day(date),
		Amount:      amount,
	}
}

func testCustomer(id string) *portfoliodomain.Customer {
	return &portfoliodomain.Customer{CustomerID: id, Region: "North", IncomeBand: "mid"}
}

func resolveOne(t *testing.T, b *portfoliodomain.Bill, payments ...*portfoliodomain.Payment) []struct {
	Paid    float64
	Default bool
} {
	t.Helper()
	outcomes := resolveCustomer(config.DefaultPolicy(), testCustomer(b.CustomerID), []*portfoliodomain.Bill{b}, payments)
	out := make([]struct {
		Paid    float64
		Default bool
	}, len(outcomes))
	for i, o := range outcomes {
		out[i].Paid = o.PaidInWindow
		out[i].Default = o.IsDefault
	}
	return out
}

func TestWindowBoundaries(t *testing.T) {
	// Window for due 2024-01-31 is (2024-01-28, 2024-03-31].
	cases := []struct {
		name     string
		payDate  string
		eligible bool
	}{
		{"lower bound exactly excluded", "2024-01-28", false},
		{"one day inside lower bound", "2024-01-29", true},
		{"upper bound exactly included", "2024-03-31", true},
		{"one day past upper bound", "2024-04-01", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 100), payment("c1", tc.payDate, 100))
			paid := got[0].Paid
			if tc.eligible && paid != 100 {
				t.Fatalf("expected payment on %s to be eligible, paid_in_window = %v", tc.payDate, paid)
			}
			if !tc.eligible && paid != 0 {
				t.Fatalf("expected payment on %s to be ineligible, paid_in_window = %v", tc.payDate, paid)
			}
		})
	}
}

func TestZeroAmountBillNeverDefaults(t *testing.T) {
	got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 0))
	if got[0].Default {
		t.Fatal("zero-amount bill classified as default")
	}
	if got[0].Paid != 0 {
		t.Fatalf("expected paid_in_window 0, got %v", got[0].Paid)
	}
}

func TestNoPaymentsIsNotAnError(t *testing.T) {
	got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 100))
	if got[0].Paid != 0 {
		t.Fatalf("expected paid_in_window 0, got %v", got[0].Paid)
	}
	if !got[0].Default {
		t.Fatal("unpaid bill should default")
	}
}

func TestCuredBillFullWindow(t *testing.T) {
	got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 100),
		payment("c1", "2024-02-01", 40),
		payment("c1", "2024-03-01", 60),
	)
	if got[0].Paid != 100 {
		t.Fatalf("expected paid_in_window 100, got %v", got[0].Paid)
	}
	if got[0].Default {
		t.Fatal("fully paid bill classified as default")
	}
}

func TestPartialPaymentDefaults(t *testing.T) {
	got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 100), payment("c1", "2024-02-15", 50))
	if got[0].Paid != 50 {
		t.Fatalf("expected paid_in_window 50, got %v", got[0].Paid)
	}
	if !got[0].Default {
		t.Fatal("expected default: 50 < 99.0")
	}
}

func TestToleranceBoundary(t *testing.T) {
	got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 99.5), payment("c1", "2024-02-15", 98.7))
	if got[0].Default {
		t.Fatal("98.7 >= 98.5 should be cured")
	}
}

func TestOverlappingWindowsDoubleCount(t *testing.T) {
	// Bills due 2024-01-10 and 2024-02-05 are 26 days apart, so their
	// windows overlap; a payment on 2024-01-20 sits in both.
	bills := []*portfoliodomain.Bill{
		bill("c1", "2024-01-01", "2024-01-10", 30),
		bill("c1", "2024-02-01", "2024-02-05", 30),
	}
	payments := []*portfoliodomain.Payment{payment("c1", "2024-01-20", 30)}

	outcomes := resolveCustomer(config.DefaultPolicy(), testCustomer("c1"), bills, payments)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.PaidInWindow != 30 {
			t.Fatalf("expected payment counted for bill due %s, paid_in_window = %v", o.DueDate.Format("2006-01-02"), o.PaidInWindow)
		}
		if o.IsDefault {
			t.Fatalf("bill due %s should be cured", o.DueDate.Format("2006-01-02"))
		}
	}
}

func TestRegressingWindows(t *testing.T) {
	// A later bill in period order with an earlier due date pulls the
	// window backward; payments before the previous window must be
	// re-included.
	bills := []*portfoliodomain.Bill{
		bill("c1", "2024-01-01", "2024-03-15", 50),
		bill("c1", "2024-02-01", "2024-02-01", 50),
	}
	payments := []*portfoliodomain.Payment{
		payment("c1", "2024-02-10", 50),
	}

	outcomes := resolveCustomer(config.DefaultPolicy(), testCustomer("c1"), bills, payments)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	// First bill's window (2024-03-12, 2024-05-14] misses the payment.
	if outcomes[0].PaidInWindow != 0 || !outcomes[0].IsDefault {
		t.Fatalf("bill due 2024-03-15: paid %v default %v, want 0/default", outcomes[0].PaidInWindow, outcomes[0].IsDefault)
	}
	// Second bill's window (2024-01-29, 2024-04-01] regresses behind the
	// first one and must re-include the payment.
	if outcomes[1].PaidInWindow != 50 || outcomes[1].IsDefault {
		t.Fatalf("bill due 2024-02-01: paid %v default %v, want 50/cured", outcomes[1].PaidInWindow, outcomes[1].IsDefault)
	}
}

func TestOrderIndependence(t *testing.T) {
	payments := []*portfoliodomain.Payment{
		payment("c1", "2024-02-01", 10),
		payment("c1", "2024-02-10", 20),
		payment("c1", "2024-02-20", 30),
		payment("c1", "2024-03-01", 15),
		payment("c1", "2024-03-20", 25),
	}
	b := bill("c1", "2024-01-15", "2024-01-31", 100)

	want := resolveOne(t, b, payments...)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]*portfoliodomain.Payment, len(payments))
		copy(shuffled, payments)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := resolveOne(t, b, shuffled...)
		if got[0].Paid != want[0].Paid {
			t.Fatalf("shuffle %d: paid_in_window %v, want %v", i, got[0].Paid, want[0].Paid)
		}
	}
}

func TestNegativePaymentDoesNotCrash(t *testing.T) {
	got := resolveOne(t, bill("c1", "2024-01-15", "2024-01-31", 100),
		payment("c1", "2024-02-01", -20),
		payment("c1", "2024-02-05", 120),
	)
	if got[0].Paid != 100 {
		t.Fatalf("expected paid_in_window 100, got %v", got[0].Paid)
	}
}

func TestSumWindowAgainstLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	payments := make([]*portfoliodomain.Payment, 0, 200)
	base := day("2024-01-01")
	for i := 0; i < 200; i++ {
		payments = append(payments, &portfoliodomain.Payment{
			CustomerID:  "c1",
			PaymentDate: base.AddDate(0, 0, rng.Intn(365)),
			Amount:      float64(rng.Intn(500)),
		})
	}
	series := buildPaymentSeries(payments)

	for trial := 0; trial < 50; trial++ {
		due := dayNumber(base.AddDate(0, 0, rng.Intn(365)))
		lo, hi := due-3, due+60

		var want float64
		for _, p := range payments {
			d := dayNumber(p.PaymentDate)
			if d > lo && d <= hi {
				want += p.Amount
			}
		}

		if got := series.sumWindow(lo, hi); got != want {
			t.Fatalf("trial %d: sumWindow = %v, linear scan = %v", trial, got, want)
		}
	}
}
