package service

import (
	"sort"
	"time"

	"github.com/smallbiznis/arrears/internal/config"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
)

// paymentSeries holds one customer's payments sorted by day with prefix
// sums, so any date window reduces to two binary searches and a
// subtraction. Windows are per-bill and may regress relative to the
// previous bill's window, which rules out a forward-only pointer.
type paymentSeries struct {
	days   []int64
	prefix []float64 // prefix[i] = sum of amounts of the first i payments
}

func buildPaymentSeries(payments []*portfoliodomain.Payment) paymentSeries {
	sorted := make([]*portfoliodomain.Payment, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(i, j int) bool {
		return dayNumber(sorted[i].PaymentDate) < dayNumber(sorted[j].PaymentDate)
	})

	series := paymentSeries{
		days:   make([]int64, len(sorted)),
		prefix: make([]float64, len(sorted)+1),
	}
	for i, p := range sorted {
		series.days[i] = dayNumber(p.PaymentDate)
		series.prefix[i+1] = series.prefix[i] + p.Amount
	}
	return series
}

// sumWindow returns the sum of payment amounts with
// lowerExclusive < day <= upperInclusive.
func (s paymentSeries) sumWindow(lowerExclusive, upperInclusive int64) float64 {
	lo := sort.Search(len(s.days), func(i int) bool { return s.days[i] > lowerExclusive })
	hi := sort.Search(len(s.days), func(i int) bool { return s.days[i] > upperInclusive })
	return s.prefix[hi] - s.prefix[lo]
}

// resolveCustomer classifies one customer's bills against their payment
// series. Eligibility is evaluated independently per bill: overlapping
// windows count the same payment toward each bill they cover. Callers
// wanting exclusive allocation must feed pre-allocated payment records.
func resolveCustomer(policy config.Policy, customer *portfoliodomain.Customer, bills []*portfoliodomain.Bill, payments []*portfoliodomain.Payment) []resolverdomain.BillOutcome {
	if len(bills) == 0 {
		return nil
	}

	series := buildPaymentSeries(payments)

	outcomes := make([]resolverdomain.BillOutcome, 0, len(bills))
	for _, bill := range bills {
		due := dayNumber(bill.DueDate)
		paid := series.sumWindow(due-int64(policy.WindowDaysBefore), due+int64(policy.WindowDaysAfter))

		// A zero-amount bill can never default: any non-negative
		// paid_in_window clears bill_amount - tolerance.
		isDefault := paid < bill.BillAmount-policy.Tolerance

		outcomes = append(outcomes, resolverdomain.BillOutcome{
			CustomerID:    bill.CustomerID,
			Region:        customer.Region,
			IncomeBand:    customer.IncomeBand,
			BillPeriodEnd: bill.BillPeriodEnd,
			DueDate:       bill.DueDate,
			BillAmount:    bill.BillAmount,
			UsageM3:       bill.UsageM3,
			PaidInWindow:  paid,
			IsDefault:     isDefault,
		})
	}
	return outcomes
}

// dayNumber truncates a timestamp to its UTC calendar day.
func dayNumber(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
