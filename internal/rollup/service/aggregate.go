package service

import (
	"sort"

	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	rollupdomain "github.com/smallbiznis/arrears/internal/rollup/domain"
)

// Aggregate reduces an outcome set along one dimension. The reduction is
// commutative and associative, so input order does not affect bucket
// contents; only the final presentation ordering is imposed here.
// Month buckets sort chronologically ascending, segment buckets by
// default rate descending with a lexical tie-break on the bucket key.
func Aggregate(outcomes []resolverdomain.BillOutcome, dimension rollupdomain.Dimension) []rollupdomain.SegmentRollup {
	type acc struct {
		bills    int
		defaults int
		billed   float64
		paid     float64
	}

	buckets := make(map[string]*acc)
	for _, o := range outcomes {
		key := bucketKey(o, dimension)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.bills++
		if o.IsDefault {
			a.defaults++
		}
		a.billed += o.BillAmount
		a.paid += o.PaidInWindow
	}

	rollups := make([]rollupdomain.SegmentRollup, 0, len(buckets))
	for key, a := range buckets {
		rollups = append(rollups, rollupdomain.SegmentRollup{
			BucketKey:    key,
			BillCount:    a.bills,
			DefaultCount: a.defaults,
			DefaultRate:  rollupdomain.NewRate(float64(a.defaults), float64(a.bills)),
			TotalBilled:  a.billed,
			TotalPaid:    a.paid,
		})
	}

	if dimension == rollupdomain.DimensionMonth {
		sort.Slice(rollups, func(i, j int) bool {
			return rollups[i].BucketKey < rollups[j].BucketKey
		})
		return rollups
	}

	sort.Slice(rollups, func(i, j int) bool {
		ri, rj := rollups[i].DefaultRate, rollups[j].DefaultRate
		if ri.Valid != rj.Valid {
			return ri.Valid // undefined rates sort last
		}
		if ri.Valid && ri.Value != rj.Value {
			return ri.Value > rj.Value
		}
		return rollups[i].BucketKey < rollups[j].BucketKey
	})
	return rollups
}

// Summarize folds the whole outcome set into portfolio totals.
func Summarize(outcomes []resolverdomain.BillOutcome) rollupdomain.PortfolioSummary {
	summary := rollupdomain.PortfolioSummary{}
	for _, o := range outcomes {
		summary.BillCount++
		if o.IsDefault {
			summary.DefaultCount++
		}
		summary.TotalBilled += o.BillAmount
		summary.TotalPaid += o.PaidInWindow
	}
	summary.DefaultRate = rollupdomain.NewRate(float64(summary.DefaultCount), float64(summary.BillCount))
	summary.CollectionRate = rollupdomain.NewRate(summary.TotalPaid, summary.TotalBilled)
	return summary
}

func bucketKey(o resolverdomain.BillOutcome, dimension rollupdomain.Dimension) string {
	switch dimension {
	case rollupdomain.DimensionIncomeBand:
		return o.IncomeBand
	case rollupdomain.DimensionRegion:
		return o.Region
	default:
		return o.BillPeriodEnd.UTC().Format("2006-01")
	}
}
