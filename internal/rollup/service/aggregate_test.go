package service

import (
	"math/rand"
	"testing"
	"time"

	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	rollupdomain "github.com/smallbiznis/arrears/internal/rollup/domain"
	"github.com/stretchr/testify/require"
)

func outcome(customerID, periodEnd, region, band string, amount, paid float64, isDefault bool) resolverdomain.BillOutcome {
	t, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		panic(err)
	}
	return resolverdomain.BillOutcome{
		CustomerID:    customerID,
		Region:        region,
		IncomeBand:    band,
		BillPeriodEnd: t.UTC(),
		BillAmount:    amount,
		PaidInWindow:  paid,
		IsDefault:     isDefault,
	}
}

func sampleOutcomes() []resolverdomain.BillOutcome {
	return []resolverdomain.BillOutcome{
		outcome("c1", "2024-01-15", "North", "low", 100, 100, false),
		outcome("c1", "2024-02-15", "North", "low", 100, 0, true),
		outcome("c2", "2024-01-20", "South", "high", 80, 80, false),
		outcome("c3", "2024-02-28", "South", "mid", 60, 20, true),
		outcome("c4", "2024-02-01", "North", "mid", 40, 40, false),
	}
}

func TestAggregateByMonth(t *testing.T) {
	rollups := Aggregate(sampleOutcomes(), rollupdomain.DimensionMonth)
	require.Len(t, rollups, 2)

	// Chronological ascending.
	require.Equal(t, "2024-01", rollups[0].BucketKey)
	require.Equal(t, "2024-02", rollups[1].BucketKey)

	jan := rollups[0]
	require.Equal(t, 2, jan.BillCount)
	require.Equal(t, 0, jan.DefaultCount)
	require.True(t, jan.DefaultRate.Valid)
	require.Equal(t, 0.0, jan.DefaultRate.Value)
	require.Equal(t, 180.0, jan.TotalBilled)
	require.Equal(t, 180.0, jan.TotalPaid)

	feb := rollups[1]
	require.Equal(t, 3, feb.BillCount)
	require.Equal(t, 2, feb.DefaultCount)
	require.InDelta(t, 2.0/3.0, feb.DefaultRate.Value, 1e-9)
}

func TestAggregateByRegionOrdersByDefaultRateDesc(t *testing.T) {
	rollups := Aggregate(sampleOutcomes(), rollupdomain.DimensionRegion)
	require.Len(t, rollups, 2)

	// South defaults 1/2, North 1/3.
	require.Equal(t, "South", rollups[0].BucketKey)
	require.Equal(t, "North", rollups[1].BucketKey)
}

func TestAggregateTieBrokenLexically(t *testing.T) {
	outcomes := []resolverdomain.BillOutcome{
		outcome("c1", "2024-01-15", "B", "low", 100, 0, true),
		outcome("c2", "2024-01-15", "A", "low", 100, 0, true),
	}
	rollups := Aggregate(outcomes, rollupdomain.DimensionRegion)
	require.Equal(t, "A", rollups[0].BucketKey)
	require.Equal(t, "B", rollups[1].BucketKey)
}

func TestAggregateReductionIdentity(t *testing.T) {
	outcomes := sampleOutcomes()
	wantDefaults := 0
	for _, o := range outcomes {
		if o.IsDefault {
			wantDefaults++
		}
	}

	for _, dim := range []rollupdomain.Dimension{
		rollupdomain.DimensionMonth,
		rollupdomain.DimensionIncomeBand,
		rollupdomain.DimensionRegion,
	} {
		total := 0
		for _, r := range Aggregate(outcomes, dim) {
			total += r.DefaultCount
		}
		require.Equal(t, wantDefaults, total, "dimension %s", dim)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	outcomes := sampleOutcomes()
	want := Aggregate(outcomes, rollupdomain.DimensionIncomeBand)

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 10; i++ {
		shuffled := make([]resolverdomain.BillOutcome, len(outcomes))
		copy(shuffled, outcomes)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Aggregate(shuffled, rollupdomain.DimensionIncomeBand))
	}
}

func TestAggregateEmptySet(t *testing.T) {
	require.Empty(t, Aggregate(nil, rollupdomain.DimensionMonth))
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleOutcomes())
	require.Equal(t, 5, summary.BillCount)
	require.Equal(t, 2, summary.DefaultCount)
	require.InDelta(t, 0.4, summary.DefaultRate.Value, 1e-9)
	require.Equal(t, 380.0, summary.TotalBilled)
	require.Equal(t, 240.0, summary.TotalPaid)
	require.InDelta(t, 240.0/380.0, summary.CollectionRate.Value, 1e-9)
}

func TestSummarizeEmptyPortfolioHasUndefinedRates(t *testing.T) {
	summary := Summarize(nil)
	require.Equal(t, 0, summary.BillCount)
	require.False(t, summary.DefaultRate.Valid)
	require.False(t, summary.CollectionRate.Valid)
}
