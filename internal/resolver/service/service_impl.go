package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/arrears/internal/clock"
	"github.com/smallbiznis/arrears/internal/config"
	obsmetrics "github.com/smallbiznis/arrears/internal/observability/metrics"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	"github.com/smallbiznis/arrears/pkg/db/option"
	"github.com/smallbiznis/arrears/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.Config
	policy  *config.PolicyHolder
	clk     clock.Clock
	metrics *obsmetrics.EngineMetrics

	customerRepo repository.Repository[portfoliodomain.Customer]
	billRepo     repository.Repository[portfoliodomain.Bill]
	paymentRepo  repository.Repository[portfoliodomain.Payment]
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	Policy  *config.PolicyHolder
	Clock   clock.Clock
	Metrics *obsmetrics.EngineMetrics `optional:"true"`
}

func NewService(p ServiceParam) resolverdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("resolver.service"),
		cfg:     p.Cfg,
		policy:  p.Policy,
		clk:     p.Clock,
		metrics: p.Metrics,

		customerRepo: repository.ProvideStore[portfoliodomain.Customer](p.DB),
		billRepo:     repository.ProvideStore[portfoliodomain.Bill](p.DB),
		paymentRepo:  repository.ProvideStore[portfoliodomain.Payment](p.DB),
	}
}

// Resolve loads the full record snapshot and classifies every bill.
// Customers are independent units, so resolution fans out over a bounded
// worker pool with no shared mutable state.
func (s *Service) Resolve(ctx context.Context) (*resolverdomain.Resolution, error) {
	start := s.clk.Now()
	policy := s.policy.Get()

	customers, err := s.customerRepo.Find(ctx, &portfoliodomain.Customer{})
	if err != nil {
		return nil, err
	}
	bills, err := s.billRepo.Find(ctx, &portfoliodomain.Bill{},
		option.WithOrder("customer_id, bill_period_end, due_date"))
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.Find(ctx, &portfoliodomain.Payment{},
		option.WithOrder("customer_id, payment_date"))
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[string]*portfoliodomain.Customer, len(customers))
	for _, c := range customers {
		byCustomer[c.CustomerID] = c
	}

	report := resolverdomain.IntegrityReport{}
	sampleSeen := make(map[string]struct{})
	addSample := func(customerID string) {
		if _, ok := sampleSeen[customerID]; ok {
			return
		}
		sampleSeen[customerID] = struct{}{}
		if len(report.SampleKeys) < 5 {
			report.SampleKeys = append(report.SampleKeys, customerID)
		}
	}

	billsByCustomer := make(map[string][]*portfoliodomain.Bill, len(byCustomer))
	for _, b := range bills {
		if _, ok := byCustomer[b.CustomerID]; !ok {
			report.OrphanBills++
			addSample(b.CustomerID)
			continue
		}
		billsByCustomer[b.CustomerID] = append(billsByCustomer[b.CustomerID], b)
	}

	paymentsByCustomer := make(map[string][]*portfoliodomain.Payment, len(byCustomer))
	for _, p := range payments {
		if _, ok := byCustomer[p.CustomerID]; !ok {
			report.OrphanPayments++
			addSample(p.CustomerID)
			continue
		}
		paymentsByCustomer[p.CustomerID] = append(paymentsByCustomer[p.CustomerID], p)
	}

	if !report.Empty() {
		s.metrics.IntegrityErrors("bill", report.OrphanBills)
		s.metrics.IntegrityErrors("payment", report.OrphanPayments)
		s.log.Warn("records reference unknown customers",
			zap.Int("orphan_bills", report.OrphanBills),
			zap.Int("orphan_payments", report.OrphanPayments),
			zap.Strings("sample_keys", report.SampleKeys),
		)
		if s.cfg.StrictIntegrity {
			return nil, fmt.Errorf("%w: %d records reference unknown customers (e.g. %s)",
				resolverdomain.ErrIntegrityViolated, report.Total(), strings.Join(report.SampleKeys, ", "))
		}
	}

	outcomes := s.resolveAll(ctx, policy, byCustomer, billsByCustomer, paymentsByCustomer)

	// Deterministic output order regardless of worker scheduling.
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].CustomerID != outcomes[j].CustomerID {
			return outcomes[i].CustomerID < outcomes[j].CustomerID
		}
		if !outcomes[i].BillPeriodEnd.Equal(outcomes[j].BillPeriodEnd) {
			return outcomes[i].BillPeriodEnd.Before(outcomes[j].BillPeriodEnd)
		}
		return outcomes[i].DueDate.Before(outcomes[j].DueDate)
	})

	elapsed := time.Since(start)
	s.metrics.ObserveResolve(elapsed, len(outcomes))
	s.log.Debug("resolution complete",
		zap.Int("customers", len(billsByCustomer)),
		zap.Int("bills", len(outcomes)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)

	return &resolverdomain.Resolution{
		Outcomes:   outcomes,
		Report:     report,
		ResolvedAt: start,
	}, nil
}

func (s *Service) resolveAll(
	ctx context.Context,
	policy config.Policy,
	customers map[string]*portfoliodomain.Customer,
	billsByCustomer map[string][]*portfoliodomain.Bill,
	paymentsByCustomer map[string][]*portfoliodomain.Payment,
) []resolverdomain.BillOutcome {
	ids := make([]string, 0, len(billsByCustomer))
	total := 0
	for id, bills := range billsByCustomer {
		ids = append(ids, id)
		total += len(bills)
	}

	workers := policy.ResolverWorkers
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers <= 1 {
		outcomes := make([]resolverdomain.BillOutcome, 0, total)
		for _, id := range ids {
			outcomes = append(outcomes, resolveCustomer(policy, customers[id], billsByCustomer[id], paymentsByCustomer[id])...)
		}
		return outcomes
	}

	work := make(chan string)
	var mu sync.Mutex
	outcomes := make([]resolverdomain.BillOutcome, 0, total)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				resolved := resolveCustomer(policy, customers[id], billsByCustomer[id], paymentsByCustomer[id])
				mu.Lock()
				outcomes = append(outcomes, resolved...)
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return outcomes
		case work <- id:
		}
	}
	close(work)
	wg.Wait()

	return outcomes
}
