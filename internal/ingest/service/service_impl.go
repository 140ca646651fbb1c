package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/arrears/internal/clock"
	"github.com/smallbiznis/arrears/internal/config"
	ingestdomain "github.com/smallbiznis/arrears/internal/ingest/domain"
	obsmetrics "github.com/smallbiznis/arrears/internal/observability/metrics"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	"github.com/smallbiznis/arrears/pkg/db"
	"github.com/smallbiznis/arrears/pkg/db/option"
	"github.com/smallbiznis/arrears/pkg/db/pagination"
	"github.com/smallbiznis/arrears/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSamples = 5

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.Config
	genID   *snowflake.Node
	clk     clock.Clock
	metrics *obsmetrics.EngineMetrics

	customerRepo repository.Repository[portfoliodomain.Customer]
	billRepo     repository.Repository[portfoliodomain.Bill]
	paymentRepo  repository.Repository[portfoliodomain.Payment]
	actionRepo   repository.Repository[portfoliodomain.CollectionAction]
	runRepo      repository.Repository[portfoliodomain.ImportRun]
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.EngineMetrics `optional:"true"`
}

func NewService(p ServiceParam) ingestdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ingest.service"),
		cfg:     p.Cfg,
		genID:   p.GenID,
		clk:     p.Clock,
		metrics: p.Metrics,

		customerRepo: repository.ProvideStore[portfoliodomain.Customer](p.DB),
		billRepo:     repository.ProvideStore[portfoliodomain.Bill](p.DB),
		paymentRepo:  repository.ProvideStore[portfoliodomain.Payment](p.DB),
		actionRepo:   repository.ProvideStore[portfoliodomain.CollectionAction](p.DB),
		runRepo:      repository.ProvideStore[portfoliodomain.ImportRun](p.DB),
	}
}

func (s *Service) Run(ctx context.Context, req ingestdomain.RunRequest) (*ingestdomain.Summary, error) {
	dir := strings.TrimSpace(req.Dir)
	if dir == "" {
		dir = s.cfg.DataDir
	}

	summary := &ingestdomain.Summary{StartedAt: s.clk.Now()}

	customers, customerReport, err := s.loadCustomers(filepath.Join(dir, "customers.csv"))
	if err != nil {
		return nil, err
	}
	summary.Customers = customerReport

	known := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		known[c.CustomerID] = struct{}{}
	}

	orphans := newOrphanTracker()

	bills, billReport := s.loadBills(filepath.Join(dir, "bills.csv"), known, orphans)
	summary.Bills = billReport

	payments, paymentReport := s.loadPayments(filepath.Join(dir, "payments.csv"), known, orphans)
	summary.Payments = paymentReport

	actions, actionReport := s.loadActions(filepath.Join(dir, "collections_actions.csv"), known, orphans)
	summary.Actions = actionReport

	summary.UnknownCustomerIDs = orphans.count
	summary.SampleUnknownKeys = orphans.samples

	if s.cfg.StrictIntegrity && orphans.count > 0 {
		return nil, fmt.Errorf("%w: %d records reference unknown customers (e.g. %s)",
			ingestdomain.ErrIntegrityViolated, orphans.count, strings.Join(orphans.samples, ", "))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replace-not-append: a run fully rebuilds the record store.
		if err := s.customerRepo.WithTrx(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.billRepo.WithTrx(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.paymentRepo.WithTrx(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.actionRepo.WithTrx(tx).DeleteAll(ctx); err != nil {
			return err
		}

		if err := s.customerRepo.WithTrx(tx).BatchCreate(ctx, customers); err != nil {
			return err
		}
		if err := s.billRepo.WithTrx(tx).BatchCreate(ctx, bills); err != nil {
			return err
		}
		if err := s.paymentRepo.WithTrx(tx).BatchCreate(ctx, payments); err != nil {
			return err
		}
		return s.actionRepo.WithTrx(tx).BatchCreate(ctx, actions)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: customers.csv contains repeated customer_id values", ingestdomain.ErrDuplicateRecords)
		}
		return nil, err
	}

	summary.FinishedAt = s.clk.Now()
	s.recordRun(ctx, summary)
	s.observe(summary)

	s.log.Info("import complete",
		zap.Int("customers", summary.Customers.Imported),
		zap.Int("bills", summary.Bills.Imported),
		zap.Int("payments", summary.Payments.Imported),
		zap.Int("actions", summary.Actions.Imported),
		zap.Int("unknown_customer_ids", summary.UnknownCustomerIDs),
	)

	return summary, nil
}

func (s *Service) History(ctx context.Context, page pagination.Pagination) ([]*portfoliodomain.ImportRun, int64, error) {
	page = page.Normalize()

	total, err := s.runRepo.Count(ctx, &portfoliodomain.ImportRun{})
	if err != nil {
		return nil, 0, err
	}

	runs, err := s.runRepo.Find(ctx, &portfoliodomain.ImportRun{},
		option.WithOrder("started_at DESC, id DESC"),
		option.WithLimit(page.PageSize),
		option.WithOffset(page.Offset()),
	)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (s *Service) recordRun(ctx context.Context, summary *ingestdomain.Summary) {
	run := &portfoliodomain.ImportRun{
		ID:         s.genID.Generate(),
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Summary: datatypes.JSONMap{
			"customers":            summary.Customers.Imported,
			"bills":                summary.Bills.Imported,
			"payments":             summary.Payments.Imported,
			"collections_actions":  summary.Actions.Imported,
			"skipped":              summary.Customers.Skipped + summary.Bills.Skipped + summary.Payments.Skipped + summary.Actions.Skipped,
			"unknown_customer_ids": summary.UnknownCustomerIDs,
		},
	}
	summary.RunID = run.ID.String()

	if err := s.runRepo.Create(ctx, run); err != nil {
		s.log.Warn("failed to record import run", zap.Error(err))
	}
}

func (s *Service) observe(summary *ingestdomain.Summary) {
	s.metrics.RowsIngested("customers", summary.Customers.Imported)
	s.metrics.RowsIngested("bills", summary.Bills.Imported)
	s.metrics.RowsIngested("payments", summary.Payments.Imported)
	s.metrics.RowsIngested("collections_actions", summary.Actions.Imported)
	s.metrics.RowsSkipped("customers", "malformed", summary.Customers.Skipped)
	s.metrics.RowsSkipped("bills", "malformed", summary.Bills.Skipped)
	s.metrics.RowsSkipped("payments", "malformed", summary.Payments.Skipped)
	s.metrics.RowsSkipped("collections_actions", "malformed", summary.Actions.Skipped)
	s.metrics.IntegrityErrors("import", summary.UnknownCustomerIDs)
}

type orphanTracker struct {
	count   int
	samples []string
	seen    map[string]struct{}
}

func newOrphanTracker() *orphanTracker {
	return &orphanTracker{seen: make(map[string]struct{})}
}

func (o *orphanTracker) add(customerID string) {
	o.count++
	if _, ok := o.seen[customerID]; ok {
		return
	}
	o.seen[customerID] = struct{}{}
	if len(o.samples) < maxSamples {
		o.samples = append(o.samples, customerID)
	}
}

func (s *Service) loadCustomers(path string) ([]*portfoliodomain.Customer, ingestdomain.FileReport, error) {
	report := ingestdomain.FileReport{File: filepath.Base(path)}

	rows, err := readCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, report, ingestdomain.ErrMissingCustomers
		}
		return nil, report, err
	}

	out := make([]*portfoliodomain.Customer, 0, len(rows.records))
	for i, rec := range rows.records {
		id := strings.TrimSpace(rows.field(rec, "customer_id"))
		region := strings.TrimSpace(rows.field(rec, "region"))
		band := strings.TrimSpace(rows.field(rec, "income_band"))
		if id == "" {
			report.Skipped++
			report.SampleErrors = appendSample(report.SampleErrors, fmt.Sprintf("line %d: empty customer_id", i+2))
			continue
		}
		out = append(out, &portfoliodomain.Customer{CustomerID: id, Region: region, IncomeBand: band})
	}
	report.Imported = len(out)
	return out, report, nil
}

func (s *Service) loadBills(path string, known map[string]struct{}, orphans *orphanTracker) ([]*portfoliodomain.Bill, ingestdomain.FileReport) {
	report := ingestdomain.FileReport{File: filepath.Base(path)}

	rows, err := readCSV(path)
	if err != nil {
		s.warnFeed(path, err)
		return nil, report
	}

	out := make([]*portfoliodomain.Bill, 0, len(rows.records))
	for i, rec := range rows.records {
		id := strings.TrimSpace(rows.field(rec, "customer_id"))
		periodEnd, err1 := parseDate(rows.field(rec, "bill_period_end"))
		dueDate, err2 := parseDate(rows.field(rec, "due_date"))
		amount, err3 := parseAmount(rows.field(rec, "bill_amount"))
		usage, _ := parseAmount(rows.field(rec, "usage_m3"))

		if err := firstErr(err1, err2, err3); err != nil {
			report.Skipped++
			report.SampleErrors = appendSample(report.SampleErrors, fmt.Sprintf("line %d: %v", i+2, err))
			continue
		}
		if _, ok := known[id]; !ok {
			report.Skipped++
			orphans.add(id)
			continue
		}

		out = append(out, &portfoliodomain.Bill{
			ID:            s.genID.Generate(),
			CustomerID:    id,
			BillPeriodEnd: periodEnd,
			DueDate:       dueDate,
			BillAmount:    amount,
			UsageM3:       usage,
		})
	}
	report.Imported = len(out)
	return out, report
}

func (s *Service) loadPayments(path string, known map[string]struct{}, orphans *orphanTracker) ([]*portfoliodomain.Payment, ingestdomain.FileReport) {
	report := ingestdomain.FileReport{File: filepath.Base(path)}

	rows, err := readCSV(path)
	if err != nil {
		s.warnFeed(path, err)
		return nil, report
	}

	out := make([]*portfoliodomain.Payment, 0, len(rows.records))
	for i, rec := range rows.records {
		id := strings.TrimSpace(rows.field(rec, "customer_id"))
		date, err1 := parseDate(rows.field(rec, "payment_date"))
		amount, err2 := parseAmount(rows.field(rec, "amount"))

		if err := firstErr(err1, err2); err != nil {
			report.Skipped++
			report.SampleErrors = appendSample(report.SampleErrors, fmt.Sprintf("line %d: %v", i+2, err))
			continue
		}
		if _, ok := known[id]; !ok {
			report.Skipped++
			orphans.add(id)
			continue
		}

		out = append(out, &portfoliodomain.Payment{
			ID:          s.genID.Generate(),
			CustomerID:  id,
			PaymentDate: date,
			Amount:      amount,
		})
	}
	report.Imported = len(out)
	return out, report
}

func (s *Service) loadActions(path string, known map[string]struct{}, orphans *orphanTracker) ([]*portfoliodomain.CollectionAction, ingestdomain.FileReport) {
	report := ingestdomain.FileReport{File: filepath.Base(path)}

	rows, err := readCSV(path)
	if err != nil {
		s.warnFeed(path, err)
		return nil, report
	}

	out := make([]*portfoliodomain.CollectionAction, 0, len(rows.records))
	for i, rec := range rows.records {
		id := strings.TrimSpace(rows.field(rec, "customer_id"))
		date, errDate := parseDate(rows.field(rec, "action_date"))
		action := strings.TrimSpace(rows.field(rec, "action"))

		if errDate != nil {
			report.Skipped++
			report.SampleErrors = appendSample(report.SampleErrors, fmt.Sprintf("line %d: %v", i+2, errDate))
			continue
		}
		if _, ok := known[id]; !ok {
			report.Skipped++
			orphans.add(id)
			continue
		}

		out = append(out, &portfoliodomain.CollectionAction{
			ID:         s.genID.Generate(),
			CustomerID: id,
			ActionDate: date,
			Action:     action,
		})
	}
	report.Imported = len(out)
	return out, report
}

func (s *Service) warnFeed(path string, err error) {
	if os.IsNotExist(err) {
		s.log.Warn("feed not found, skipping", zap.String("file", filepath.Base(path)))
		return
	}
	s.log.Warn("feed unreadable, skipping", zap.String("file", filepath.Base(path)), zap.Error(err))
}

type csvRows struct {
	columns map[string]int
	records [][]string
}

func (r *csvRows) field(rec []string, name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func readCSV(path string) (*csvRows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return &csvRows{columns: map[string]int{}}, nil
		}
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	return &csvRows{columns: columns, records: records}, nil
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", value)
}

func parseAmount(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable amount %q", value)
	}
	return parsed, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func appendSample(samples []string, msg string) []string {
	if len(samples) >= maxSamples {
		return samples
	}
	return append(samples, msg)
}
