package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/arrears/internal/clock"
	"github.com/smallbiznis/arrears/internal/config"
	"github.com/smallbiznis/arrears/internal/migration"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBCounter++
	dsn := fmt.Sprintf("file:resolver_test_%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func setupResolver(t *testing.T, db *gorm.DB, cfg config.Config) resolverdomain.Service {
	t.Helper()

	return NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Cfg:    cfg,
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Clock:  clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func TestResolveFromStore(t *testing.T) {
	db := setupDB(t)
	node := mustNode(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&portfoliodomain.Customer{CustomerID: "c1", Region: "North", IncomeBand: "low"}).Error)
	require.NoError(t, db.Create(&portfoliodomain.Customer{CustomerID: "c2", Region: "South", IncomeBand: "high"}).Error)

	require.NoError(t, db.Create(&portfoliodomain.Bill{
		ID: node.Generate(), CustomerID: "c1",
		BillPeriodEnd: day("2024-01-15"), DueDate: day("2024-01-31"), BillAmount: 100,
	}).Error)
	require.NoError(t, db.Create(&portfoliodomain.Bill{
		ID: node.Generate(), CustomerID: "c2",
		BillPeriodEnd: day("2024-01-20"), DueDate: day("2024-02-05"), BillAmount: 80,
	}).Error)

	require.NoError(t, db.Create(&portfoliodomain.Payment{
		ID: node.Generate(), CustomerID: "c1", PaymentDate: day("2024-02-01"), Amount: 40,
	}).Error)
	require.NoError(t, db.Create(&portfoliodomain.Payment{
		ID: node.Generate(), CustomerID: "c1", PaymentDate: day("2024-03-01"), Amount: 60,
	}).Error)
	require.NoError(t, db.Create(&portfoliodomain.Payment{
		ID: node.Generate(), CustomerID: "c2", PaymentDate: day("2024-02-10"), Amount: 20,
	}).Error)

	svc := setupResolver(t, db, config.Config{})
	resolution, err := svc.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, resolution.Outcomes, 2)
	require.True(t, resolution.Report.Empty())

	first := resolution.Outcomes[0]
	require.Equal(t, "c1", first.CustomerID)
	require.Equal(t, "North", first.Region)
	require.Equal(t, "low", first.IncomeBand)
	require.Equal(t, 100.0, first.PaidInWindow)
	require.False(t, first.IsDefault)

	second := resolution.Outcomes[1]
	require.Equal(t, "c2", second.CustomerID)
	require.Equal(t, 20.0, second.PaidInWindow)
	require.True(t, second.IsDefault)
}

func TestResolveReportsOrphans(t *testing.T) {
	db := setupDB(t)
	node := mustNode(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&portfoliodomain.Customer{CustomerID: "c1", Region: "North", IncomeBand: "low"}).Error)
	require.NoError(t, db.Create(&portfoliodomain.Bill{
		ID: node.Generate(), CustomerID: "ghost",
		BillPeriodEnd: day("2024-01-15"), DueDate: day("2024-01-31"), BillAmount: 100,
	}).Error)
	require.NoError(t, db.Create(&portfoliodomain.Payment{
		ID: node.Generate(), CustomerID: "ghost", PaymentDate: day("2024-02-01"), Amount: 40,
	}).Error)

	svc := setupResolver(t, db, config.Config{})
	resolution, err := svc.Resolve(ctx)
	require.NoError(t, err)
	require.Empty(t, resolution.Outcomes)
	require.Equal(t, 1, resolution.Report.OrphanBills)
	require.Equal(t, 1, resolution.Report.OrphanPayments)
	require.Contains(t, resolution.Report.SampleKeys, "ghost")
}

func TestResolveStrictModeFailsOnOrphans(t *testing.T) {
	db := setupDB(t)
	node := mustNode(t)

	require.NoError(t, db.Create(&portfoliodomain.Bill{
		ID: node.Generate(), CustomerID: "ghost",
		BillPeriodEnd: day("2024-01-15"), DueDate: day("2024-01-31"), BillAmount: 100,
	}).Error)

	svc := setupResolver(t, db, config.Config{StrictIntegrity: true})
	_, err := svc.Resolve(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, resolverdomain.ErrIntegrityViolated))
}

func TestResolveParallelMatchesSerial(t *testing.T) {
	db := setupDB(t)
	node := mustNode(t)
	ctx := context.Background()

	base := day("2024-01-01")
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c%02d", i)
		require.NoError(t, db.Create(&portfoliodomain.Customer{CustomerID: id, Region: "North", IncomeBand: "mid"}).Error)
		for j := 0; j < 5; j++ {
			due := base.AddDate(0, j, 10)
			require.NoError(t, db.Create(&portfoliodomain.Bill{
				ID: node.Generate(), CustomerID: id,
				BillPeriodEnd: base.AddDate(0, j, 0), DueDate: due, BillAmount: 100,
			}).Error)
			require.NoError(t, db.Create(&portfoliodomain.Payment{
				ID: node.Generate(), CustomerID: id, PaymentDate: due.AddDate(0, 0, j), Amount: float64(20 * j),
			}).Error)
		}
	}

	serialSvc := NewService(ServiceParam{
		DB:  db,
		Log: zap.NewNop(),
		Policy: config.NewStaticPolicyHolder(config.Policy{
			WindowDaysBefore: 3, WindowDaysAfter: 60, Tolerance: 1.0, ResolverWorkers: 1,
		}),
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	parallelSvc := NewService(ServiceParam{
		DB:  db,
		Log: zap.NewNop(),
		Policy: config.NewStaticPolicyHolder(config.Policy{
			WindowDaysBefore: 3, WindowDaysAfter: 60, Tolerance: 1.0, ResolverWorkers: 8,
		}),
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})

	serial, err := serialSvc.Resolve(ctx)
	require.NoError(t, err)
	parallel, err := parallelSvc.Resolve(ctx)
	require.NoError(t, err)

	require.Equal(t, serial.Outcomes, parallel.Outcomes)
}
