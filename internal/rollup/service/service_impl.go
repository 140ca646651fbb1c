package service

import (
	"context"
	"time"

	"github.com/smallbiznis/arrears/internal/clock"
	obsmetrics "github.com/smallbiznis/arrears/internal/observability/metrics"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	rollupdomain "github.com/smallbiznis/arrears/internal/rollup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	resolver resolverdomain.Service
	clk      clock.Clock
	metrics  *obsmetrics.EngineMetrics
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Resolver resolverdomain.Service
	Clock    clock.Clock
	Metrics  *obsmetrics.EngineMetrics `optional:"true"`
}

func NewService(p ServiceParam) rollupdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("rollup.service"),
		resolver: p.Resolver,
		clk:      p.Clock,
		metrics:  p.Metrics,
	}
}

func (s *Service) Rollup(ctx context.Context, dimension rollupdomain.Dimension) ([]rollupdomain.SegmentRollup, error) {
	if _, err := rollupdomain.ParseDimension(string(dimension)); err != nil {
		return nil, err
	}

	start := s.clk.Now()
	resolution, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	rollups := Aggregate(resolution.Outcomes, dimension)
	s.metrics.ObserveRollup(string(dimension), time.Since(start))
	return rollups, nil
}

func (s *Service) Summary(ctx context.Context) (*rollupdomain.PortfolioSummary, error) {
	start := s.clk.Now()
	resolution, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	summary := Summarize(resolution.Outcomes)
	s.metrics.ObserveRollup("portfolio", time.Since(start))
	return &summary, nil
}

func (s *Service) ActionVolumes(ctx context.Context) ([]rollupdomain.ActionVolume, error) {
	var volumes []rollupdomain.ActionVolume
	err := s.db.WithContext(ctx).
		Table("collections_actions").
		Select("action, COUNT(*) AS count").
		Group("action").
		Order("count DESC, action ASC").
		Scan(&volumes).Error
	if err != nil {
		return nil, err
	}
	return volumes, nil
}
