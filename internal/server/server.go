package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/arrears/internal/config"
	ingestdomain "github.com/smallbiznis/arrears/internal/ingest/domain"
	obslogger "github.com/smallbiznis/arrears/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/arrears/internal/observability/metrics"
	obstracing "github.com/smallbiznis/arrears/internal/observability/tracing"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	rollupdomain "github.com/smallbiznis/arrears/internal/rollup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())
	return r
}

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	cfg      config.Config
	registry *prometheus.Registry

	ingestSvc   ingestdomain.Service
	resolverSvc resolverdomain.Service
	rollupSvc   rollupdomain.Service
}

type ServerParam struct {
	fx.In

	Engine   *gin.Engine
	Log      *zap.Logger
	Cfg      config.Config
	Registry *prometheus.Registry

	IngestSvc   ingestdomain.Service
	ResolverSvc resolverdomain.Service
	RollupSvc   rollupdomain.Service
}

func NewServer(p ServerParam) *Server {
	s := &Server{
		engine:   p.Engine,
		log:      p.Log.Named("http.server"),
		cfg:      p.Cfg,
		registry: p.Registry,

		ingestSvc:   p.IngestSvc,
		resolverSvc: p.ResolverSvc,
		rollupSvc:   p.RollupSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	v1.POST("/imports", s.RunImport)
	v1.GET("/imports", s.ListImportRuns)
	v1.GET("/outcomes", s.ListOutcomes)
	v1.GET("/rollups/:dimension", s.GetRollup)
	v1.GET("/portfolio/summary", s.GetPortfolioSummary)
	v1.GET("/actions/volume", s.GetActionVolumes)
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
