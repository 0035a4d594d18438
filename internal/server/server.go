package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blessingsjourney/payhook/internal/clock"
	"github.com/blessingsjourney/payhook/internal/config"
	"github.com/blessingsjourney/payhook/internal/observability"
	obsmiddleware "github.com/blessingsjourney/payhook/internal/observability/logger"
	obsmetrics "github.com/blessingsjourney/payhook/internal/observability/metrics"
	obstracing "github.com/blessingsjourney/payhook/internal/observability/tracing"
	"github.com/blessingsjourney/payhook/internal/payment"
	paymentdomain "github.com/blessingsjourney/payhook/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, edge *config.EdgePolicyHolder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(CORSMiddleware(edge))
	r.Use(CacheControlMiddleware(edge))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, edge *config.EdgePolicyHolder) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, edge)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("webhook server listening",
				zap.Int("port", cfg.Port),
				zap.String("site_url", cfg.SiteURL),
				zap.String("webhook_url", cfg.WebhookURL),
				zap.String("payhip_api_key", cfg.RedactedAPIKey()),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	clock      clock.Clock
	paymentSvc paymentdomain.Service
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Clock      clock.Clock
	PaymentSvc paymentdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		clock:      p.Clock,
		paymentSvc: p.PaymentSvc,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhook/payhip", s.HandlePayhipWebhook)
}

func (s *Server) registerAPIRoutes() {
	s.engine.GET("/health", s.Health)

	api := s.engine.Group("/api")

	api.GET("/payment/:transactionId", s.GetPaymentByTransactionID)
	api.GET("/payments", s.ListPayments)
	api.GET("/payment-stats", s.GetPaymentStats)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		// static assets
		if fileExists("./public", c.Request.URL.Path) {
			c.File("./public" + c.Request.URL.Path)
			return
		}

		c.File("./public/index.html")
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
