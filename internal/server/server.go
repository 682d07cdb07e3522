package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	affiliatedomain "github.com/trackmint/trackmint/internal/affiliate/domain"
	auditdomain "github.com/trackmint/trackmint/internal/audit/domain"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
	"github.com/trackmint/trackmint/internal/config"
	conversiondomain "github.com/trackmint/trackmint/internal/conversion/domain"
	"github.com/trackmint/trackmint/internal/observability/logger"
	"github.com/trackmint/trackmint/internal/observability/tracing"
	payoutdomain "github.com/trackmint/trackmint/internal/payout/domain"
	programdomain "github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/ratelimit"
	referraldomain "github.com/trackmint/trackmint/internal/referral/domain"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config       config.Config
	Log          *zap.Logger
	Tiers        tierdomain.Service
	Programs     programdomain.Service
	Affiliates   affiliatedomain.Service
	Referrals    referraldomain.Service
	Conversions  conversiondomain.Service
	Commissions  commissiondomain.Service
	Payouts      payoutdomain.Service
	Audit        auditdomain.Service
	TrackLimiter *ratelimit.Limiter
}

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	engine       *gin.Engine
	tiers        tierdomain.Service
	programs     programdomain.Service
	affiliates   affiliatedomain.Service
	referrals    referraldomain.Service
	conversions  conversiondomain.Service
	commissions  commissiondomain.Service
	payouts      payoutdomain.Service
	audit        auditdomain.Service
	trackLimiter *ratelimit.Limiter
}

func New(p Params) *Server {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          p.Config,
		log:          p.Log.Named("server"),
		engine:       gin.New(),
		tiers:        p.Tiers,
		programs:     p.Programs,
		affiliates:   p.Affiliates,
		referrals:    p.Referrals,
		conversions:  p.Conversions,
		commissions:  p.Commissions,
		payouts:      p.Payouts,
		audit:        p.Audit,
		trackLimiter: p.TrackLimiter,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(logger.GinMiddleware(s.log))
	s.engine.Use(tracing.GinMiddleware())
	s.engine.Use(ErrorHandler())

	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public tracking surface, rate limited per client.
	track := s.engine.Group("/track")
	track.Use(s.rateLimit())
	{
		track.GET("/:code", s.trackClick)
		track.POST("/:code/conversions", s.trackConversion)
	}

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/tiers", s.createTier)
		v1.GET("/tiers", s.listTiers)

		v1.POST("/programs", s.createProgram)
		v1.GET("/programs", s.listPrograms)
		v1.GET("/programs/:id", s.getProgram)
		v1.POST("/programs/:id/activate", s.activateProgram)
		v1.POST("/programs/:id/pause", s.pauseProgram)
		v1.POST("/programs/:id/archive", s.archiveProgram)
		v1.PUT("/programs/:id/commission-config", s.updateProgramConfig)

		v1.POST("/affiliates", s.registerAffiliate)
		v1.GET("/affiliates", s.listAffiliates)
		v1.GET("/affiliates/:id", s.getAffiliate)
		v1.POST("/affiliates/:id/approve", s.approveAffiliate)
		v1.POST("/affiliates/:id/reject", s.rejectAffiliate)
		v1.POST("/affiliates/:id/suspend", s.suspendAffiliate)
		v1.POST("/affiliates/:id/reinstate", s.reinstateAffiliate)
		v1.PUT("/affiliates/:id/tier", s.assignAffiliateTier)
		v1.GET("/affiliates/:id/links", s.listAffiliateLinks)
		v1.GET("/affiliates/:id/earnings", s.affiliateEarnings)

		v1.POST("/links", s.createLink)
		v1.GET("/links/:id", s.getLink)
		v1.POST("/links/:id/deactivate", s.deactivateLink)

		v1.GET("/conversions", s.listConversions)
		v1.GET("/conversions/:id", s.getConversion)
		v1.POST("/conversions/:id/validate", s.validateConversion)
		v1.POST("/conversions/:id/reject", s.rejectConversion)

		v1.GET("/commissions", s.listCommissions)
		v1.GET("/commissions/:id", s.getCommission)
		v1.POST("/commissions/:id/approve", s.approveCommission)
		v1.POST("/commissions/:id/reject", s.rejectCommission)

		v1.POST("/payouts/generate", s.generatePayout)
		v1.POST("/payouts/generate-period", s.generatePayoutsForPeriod)
		v1.GET("/payouts", s.listPayouts)
		v1.GET("/payouts/summary", s.payoutSummary)
		v1.GET("/payouts/:id", s.getPayout)
		v1.POST("/payouts/:id/process", s.startProcessingPayout)
		v1.POST("/payouts/:id/complete", s.processPayout)
		v1.POST("/payouts/:id/cancel", s.cancelPayout)

		v1.GET("/audit", s.listAudit)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := s.trackLimiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: errorDetail{
				Code:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}

// Register starts the HTTP server on the fx lifecycle.
func Register(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(Register),
)
