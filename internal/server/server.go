package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/partnerbot/internal/advert"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	authdomain "github.com/smallbiznis/partnerbot/internal/auth/domain"
	"github.com/smallbiznis/partnerbot/internal/authorization"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/observability"
	obsmiddleware "github.com/smallbiznis/partnerbot/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/partnerbot/internal/observability/metrics"
	obstracing "github.com/smallbiznis/partnerbot/internal/observability/tracing"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	settingsdomain "github.com/smallbiznis/partnerbot/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http.listen", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.serve", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type advertPoster interface {
	Post(ctx context.Context) (advert.Report, error)
}

type Params struct {
	fx.In

	Engine   *gin.Engine
	Log      *zap.Logger
	Authz    authorization.Service
	Tokens   authdomain.Service
	Partners partnerdomain.Service
	Settings settingsdomain.Service
	Audit    auditdomain.Service
	Adverts  *advert.Poster
}

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	authz    authorization.Service
	tokens   authdomain.Service
	partners partnerdomain.Service
	settings settingsdomain.Service
	audit    auditdomain.Service
	adverts  advertPoster
}

func NewServer(p Params) *Server {
	svc := &Server{
		engine:   p.Engine,
		log:      p.Log.Named("http.server"),
		authz:    p.Authz,
		tokens:   p.Tokens,
		partners: p.Partners,
		settings: p.Settings,
		audit:    p.Audit,
		adverts:  p.Adverts,
	}

	svc.RegisterRoutes()

	return svc
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", s.TokenRequired())

	api.POST("/applications", s.Require(authorization.ObjectApplication, authorization.ActionSubmit), s.SubmitApplication)
	api.GET("/dashboard", s.Require(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboard)

	api.GET("/partners", s.Require(authorization.ObjectPartner, authorization.ActionView), s.ListPartners)
	api.POST("/partners", s.Require(authorization.ObjectPartner, authorization.ActionCreate), s.AddPartner)
	api.GET("/partners/:ref", s.Require(authorization.ObjectPartner, authorization.ActionView), s.GetPartner)
	api.DELETE("/partners/:ref", s.Require(authorization.ObjectPartner, authorization.ActionRemove), s.RemovePartner)
	api.POST("/partners/:ref/accept", s.Require(authorization.ObjectPartner, authorization.ActionAccept), s.AcceptPartner)
	api.POST("/partners/:ref/deny", s.Require(authorization.ObjectPartner, authorization.ActionDeny), s.DenyPartner)
	api.POST("/partners/:ref/exempt", s.Require(authorization.ObjectPartner, authorization.ActionExempt), s.ToggleExempt)

	api.POST("/settings/applications", s.Require(authorization.ObjectSettings, authorization.ActionManage), s.SetApplications)
	api.POST("/audit", s.Require(authorization.ObjectAudit, authorization.ActionRun), s.RunAudit)
	api.POST("/adverts", s.Require(authorization.ObjectAdvert, authorization.ActionPost), s.PostAdverts)
}
