package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fattura/internal/config"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	organizationdomain "github.com/smallbiznis/fattura/internal/organization/domain"
	preservationdomain "github.com/smallbiznis/fattura/internal/preservation/domain"
	retentiondomain "github.com/smallbiznis/fattura/internal/retention/domain"
	"github.com/smallbiznis/fattura/internal/vies"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	invoiceSvc      invoicedomain.Service
	organizationSvc organizationdomain.Service
	preservationSvc preservationdomain.Service
	retentionSvc    retentiondomain.Service
	viesChecker     vies.Checker
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	InvoiceSvc      invoicedomain.Service
	OrganizationSvc organizationdomain.Service
	PreservationSvc preservationdomain.Service
	RetentionSvc    retentiondomain.Service
	VIESChecker     vies.Checker
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		invoiceSvc:      p.InvoiceSvc,
		organizationSvc: p.OrganizationSvc,
		preservationSvc: p.PreservationSvc,
		retentionSvc:    p.RetentionSvc,
		viesChecker:     p.VIESChecker,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Organizations --------
	v1.POST("/organizations", s.CreateOrganization)
	v1.GET("/organizations", s.ListOrganizations)
	v1.GET("/organizations/:id", s.GetOrganizationByID)

	// -------- VAT registration lookups --------
	v1.GET("/vat/:country/:number", s.CheckVATRegistration)

	// -------- Invoices --------
	invoices := v1.Group("/invoices", TenantRequired())
	invoices.POST("", s.GenerateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.GET("/:id", s.GetInvoiceByID)
	invoices.GET("/:id/attempts", s.ListInvoiceAttempts)
	invoices.POST("/:id/send", s.SendInvoice)
	invoices.POST("/:id/credit-note", s.CreateCreditNote)
	invoices.POST("/:id/preserve", s.PreserveInvoice)
	invoices.POST("/:id/verify-integrity", s.VerifyInvoiceIntegrity)

	// -------- Retention --------
	retention := v1.Group("/retention", TenantRequired())
	retention.GET("/dashboard", s.GetRetentionDashboard)
	retention.POST("/anonymize", s.AnonymizeExpiredInvoices)

	// -------- Exchange gateway callbacks --------
	sdi := v1.Group("/sdi", TenantRequired())
	sdi.POST("/notifications", s.ApplySDINotification)
}
