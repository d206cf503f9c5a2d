package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	accessdomain "github.com/paylanka/paylanka/internal/access/domain"
	"github.com/paylanka/paylanka/internal/config"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	payrollratesdomain "github.com/paylanka/paylanka/internal/payrollrates/domain"
	plandomain "github.com/paylanka/paylanka/internal/plan/domain"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	taxdomain "github.com/paylanka/paylanka/internal/tax/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
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
	planSvc         plandomain.Service
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      paymentdomain.WebhookService
	accessSvc       accessdomain.Service
	payrollRatesSvc payrollratesdomain.Service
	taxSvc          taxdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	PlanSvc         plandomain.Service
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      paymentdomain.WebhookService
	AccessSvc       accessdomain.Service
	PayrollRatesSvc payrollratesdomain.Service
	TaxSvc          taxdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		accessSvc:       p.AccessSvc,
		payrollRatesSvc: p.PayrollRatesSvc,
		taxSvc:          p.TaxSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	// No identity middleware here: gateways authenticate by signature.
	s.engine.POST("/payments/:provider/webhook", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/plans", s.ListPlans)
	v1.GET("/plans/:id", s.GetPlan)

	authed := v1.Group("", UserRequired())

	subscriptions := authed.Group("/subscriptions")
	subscriptions.POST("/select", s.SelectPlan)
	subscriptions.POST("/change-plan", s.ChangePlan)
	subscriptions.POST("/cancel", s.CancelSubscription)
	subscriptions.POST("/addons", s.AddAddon)
	subscriptions.POST("/renew", s.RenewSubscription)
	subscriptions.GET("/current", s.GetCurrentSubscription)
	if s.cfg.BootstrapActivation {
		subscriptions.POST("/:id/activate", s.ActivateSubscription)
	}

	authed.GET("/access/status", s.GetAccessStatus)

	authed.GET("/invoices", s.ListInvoices)
	authed.GET("/invoices/:id", s.GetInvoice)

	payments := authed.Group("/payments")
	payments.POST("/intents", s.CreatePaymentIntent)
	payments.GET("/intents/:id", s.GetPaymentIntent)
	payments.GET("/intents/:id/payhere", s.GetPayHereCheckout)

	payroll := authed.Group("/payroll", s.RequireActiveSubscription())
	payroll.POST("/tax/compute", s.ComputeTax)
	payroll.GET("/rates/active", s.GetActivePayrollRates)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin", UserRequired())

	admin.POST("/plans", s.CreatePlan)
	admin.PATCH("/plans/:id", s.UpdatePlan)

	admin.GET("/payroll-rates", s.ListPayrollRates)
	admin.POST("/payroll-rates", s.CreatePayrollRates)
	admin.PATCH("/payroll-rates/:id", s.UpdatePayrollRates)
}
