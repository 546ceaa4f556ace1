package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tourdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	"github.com/smallbiznis/tourdesk/internal/config"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	"github.com/smallbiznis/tourdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/tourdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tourdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tourdesk/internal/observability/tracing"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	"github.com/smallbiznis/tourdesk/internal/scheduler"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
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

func registerGin(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	log             *zap.Logger
	authzSvc        authorization.Service
	membershipSvc   membershipdomain.Service
	catalogSvc      catalogdomain.Service
	pricingSvc      pricingdomain.Service
	refundSvc       refunddomain.Service
	bookingSvc      bookingdomain.Service
	checkoutSvc     checkoutdomain.Service
	settingsSvc     settingsdomain.Service
	notificationSvc notificationdomain.Service
	scheduler       *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuthzSvc        authorization.Service
	MembershipSvc   membershipdomain.Service
	CatalogSvc      catalogdomain.Service
	PricingSvc      pricingdomain.Service
	RefundSvc       refunddomain.Service
	BookingSvc      bookingdomain.Service
	CheckoutSvc     checkoutdomain.Service
	SettingsSvc     settingsdomain.Service
	NotificationSvc notificationdomain.Service
	Scheduler       *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http"),
		authzSvc:        p.AuthzSvc,
		membershipSvc:   p.MembershipSvc,
		catalogSvc:      p.CatalogSvc,
		pricingSvc:      p.PricingSvc,
		refundSvc:       p.RefundSvc,
		bookingSvc:      p.BookingSvc,
		checkoutSvc:     p.CheckoutSvc,
		settingsSvc:     p.SettingsSvc,
		notificationSvc: p.NotificationSvc,
		scheduler:       p.Scheduler,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.ActorContext())

	// -------- Membership --------
	api.GET("/plans", s.ListPlans)
	api.POST("/members", s.RegisterMember)
	api.GET("/members/:id", s.MemberRequired(), s.GetMember)
	api.POST("/members/:id/cancel", s.MemberRequired(), s.CancelSubscription)
	api.GET("/members/:id/bookings", s.MemberRequired(), s.ListMemberBookings)
	api.GET("/members/:id/notifications", s.MemberRequired(), s.authorize(authorization.ObjectNotification, authorization.ActionNotificationRead), s.ListNotifications)
	api.POST("/members/:id/notifications/:notification_id/read", s.MemberRequired(), s.authorize(authorization.ObjectNotification, authorization.ActionNotificationRead), s.MarkNotificationRead)

	// -------- Quotes --------
	api.POST("/quotes/tours", s.QuoteTour)
	api.POST("/quotes/spaces", s.QuoteSpace)
	api.POST("/quotes/refunds", s.QuoteRefund)

	// -------- Catalog --------
	api.GET("/tours", s.ListTours)
	api.GET("/tours/:id", s.GetTour)
	api.GET("/spaces", s.ListSpaces)
	api.GET("/spaces/:id", s.GetSpace)
	api.GET("/spaces/:id/availability", s.GetSpaceAvailability)

	// -------- Bookings --------
	api.POST("/bookings/tours", s.MemberRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionBookingCreate), s.BookTour)
	api.POST("/bookings/spaces", s.MemberRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionBookingCreate), s.BookSpace)
	api.GET("/bookings/:id", s.MemberRequired(), s.GetBooking)
	api.POST("/bookings/tours/:id/cancel", s.MemberRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelTourBooking)
	api.POST("/bookings/spaces/:id/cancel", s.MemberRequired(), s.authorize(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelSpaceBooking)
	api.GET("/bookings/:id/voucher", s.MemberRequired(), s.DownloadVoucher)

	// -------- Checkout --------
	api.POST("/checkout/bookings", s.MemberRequired(), s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCheckout), s.CheckoutBooking)
	api.POST("/checkout/subscriptions", s.MemberRequired(), s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCheckout), s.CheckoutSubscription)
	api.GET("/payments/:id", s.MemberRequired(), s.GetPayment)

	// -------- Payment Webhooks --------
	api.POST("/payments/webhooks/gateway", s.HandleGatewayWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.ActorContext(), s.MemberRequired())

	// -------- Catalog --------
	admin.POST("/tours", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.CreateTour)
	admin.PUT("/tours/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.UpdateTour)
	admin.DELETE("/tours/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.DeleteTour)
	admin.POST("/spaces", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.CreateSpace)
	admin.PUT("/spaces/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.UpdateSpace)
	admin.DELETE("/spaces/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.DeleteSpace)

	// -------- Members --------
	admin.POST("/members/:id/activate", s.authorize(authorization.ObjectMember, authorization.ActionMemberActivate), s.ActivateMember)

	// -------- Payments --------
	admin.POST("/payments/:id/confirm", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentConfirm), s.ConfirmPayment)

	// -------- Settings --------
	admin.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsView), s.GetSettings)
	admin.PATCH("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsManage), s.UpdateSettings)

	// -------- Scheduler --------
	admin.POST("/scheduler/run", s.authorize(authorization.ObjectScheduler, authorization.ActionSchedulerRun), s.RunScheduler)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
