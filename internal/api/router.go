package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/app"
	iauth "github.com/eacouncil/membership/internal/auth"
	"github.com/eacouncil/membership/internal/handlers"
	"github.com/eacouncil/membership/internal/middleware"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/notifications"
	"github.com/eacouncil/membership/internal/payments"
	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/internal/storage"
	"github.com/eacouncil/membership/pkg/mail"
)

// Dependencies carries the externally constructed collaborators the router
// needs. Nil Presigner or Gateway fall back to their disabled variants; a nil
// RateStore falls back to the in-memory store.
type Dependencies struct {
	Mailer    mail.Mailer
	Presigner storage.Presigner
	Gateway   payments.Gateway
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, sessions *iauth.SessionService, deps Dependencies) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer must be provided")
	}
	if deps.Presigner == nil {
		deps.Presigner = storage.NewDisabled()
	}
	if deps.Gateway == nil {
		deps.Gateway = payments.NewDisabled()
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.RateLimit.Enabled {
		maxRequests := cfg.Server.RateLimit.MaxRequests
		if maxRequests <= 0 {
			maxRequests = 100
		}
		window := cfg.Server.RateLimit.Window
		if window <= 0 {
			window = time.Minute
		}
		r.Use(middleware.RateLimit(deps.RateStore, maxRequests, window))
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	// Services
	notifier, err := notifications.NewNotifier(db, deps.Mailer, notifications.Config{
		From:    cfg.Email.SMTP.From,
		BaseURL: cfg.Portal.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	series, err := services.NewNamingSeriesService(db)
	if err != nil {
		return nil, err
	}
	applicantSvc, err := services.NewApplicantService(db, series, notifier)
	if err != nil {
		return nil, err
	}
	applicationSvc, err := services.NewApplicationService(db, series, notifier)
	if err != nil {
		return nil, err
	}
	documentSvc, err := services.NewDocumentService(db)
	if err != nil {
		return nil, err
	}
	memberSvc, err := services.NewMemberService(db)
	if err != nil {
		return nil, err
	}
	organizationSvc, err := services.NewOrganizationService(db)
	if err != nil {
		return nil, err
	}
	paymentSvc, err := services.NewPaymentService(db, series, deps.Gateway, applicationSvc)
	if err != nil {
		return nil, err
	}

	// Handlers
	cookieMaxAge := int(sessionTTL(cfg).Seconds())
	authHandler := handlers.NewAuthHandler(sessions, cookieMaxAge, cfg.Auth.Session.SecureCookie)
	applicantHandler := handlers.NewApplicantHandler(applicantSvc)
	applicationHandler := handlers.NewApplicationHandler(applicationSvc)
	documentHandler := handlers.NewDocumentHandler(documentSvc, deps.Presigner)
	memberHandler := handlers.NewMemberHandler(memberSvc)
	organizationHandler := handlers.NewOrganizationHandler(organizationSvc)
	paymentHandler := handlers.NewPaymentHandler(paymentSvc, deps.Gateway)

	// Public routes: applicant self-service and gateway callbacks.
	public := r.Group("/api")
	registerApplicantRoutes(public, applicantHandler, applicationHandler)
	registerDocumentRoutes(public, documentHandler)
	registerPaymentRoutes(public, paymentHandler)

	r.POST("/api/auth/login", authHandler.Login)

	// Staff routes behind the session cookie.
	staff := r.Group("/api")
	staff.Use(middleware.StaffAuth(sessions))
	registerAuthRoutes(staff, authHandler)
	registerReviewRoutes(staff, applicantHandler, applicationHandler, documentHandler)
	registerMemberRoutes(staff, memberHandler)
	registerOrganizationRoutes(staff, organizationHandler)
	staff.GET("/payments", middleware.RequireRole(models.RoleAccountant), paymentHandler.List)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func sessionTTL(cfg *app.Config) time.Duration {
	if cfg.Auth.Session.TTL > 0 {
		return cfg.Auth.Session.TTL
	}
	return 12 * time.Hour
}
