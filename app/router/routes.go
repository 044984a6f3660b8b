// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"errors"
	"log"
	"slices"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/handlers"
	"github.com/amirphl/estatedesk/app/middleware"
	"github.com/amirphl/estatedesk/config"
	"github.com/amirphl/estatedesk/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers groups the handlers mounted by the router
type Handlers struct {
	Admin       handlers.AdminHandlerInterface
	Landlord    handlers.LandlordHandlerInterface
	Tenant      handlers.TenantHandlerInterface
	Agent       handlers.AgentHandlerInterface
	Property    handlers.PropertyHandlerInterface
	Bookkeeping handlers.BookkeepingHandlerInterface
	Sequence    handlers.SequenceAdminHandlerInterface
	EmailLog    handlers.EmailLogHandlerInterface
}

// HealthCheck reports whether a backing dependency is usable
type HealthCheck func(ctx context.Context) error

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	auth     *middleware.AuthMiddleware
	checks   map[string]HealthCheck
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, auth *middleware.AuthMiddleware, checks map[string]HealthCheck) Router {
	app := fiber.New(fiber.Config{
		AppName:      "EstateDesk API",
		ServerHeader: "EstateDesk",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
		ProxyHeader: cfg.Server.ProxyHeader,
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		auth:     auth,
		checks:   checks,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == "/api/v1/health"
	}))

	// Admin authentication with stricter rate limiting
	adminAuth := api.Group("/admin/auth")
	adminAuth.Use(r.rateLimiter(r.cfg.Security.AuthRateLimit, nil))
	adminAuth.Post("/login", r.handlers.Admin.Login)
	adminAuth.Post("/refresh", r.handlers.Admin.Refresh)
	adminAuth.Post("/logout", r.auth.AdminAuthenticate(), r.handlers.Admin.Logout)

	requireAdmin := r.auth.AdminAuthenticate()

	landlords := api.Group("/landlords", requireAdmin)
	landlords.Post("/", r.handlers.Landlord.Create)
	landlords.Get("/", r.handlers.Landlord.List)
	landlords.Get("/:id", r.handlers.Landlord.Get)
	landlords.Patch("/:id", r.handlers.Landlord.Update)
	landlords.Delete("/:id", r.handlers.Landlord.Delete)

	tenants := api.Group("/tenants", requireAdmin)
	tenants.Post("/", r.handlers.Tenant.Create)
	tenants.Get("/", r.handlers.Tenant.List)
	tenants.Get("/:id", r.handlers.Tenant.Get)
	tenants.Patch("/:id", r.handlers.Tenant.Update)
	tenants.Delete("/:id", r.handlers.Tenant.Delete)

	agents := api.Group("/agents", requireAdmin)
	agents.Post("/", r.handlers.Agent.Create)
	agents.Get("/", r.handlers.Agent.List)
	agents.Get("/:id", r.handlers.Agent.Get)
	agents.Patch("/:id", r.handlers.Agent.Update)
	agents.Delete("/:id", r.handlers.Agent.Delete)

	properties := api.Group("/properties", requireAdmin)
	properties.Post("/", r.handlers.Property.Create)
	properties.Get("/", r.handlers.Property.List)
	properties.Get("/:id", r.handlers.Property.Get)
	properties.Patch("/:id", r.handlers.Property.Update)
	properties.Delete("/:id", r.handlers.Property.Delete)

	accounts := api.Group("/accounts", requireAdmin)
	accounts.Post("/", r.handlers.Bookkeeping.CreateAccount)
	accounts.Get("/", r.handlers.Bookkeeping.ListAccounts)
	accounts.Get("/:id", r.handlers.Bookkeeping.GetAccount)
	accounts.Get("/:id/summary", r.handlers.Bookkeeping.MonthlySummary)
	accounts.Get("/:id/export", r.handlers.Bookkeeping.ExportMonth)

	incomes := api.Group("/incomes", requireAdmin)
	incomes.Post("/", r.handlers.Bookkeeping.RecordIncome)
	incomes.Get("/", r.handlers.Bookkeeping.ListIncomes)

	expenses := api.Group("/expenses", requireAdmin)
	expenses.Post("/", r.handlers.Bookkeeping.RecordExpense)
	expenses.Get("/", r.handlers.Bookkeeping.ListExpenses)

	// Middleware is attached per route here: a group-level handler on /admin would also cover /admin/auth
	admin := api.Group("/admin")
	admin.Get("/sequences", requireAdmin, r.handlers.Sequence.ListCounters)
	admin.Get("/sequences/:entity_type", requireAdmin, r.handlers.Sequence.Peek)
	admin.Get("/ids/:id", requireAdmin, r.handlers.Sequence.ParseID)
	admin.Get("/emails", requireAdmin, r.handlers.EmailLog.List)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))

	r.app.Use(middleware.Metrics())

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-site",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", fiber.HeaderRetryAfter, fiber.HeaderContentDisposition},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health"
			},
		}))
	}

	r.app.Use(r.securityMiddleware)
}

func (r *FiberRouter) rateLimiter(max int, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
		Next: next,
	})
}

// securityMiddleware rejects blacklisted client addresses
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	if slices.Contains(r.cfg.Security.IPBlacklist, c.IP()) {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Access denied from this IP address",
			Error:   dto.ErrorDetail{Code: "ACCESS_DENIED"},
		})
	}
	return c.Next()
}

// Start starts the server, with TLS when configured
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	listenCfg := fiber.ListenConfig{DisableStartupMessage: true}
	if r.cfg.Security.TLSEnabled {
		listenCfg.CertFile = r.cfg.Security.TLSCertFile
		listenCfg.CertKeyFile = r.cfg.Security.TLSKeyFile
	}
	return r.app.Listen(address, listenCfg)
}

func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status, state := fiber.StatusOK, "ok"
	components := make(map[string]string, len(r.checks))
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			log.Printf("health check %s failed: %v", name, err)
			components[name] = "down"
			status, state = fiber.StatusServiceUnavailable, "degraded"
			continue
		}
		components[name] = "up"
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: status == fiber.StatusOK,
		Message: "Service health",
		Data: fiber.Map{
			"status":     state,
			"timestamp":  utils.UTCNow().Unix(),
			"version":    r.cfg.Deployment.Version,
			"service":    "estatedesk-api",
			"components": components,
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Endpoint not found",
		Error: dto.ErrorDetail{
			Code:    "NOT_FOUND",
			Details: fiber.Map{"path": c.Path(), "method": c.Method(), "request_id": requestid.FromContext(c)},
		},
	})
}

// errorHandler renders errors that escaped the handlers in the standard envelope
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf(`{"time":"%s","level":"error","request_id":"%s","error":"%v","path":"%s","method":"%s"}`,
			utils.UTCNow().Format(time.RFC3339), requestid.FromContext(c), err, c.Path(), c.Method())
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: "HTTP_ERROR"},
	})
}
