package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	appointmenthandler "github.com/mediassist/resource-api/internal/handler/appointment"
	authhandler "github.com/mediassist/resource-api/internal/handler/auth"
	facilityhandler "github.com/mediassist/resource-api/internal/handler/facility"
	healthhandler "github.com/mediassist/resource-api/internal/handler/health"
	inventoryhandler "github.com/mediassist/resource-api/internal/handler/inventory"
	providerhandler "github.com/mediassist/resource-api/internal/handler/provider"
	"github.com/mediassist/resource-api/internal/middleware"
	"github.com/mediassist/resource-api/internal/model"
)

type RouterConfig struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	Timeout       time.Duration
	MetricsPrefix string
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        *authhandler.Handler
	facilityH    *facilityhandler.Handler
	inventoryH   *inventoryhandler.Handler
	providerH    *providerhandler.Handler
	appointmentH *appointmenthandler.Handler
	healthH      *healthhandler.Handler
	metrics      *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authhandler.Handler,
	facilityH *facilityhandler.Handler,
	inventoryH *inventoryhandler.Handler,
	providerH *providerhandler.Handler,
	appointmentH *appointmenthandler.Handler,
	healthH *healthhandler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		authH:        authH,
		facilityH:    facilityH,
		inventoryH:   inventoryH,
		providerH:    providerH,
		appointmentH: appointmentH,
		healthH:      healthH,
		metrics:      initRouterMetrics(config.MetricsPrefix),
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)

	// Public surface: auth plus read-only discovery.
	auth := api.Group("/auth")
	r.authH.RegisterRoutes(auth)
	r.facilityH.RegisterPublicRoutes(api)
	r.inventoryH.RegisterPublicRoutes(api)
	r.providerH.RegisterPublicRoutes(api)
	r.appointmentH.RegisterPublicRoutes(api)

	// Authenticated surface, gated per role.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	patients := protected.Group("")
	patients.Use(r.auth.RequireRole(model.RolePatient))
	r.appointmentH.RegisterPatientRoutes(patients)

	shared := protected.Group("")
	shared.Use(r.auth.RequireRole(model.RolePatient, model.RoleDoctor))
	r.appointmentH.RegisterSharedRoutes(shared)

	doctors := protected.Group("")
	doctors.Use(r.auth.RequireRole(model.RoleDoctor))
	r.providerH.RegisterDoctorRoutes(doctors)

	admins := protected.Group("")
	admins.Use(r.auth.RequireRole(model.RoleHospitalAdmin))
	r.facilityH.RegisterAdminRoutes(admins)
	r.inventoryH.RegisterAdminRoutes(admins)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "http"
	}
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
