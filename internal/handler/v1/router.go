package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/transplantflow/pkg/metrics"
)

type Services struct {
	Patients  *service.PatientService
	Pairs     *service.PairService
	Workflows *service.WorkflowService
	Advisory  *service.AdvisoryService
	Dashboard *service.DashboardService
	Audit     *service.AuditService
}

// NewRouter builds the gin engine with middleware, API routes, health and
// metrics endpoints.
func NewRouter(cfg *config.Config, svcs Services, m *metrics.Collector, log *zap.Logger) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(log), RequestID(), Logger(log), Metrics(m))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")
	api.Use(NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize).Middleware())

	perMinute := max(1, cfg.RateLimit.AdvisoryRequestsPerMinute)
	limited := api.Group("")
	limited.Use(NewRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(1, perMinute/6)).Middleware())

	NewPatientHandler(svcs.Patients).Register(api)
	NewPairHandler(svcs.Pairs).Register(api)
	NewWorkflowHandler(svcs.Workflows, svcs.Audit).Register(api)
	NewAdvisoryHandler(svcs.Advisory, svcs.Dashboard, cfg.Server.MaxUploadBytes).Register(api, limited)

	return r
}

// WithCORS wraps the engine with the configured CORS policy.
func WithCORS(h http.Handler, cfg config.CORSConfig) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         int(cfg.MaxAge.Seconds()),
	})(h)
}
