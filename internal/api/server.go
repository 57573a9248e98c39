package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/usecase"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// Ingester is the write side used by the HTTP handlers.
type Ingester interface {
	IngestAgentLeads(ctx context.Context, channel model.Channel, payload model.RawPayload, source string) (*model.AgentLeadsReport, error)
	IngestNewsletter(ctx context.Context, payload model.RawPayload, source string) (*model.NewsletterCampaignReport, error)
	SeedNewsletterSamples(ctx context.Context) ([]*model.NewsletterCampaignReport, error)
	RecordMetricSample(ctx context.Context, payload model.RawPayload) (*model.MetricSample, error)
	RecordActivity(ctx context.Context, payload model.RawPayload) (*model.ActivityLogEntry, error)
	TriggerWebhook(ctx context.Context, in usecase.TriggerInput) (*usecase.TriggerResult, error)
}

// Querier is the read side used by the HTTP handlers.
type Querier interface {
	LatestMetricSample(ctx context.Context) (*model.MetricSample, error)
	MetricSamplesInRange(ctx context.Context, r usecase.DateRange) ([]model.MetricSample, error)
	MetricsSummary(ctx context.Context, r usecase.DateRange) (model.MetricsSummary, error)
	LatestAgentLeads(ctx context.Context, channel model.Channel) (*model.AgentLeadsReport, error)
	AgentLeadsInRange(ctx context.Context, channel model.Channel, r usecase.DateRange) ([]model.AgentLeadsReport, error)
	RecentActivity(ctx context.Context, limit int) ([]model.ActivityLogEntry, error)
	LatestNewsletter(ctx context.Context) (*model.NewsletterCampaignReport, error)
	RecentNewsletters(ctx context.Context, limit int) ([]model.NewsletterCampaignReport, error)
	NewslettersInRange(ctx context.Context, r usecase.DateRange) ([]model.NewsletterCampaignReport, error)
}

// Scheduler manages schedule configurations.
type Scheduler interface {
	Create(ctx context.Context, in model.ScheduleInput) (*model.ScheduleConfig, error)
	Update(ctx context.Context, id int64, in model.ScheduleInput) (*model.ScheduleConfig, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.ScheduleConfig, error)
	List(ctx context.Context) ([]model.ScheduleConfig, error)
	Run(ctx context.Context, id int64) (*usecase.ScheduleRunResult, error)
}

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker reports whether a broker connection is up.
type ConnChecker interface {
	IsConnected() bool
}

// Dependencies wires the services behind the router. NATS may be nil when ingestion
// over JetStream is disabled.
type Dependencies struct {
	Ingest    Ingester
	Query     Querier
	Schedules Scheduler
	DB        Pinger
	NATS      ConnChecker
	Version   string
}

// Server is the HTTP surface of the service: API routes plus health and metrics.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	deps       Dependencies
	logger     *zap.Logger
	now        func() time.Time
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewServer builds the router and binds it to port.
func NewServer(port int, readTimeout, writeTimeout time.Duration, deps Dependencies, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      r,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		router: r,
		deps:   deps,
		logger: logger,
		now:    utils.Now,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext(logger))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/metrics", func(r chi.Router) {
			r.Post("/", s.createMetricSample)
			r.Get("/latest", s.latestMetricSample)
			r.Get("/range", s.metricSamplesInRange)
			r.Get("/summary", s.metricsSummary)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", s.listActivities)
			r.Post("/", s.createActivity)
		})

		for _, ch := range model.AgentChannels {
			r.Route(fmt.Sprintf("/%s-agent-leads", ch), s.agentLeadsRoutes(ch))
		}

		r.Route("/newsletter-analytics", func(r chi.Router) {
			r.Get("/", s.listNewsletters)
			r.Post("/", s.createNewsletter)
			r.Get("/latest", s.latestNewsletter)
			r.Post("/sample", s.seedNewsletters)
		})

		r.Post("/trigger-agent-webhook", s.triggerWebhook)

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.listSchedules)
			r.Post("/", s.createSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSchedule)
				r.Put("/", s.updateSchedule)
				r.Delete("/", s.deleteSchedule)
				r.Post("/run", s.runSchedule)
			})
		})
	})

	return s
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.router.Handle("/metrics", handler)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
