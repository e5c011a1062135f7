package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics - счётчики бота. Каждый экземпляр пишет в свой реестр.
type Metrics struct {
	registry *prometheus.Registry

	commandsUsed     *prometheus.CounterVec
	commandsFailed   *prometheus.CounterVec
	pressesHandled   *prometheus.CounterVec
	flowSteps        *prometheus.CounterVec
	handlingDuration prometheus.Histogram
	tokensSwept      prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		commandsUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planbot_commands_used_total",
				Help: "Total number of text commands handled",
			},
			[]string{"command"},
		),
		commandsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planbot_commands_failed_total",
				Help: "Total number of commands finished with an error",
			},
			[]string{"kind"},
		),
		pressesHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planbot_presses_handled_total",
				Help: "Total number of button presses by dispatch outcome",
			},
			[]string{"outcome"},
		),
		flowSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planbot_flow_steps_total",
				Help: "Total number of authorized flow steps",
			},
			[]string{"flow"},
		),
		handlingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planbot_update_processing_duration_seconds",
				Help:    "Duration of update processing",
				Buckets: prometheus.DefBuckets,
			},
		),
		tokensSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planbot_callback_tokens_swept_total",
				Help: "Total number of expired callback tokens removed",
			},
		),
	}
}

func (m *Metrics) RecordCommandUsed(command string) {
	m.commandsUsed.WithLabelValues(command).Inc()
}

// RecordCommandFailed учитывает ошибку команды; kind = domain или internal
func (m *Metrics) RecordCommandFailed(kind string) {
	m.commandsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPress(outcome string) {
	m.pressesHandled.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordFlowStep(flow string) {
	m.flowSteps.WithLabelValues(flow).Inc()
}

func (m *Metrics) RecordProcessingDuration(d time.Duration) {
	m.handlingDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordTokensSwept(n int) {
	m.tokensSwept.Add(float64(n))
}

// Registry возвращает реестр для проверок и экспорта
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server - HTTP-сервер метрик и health-check
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, m *Metrics, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start запускает сервер в фоне
func (s *Server) Start() {
	go func() {
		s.logger.Info("Metrics server is starting", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
