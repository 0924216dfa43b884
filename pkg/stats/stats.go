package stats

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/config"
	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

type Operation string

const (
	OperationCreate Operation = "create"
	OperationCheck  Operation = "check"
	OperationPay    Operation = "pay"
)

const (
	ResultOk       = "ok"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
	ResultNetwork  = "network"
	ResultError    = "error"
)

type Stats struct {
	registry *prometheus.Registry

	storeRequests *prometheus.CounterVec
	storeDuration *prometheus.SummaryVec

	// Avg duration of the last store requests. Calculated by a fixed size
	// sliding window.
	avgStoreLatency time.Duration

	// A fixed size sliding window for calculating average store latency.
	latencyWindow     *linkedlistqueue.Queue
	latencyWindowSize int
	latencyLock       sync.Mutex

	logger *zap.SugaredLogger
}

func ProvideStats(config *config.Config, loggerFactory *infra.LoggerFactory) *Stats {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Stats{
		registry: registry,

		storeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kiosk",
				Name:      "store_requests_total",
				Help:      "The total number of requests sent to the ticket store",
			},
			[]string{"operation", "result"},
		),
		storeDuration: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  "kiosk",
				Name:       "store_request_duration_seconds",
				Help:       "The time spent waiting for the ticket store",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"operation"},
		),

		latencyWindow:     linkedlistqueue.New(),
		latencyWindowSize: *config.LatencyWindowSize,
		logger:            loggerFactory.Create("Stats").Sugar(),
	}
}

// Observe records one finished store request.
func (s *Stats) Observe(operation Operation, duration time.Duration, err error) {
	result := Result(err)
	s.storeRequests.WithLabelValues(string(operation), result).Inc()
	s.storeDuration.WithLabelValues(string(operation)).Observe(duration.Seconds())
	s.updateAvgLatency(duration)
	s.logger.Debugf("store operation[%v] result[%v] duration[%v]", operation, result, duration)
}

// Result is the metric label of a store outcome.
func Result(err error) string {
	var rejected *ticket.StoreRejectedError
	switch {
	case err == nil:
		return ResultOk
	case errors.Is(err, ticket.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, ticket.ErrNetworkFailure):
		return ResultNetwork
	case errors.As(err, &rejected):
		return ResultRejected
	default:
		return ResultError
	}
}

func (s *Stats) AvgStoreLatency() time.Duration {
	s.latencyLock.Lock()
	defer s.latencyLock.Unlock()
	return s.avgStoreLatency
}

func (s *Stats) updateAvgLatency(duration time.Duration) {
	s.latencyLock.Lock()
	defer s.latencyLock.Unlock()

	if s.latencyWindow.Size() >= s.latencyWindowSize {
		s.latencyWindow.Dequeue()
	}
	s.latencyWindow.Enqueue(duration)

	it := s.latencyWindow.Iterator()
	var totalLatency time.Duration
	for it.Next() {
		totalLatency += it.Value().(time.Duration)
	}
	s.avgStoreLatency = totalLatency / time.Duration(s.latencyWindow.Size())
}

// Handler serves the registry in the prometheus text format.
func (s *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}
