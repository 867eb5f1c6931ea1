// Package metrics exposes session and chat activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/Vijaya2621/Chatbot-using-API/internal/chat"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatbot"

// Collector owns a private registry so tests and multiple servers do not clash.
type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	missingSessions   prometheus.Counter
	swept             *prometheus.CounterVec
	cachedSessions    prometheus.Gauge
	chatRoutes        *prometheus.CounterVec
	generationErrors  prometheus.Counter
}

// New creates a Collector. With withRuntime, Go and process collectors are registered too.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_operations_total",
				Help:      "Session lifecycle operations by operation and result.",
			},
			[]string{"op", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_operation_duration_seconds",
				Help:      "Duration of session lifecycle operations, store write-through included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		missingSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_session_appends_total",
			Help:      "Messages dropped because their session no longer existed.",
		}),
		swept: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_sessions_total",
				Help:      "Sessions aged out, by layer.",
			},
			[]string{"layer"},
		),
		cachedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_sessions",
			Help:      "Sessions resident in the cache after the last sweep.",
		}),
		chatRoutes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_messages_total",
				Help:      "Chat messages by answering route.",
			},
			[]string{"route"},
		),
		generationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Answer generations that failed and were replaced by an apology.",
		}),
	}

	c.registry.MustRegister(
		c.operations,
		c.operationDuration,
		c.missingSessions,
		c.swept,
		c.cachedSessions,
		c.chatRoutes,
		c.generationErrors,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record session metrics.
// Hooks already set in next are still called.
func (c *Collector) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnOperation: func(ctx context.Context, e *domain.SessionEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			c.operations.WithLabelValues(string(e.Op), result).Inc()
			c.operationDuration.WithLabelValues(string(e.Op)).Observe(e.Duration.Seconds())
			if next.OnOperation != nil {
				next.OnOperation(ctx, e)
			}
		},
		OnMissingSession: func(ctx context.Context, e *domain.SessionEvent) {
			c.missingSessions.Inc()
			if next.OnMissingSession != nil {
				next.OnMissingSession(ctx, e)
			}
		},
		OnSweep: func(ctx context.Context, e *domain.SweepEvent) {
			c.swept.WithLabelValues("store").Add(float64(len(e.StoreRemoved)))
			c.swept.WithLabelValues("cache").Add(float64(len(e.CacheEvicted)))
			c.cachedSessions.Set(float64(e.CacheSize))
			if next.OnSweep != nil {
				next.OnSweep(ctx, e)
			}
		},
	}
}

// ObserveRoute implements chat.Observer.
func (c *Collector) ObserveRoute(r chat.Route) {
	c.chatRoutes.WithLabelValues(string(r)).Inc()
}

// ObserveGenerationFailure implements chat.Observer.
func (c *Collector) ObserveGenerationFailure(error) {
	c.generationErrors.Inc()
}

var _ chat.Observer = (*Collector)(nil)
