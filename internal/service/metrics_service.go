package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the booking API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	// Bookings counts finished submissions labelled by outcome
	// (confirmed, pending, slot_unavailable, validation_error).
	Bookings *prometheus.CounterVec
	// IdempotentReplays counts submissions answered from a stored
	// idempotency record instead of a new insert.
	IdempotentReplays prometheus.Counter
	// SlotsComputed counts slots emitted by the availability resolver.
	SlotsComputed prometheus.Counter
	// SlotCacheHits counts availability queries served from Redis.
	SlotCacheHits prometheus.Counter
	// PendingExpired counts appointments expired by the sweep job.
	PendingExpired prometheus.Counter
	// RateLimited counts requests rejected by the public rate limiter.
	RateLimited prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_submissions_total",
		Help: "Booking submissions by outcome",
	}, []string{"outcome"})

	idempotentReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_idempotent_replays_total",
		Help: "Submissions replayed from a stored idempotency record",
	})

	slotsComputed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_slots_computed_total",
		Help: "Slots emitted by the availability resolver",
	})

	slotCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_hits_total",
		Help: "Availability queries served from cache",
	})

	pendingExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appointments_expired_total",
		Help: "Pending appointments expired by the sweep job",
	})

	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "requests_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, bookings, idempotentReplays, slotsComputed, slotCacheHits, pendingExpired, rateLimited, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		Bookings:          bookings,
		IdempotentReplays: idempotentReplays,
		SlotsComputed:     slotsComputed,
		SlotCacheHits:     slotCacheHits,
		PendingExpired:    pendingExpired,
		RateLimited:       rateLimited,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordBooking increments the submission counter for an outcome.
func (m *MetricsService) RecordBooking(outcome string) {
	if m == nil {
		return
	}
	m.Bookings.WithLabelValues(outcome).Inc()
}
