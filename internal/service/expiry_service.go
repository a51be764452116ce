package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/pkg/jobs"
)

type idempotencyPruner interface {
	DeleteExpiredIdempotency(ctx context.Context, retention time.Duration) (int64, error)
}

// ExpiryService periodically sweeps overdue pending appointments into the
// expired state and prunes stale idempotency records. Sweeps run through the
// in-memory job queue so a slow database never blocks the ticker.
type ExpiryService struct {
	appointments *AppointmentService
	pruner       idempotencyPruner
	metrics      *MetricsService
	interval     time.Duration
	retention    time.Duration
	queue        *jobs.Queue
	logger       *zap.Logger
	cancel       context.CancelFunc
}

// NewExpiryService instantiates ExpiryService.
func NewExpiryService(appointments *AppointmentService, pruner idempotencyPruner, metrics *MetricsService, interval, retention time.Duration, logger *zap.Logger) *ExpiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExpiryService{
		appointments: appointments,
		pruner:       pruner,
		metrics:      metrics,
		interval:     interval,
		retention:    retention,
		logger:       logger,
	}
	s.queue = jobs.NewQueue("appointment-expiry", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: 2,
		RetryDelay: 30 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the sweep ticker and worker.
func (s *ExpiryService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.enqueueSweep()
			}
		}
	}()
}

// Stop halts the ticker and drains the worker.
func (s *ExpiryService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

// SweepNow runs one sweep synchronously; used at startup so a restart does
// not leave overdue appointments pending for a full interval.
func (s *ExpiryService) SweepNow(ctx context.Context) error {
	return s.sweep(ctx)
}

func (s *ExpiryService) enqueueSweep() {
	job := jobs.Job{ID: uuid.NewString(), Type: "expire-pending"}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue expiry sweep", zap.Error(err))
	}
}

func (s *ExpiryService) handle(ctx context.Context, _ jobs.Job) error {
	return s.sweep(ctx)
}

func (s *ExpiryService) sweep(ctx context.Context) error {
	now := time.Now().UTC()
	expired, err := s.appointments.ExpirePending(ctx, now)
	if err != nil {
		return err
	}
	if expired > 0 {
		if s.metrics != nil {
			s.metrics.PendingExpired.Add(float64(expired))
		}
		s.logger.Info("expired pending appointments", zap.Int("count", expired))
	}

	if s.pruner != nil {
		pruned, err := s.pruner.DeleteExpiredIdempotency(ctx, s.retention)
		if err != nil {
			s.logger.Warn("failed to prune idempotency records", zap.Error(err))
		} else if pruned > 0 {
			s.logger.Info("pruned idempotency records", zap.Int64("count", pruned))
		}
	}
	return nil
}
