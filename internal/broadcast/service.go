package broadcast

import (
	"context"
	"sync"
	"time"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Sender delivers one payload to one chat.
type Sender interface {
	Deliver(ctx context.Context, chatID int64, p conversation.BroadcastPayload) error
}

type Report struct {
	JobID     uuid.UUID
	Total     int
	Delivered int
	Failed    int
	Elapsed   time.Duration
}

// Progress is a snapshot of a running job.
type Progress struct {
	JobID     uuid.UUID
	Owner     int64
	Total     int
	Delivered int64
	Failed    int64
}

type job struct {
	id        uuid.UUID
	owner     int64
	total     int
	delivered *atomic.Int64
	failed    *atomic.Int64
}

// Service fans a payload out to many chats at a fixed rate. Failed sends are
// counted, never retried.
type Service struct {
	sender  Sender
	limiter ratelimit.Limiter
	jobs    map[uuid.UUID]*job
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewService(sender Sender, limiter ratelimit.Limiter) *Service {
	return &Service{
		sender:  sender,
		limiter: limiter,
		jobs:    make(map[uuid.UUID]*job),
	}
}

// Start runs the delivery in the background and calls done with the report.
func (s *Service) Start(ctx context.Context, owner int64, recipients []int64, p conversation.BroadcastPayload, done func(Report)) uuid.UUID {
	j := s.register(owner, len(recipients))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unregister(j.id)

		report := s.run(ctx, j, recipients, p)
		if done != nil {
			done(report)
		}
	}()
	return j.id
}

// Running returns the job owned by owner, if one is in progress.
func (s *Service) Running(owner int64) (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.owner == owner {
			return Progress{
				JobID:     j.id,
				Owner:     j.owner,
				Total:     j.total,
				Delivered: j.delivered.Load(),
				Failed:    j.failed.Load(),
			}, true
		}
	}
	return Progress{}, false
}

func (s *Service) Stop(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(stop)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	}
}

func (s *Service) run(ctx context.Context, j *job, recipients []int64, p conversation.BroadcastPayload) Report {
	started := time.Now()
	zap.S().Infow("Broadcast started", "jobID", j.id.String(), "recipients", len(recipients))

	for _, chatID := range recipients {
		if ctx.Err() != nil {
			break
		}
		s.limiter.Take()

		if err := s.sender.Deliver(ctx, chatID, p); err != nil {
			zap.S().Warnw("Broadcast delivery failed", "error", err, "jobID", j.id.String(), "chatID", chatID)
			metrics.BroadcastDeliveriesTotal.WithLabelValues("failed").Inc()
			j.failed.Inc()
			continue
		}
		metrics.BroadcastDeliveriesTotal.WithLabelValues("delivered").Inc()
		j.delivered.Inc()
	}

	report := Report{
		JobID:     j.id,
		Total:     j.total,
		Delivered: int(j.delivered.Load()),
		Failed:    int(j.failed.Load()),
		Elapsed:   time.Since(started),
	}
	zap.S().Infow("Broadcast finished", "jobID", j.id.String(), "delivered", report.Delivered, "failed", report.Failed)
	return report
}

func (s *Service) register(owner int64, total int) *job {
	j := &job{
		id:        uuid.New(),
		owner:     owner,
		total:     total,
		delivered: atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
	}
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()
	return j
}

func (s *Service) unregister(id uuid.UUID) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}
