// Package sweepers holds the periodic background loops of the server
// process.
package sweepers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/taskdesk/eligibility-service/internal/queue"
)

var queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "eligibility_queue_depth",
	Help: "Pending items per work queue",
}, []string{"queue"})

// QueueDepthSweeper periodically samples the work queue depths into gauges.
// Depth is the only early signal that the consumer has fallen behind, since
// enqueue is fire-and-forget and producers get no processing feedback.
type QueueDepthSweeper struct {
	queue    *queue.Queue
	logger   zerolog.Logger
	interval time.Duration
	stopChan chan struct{}
}

// NewQueueDepthSweeper creates a sweeper over the given queue.
func NewQueueDepthSweeper(q *queue.Queue, logger zerolog.Logger, interval time.Duration) *QueueDepthSweeper {
	return &QueueDepthSweeper{
		queue:    q,
		logger:   logger.With().Str("component", "queue-sweeper").Logger(),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *QueueDepthSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting queue depth sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Queue depth sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Queue depth sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop.
func (s *QueueDepthSweeper) Stop() {
	close(s.stopChan)
}

func (s *QueueDepthSweeper) sweep(ctx context.Context) {
	depths, err := s.queue.Depths(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Queue depth sample failed")
		return
	}

	for name, depth := range depths {
		queueDepth.WithLabelValues(name).Set(float64(depth))
	}
}
