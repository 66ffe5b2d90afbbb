// Package sweeper runs the periodic cleanup of expired in-memory security
// state (sessions, attempt windows, locks, nonces) so none of it grows
// without bound. Honeypot records live in the KV store and expire by TTL.
package sweeper

import (
	"time"

	"go.uber.org/zap"

	"github.com/agrotm/accessguard/internal/observability/logger"
)

// DefaultInterval is how often the sweep runs.
const DefaultInterval = 5 * time.Minute

// Target is one named store the sweeper cleans. The function returns how
// many entries it removed.
type Target struct {
	Name  string
	Sweep func() int
}

// Sweeper periodically sweeps every registered target.
type Sweeper struct {
	targets  []Target
	interval time.Duration
	log      *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Sweeper. interval <= 0 falls back to DefaultInterval.
func New(interval time.Duration, targets ...Target) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		targets:  targets,
		interval: interval,
		log:      logger.Named("sweeper"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// it down.
func (s *Sweeper) Start() {
	go s.run()
	s.log.Info("sweeper iniciado", zap.Duration("interval", s.interval))
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.log.Info("sweeper detenido")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First sweep right away so a restart clears stale state immediately
	s.sweepAll()

	for {
		select {
		case <-ticker.C:
			s.sweepAll()
		case <-s.stopCh:
			return
		}
	}
}

// sweepAll runs every target. Targets are independent; one misbehaving
// target never stops the rest.
func (s *Sweeper) sweepAll() {
	total := 0
	for _, t := range s.targets {
		removed := t.Sweep()
		total += removed
		if removed > 0 {
			s.log.Debug("target barrido",
				zap.String("target", t.Name),
				zap.Int("removed", removed),
			)
		}
	}
	if total > 0 {
		s.log.Info("barrido completado", zap.Int("removed", total))
	}
}
