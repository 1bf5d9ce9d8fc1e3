package verification

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the sweep capability of a pending-link store.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Reaper periodically deletes stale pending links from every registered
// store, independent of request traffic. Sweeps are idempotent and safe to
// run concurrently with request-triggered deletes: deleting an already-gone
// record is not an error, last delete wins.
type Reaper struct {
	interval time.Duration
	stores   []Sweeper
	stop     chan struct{}
	done     chan struct{}
}

func NewReaper(interval time.Duration, stores ...Sweeper) *Reaper {
	return &Reaper{
		interval: interval,
		stores:   stores,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop. Call Stop to end it; Start must
// be called at most once.
func (r *Reaper) Start() {
	go r.run()
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Reaper) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()
	now := time.Now()
	total := 0
	for _, s := range r.stores {
		n, err := s.SweepExpired(ctx, now)
		total += n
		if err != nil {
			slog.Warn("reaper sweep failed", "err", err)
		}
	}
	if total > 0 {
		slog.Info("reaper deleted expired pending links", "count", total)
	}
}
