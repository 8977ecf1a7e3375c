// Package scheduler runs the background loop that drives the price evolution
// engine: one pass over the active catalog per tick interval, with the
// resulting price moves pushed to WebSocket clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/evetabi/bazaar/internal/ws"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces — minimally required from collaborators
// ──────────────────────────────────────────────────────────────────────────────

// Evolver is the slice of the engine the scheduler needs. Declared here so
// tests can substitute a fake engine without a database.
type Evolver interface {
	RunTick(ctx context.Context) (service.TickStats, error)
}

// TickBroadcaster is the broadcast operation the scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not depend on
// the hub implementation directly.
type TickBroadcaster interface {
	BroadcastPriceTick(msg ws.PriceTickMessage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler owns the evolution loop. Call Start(ctx) once from main();
// cancel the context to shut it down gracefully.
type Scheduler struct {
	engine Evolver
	hub    TickBroadcaster
	cfg    *config.Config
	logger *slog.Logger

	done chan struct{} // closed when the loop has fully stopped
}

// NewScheduler creates a Scheduler.
func NewScheduler(engine Evolver, hub TickBroadcaster, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine: engine,
		hub:    hub,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the evolution loop goroutine. It returns immediately;
// the loop runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.evolutionLoop(ctx)
	s.logger.Info("scheduler started", "tick_interval", s.cfg.Engine.TickInterval)
}

// Wait blocks until the evolution loop has fully stopped, including any
// in-flight tick. Call after cancelling the Start context so shutdown never
// interrupts a tick mid-item.
func (s *Scheduler) Wait() {
	<-s.done
}

// ──────────────────────────────────────────────────────────────────────────────
// evolutionLoop
// ──────────────────────────────────────────────────────────────────────────────

// evolutionLoop fires the engine once per tick interval. The tick runs
// inline, so a slow pass simply delays the next one — ticks never overlap.
// When ctx is cancelled the loop returns after the current tick completes;
// the tick itself runs under a detached context so cancellation cannot
// abandon it halfway through the catalog.
func (s *Scheduler) evolutionLoop(ctx context.Context) {
	defer close(s.done)
	defer s.recoverAndLog("evolutionLoop")

	ticker := time.NewTicker(s.cfg.Engine.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("evolutionLoop: shutting down")
			return
		case <-ticker.C:
			s.runTick(context.WithoutCancel(ctx))
		}
	}
}

// runTick executes one engine pass and broadcasts any committed moves.
func (s *Scheduler) runTick(ctx context.Context) {
	started := time.Now()
	stats, err := s.engine.RunTick(ctx)
	if err != nil {
		s.logger.Error("evolutionLoop: tick failed", "err", err)
		return
	}

	s.logger.Debug("tick complete",
		"processed", stats.Processed,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"conflicts", stats.Conflicts,
		"failures", stats.Failures,
		"took", time.Since(started).Round(time.Millisecond))

	if s.hub == nil || len(stats.Changes) == 0 {
		return
	}

	moves := make([]ws.PriceMove, 0, len(stats.Changes))
	for _, c := range stats.Changes {
		moves = append(moves, ws.PriceMove{
			ItemID:   c.ItemID,
			Name:     c.Name,
			OldPrice: c.OldPrice,
			NewPrice: c.NewPrice,
		})
	}
	s.hub.BroadcastPriceTick(ws.PriceTickMessage{
		Type:      ws.MsgTypePriceTick,
		Moves:     moves,
		Timestamp: time.Now().UTC(),
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside the loop goroutine to catch unexpected
// panics and log them instead of crashing the process.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
