package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/scheduler"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/evetabi/bazaar/internal/ws"
	"github.com/google/uuid"
)

// fakeEvolver counts ticks and hands back a canned result.
type fakeEvolver struct {
	mu     sync.Mutex
	ticks  int
	stats  service.TickStats
	err    error
	ticked chan struct{}
}

func (f *fakeEvolver) RunTick(ctx context.Context) (service.TickStats, error) {
	f.mu.Lock()
	f.ticks++
	f.mu.Unlock()
	select {
	case f.ticked <- struct{}{}:
	default:
	}
	return f.stats, f.err
}

func (f *fakeEvolver) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

// fakeBroadcaster records every price tick pushed to it.
type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []ws.PriceTickMessage
}

func (f *fakeBroadcaster) BroadcastPriceTick(msg ws.PriceTickMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func schedCfg(interval time.Duration) *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{TickInterval: interval},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestScheduler_TicksAndBroadcasts confirms the loop fires the engine on the
// configured cadence and pushes committed moves to the hub.
func TestScheduler_TicksAndBroadcasts(t *testing.T) {
	eng := &fakeEvolver{
		ticked: make(chan struct{}, 1),
		stats: service.TickStats{
			Processed: 1,
			Updated:   1,
			Changes: []service.PriceChange{
				{ItemID: uuid.New(), Name: "rune sword", OldPrice: 100, NewPrice: 110},
			},
		},
	}
	hub := &fakeBroadcaster{}

	ctx, cancel := context.WithCancel(context.Background())
	s := scheduler.NewScheduler(eng, hub, schedCfg(5*time.Millisecond), discardLogger())
	s.Start(ctx)

	select {
	case <-eng.ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ticked")
	}

	cancel()
	s.Wait()

	if eng.tickCount() == 0 {
		t.Error("expected at least one engine tick")
	}
	if hub.count() == 0 {
		t.Error("expected at least one price-tick broadcast")
	}
}

// TestScheduler_NoBroadcastWithoutChanges: a tick where every item came back
// unchanged must not wake WebSocket clients.
func TestScheduler_NoBroadcastWithoutChanges(t *testing.T) {
	eng := &fakeEvolver{
		ticked: make(chan struct{}, 1),
		stats:  service.TickStats{Processed: 3, Unchanged: 3},
	}
	hub := &fakeBroadcaster{}

	ctx, cancel := context.WithCancel(context.Background())
	s := scheduler.NewScheduler(eng, hub, schedCfg(5*time.Millisecond), discardLogger())
	s.Start(ctx)

	select {
	case <-eng.ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ticked")
	}

	cancel()
	s.Wait()

	if hub.count() != 0 {
		t.Errorf("expected no broadcasts for an all-unchanged tick, got %d", hub.count())
	}
}

// TestScheduler_SurvivesTickErrors: engine failures are logged and the loop
// keeps running until cancelled.
func TestScheduler_SurvivesTickErrors(t *testing.T) {
	eng := &fakeEvolver{
		ticked: make(chan struct{}, 1),
		err:    errors.New("db down"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := scheduler.NewScheduler(eng, &fakeBroadcaster{}, schedCfg(5*time.Millisecond), discardLogger())
	s.Start(ctx)

	// Wait for two ticks to prove the first error did not kill the loop.
	for i := 0; i < 2; i++ {
		select {
		case <-eng.ticked:
		case <-time.After(2 * time.Second):
			t.Fatalf("scheduler stopped after %d tick(s)", i)
		}
	}

	cancel()
	s.Wait()
}

// TestScheduler_WaitReturnsAfterCancel: Wait must not hang once the context
// is cancelled.
func TestScheduler_WaitReturnsAfterCancel(t *testing.T) {
	eng := &fakeEvolver{ticked: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	s := scheduler.NewScheduler(eng, &fakeBroadcaster{}, schedCfg(time.Hour), discardLogger())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
}
