package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/squadbid/squadbid/go/internal/auction"
)

// schedulerApp is a minimal in-memory deadline source for the scheduler loop.
type schedulerApp struct {
	mu      sync.Mutex
	next    *auction.NextDeadline
	fetches atomic.Int32
	expired chan uuid.UUID
}

func newSchedulerApp() *schedulerApp {
	return &schedulerApp{expired: make(chan uuid.UUID, 16)}
}

func (a *schedulerApp) setDeadline(sessionID uuid.UUID, deadline time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = &auction.NextDeadline{SessionID: sessionID, Deadline: &deadline}
}

func (a *schedulerApp) FetchNextDeadline(context.Context) (*auction.NextDeadline, error) {
	a.fetches.Add(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next == nil {
		return nil, nil
	}
	cp := *a.next
	return &cp, nil
}

func (a *schedulerApp) FetchSessionsDue(_ context.Context, now time.Time, _ int) ([]uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next == nil || a.next.Deadline == nil || a.next.Deadline.After(now) {
		return nil, nil
	}
	return []uuid.UUID{a.next.SessionID}, nil
}

func (a *schedulerApp) ExpireCurrentItem(_ context.Context, sessionID uuid.UUID) error {
	a.mu.Lock()
	a.next = nil
	a.mu.Unlock()
	a.expired <- sessionID
	return nil
}

func TestSchedulerExpiresDueSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	app := newSchedulerApp()
	sessionID := uuid.New()
	app.setDeadline(sessionID, clock.Now().Add(10*time.Second))

	o := NewOrchestrator(app, 10, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = o.RunScheduler(ctx)
	}()

	// Let the loop read the deadline and settle into its timer wait.
	require.Eventually(t, func() bool {
		return app.fetches.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	clock.BlockUntil(1)

	clock.Advance(11 * time.Second)

	select {
	case got := <-app.expired:
		require.Equal(t, sessionID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not expired after its deadline passed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not shut down")
	}
}

func TestWakeInterruptsIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	app := newSchedulerApp() // no deadline: scheduler idles

	o := NewOrchestrator(app, 10, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = o.RunScheduler(ctx) }()

	require.Eventually(t, func() bool {
		return app.fetches.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	before := app.fetches.Load()
	o.Wake()

	// The wake bypasses the idle poll without any clock advance.
	require.Eventually(t, func() bool {
		return app.fetches.Load() > before
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWakeNeverBlocks(t *testing.T) {
	o := NewOrchestrator(newSchedulerApp(), 10, clockwork.NewFakeClock())
	for i := 0; i < 100; i++ {
		o.Wake()
	}
}
