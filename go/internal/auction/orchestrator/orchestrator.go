package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/auction"
)

// AuctionApp defines what the orchestrator needs from the auction app
type AuctionApp interface {
	FetchNextDeadline(ctx context.Context) (*auction.NextDeadline, error)
	FetchSessionsDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ExpireCurrentItem(ctx context.Context, sessionID uuid.UUID) error
}

// Orchestrator sleeps until the soonest session deadline and dispatches due
// sessions to a worker pool. Expiry itself is idempotent, so a duplicate
// dispatch against an already-resolved player is harmless.
type Orchestrator struct {
	app        AuctionApp
	batchSize  int
	clock      clockwork.Clock
	wakeCh     chan struct{}
	instanceID string // unique ID for this scheduler instance

	// Worker pool configuration
	numWorkers int
	workCh     chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewOrchestrator creates a new deadline orchestrator with a worker pool
func NewOrchestrator(app AuctionApp, batchSize int, clock clockwork.Clock) *Orchestrator {
	numWorkers := 10
	return &Orchestrator{
		app:        app,
		batchSize:  batchSize,
		clock:      clock,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8], // short ID for logging

		numWorkers: numWorkers,
		workCh:     make(chan uuid.UUID, numWorkers*2), // Buffer to prevent blocking
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake interrupts the scheduler sleep so it re-reads the next deadline.
// Safe to call from any goroutine; the session apps call it after every
// commit that moves a deadline.
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// RunScheduler loops forever, sleeping until the next deadline and firing
// expirations.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().Str("instance", o.instanceID).Int("workers", o.numWorkers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	timer := o.clock.NewTimer(0)
	defer timer.Stop()

	const idlePollDuration = 5 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		select {
		case <-o.wakeCh:
			log.Debug().Str("instance", o.instanceID).Msg("drained wake channel")
		default:
		}

		nd, err := o.app.FetchNextDeadline(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", o.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching next deadline after retries")
			return err
		}
		retryCount = 0

		if nd == nil || nd.Deadline == nil {
			// No active session on the clock: idle until woken or poll.
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", o.instanceID).Msg("shutdown during idle")
				return nil
			case <-o.wakeCh:
				log.Debug().Str("instance", o.instanceID).Msg("woken up from idle")
				continue
			}
		}

		wait := nd.Deadline.Sub(o.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
				log.Info().Str("instance", o.instanceID).Msg("timer fired, fetching due sessions")
			case <-ctx.Done():
				log.Info().Str("instance", o.instanceID).Msg("shutdown during wait")
				return nil
			case <-o.wakeCh:
				log.Debug().Str("instance", o.instanceID).Msg("woken up early, new sooner deadline")
				continue
			}
		}

		due, err := o.app.FetchSessionsDue(ctx, o.clock.Now(), o.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching due sessions")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if len(due) == 0 {
			continue
		}

		log.Info().
			Int("count_due", len(due)).
			Int("batch_size", o.batchSize).
			Str("instance", o.instanceID).
			Msg("processing due sessions")

		for _, sessionID := range due {
			o.inFlightMu.Lock()
			if o.inFlight[sessionID] {
				o.inFlightMu.Unlock()
				log.Debug().Str("session_id", sessionID.String()).Str("instance", o.instanceID).Msg("skipping session already in flight")
				continue
			}
			o.inFlight[sessionID] = true
			o.inFlightMu.Unlock()

			select {
			case <-ctx.Done():
				o.inFlightMu.Lock()
				delete(o.inFlight, sessionID)
				o.inFlightMu.Unlock()
				log.Info().Str("instance", o.instanceID).Msg("shutdown while queueing expirations")
				return nil
			case o.workCh <- sessionID:
				log.Debug().Str("session_id", sessionID.String()).Str("instance", o.instanceID).Msg("queued expiration for worker")
			}
		}
	}
}

// worker processes session expirations from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Info().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case sessionID, ok := <-o.workCh:
			if !ok {
				log.Info().
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("work channel closed, worker shutting down")
				return
			}

			log.Info().
				Str("session_id", sessionID.String()).
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker handling expiration")

			if err := o.app.ExpireCurrentItem(ctx, sessionID); err != nil {
				log.Error().
					Err(err).
					Str("session_id", sessionID.String()).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker expiration handling failed")
			}

			o.inFlightMu.Lock()
			delete(o.inFlight, sessionID)
			o.inFlightMu.Unlock()
		}
	}
}
