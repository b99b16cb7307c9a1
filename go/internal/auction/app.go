package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/squadbid/squadbid/go/internal/auction/events"
	"github.com/squadbid/squadbid/go/internal/catalog"
	"github.com/squadbid/squadbid/go/internal/models"
)

// Fallback settings applied when a create request leaves them zero.
const (
	DefaultBidTimeSec      = 30
	DefaultMinBidIncrement = 1000
)

// Reasons carried on PlayerSkipped and PlayerSold events.
const (
	ReasonTimeout = "timeout"
	ReasonVote    = "vote"
	ReasonHost    = "host"
)

// SessionRepository defines what the app layer needs from the repository
type SessionRepository interface {
	CreateSession(ctx context.Context, sess *models.Session, pending []PendingEvent) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)
	CommitSession(ctx context.Context, sess *models.Session, pending []PendingEvent) error
	SettleSession(ctx context.Context, sess *models.Session, won *models.WonPlayer, pending []PendingEvent) error
	DeleteSession(ctx context.Context, id uuid.UUID, pending []PendingEvent) error
	ListWonPlayers(ctx context.Context, sessionID uuid.UUID) ([]*models.WonPlayer, error)
	FetchNextDeadline(ctx context.Context) (*NextDeadline, error)
	FetchSessionsDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// CatalogProvider defines what the app layer needs from the player catalog
type CatalogProvider interface {
	ListPlayerIDs(ctx context.Context) ([]uuid.UUID, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
}

// UserDirectory defines what the app layer needs from the user directory
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// App handles auction session business logic. All mutations of one session
// run under its gate, so reads inside a mutation see the latest commit.
type App struct {
	repo     SessionRepository
	catalog  CatalogProvider
	users    UserDirectory
	clock    clockwork.Clock
	defaults models.SessionSettings

	mu    sync.Mutex
	gates map[uuid.UUID]*sync.Mutex

	onDeadlineChange func()
}

// NewApp creates a new auction App
func NewApp(repo SessionRepository, cat CatalogProvider, users UserDirectory, clock clockwork.Clock) *App {
	return &App{
		repo:    repo,
		catalog: cat,
		users:   users,
		clock:   clock,
		defaults: models.SessionSettings{
			BidTimeSec:      DefaultBidTimeSec,
			MinBidIncrement: DefaultMinBidIncrement,
		},
		gates: make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetSessionDefaults overrides the settings applied to create requests that
// leave them unset. Zero fields keep the built-in fallbacks.
func (a *App) SetSessionDefaults(d models.SessionSettings) {
	if d.BidTimeSec > 0 {
		a.defaults.BidTimeSec = d.BidTimeSec
	}
	if d.MinBidIncrement > 0 {
		a.defaults.MinBidIncrement = d.MinBidIncrement
	}
	a.defaults.ReshuffleSkipped = d.ReshuffleSkipped
}

// SetDeadlineListener registers a callback invoked after any commit that
// moves a session deadline. The orchestrator uses it to re-arm its timer.
func (a *App) SetDeadlineListener(fn func()) {
	a.onDeadlineChange = fn
}

func (a *App) gate(id uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.gates[id]
	if !ok {
		g = &sync.Mutex{}
		a.gates[id] = g
	}
	return g
}

func (a *App) notifyDeadlineChange() {
	if a.onDeadlineChange != nil {
		a.onDeadlineChange()
	}
}

// CreateSession creates a pending session with the host as first participant
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := a.validateCreateSessionRequest(req); err != nil {
		return nil, err
	}

	host, err := a.users.GetUser(ctx, req.HostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	settings := req.Settings
	// A request with no settings at all inherits the configured reshuffle flag.
	if settings == (models.SessionSettings{}) {
		settings.ReshuffleSkipped = a.defaults.ReshuffleSkipped
	}
	if settings.BidTimeSec == 0 {
		settings.BidTimeSec = a.defaults.BidTimeSec
	}
	if settings.MinBidIncrement == 0 {
		settings.MinBidIncrement = a.defaults.MinBidIncrement
	}

	now := a.clock.Now()
	sess := &models.Session{
		ID:       uuid.New(),
		Name:     req.Name,
		HostID:   host.ID,
		Status:   models.SessionStatusPending,
		Round:    1,
		Settings: settings,
		Participants: []models.Participant{{
			UserID:   host.ID,
			Username: host.Username,
			Emoji:    host.Emoji,
			Color:    host.Color,
			Budget:   host.Budget,
		}},
	}

	var pending []PendingEvent
	stageEvent(&pending, events.TypeSessionCreated, events.SessionCreatedPayload{
		SessionID: sess.ID.String(),
		Name:      sess.Name,
		HostID:    sess.HostID.String(),
		CreatedAt: now,
	})
	stageEvent(&pending, events.TypeUserJoined, events.UserJoinedPayload{
		SessionID: sess.ID.String(),
		UserID:    host.ID.String(),
		Username:  host.Username,
		Budget:    host.Budget,
	})

	sess, err = a.repo.CreateSession(ctx, sess, pending)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("host_id", sess.HostID.String()).
		Str("name", sess.Name).
		Msg("created session")
	return sess, nil
}

// GetSession retrieves a session by ID
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return a.repo.GetSession(ctx, id)
}

// ListSessions retrieves all sessions
func (a *App) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return a.repo.ListSessions(ctx)
}

// ListWonPlayers retrieves the settlement ledger for a session
func (a *App) ListWonPlayers(ctx context.Context, sessionID uuid.UUID) ([]*models.WonPlayer, error) {
	return a.repo.ListWonPlayers(ctx, sessionID)
}

// TimeLeft reports the remaining clock for the player currently up
func (a *App) TimeLeft(ctx context.Context, sessionID uuid.UUID) (*TimeLeft, error) {
	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tl := timeLeft(sess, a.clock.Now())
	return &tl, nil
}

// JoinSession adds a user to a pending session
func (a *App) JoinSession(ctx context.Context, sessionID uuid.UUID, req JoinSessionRequest) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusPending); err != nil {
		return nil, err
	}
	if sess.IsParticipant(req.UserID) {
		return nil, ErrAlreadyJoined
	}

	user, err := a.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	sess.Participants = append(sess.Participants, models.Participant{
		UserID:   user.ID,
		Username: user.Username,
		Emoji:    user.Emoji,
		Color:    user.Color,
		Budget:   user.Budget,
	})

	var pending []PendingEvent
	stageEvent(&pending, events.TypeUserJoined, events.UserJoinedPayload{
		SessionID: sess.ID.String(),
		UserID:    user.ID.String(),
		Username:  user.Username,
		Budget:    user.Budget,
	})

	if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", user.ID.String()).
		Int("participants", len(sess.Participants)).
		Msg("user joined session")
	return sess, nil
}

// StartSession activates a pending session and puts the first player up
func (a *App) StartSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(sess, userID); err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusPending); err != nil {
		return nil, err
	}
	if len(sess.Participants) == 0 {
		return nil, ErrNoParticipants
	}

	ids, err := a.catalog.ListPlayerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load player catalog: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoPlayersAvailable
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	now := a.clock.Now()
	sess.Status = models.SessionStatusActive
	sess.Round = 1
	sess.AvailableIDs = ids

	var pending []PendingEvent
	stageEvent(&pending, events.TypeSessionStarted, events.SessionStartedPayload{
		SessionID:    sess.ID.String(),
		StartedAt:    now,
		QueueSize:    len(ids),
		Participants: len(sess.Participants),
	})
	stageEvent(&pending, events.TypeRoundStarted, events.RoundStartedPayload{
		SessionID: sess.ID.String(),
		Round:     1,
		QueueSize: len(ids),
	})
	if err := a.putNextPlayerUp(ctx, sess, now, &pending); err != nil {
		return nil, err
	}

	if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	a.notifyDeadlineChange()

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("queue_size", len(ids)).
		Int("participants", len(sess.Participants)).
		Msg("session started")
	return sess, nil
}

// PlaceBid validates and records a bid on the player currently up, resetting
// the bid clock. A successful bid clears any pending skip votes.
func (a *App) PlaceBid(ctx context.Context, sessionID uuid.UUID, req PlaceBidRequest) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusActive); err != nil {
		return nil, err
	}
	if !sess.IsParticipant(req.UserID) {
		return nil, ErrNotParticipant
	}
	if sess.CurrentItem == nil {
		return nil, ErrNoCurrentItem
	}

	player, err := a.catalog.GetPlayer(ctx, sess.CurrentItem.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current player: %w", err)
	}
	bidder, err := a.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder: %w", err)
	}
	if err := validateBid(sess, req, catalog.MinimumBidFor(player), bidder.Budget); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	deadline := now.Add(time.Duration(sess.Settings.BidTimeSec) * time.Second)
	bidderID := req.UserID
	sess.CurrentItem.BidAmount = req.Amount
	sess.CurrentItem.BidderID = &bidderID
	sess.CurrentItem.StartedAt = now
	sess.NextDeadline = &deadline
	sess.SkipVotes = nil

	var pending []PendingEvent
	stageEvent(&pending, events.TypeBidPlaced, events.BidPlacedPayload{
		SessionID: sess.ID.String(),
		PlayerID:  player.ID.String(),
		BidderID:  req.UserID.String(),
		Amount:    req.Amount,
		PlacedAt:  now,
		TimeoutAt: deadline,
	})

	if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
		return nil, fmt.Errorf("failed to place bid: %w", err)
	}
	a.notifyDeadlineChange()

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("player_id", player.ID.String()).
		Str("bidder_id", req.UserID.String()).
		Int64("amount", req.Amount).
		Msg("bid placed")
	return sess, nil
}

// CastSkipVote records a vote against the player currently up. Once every
// participant has voted the player resolves immediately: sold if a bid
// stands, skipped otherwise.
func (a *App) CastSkipVote(ctx context.Context, sessionID uuid.UUID, req SkipVoteRequest) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusActive); err != nil {
		return nil, err
	}
	if !sess.IsParticipant(req.UserID) {
		return nil, ErrNotParticipant
	}
	if sess.CurrentItem == nil {
		return nil, ErrNoCurrentItem
	}
	if sess.HasSkipVote(req.UserID) {
		return nil, ErrAlreadyVoted
	}

	sess.SkipVotes = append(sess.SkipVotes, req.UserID)
	votes, needed := len(sess.SkipVotes), skipVotesNeeded(sess)

	if votes < needed {
		var pending []PendingEvent
		stageEvent(&pending, events.TypeSkipVoteCast, events.SkipVoteCastPayload{
			SessionID: sess.ID.String(),
			PlayerID:  sess.CurrentItem.PlayerID.String(),
			VoterID:   req.UserID.String(),
			Votes:     votes,
			Needed:    needed,
		})
		if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
			return nil, fmt.Errorf("failed to cast skip vote: %w", err)
		}
		log.Info().
			Str("session_id", sess.ID.String()).
			Int("votes", votes).
			Int("needed", needed).
			Msg("skip vote cast")
		return sess, nil
	}

	if err := a.resolveCurrentItem(ctx, sess, ReasonVote); err != nil {
		return nil, err
	}
	return sess, nil
}

// AdvanceCurrentItem lets the host resolve the player currently up without a
// vote: sold if a bid stands, skipped otherwise.
func (a *App) AdvanceCurrentItem(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(sess, userID); err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusActive); err != nil {
		return nil, err
	}
	if sess.CurrentItem == nil {
		return nil, ErrNoCurrentItem
	}

	if err := a.resolveCurrentItem(ctx, sess, ReasonHost); err != nil {
		return nil, err
	}
	return sess, nil
}

// ExpireCurrentItem resolves a session whose bid clock ran out. The
// orchestrator calls this; a stale dispatch against a session whose deadline
// moved or cleared is a no-op.
func (a *App) ExpireCurrentItem(ctx context.Context, sessionID uuid.UUID) error {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	now := a.clock.Now()
	if sess.Status != models.SessionStatusActive || sess.CurrentItem == nil ||
		sess.NextDeadline == nil || sess.NextDeadline.After(now) {
		return nil
	}

	return a.resolveCurrentItem(ctx, sess, ReasonTimeout)
}

// resolveCurrentItem settles or skips the player currently up, then advances
// the queue. Callers hold the session gate.
func (a *App) resolveCurrentItem(ctx context.Context, sess *models.Session, reason string) error {
	item := sess.CurrentItem
	now := a.clock.Now()
	var pending []PendingEvent

	if item.BidderID == nil {
		sess.SkippedIDs = append(sess.SkippedIDs, item.PlayerID)
		stageEvent(&pending, events.TypePlayerSkipped, events.PlayerSkippedPayload{
			SessionID: sess.ID.String(),
			PlayerID:  item.PlayerID.String(),
			Reason:    reason,
		})
		if err := a.advanceQueue(ctx, sess, now, &pending); err != nil {
			return err
		}
		if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
			return fmt.Errorf("failed to skip player: %w", err)
		}
		a.notifyDeadlineChange()

		log.Info().
			Str("session_id", sess.ID.String()).
			Str("player_id", item.PlayerID.String()).
			Str("reason", reason).
			Msg("player skipped")
		return nil
	}

	won := &models.WonPlayer{
		SessionID:  sess.ID,
		PlayerID:   item.PlayerID,
		WinnerID:   *item.BidderID,
		Amount:     item.BidAmount,
		Substitute: true,
		WonAt:      now,
	}

	if err := a.advanceQueue(ctx, sess, now, &pending); err != nil {
		return err
	}
	// WinnerBudget stays zero here; the settle transaction fills it in from
	// the balance the debit returns.
	soldPayload := events.PlayerSoldPayload{
		SessionID:   sess.ID.String(),
		PlayerID:    won.PlayerID.String(),
		WinnerID:    won.WinnerID.String(),
		Amount:      won.Amount,
		SoldAt:      now,
		TriggeredBy: reason,
	}
	withSold := make([]PendingEvent, 0, len(pending)+1)
	stageEvent(&withSold, events.TypePlayerSold, soldPayload)
	withSold = append(withSold, pending...)

	err := a.repo.SettleSession(ctx, sess, won, withSold)
	if errors.Is(err, ErrAlreadySettled) {
		log.Warn().
			Str("session_id", sess.ID.String()).
			Str("player_id", won.PlayerID.String()).
			Msg("duplicate settlement absorbed")
		return nil
	}
	if errors.Is(err, ErrInsufficientBudget) {
		return a.skipUnfundedSale(ctx, sess, won, reason, pending)
	}
	if err != nil {
		return fmt.Errorf("failed to settle player: %w", err)
	}
	a.notifyDeadlineChange()

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("player_id", won.PlayerID.String()).
		Str("winner_id", won.WinnerID.String()).
		Int64("amount", won.Amount).
		Str("reason", reason).
		Msg("player sold")
	return nil
}

// skipUnfundedSale converts a sale whose winner can no longer cover the bid
// into a skip. The session must still commit the advance, otherwise the past
// deadline would be redispatched forever.
func (a *App) skipUnfundedSale(ctx context.Context, sess *models.Session, won *models.WonPlayer, reason string, advance []PendingEvent) error {
	sess.SkippedIDs = append(sess.SkippedIDs, won.PlayerID)
	withSkip := make([]PendingEvent, 0, len(advance)+1)
	stageEvent(&withSkip, events.TypePlayerSkipped, events.PlayerSkippedPayload{
		SessionID: sess.ID.String(),
		PlayerID:  won.PlayerID.String(),
		Reason:    reason,
	})
	withSkip = append(withSkip, advance...)

	if err := a.repo.CommitSession(ctx, sess, withSkip); err != nil {
		return fmt.Errorf("failed to skip unfunded sale: %w", err)
	}
	a.notifyDeadlineChange()

	log.Warn().
		Str("session_id", sess.ID.String()).
		Str("player_id", won.PlayerID.String()).
		Str("winner_id", won.WinnerID.String()).
		Int64("amount", won.Amount).
		Msg("winner cannot cover bid, player skipped")
	return nil
}

// advanceQueue clears the current item and puts the next player up, recycles
// skipped players into a second round, or completes the session.
func (a *App) advanceQueue(ctx context.Context, sess *models.Session, now time.Time, pending *[]PendingEvent) error {
	sess.CurrentItem = nil
	sess.SkipVotes = nil
	sess.NextDeadline = nil

	if len(sess.AvailableIDs) == 0 && sess.Round == 1 &&
		sess.Settings.ReshuffleSkipped && len(sess.SkippedIDs) > 0 {
		ids := sess.SkippedIDs
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		sess.AvailableIDs = ids
		sess.SkippedIDs = nil
		sess.Round = 2
		stageEvent(pending, events.TypeRoundStarted, events.RoundStartedPayload{
			SessionID: sess.ID.String(),
			Round:     2,
			QueueSize: len(ids),
		})
	}

	if len(sess.AvailableIDs) == 0 {
		sess.Status = models.SessionStatusCompleted
		stageEvent(pending, events.TypeSessionCompleted, events.SessionCompletedPayload{
			SessionID:   sess.ID.String(),
			CompletedAt: now,
			Duration:    now.Sub(sess.CreatedAt).Round(time.Second).String(),
		})
		return nil
	}

	return a.putNextPlayerUp(ctx, sess, now, pending)
}

// putNextPlayerUp pops the head of the queue onto the clock.
func (a *App) putNextPlayerUp(ctx context.Context, sess *models.Session, now time.Time, pending *[]PendingEvent) error {
	playerID := sess.AvailableIDs[0]
	sess.AvailableIDs = sess.AvailableIDs[1:]

	player, err := a.catalog.GetPlayer(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get next player: %w", err)
	}

	deadline := now.Add(time.Duration(sess.Settings.BidTimeSec) * time.Second)
	sess.CurrentItem = &models.CurrentItem{
		PlayerID:  playerID,
		StartedAt: now,
	}
	sess.NextDeadline = &deadline

	stageEvent(pending, events.TypePlayerUp, events.PlayerUpPayload{
		SessionID:  sess.ID.String(),
		PlayerID:   playerID.String(),
		PlayerName: player.Name,
		MinimumBid: catalog.MinimumBidFor(player),
		StartedAt:  now,
		TimeoutAt:  deadline,
		BidTimeSec: sess.Settings.BidTimeSec,
	})
	return nil
}

// PauseSession freezes the bid clock of an active session
func (a *App) PauseSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(sess, userID); err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusActive); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	left := remainingSeconds(sess, now)
	sess.Status = models.SessionStatusPaused
	sess.NextDeadline = nil
	if sess.CurrentItem != nil {
		sess.CurrentItem.FrozenTimeLeft = &left
	}

	var pending []PendingEvent
	stageEvent(&pending, events.TypeSessionPaused, events.SessionPausedPayload{
		SessionID:   sess.ID.String(),
		PausedAt:    now,
		TimeLeftSec: left,
	})

	if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
		return nil, fmt.Errorf("failed to pause session: %w", err)
	}
	a.notifyDeadlineChange()

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("time_left_sec", left).
		Msg("session paused")
	return sess, nil
}

// ResumeSession reactivates a paused session. The player on the clock gets a
// fresh full bid window.
func (a *App) ResumeSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(sess, userID); err != nil {
		return nil, err
	}
	if err := requireStatus(sess, models.SessionStatusPaused); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	sess.Status = models.SessionStatusActive
	var pending []PendingEvent
	payload := events.SessionResumedPayload{
		SessionID: sess.ID.String(),
		ResumedAt: now,
	}
	if sess.CurrentItem != nil {
		deadline := now.Add(time.Duration(sess.Settings.BidTimeSec) * time.Second)
		sess.CurrentItem.StartedAt = now
		sess.CurrentItem.FrozenTimeLeft = nil
		sess.NextDeadline = &deadline
		payload.TimeoutAt = deadline
	}
	stageEvent(&pending, events.TypeSessionResumed, payload)

	if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}
	a.notifyDeadlineChange()

	log.Info().Str("session_id", sess.ID.String()).Msg("session resumed")
	return sess, nil
}

// EndSession completes a session early. A pending bid on the current player
// is discarded, not settled.
func (a *App) EndSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(sess, userID); err != nil {
		return nil, err
	}
	if sess.Status == models.SessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	now := a.clock.Now()
	sess.Status = models.SessionStatusCompleted
	sess.CurrentItem = nil
	sess.SkipVotes = nil
	sess.NextDeadline = nil

	var pending []PendingEvent
	stageEvent(&pending, events.TypeSessionCompleted, events.SessionCompletedPayload{
		SessionID:   sess.ID.String(),
		CompletedAt: now,
		Duration:    now.Sub(sess.CreatedAt).Round(time.Second).String(),
	})

	if err := a.repo.CommitSession(ctx, sess, pending); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	a.notifyDeadlineChange()

	log.Info().Str("session_id", sess.ID.String()).Msg("session ended by host")
	return sess, nil
}

// DeleteSession removes a session entirely
func (a *App) DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	g := a.gate(sessionID)
	g.Lock()
	defer g.Unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := requireHost(sess, userID); err != nil {
		return err
	}

	var pending []PendingEvent
	stageEvent(&pending, events.TypeSessionDeleted, events.SessionDeletedPayload{
		SessionID: sess.ID.String(),
		DeletedAt: a.clock.Now(),
	})
	if err := a.repo.DeleteSession(ctx, sessionID, pending); err != nil {
		return err
	}
	a.notifyDeadlineChange()

	log.Info().Str("session_id", sessionID.String()).Msg("session deleted")
	return nil
}

// FetchNextDeadline returns the soonest expiry across active sessions
func (a *App) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	return a.repo.FetchNextDeadline(ctx)
}

// FetchSessionsDue returns active sessions whose deadline has passed
func (a *App) FetchSessionsDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return a.repo.FetchSessionsDue(ctx, now, limit)
}

// stageEvent marshals payload and appends it to the staged outbox events.
func stageEvent(pending *[]PendingEvent, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payload structs marshal by construction.
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}
	*pending = append(*pending, PendingEvent{Type: eventType, Payload: raw})
}
