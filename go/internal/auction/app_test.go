package auction

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/squadbid/squadbid/go/internal/auction/events"
	"github.com/squadbid/squadbid/go/internal/catalog"
	"github.com/squadbid/squadbid/go/internal/models"
	"github.com/squadbid/squadbid/go/internal/users"
)

// fakeUsers is an in-memory user directory with authoritative budgets.
type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUsers) add(username string, budget int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = &models.User{ID: id, Username: username, Budget: budget}
	return id
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// setBudget overwrites a user's balance, bypassing any session snapshot.
func (f *fakeUsers) setBudget(id uuid.UUID, budget int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].Budget = budget
}

// fakeCatalog serves players in insertion order before the queue shuffle.
type fakeCatalog struct {
	players map[uuid.UUID]*models.Player
	order   []uuid.UUID
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{players: make(map[uuid.UUID]*models.Player)}
}

func (f *fakeCatalog) add(name string, overall int) uuid.UUID {
	id := uuid.New()
	f.players[id] = &models.Player{
		ID:      id,
		Name:    name,
		Overall: overall,
		Tier:    catalog.TierForOverall(overall),
	}
	f.order = append(f.order, id)
	return id
}

func (f *fakeCatalog) ListPlayerIDs(context.Context) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(f.order))
	copy(out, f.order)
	return out, nil
}

func (f *fakeCatalog) GetPlayer(_ context.Context, id uuid.UUID) (*models.Player, error) {
	p, ok := f.players[id]
	if !ok {
		return nil, catalog.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

// fakeRepo is an in-memory session store with copy-on-read snapshots, the
// same contract the Postgres repository provides.
type fakeRepo struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	users    *fakeUsers
	sessions map[uuid.UUID]*models.Session
	won      map[string]*models.WonPlayer
	events   []PendingEvent
}

func newFakeRepo(clock clockwork.Clock, users *fakeUsers) *fakeRepo {
	return &fakeRepo{
		clock:    clock,
		users:    users,
		sessions: make(map[uuid.UUID]*models.Session),
		won:      make(map[string]*models.WonPlayer),
	}
}

func cloneSession(s *models.Session) *models.Session {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out models.Session
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}

func settleKey(sessionID, playerID uuid.UUID) string {
	return sessionID.String() + "|" + playerID.String()
}

func (f *fakeRepo) CreateSession(_ context.Context, sess *models.Session, pending []PendingEvent) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess.CreatedAt = f.clock.Now()
	sess.UpdatedAt = sess.CreatedAt
	f.sessions[sess.ID] = cloneSession(sess)
	f.events = append(f.events, pending...)
	return sess, nil
}

func (f *fakeRepo) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (f *fakeRepo) ListSessions(context.Context) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Session
	for _, s := range f.sessions {
		out = append(out, cloneSession(s))
	}
	return out, nil
}

func (f *fakeRepo) CommitSession(_ context.Context, sess *models.Session, pending []PendingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	sess.UpdatedAt = f.clock.Now()
	f.sessions[sess.ID] = cloneSession(sess)
	f.events = append(f.events, pending...)
	return nil
}

func (f *fakeRepo) SettleSession(_ context.Context, sess *models.Session, won *models.WonPlayer, pending []PendingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := settleKey(won.SessionID, won.PlayerID)
	if _, ok := f.won[key]; ok {
		return ErrAlreadySettled
	}

	f.users.mu.Lock()
	winner := f.users.users[won.WinnerID]
	if winner == nil || winner.Budget < won.Amount {
		f.users.mu.Unlock()
		return ErrInsufficientBudget
	}
	winner.Budget -= won.Amount
	budget := winner.Budget
	f.users.mu.Unlock()

	if p := sess.Participant(won.WinnerID); p != nil {
		p.Budget = budget
	}
	// Mirror the Postgres repository: the sold event carries the post-debit
	// balance.
	for i, ev := range pending {
		if ev.Type != events.TypePlayerSold {
			continue
		}
		var sold events.PlayerSoldPayload
		if err := json.Unmarshal(ev.Payload, &sold); err != nil {
			return err
		}
		sold.WinnerBudget = budget
		raw, err := json.Marshal(sold)
		if err != nil {
			return err
		}
		pending[i].Payload = raw
	}
	cp := *won
	f.won[key] = &cp
	f.sessions[sess.ID] = cloneSession(sess)
	f.events = append(f.events, pending...)
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, id uuid.UUID, pending []PendingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(f.sessions, id)
	f.events = append(f.events, pending...)
	return nil
}

func (f *fakeRepo) ListWonPlayers(_ context.Context, sessionID uuid.UUID) ([]*models.WonPlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.WonPlayer
	for _, wp := range f.won {
		if wp.SessionID == sessionID {
			cp := *wp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) FetchNextDeadline(context.Context) (*NextDeadline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *NextDeadline
	for _, s := range f.sessions {
		if s.Status != models.SessionStatusActive || s.NextDeadline == nil {
			continue
		}
		if next == nil || s.NextDeadline.Before(*next.Deadline) {
			d := *s.NextDeadline
			next = &NextDeadline{SessionID: s.ID, Deadline: &d}
		}
	}
	return next, nil
}

func (f *fakeRepo) FetchSessionsDue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, s := range f.sessions {
		if s.Status == models.SessionStatusActive && s.NextDeadline != nil && !s.NextDeadline.After(now) {
			ids = append(ids, s.ID)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (f *fakeRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

// bidAmounts returns the BidPlaced amounts in commit order.
func (f *fakeRepo) bidAmounts(t *testing.T) []int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, ev := range f.events {
		if ev.Type != events.TypeBidPlaced {
			continue
		}
		var p events.BidPlacedPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		out = append(out, p.Amount)
	}
	return out
}

// soldPayloads returns the PlayerSold payloads in commit order.
func (f *fakeRepo) soldPayloads(t *testing.T) []events.PlayerSoldPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.PlayerSoldPayload
	for _, ev := range f.events {
		if ev.Type != events.TypePlayerSold {
			continue
		}
		var p events.PlayerSoldPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		out = append(out, p)
	}
	return out
}

type testEnv struct {
	app     *App
	repo    *fakeRepo
	catalog *fakeCatalog
	users   *fakeUsers
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClock()
	users := newFakeUsers()
	cat := newFakeCatalog()
	repo := newFakeRepo(clock, users)
	return &testEnv{
		app:     NewApp(repo, cat, users, clock),
		repo:    repo,
		catalog: cat,
		users:   users,
		clock:   clock,
	}
}

// startedSession builds an active two-participant session over the given
// players and returns it with the host and guest IDs.
func (e *testEnv) startedSession(t *testing.T, playerNames ...string) (*models.Session, uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	host := e.users.add("host", 1_000_000)
	guest := e.users.add("guest", 1_000_000)
	for _, name := range playerNames {
		e.catalog.add(name, 88)
	}

	sess, err := e.app.CreateSession(ctx, CreateSessionRequest{Name: "test auction", HostID: host})
	require.NoError(t, err)
	_, err = e.app.JoinSession(ctx, sess.ID, JoinSessionRequest{UserID: guest})
	require.NoError(t, err)
	sess, err = e.app.StartSession(ctx, sess.ID, host)
	require.NoError(t, err)
	return sess, host, guest
}

func TestCreateSessionDefaultsAndHostJoins(t *testing.T) {
	e := newTestEnv(t)
	host := e.users.add("host", 500_000)

	sess, err := e.app.CreateSession(context.Background(), CreateSessionRequest{
		Name:   "friday night",
		HostID: host,
	})
	require.NoError(t, err)

	require.Equal(t, models.SessionStatusPending, sess.Status)
	require.Equal(t, 1, sess.Round)
	require.Equal(t, DefaultBidTimeSec, sess.Settings.BidTimeSec)
	require.Equal(t, int64(DefaultMinBidIncrement), sess.Settings.MinBidIncrement)
	require.Len(t, sess.Participants, 1)
	require.Equal(t, host, sess.Participants[0].UserID)
	require.Equal(t, int64(500_000), sess.Participants[0].Budget)
	require.Equal(t, []string{"SessionCreated", "UserJoined"}, e.repo.eventTypes())
}

func TestCreateSessionConfiguredDefaults(t *testing.T) {
	e := newTestEnv(t)
	host := e.users.add("host", 1_000_000)
	e.app.SetSessionDefaults(models.SessionSettings{
		BidTimeSec:       45,
		MinBidIncrement:  5_000,
		ReshuffleSkipped: true,
	})

	sess, err := e.app.CreateSession(context.Background(), CreateSessionRequest{
		Name:   "configured",
		HostID: host,
	})
	require.NoError(t, err)
	require.Equal(t, 45, sess.Settings.BidTimeSec)
	require.Equal(t, int64(5_000), sess.Settings.MinBidIncrement)
	require.True(t, sess.Settings.ReshuffleSkipped)

	// Explicit settings win over the configured defaults.
	sess, err = e.app.CreateSession(context.Background(), CreateSessionRequest{
		Name:     "explicit",
		HostID:   host,
		Settings: models.SessionSettings{BidTimeSec: 20, MinBidIncrement: 500},
	})
	require.NoError(t, err)
	require.Equal(t, 20, sess.Settings.BidTimeSec)
	require.Equal(t, int64(500), sess.Settings.MinBidIncrement)
	require.False(t, sess.Settings.ReshuffleSkipped)
}

func TestCreateSessionValidation(t *testing.T) {
	e := newTestEnv(t)
	host := e.users.add("host", 1000)

	_, err := e.app.CreateSession(context.Background(), CreateSessionRequest{HostID: host})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.app.CreateSession(context.Background(), CreateSessionRequest{
		Name:     "x",
		HostID:   host,
		Settings: models.SessionSettings{BidTimeSec: -1},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.app.CreateSession(context.Background(), CreateSessionRequest{Name: "x", HostID: uuid.New()})
	require.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestJoinSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	host := e.users.add("host", 1_000_000)
	guest := e.users.add("guest", 1_000_000)
	e.catalog.add("striker", 90)

	sess, err := e.app.CreateSession(ctx, CreateSessionRequest{Name: "test", HostID: host})
	require.NoError(t, err)

	sess, err = e.app.JoinSession(ctx, sess.ID, JoinSessionRequest{UserID: guest})
	require.NoError(t, err)
	require.Len(t, sess.Participants, 2)

	_, err = e.app.JoinSession(ctx, sess.ID, JoinSessionRequest{UserID: guest})
	require.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = e.app.StartSession(ctx, sess.ID, host)
	require.NoError(t, err)

	late := e.users.add("late", 1_000_000)
	_, err = e.app.JoinSession(ctx, sess.ID, JoinSessionRequest{UserID: late})
	require.ErrorIs(t, err, ErrSessionNotPending)
}

func TestStartSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	host := e.users.add("host", 1_000_000)
	e.catalog.add("keeper", 82)

	sess, err := e.app.CreateSession(ctx, CreateSessionRequest{Name: "test", HostID: host})
	require.NoError(t, err)

	_, err = e.app.StartSession(ctx, sess.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotHost)

	sess, err = e.app.StartSession(ctx, sess.ID, host)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusActive, sess.Status)
	require.NotNil(t, sess.CurrentItem)
	require.Nil(t, sess.CurrentItem.BidderID)
	require.NotNil(t, sess.NextDeadline)
	require.Equal(t, e.clock.Now().Add(30*time.Second), *sess.NextDeadline)
	require.Empty(t, sess.AvailableIDs)

	_, err = e.app.StartSession(ctx, sess.ID, host)
	require.ErrorIs(t, err, ErrSessionNotPending)
}

func TestStartSessionWithEmptyCatalog(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	host := e.users.add("host", 1_000_000)

	sess, err := e.app.CreateSession(ctx, CreateSessionRequest{Name: "test", HostID: host})
	require.NoError(t, err)
	_, err = e.app.StartSession(ctx, sess.ID, host)
	require.ErrorIs(t, err, ErrNoPlayersAvailable)
}

func TestPlaceBidValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "winger") // overall 88, gold floor 50000

	// Below the tier floor.
	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 40_000})
	br, ok := IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectBelowMinimum, br.Reason)
	require.Equal(t, int64(50_000), br.Required)

	// Outsider.
	_, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: uuid.New(), Amount: 50_000})
	require.ErrorIs(t, err, ErrNotParticipant)

	// Opening bid at the floor.
	sess, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 50_000})
	require.NoError(t, err)
	require.Equal(t, int64(50_000), sess.CurrentItem.BidAmount)
	require.Equal(t, guest, *sess.CurrentItem.BidderID)

	// Leader cannot raise their own bid.
	_, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 60_000})
	br, ok = IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectAlreadyLeading, br.Reason)
}

func TestPlaceBidIncrementAndBudget(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "winger")

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 50_000})
	require.NoError(t, err)

	// Raise below the configured increment.
	_, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: host, Amount: 50_500})
	br, ok := IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectIncrementTooSmall, br.Reason)
	require.Equal(t, int64(51_000), br.Required)

	// Raise beyond the bidder's budget.
	_, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: host, Amount: 2_000_000})
	br, ok = IsBidRejected(err)
	require.True(t, ok)
	require.Equal(t, RejectInsufficientBudget, br.Reason)

	sess, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: host, Amount: 51_000})
	require.NoError(t, err)
	require.Equal(t, host, *sess.CurrentItem.BidderID)
}

func TestPlaceBidResetsClockAndSkipVotes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "winger")

	_, err := e.app.CastSkipVote(ctx, sess.ID, SkipVoteRequest{UserID: host})
	require.NoError(t, err)

	e.clock.Advance(20 * time.Second)
	sess, err = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 50_000})
	require.NoError(t, err)

	require.Empty(t, sess.SkipVotes)
	require.Equal(t, e.clock.Now().Add(30*time.Second), *sess.NextDeadline)
}

func TestConcurrentBidsRaiseMonotonically(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "winger") // gold floor 50000

	inc := sess.Settings.MinBidIncrement
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		hostAmount := 50_000 + int64(i)*2*inc
		guestAmount := hostAmount + inc
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: host, Amount: hostAmount})
		}()
		go func() {
			defer wg.Done()
			_, _ = e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: guestAmount})
		}()
	}
	wg.Wait()

	got, err := e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentItem.BidderID)

	// Every accepted raise cleared the increment over the one before it.
	amounts := e.repo.bidAmounts(t)
	require.NotEmpty(t, amounts)
	for i := 1; i < len(amounts); i++ {
		require.GreaterOrEqual(t, amounts[i], amounts[i-1]+inc)
	}
	require.Equal(t, amounts[len(amounts)-1], got.CurrentItem.BidAmount)
}

func TestConcurrentExpiryDispatchSettlesOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 60_000})
	require.NoError(t, err)

	e.clock.Advance(30 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.app.ExpireCurrentItem(ctx, sess.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	won, err := e.app.ListWonPlayers(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, won, 1)
	require.Equal(t, firstUp, won[0].PlayerID)

	// One debit, not twenty.
	winner, err := e.users.GetUser(ctx, guest)
	require.NoError(t, err)
	require.Equal(t, int64(940_000), winner.Budget)
}

func TestSkipVoteUnanimousSkipsUnbidPlayer(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	sess, err := e.app.CastSkipVote(ctx, sess.ID, SkipVoteRequest{UserID: host})
	require.NoError(t, err)
	require.Len(t, sess.SkipVotes, 1)
	require.Equal(t, firstUp, sess.CurrentItem.PlayerID)

	_, err = e.app.CastSkipVote(ctx, sess.ID, SkipVoteRequest{UserID: host})
	require.ErrorIs(t, err, ErrAlreadyVoted)

	// Second vote completes the unanimous skip.
	sess, err = e.app.CastSkipVote(ctx, sess.ID, SkipVoteRequest{UserID: guest})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{firstUp}, sess.SkippedIDs)
	require.NotEqual(t, firstUp, sess.CurrentItem.PlayerID)
	require.Empty(t, sess.SkipVotes)
	require.Contains(t, e.repo.eventTypes(), "PlayerSkipped")
}

func TestSkipVoteUnanimousWithBidSettles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 60_000})
	require.NoError(t, err)

	_, err = e.app.CastSkipVote(ctx, sess.ID, SkipVoteRequest{UserID: host})
	require.NoError(t, err)
	sess, err = e.app.CastSkipVote(ctx, sess.ID, SkipVoteRequest{UserID: guest})
	require.NoError(t, err)

	// The standing bid wins, not a skip.
	require.Empty(t, sess.SkippedIDs)
	won, err := e.app.ListWonPlayers(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, won, 1)
	require.Equal(t, firstUp, won[0].PlayerID)
	require.Equal(t, guest, won[0].WinnerID)
	require.Equal(t, int64(60_000), won[0].Amount)

	winner, err := e.users.GetUser(ctx, guest)
	require.NoError(t, err)
	require.Equal(t, int64(940_000), winner.Budget)
}

func TestExpireSkipsUnbidPlayer(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, _ := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	// Before the deadline the dispatch is stale and must not resolve.
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))
	sess, err := e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, firstUp, sess.CurrentItem.PlayerID)

	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{firstUp}, sess.SkippedIDs)
	require.NotEqual(t, firstUp, sess.CurrentItem.PlayerID)
}

func TestExpireSettlesStandingBid(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 75_000})
	require.NoError(t, err)

	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	won, err := e.app.ListWonPlayers(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, won, 1)
	require.Equal(t, firstUp, won[0].PlayerID)

	winner, err := e.users.GetUser(ctx, guest)
	require.NoError(t, err)
	require.Equal(t, int64(925_000), winner.Budget)

	// The winner's cached budget in the session snapshot is refreshed too.
	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, int64(925_000), sess.Participant(guest).Budget)
}

func TestSettlementReportsDebitedBalance(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "winger")

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 60_000})
	require.NoError(t, err)

	// The winner spends money elsewhere after the session cached their budget.
	e.users.setBudget(guest, 500_000)

	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	sold := e.repo.soldPayloads(t)
	require.Len(t, sold, 1)
	require.Equal(t, int64(440_000), sold[0].WinnerBudget)

	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, int64(440_000), sess.Participant(guest).Budget)
}

func TestUnfundedSaleSkipsPlayer(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 60_000})
	require.NoError(t, err)

	// The winner's balance drops below the bid before the clock runs out.
	e.users.setBudget(guest, 10_000)

	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{firstUp}, sess.SkippedIDs)
	require.NotEqual(t, firstUp, sess.CurrentItem.PlayerID)
	require.True(t, sess.NextDeadline.After(e.clock.Now()))
	require.Contains(t, e.repo.eventTypes(), "PlayerSkipped")

	won, err := e.app.ListWonPlayers(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, won)

	// Nothing is left overdue for the scheduler to redispatch.
	due, err := e.app.FetchSessionsDue(ctx, e.clock.Now(), 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestDuplicateSettlementAbsorbed(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "only")

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 75_000})
	require.NoError(t, err)

	// Pre-seed the ledger as if a concurrent worker already settled.
	e.repo.mu.Lock()
	e.repo.won[settleKey(sess.ID, sess.CurrentItem.PlayerID)] = &models.WonPlayer{
		SessionID: sess.ID,
		PlayerID:  sess.CurrentItem.PlayerID,
		WinnerID:  guest,
		Amount:    75_000,
	}
	e.repo.mu.Unlock()

	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	// No double debit.
	winner, err := e.users.GetUser(ctx, guest)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), winner.Budget)
}

func TestSessionCompletesWhenQueueExhausted(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, _, guest := e.startedSession(t, "only")

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 60_000})
	require.NoError(t, err)

	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, sess.Status)
	require.Nil(t, sess.CurrentItem)
	require.Nil(t, sess.NextDeadline)
	require.Contains(t, e.repo.eventTypes(), "SessionCompleted")
}

func TestSkippedPlayersRecycledIntoSecondRound(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	host := e.users.add("host", 1_000_000)
	only := e.catalog.add("only", 88)

	sess, err := e.app.CreateSession(ctx, CreateSessionRequest{
		Name:     "test",
		HostID:   host,
		Settings: models.SessionSettings{ReshuffleSkipped: true},
	})
	require.NoError(t, err)
	sess, err = e.app.StartSession(ctx, sess.ID, host)
	require.NoError(t, err)
	require.Equal(t, only, sess.CurrentItem.PlayerID)

	// Timeout with no bid: the lone player is recycled into round two.
	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusActive, sess.Status)
	require.Equal(t, 2, sess.Round)
	require.Empty(t, sess.SkippedIDs)
	require.Equal(t, only, sess.CurrentItem.PlayerID)

	// A second unbid timeout completes the session, round two is final.
	e.clock.Advance(30 * time.Second)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))

	sess, err = e.app.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, sess.Status)
}

func TestPauseAndResume(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, _ := e.startedSession(t, "winger")

	e.clock.Advance(10 * time.Second)
	sess, err := e.app.PauseSession(ctx, sess.ID, host)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusPaused, sess.Status)
	require.Nil(t, sess.NextDeadline)
	require.NotNil(t, sess.CurrentItem.FrozenTimeLeft)
	require.Equal(t, 20, *sess.CurrentItem.FrozenTimeLeft)

	// The frozen clock does not run down.
	e.clock.Advance(5 * time.Minute)
	require.NoError(t, e.app.ExpireCurrentItem(ctx, sess.ID))
	tl, err := e.app.TimeLeft(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, tl.Paused)
	require.Equal(t, 20, tl.TimeLeftSec)

	// Resume grants a fresh full window.
	sess, err = e.app.ResumeSession(ctx, sess.ID, host)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusActive, sess.Status)
	require.Nil(t, sess.CurrentItem.FrozenTimeLeft)
	require.Equal(t, e.clock.Now().Add(30*time.Second), *sess.NextDeadline)

	_, err = e.app.ResumeSession(ctx, sess.ID, host)
	require.ErrorIs(t, err, ErrSessionNotPaused)
}

func TestEndSessionDiscardsPendingBid(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "winger")

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 90_000})
	require.NoError(t, err)

	sess, err = e.app.EndSession(ctx, sess.ID, host)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, sess.Status)
	require.Nil(t, sess.CurrentItem)

	won, err := e.app.ListWonPlayers(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, won)

	winner, err := e.users.GetUser(ctx, guest)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), winner.Budget)
}

func TestAdvanceCurrentItemByHost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "first", "second")
	firstUp := sess.CurrentItem.PlayerID

	_, err := e.app.AdvanceCurrentItem(ctx, sess.ID, guest)
	require.ErrorIs(t, err, ErrNotHost)

	sess, err = e.app.AdvanceCurrentItem(ctx, sess.ID, host)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{firstUp}, sess.SkippedIDs)
	require.NotEqual(t, firstUp, sess.CurrentItem.PlayerID)
}

func TestDeleteSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess, host, guest := e.startedSession(t, "winger")

	require.ErrorIs(t, e.app.DeleteSession(ctx, sess.ID, guest), ErrNotHost)
	require.NoError(t, e.app.DeleteSession(ctx, sess.ID, host))

	_, err := e.app.GetSession(ctx, sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeadlineListenerFires(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	var fired int
	e.app.SetDeadlineListener(func() { fired++ })

	sess, _, guest := e.startedSession(t, "winger")
	require.Equal(t, 1, fired) // start

	_, err := e.app.PlaceBid(ctx, sess.ID, PlaceBidRequest{UserID: guest, Amount: 50_000})
	require.NoError(t, err)
	require.Equal(t, 2, fired) // bid reset
}
