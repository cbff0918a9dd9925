package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/storage"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory database shared by the fake repositories.
type fakeStore struct {
	txMu sync.Mutex // serializes transactions
	mu   sync.Mutex // guards the data below

	players       map[int]models.Player
	tournaments   map[int]models.Tournament
	registrations map[int][]int
	matches       map[int]models.Match

	nextPlayerID     int
	nextTournamentID int
	nextMatchID      int

	matchCreates      int
	failMatchCreateOn int // fail the n-th match insert, 0 disables
	failAddPoints     bool
}

type fakeSnapshot struct {
	players       map[int]models.Player
	tournaments   map[int]models.Tournament
	registrations map[int][]int
	matches       map[int]models.Match
	ids           [3]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:       map[int]models.Player{},
		tournaments:   map[int]models.Tournament{},
		registrations: map[int][]int{},
		matches:       map[int]models.Match{},
	}
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	regs := make(map[int][]int, len(s.registrations))
	for k, v := range s.registrations {
		regs[k] = slices.Clone(v)
	}
	return fakeSnapshot{
		players:       cloneMap(s.players),
		tournaments:   cloneMap(s.tournaments),
		registrations: regs,
		matches:       cloneMap(s.matches),
		ids:           [3]int{s.nextPlayerID, s.nextTournamentID, s.nextMatchID},
	}
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = snap.players
	s.tournaments = snap.tournaments
	s.registrations = snap.registrations
	s.matches = snap.matches
	s.nextPlayerID, s.nextTournamentID, s.nextMatchID = snap.ids[0], snap.ids[1], snap.ids[2]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fakeTransactor commits by keeping the store as is and rolls back by restoring a snapshot.
type fakeTransactor struct {
	store *fakeStore
}

func (t *fakeTransactor) WithinTx(ctx context.Context, _ *sql.TxOptions, fn func(exec repositories.SQLExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type fakePlayerRepo struct{ s *fakeStore }

func (r *fakePlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.players {
		if existing.Name == p.Name {
			return repositories.ErrPlayerNameConflict
		}
	}
	r.s.nextPlayerID++
	p.ID = r.s.nextPlayerID
	p.CreatedAt = time.Now()
	r.s.players[p.ID] = models.Player{ID: p.ID, Name: p.Name, Points: p.Points, CreatedAt: p.CreatedAt}
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *fakePlayerRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.players[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) AddPoints(_ context.Context, _ repositories.SQLExecutor, id int, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAddPoints {
		return errInjected
	}
	p, ok := r.s.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	if p.Points+delta < 0 {
		return repositories.ErrPlayerPointsNegative
	}
	p.Points += delta
	r.s.players[id] = p
	return nil
}

type fakeTournamentRepo struct{ s *fakeStore }

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.s.nextTournamentID++
	t.ID = r.s.nextTournamentID
	t.CreatedAt = time.Now()
	r.s.tournaments[t.ID] = models.Tournament{
		ID: t.ID, Name: t.Name, MaxPlayers: t.MaxPlayers, MaxRounds: t.MaxRounds,
		CurrentRound: t.CurrentRound, Status: t.Status, CreatedAt: t.CreatedAt,
	}
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(_ context.Context, _ repositories.SQLExecutor, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 {
		out = out[min(filter.Offset, len(out)):]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeTournamentRepo) AdvanceRound(_ context.Context, _ repositories.SQLExecutor, id int, expectedRound, nextRound int, status models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.CurrentRound != expectedRound {
		return repositories.ErrTournamentRoundConflict
	}
	if nextRound > t.MaxRounds {
		return repositories.ErrTournamentInvalidLimits
	}
	t.CurrentRound = nextRound
	t.Status = status
	r.s.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	r.s.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) AddPlayer(_ context.Context, _ repositories.SQLExecutor, tournamentID, playerID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[tournamentID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	if _, ok := r.s.players[playerID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	if slices.Contains(r.s.registrations[tournamentID], playerID) {
		return repositories.ErrTournamentPlayerConflict
	}
	r.s.registrations[tournamentID] = append(r.s.registrations[tournamentID], playerID)
	return nil
}

func (r *fakeTournamentRepo) ListPlayerIDs(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := slices.Clone(r.s.registrations[tournamentID])
	if ids == nil {
		ids = []int{}
	}
	return ids, nil
}

type fakeMatchRepo struct{ s *fakeStore }

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.matchCreates++
	if r.s.failMatchCreateOn > 0 && r.s.matchCreates == r.s.failMatchCreateOn {
		return errInjected
	}
	regs := r.s.registrations[m.TournamentID]
	if !slices.Contains(regs, m.Player1ID) || !slices.Contains(regs, m.Player2ID) {
		return repositories.ErrMatchPlayersNotRegistered
	}
	if m.Player1ID == m.Player2ID || m.Round < 1 {
		return repositories.ErrMatchInvalidData
	}
	r.s.nextMatchID++
	m.ID = r.s.nextMatchID
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.s.matches[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.Result != nil && m.Result != *filter.Result {
			continue
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeMatchRepo) ListIDsByPlayer(_ context.Context, _ repositories.SQLExecutor, playerID int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []int{}
	for id, m := range r.s.matches {
		if m.Involves(playerID) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.MatchResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || m.Result != from {
		return repositories.ErrMatchResultConflict
	}
	m.Result = to
	m.UpdatedAt = time.Now()
	r.s.matches[id] = m
	return nil
}

// recordingNotifier keeps every broadcast message.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []brackets.WebSocketMessage
}

func (n *recordingNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg, ok := message.(brackets.WebSocketMessage); ok {
		n.messages = append(n.messages, msg)
	}
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m.Type == eventType {
			c++
		}
	}
	return c
}

// memoryUploader stores uploaded objects in a map.
type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (u *memoryUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if u.fail {
		return nil, errInjected
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

// testEnv wires real services on top of the fakes.
type testEnv struct {
	store      *fakeStore
	notifier   *recordingNotifier
	uploader   *memoryUploader
	locks      *TournamentLocks
	tournament TournamentService
	match      MatchService
	ranking    RankingService
	player     PlayerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	txr := &fakeTransactor{store: store}
	playerRepo := &fakePlayerRepo{s: store}
	tournamentRepo := &fakeTournamentRepo{s: store}
	matchRepo := &fakeMatchRepo{s: store}
	locks := NewTournamentLocks()
	notifier := &recordingNotifier{}
	uploader := &memoryUploader{}
	pairer := brackets.NewSwissPairer(brackets.DefaultPointThreshold, rand.New(rand.NewPCG(1, 2)))

	ranking := NewRankingService(txr, tournamentRepo, playerRepo, matchRepo, models.DefaultRankTiers, locks, uploader, nil)
	return &testEnv{
		store:      store,
		notifier:   notifier,
		uploader:   uploader,
		locks:      locks,
		tournament: NewTournamentService(txr, tournamentRepo, playerRepo, matchRepo, pairer, models.DefaultRankTiers, locks, notifier, nil),
		match:      NewMatchService(txr, matchRepo, tournamentRepo, playerRepo, DefaultScoringPolicy, ranking, locks, notifier, nil),
		ranking:    ranking,
		player:     NewPlayerService(txr, playerRepo, matchRepo, models.DefaultRankTiers, nil),
	}
}

// seedTournament creates a tournament and registers one player per entry of points.
func (e *testEnv) seedTournament(t *testing.T, maxRounds int, points ...int) (*models.Tournament, []*models.Player) {
	t.Helper()
	ctx := context.Background()
	tournament, err := e.tournament.CreateTournament(ctx, CreateTournamentInput{
		Name:       fmt.Sprintf("Cup %d", len(e.store.tournaments)+1),
		MaxPlayers: max(len(points), 2),
		MaxRounds:  maxRounds,
	})
	require.NoError(t, err)

	players := make([]*models.Player, len(points))
	for i, pts := range points {
		p, err := e.player.CreatePlayer(ctx, CreatePlayerInput{Name: fmt.Sprintf("t%d-player-%d", tournament.ID, i+1)})
		require.NoError(t, err)
		e.setPoints(p.ID, pts)
		p.Points = pts
		_, err = e.tournament.RegisterPlayer(ctx, tournament.ID, p.ID)
		require.NoError(t, err)
		players[i] = p
	}
	return tournament, players
}

func (e *testEnv) setPoints(playerID, points int) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	p := e.store.players[playerID]
	p.Points = points
	e.store.players[playerID] = p
}

func (e *testEnv) storedTournament(id int) models.Tournament {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.tournaments[id]
}

func (e *testEnv) storedPlayer(id int) models.Player {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.players[id]
}

func (e *testEnv) matchCount(tournamentID int) int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	c := 0
	for _, m := range e.store.matches {
		if m.TournamentID == tournamentID {
			c++
		}
	}
	return c
}

func (e *testEnv) insertMatch(m models.Match) int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.nextMatchID++
	m.ID = e.store.nextMatchID
	e.store.matches[m.ID] = m
	return m.ID
}
