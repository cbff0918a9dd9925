package brackets

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Dosada05/swiss-tournament/models"
)

// DefaultPointThreshold is the largest point gap still treated as a close opponent.
const DefaultPointThreshold = 100

// SwissPairer pairs players at random among opponents within Threshold points,
// falling back to the nearest opponent when nobody is close enough.
type SwissPairer struct {
	Threshold int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSwissPairer returns a pairer using rng for every random choice.
// A nil rng gets a time-seeded PCG source.
func NewSwissPairer(threshold int, rng *rand.Rand) *SwissPairer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &SwissPairer{Threshold: threshold, rng: rng}
}

func (p *SwissPairer) GetName() string {
	return "Swiss"
}

// PairRound consumes a copy of players two at a time until none are left.
// An odd pool ends with ErrInsufficientPlayers and no pairings are returned.
func (p *SwissPairer) PairRound(players []*models.Player) ([]Pairing, error) {
	if len(players) < 2 {
		return nil, fmt.Errorf("%w: got %d, need at least 2", ErrInsufficientPlayers, len(players))
	}

	seen := make(map[int]struct{}, len(players))
	for _, pl := range players {
		if pl == nil {
			return nil, ErrDuplicatePlayer
		}
		if _, dup := seen[pl.ID]; dup {
			return nil, fmt.Errorf("%w: player %d", ErrDuplicatePlayer, pl.ID)
		}
		seen[pl.ID] = struct{}{}
	}

	pool := make([]*models.Player, len(players))
	copy(pool, players)

	p.mu.Lock()
	defer p.mu.Unlock()

	pairings := make([]Pairing, 0, len(players)/2)
	for len(pool) > 0 {
		if len(pool) < 2 {
			return nil, fmt.Errorf("%w: player %d has no opponent", ErrInsufficientPlayers, pool[0].ID)
		}

		firstIdx := p.rng.IntN(len(pool))
		first := pool[firstIdx]
		pool = removeAt(pool, firstIdx)

		secondIdx := p.selectOpponent(first, pool)
		if secondIdx < 0 {
			return nil, fmt.Errorf("%w: player %d", ErrPairingFailed, first.ID)
		}
		second := pool[secondIdx]
		pool = removeAt(pool, secondIdx)

		pairings = append(pairings, Pairing{Player1: first, Player2: second})
	}

	return pairings, nil
}

// selectOpponent returns the index in pool of first's opponent, or -1 if pool is empty.
func (p *SwissPairer) selectOpponent(first *models.Player, pool []*models.Player) int {
	candidates := make([]int, 0, len(pool))
	for i, other := range pool {
		if pointGap(first, other) <= p.Threshold {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > 0 {
		return candidates[p.rng.IntN(len(candidates))]
	}
	return nearestOpponent(first, pool)
}

// nearestOpponent keeps the first index seen among equally close players.
func nearestOpponent(first *models.Player, pool []*models.Player) int {
	best := -1
	bestGap := 0
	for i, other := range pool {
		gap := pointGap(first, other)
		if best < 0 || gap < bestGap {
			best = i
			bestGap = gap
		}
	}
	return best
}

func pointGap(a, b *models.Player) int {
	d := a.Points - b.Points
	if d < 0 {
		return -d
	}
	return d
}

func removeAt(pool []*models.Player, i int) []*models.Player {
	out := make([]*models.Player, 0, len(pool)-1)
	out = append(out, pool[:i]...)
	return append(out, pool[i+1:]...)
}
