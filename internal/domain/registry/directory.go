package registry

import (
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateID is returned by Directory.RegisterPlayer and
// Directory.RegisterReferee when the requested ID is already taken.
var ErrDuplicateID = fmt.Errorf("duplicate id")

// Directory is the League Manager's single-writer store for player and
// referee records. All mutation goes through RegisterPlayer/
// RegisterReferee/ClaimReferee/ClaimRefereeExcept/AdjustRefereeLoad/
// ApplyMatchResult so the single mutex is the only serialization
// point spec.md §5 requires; readers take a read lock.
type Directory struct {
	mu        sync.RWMutex
	players   map[string]PlayerRecord
	referees  map[string]RefereeRecord
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		players:  make(map[string]PlayerRecord),
		referees: make(map[string]RefereeRecord),
	}
}

// RegisterPlayer inserts rec, failing with ErrDuplicateID if the ID is
// already taken.
func (d *Directory) RegisterPlayer(rec PlayerRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.players[rec.PlayerID]; exists {
		return ErrDuplicateID
	}
	d.players[rec.PlayerID] = rec
	return nil
}

// RegisterReferee inserts rec, failing with ErrDuplicateID if the ID is
// already taken.
func (d *Directory) RegisterReferee(rec RefereeRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.referees[rec.RefereeID]; exists {
		return ErrDuplicateID
	}
	d.referees[rec.RefereeID] = rec
	return nil
}

// Player returns a copy of the stored record.
func (d *Directory) Player(id string) (PlayerRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.players[id]
	return rec, ok
}

// Referee returns a copy of the stored record.
func (d *Directory) Referee(id string) (RefereeRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.referees[id]
	return rec, ok
}

// ActivePlayers returns every ACTIVE player record, sorted by PlayerID
// for deterministic schedule construction.
func (d *Directory) ActivePlayers() []PlayerRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]PlayerRecord, 0, len(d.players))
	for _, rec := range d.players {
		if rec.Status == PlayerStatusActive {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Referees returns every referee record, sorted by RefereeID.
func (d *Directory) Referees() []RefereeRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]RefereeRecord, 0, len(d.referees))
	for _, rec := range d.referees {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RefereeID < out[j].RefereeID })
	return out
}

// PlayerCount and RefereeCount support the start_league precondition
// check (spec.md §3.4: players >= min_players, referees >= 1).
func (d *Directory) PlayerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.players)
}

func (d *Directory) RefereeCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.referees)
}

// LeastLoadedReferee picks the referee with spare capacity for
// gameType, breaking ties by lowest RefereeID, per spec.md §4.6.
func (d *Directory) LeastLoadedReferee(gameType string) (RefereeRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var best RefereeRecord
	found := false
	for _, rec := range d.referees {
		if !rec.SupportsGameType(gameType) || !rec.HasCapacity() {
			continue
		}
		if !found ||
			rec.CurrentLoad < best.CurrentLoad ||
			(rec.CurrentLoad == best.CurrentLoad && rec.RefereeID < best.RefereeID) {
			best = rec
			found = true
		}
	}
	return best, found
}

// ClaimReferee picks the least-loaded referee for gameType, as
// LeastLoadedReferee does, and atomically increments its current_load
// under the same lock so two concurrent callers never both believe
// they claimed the same slot (spec.md §5's single-writer discipline for
// current_load).
func (d *Directory) ClaimReferee(gameType string) (RefereeRecord, bool) {
	return d.ClaimRefereeExcept(gameType, nil)
}

// ClaimRefereeExcept is ClaimReferee, skipping any RefereeID present in
// exclude — used by the watchdog's single reassignment attempt to avoid
// handing a stalled match straight back to the referee that stalled it.
func (d *Directory) ClaimRefereeExcept(gameType string, exclude map[string]bool) (RefereeRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var bestID string
	found := false
	for id, rec := range d.referees {
		if exclude[id] || !rec.SupportsGameType(gameType) || !rec.HasCapacity() {
			continue
		}
		if !found ||
			rec.CurrentLoad < d.referees[bestID].CurrentLoad ||
			(rec.CurrentLoad == d.referees[bestID].CurrentLoad && id < bestID) {
			bestID = id
			found = true
		}
	}
	if !found {
		return RefereeRecord{}, false
	}

	rec := d.referees[bestID]
	rec.CurrentLoad++
	d.referees[bestID] = rec
	return rec, true
}

// AdjustRefereeLoad atomically increments (delta=+1) or decrements
// (delta=-1) a referee's current_load, clamped to
// [0, max_concurrent_matches].
func (d *Directory) AdjustRefereeLoad(refereeID string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.referees[refereeID]
	if !ok {
		return
	}
	rec.CurrentLoad += delta
	if rec.CurrentLoad < 0 {
		rec.CurrentLoad = 0
	}
	if rec.CurrentLoad > rec.MaxConcurrentMatches {
		rec.CurrentLoad = rec.MaxConcurrentMatches
	}
	d.referees[refereeID] = rec
}

// ApplyMatchResult updates the win/loss/draw/points/matches_played
// counters for the two named players. winnerID is nil for a draw or a
// no-winner BYE/ABANDONED match.
func (d *Directory) ApplyMatchResult(playerAID, playerBID string, winnerID *string, pointsWin, pointsDraw int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, aok := d.players[playerAID]
	b, bok := d.players[playerBID]

	switch {
	case winnerID == nil:
		if aok {
			a.Draws++
			a.Points += pointsDraw
		}
		if bok {
			b.Draws++
			b.Points += pointsDraw
		}
	case *winnerID == playerAID:
		if aok {
			a.Wins++
			a.Points += pointsWin
		}
		if bok {
			b.Losses++
		}
	case *winnerID == playerBID:
		if bok {
			b.Wins++
			b.Points += pointsWin
		}
		if aok {
			a.Losses++
		}
	}

	if aok {
		a.MatchesPlayed++
		d.players[playerAID] = a
	}
	if bok {
		b.MatchesPlayed++
		d.players[playerBID] = b
	}
}
