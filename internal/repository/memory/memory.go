// Package memory implements every repository.* interface in process
// memory, following the teacher's mutex-guarded map repository shape
// (infrastructure/repository/memory/league_repository.go). This is the
// default for tests and demos; nothing in the core's correctness
// depends on durability.
package memory

import (
	"context"
	"sync"

	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/registry"
	"github.com/league-agents/core/internal/repository"
)

// Players is an in-memory repository.Players.
type Players struct {
	mu    sync.RWMutex
	items map[string]registry.PlayerRecord
}

func NewPlayers() *Players {
	return &Players{items: make(map[string]registry.PlayerRecord)}
}

func (p *Players) Put(_ context.Context, rec registry.PlayerRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[rec.PlayerID] = rec
	return nil
}

func (p *Players) Get(_ context.Context, playerID string) (registry.PlayerRecord, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.items[playerID]
	return rec, ok, nil
}

func (p *Players) List(_ context.Context) ([]registry.PlayerRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]registry.PlayerRecord, 0, len(p.items))
	for _, rec := range p.items {
		out = append(out, rec)
	}
	return out, nil
}

// Referees is an in-memory repository.Referees.
type Referees struct {
	mu    sync.RWMutex
	items map[string]registry.RefereeRecord
}

func NewReferees() *Referees {
	return &Referees{items: make(map[string]registry.RefereeRecord)}
}

func (r *Referees) Put(_ context.Context, rec registry.RefereeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rec.RefereeID] = rec
	return nil
}

func (r *Referees) Get(_ context.Context, refereeID string) (registry.RefereeRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[refereeID]
	return rec, ok, nil
}

func (r *Referees) List(_ context.Context) ([]registry.RefereeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]registry.RefereeRecord, 0, len(r.items))
	for _, rec := range r.items {
		out = append(out, rec)
	}
	return out, nil
}

type matchRecord struct {
	roundID         string
	assignedReferee string
	state           match.State
}

// Matches is an in-memory repository.Matches.
type Matches struct {
	mu    sync.RWMutex
	items map[string]matchRecord
}

func NewMatches() *Matches {
	return &Matches{items: make(map[string]matchRecord)}
}

func (m *Matches) Put(_ context.Context, matchID, roundID, assignedReferee string, state match.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[matchID] = matchRecord{roundID: roundID, assignedReferee: assignedReferee, state: state}
	return nil
}

func (m *Matches) Get(_ context.Context, matchID string) (string, string, match.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.items[matchID]
	if !ok {
		return "", "", "", false, nil
	}
	return rec.roundID, rec.assignedReferee, rec.state, true, nil
}

// Results is an in-memory repository.Results.
type Results struct {
	mu    sync.RWMutex
	items map[string]match.Result
}

func NewResults() *Results {
	return &Results{items: make(map[string]match.Result)}
}

func (r *Results) Put(_ context.Context, result match.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[result.MatchID] = result
	return nil
}

func (r *Results) Get(_ context.Context, matchID string) (match.Result, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[matchID]
	return rec, ok, nil
}

type standingsSnapshot struct {
	roundID string
	rows    []repository.StandingSnapshotRow
}

// Standings is an in-memory repository.Standings.
type Standings struct {
	mu    sync.RWMutex
	items map[string]standingsSnapshot
}

func NewStandings() *Standings {
	return &Standings{items: make(map[string]standingsSnapshot)}
}

func (s *Standings) Put(_ context.Context, leagueID string, computedAtRoundID string, rows []repository.StandingSnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[leagueID] = standingsSnapshot{roundID: computedAtRoundID, rows: rows}
	return nil
}

func (s *Standings) Get(_ context.Context, leagueID string) ([]repository.StandingSnapshotRow, string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.items[leagueID]
	if !ok {
		return nil, "", false, nil
	}
	return snap.rows, snap.roundID, true, nil
}

// ResultOutbox is an in-memory repository.ResultOutbox.
type ResultOutbox struct {
	mu    sync.Mutex
	items []match.Result
}

func NewResultOutbox() *ResultOutbox {
	return &ResultOutbox{}
}

func (o *ResultOutbox) Enqueue(_ context.Context, result match.Result) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, result)
	return nil
}

func (o *ResultOutbox) List(_ context.Context) ([]match.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]match.Result, len(o.items))
	copy(out, o.items)
	return out, nil
}
