package store

import (
	"context"
	"errors"
	"sync"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
)

var errReadOnly = errors.New("store: write inside read-only transaction")

// Memory é um store em memória. Update serializa todos os comandos com um lock global;
// as escritas ficam num staging e só são aplicadas se a função devolver nil.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]domain.Match
	bets    map[string]domain.Bet
}

// NewMemory cria um store vazio.
func NewMemory() *Memory {
	return &Memory{
		matches: make(map[string]domain.Match),
		bets:    make(map[string]domain.Bet),
	}
}

func (s *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:       s,
		matches: make(map[string]domain.Match),
		bets:    make(map[string]domain.Bet),
	}
	if err := fn(tx); err != nil {
		return err
	}
	// commit
	for k, m := range tx.matches {
		s.matches[k] = m
	}
	for k, b := range tx.bets {
		s.bets[k] = b
	}
	return nil
}

func (s *Memory) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{s: s, readOnly: true})
}

type memTx struct {
	s        *Memory
	readOnly bool
	matches  map[string]domain.Match
	bets     map[string]domain.Bet
}

func (t *memTx) lookupMatch(k string) (domain.Match, bool) {
	if m, ok := t.matches[k]; ok {
		return m, true
	}
	m, ok := t.s.matches[k]
	return m, ok
}

func (t *memTx) lookupBet(k string) (domain.Bet, bool) {
	if b, ok := t.bets[k]; ok {
		return b, true
	}
	b, ok := t.s.bets[k]
	return b, ok
}

func (t *memTx) CreateMatch(_ context.Context, m domain.Match) error {
	if t.readOnly {
		return errReadOnly
	}
	k := string(domain.MatchKey(m.MatchID))
	if _, ok := t.lookupMatch(k); ok {
		return matchExists(m.MatchID)
	}
	t.matches[k] = m
	return nil
}

func (t *memTx) CreateBet(_ context.Context, b domain.Bet) error {
	if t.readOnly {
		return errReadOnly
	}
	k := string(b.Key())
	if _, ok := t.lookupBet(k); ok {
		return betExists(b.Owner, b.MatchID)
	}
	t.bets[k] = b
	return nil
}

func (t *memTx) GetMatch(_ context.Context, matchID string) (domain.Match, error) {
	m, ok := t.lookupMatch(string(domain.MatchKey(matchID)))
	if !ok {
		return domain.Match{}, matchNotFound(matchID)
	}
	return m, nil
}

func (t *memTx) GetBet(_ context.Context, owner domain.Identity, matchID string) (domain.Bet, error) {
	b, ok := t.lookupBet(string(domain.BetKey(owner, matchID)))
	if !ok {
		return domain.Bet{}, betNotFound(owner, matchID)
	}
	return b, nil
}

func (t *memTx) UpdateMatch(_ context.Context, m domain.Match) error {
	if t.readOnly {
		return errReadOnly
	}
	k := string(domain.MatchKey(m.MatchID))
	if _, ok := t.lookupMatch(k); !ok {
		return matchNotFound(m.MatchID)
	}
	t.matches[k] = m
	return nil
}

func (t *memTx) UpdateBet(_ context.Context, b domain.Bet) error {
	if t.readOnly {
		return errReadOnly
	}
	k := string(b.Key())
	if _, ok := t.lookupBet(k); !ok {
		return betNotFound(b.Owner, b.MatchID)
	}
	t.bets[k] = b
	return nil
}

func (t *memTx) ListMatches(_ context.Context) ([]domain.Match, error) {
	seen := make(map[string]domain.Match, len(t.s.matches)+len(t.matches))
	for k, m := range t.s.matches {
		seen[k] = m
	}
	for k, m := range t.matches {
		seen[k] = m
	}
	out := make([]domain.Match, 0, len(seen))
	for _, m := range seen {
		out = append(out, m)
	}
	sortMatches(out)
	return out, nil
}

func (t *memTx) ListBets(_ context.Context, matchID string) ([]domain.Bet, error) {
	return t.filterBets(func(b domain.Bet) bool { return matchID == "" || b.MatchID == matchID }), nil
}

func (t *memTx) ListBetsByOwner(_ context.Context, owner domain.Identity) ([]domain.Bet, error) {
	return t.filterBets(func(b domain.Bet) bool { return b.Owner == owner }), nil
}

func (t *memTx) filterBets(keep func(domain.Bet) bool) []domain.Bet {
	seen := make(map[string]domain.Bet)
	for k, b := range t.s.bets {
		if keep(b) {
			seen[k] = b
		}
	}
	for k, b := range t.bets {
		if keep(b) {
			seen[k] = b
		}
	}
	out := make([]domain.Bet, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	sortBets(out)
	return out
}
