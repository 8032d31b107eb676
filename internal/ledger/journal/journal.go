// Package journal grava os comandos confirmados em JSON Lines e os reaplica
// sobre um engine. Uma linha por comando, na ordem de commit.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
)

// Entry é uma linha do journal.
type Entry struct {
	Seq     uint64          `json:"seq"`
	Caller  string          `json:"caller"` // base64url da identidade
	Admin   bool            `json:"admin"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createMatchPayload struct {
	MatchID   string `json:"match_id"`
	Team1     string `json:"team1"`
	Team2     string `json:"team2"`
	StartTime int64  `json:"start_time"`
	OddsTeam1 uint64 `json:"odds_team1"`
	OddsTeam2 uint64 `json:"odds_team2"`
	OddsDraw  uint64 `json:"odds_draw"`
}

type placeBetPayload struct {
	MatchID   string `json:"match_id"`
	Amount    uint64 `json:"amount"`
	Selection string `json:"selection"`
}

type resolveMatchPayload struct {
	MatchID string `json:"match_id"`
	Winner  string `json:"winner"`
}

type claimWinningsPayload struct {
	MatchID string `json:"match_id"`
}

// NewEntry converte um comando em linha de journal.
func NewEntry(seq uint64, caller engine.Caller, cmd engine.Command) (Entry, error) {
	var payload any
	switch c := cmd.(type) {
	case engine.CreateMatch:
		payload = createMatchPayload{
			MatchID: c.MatchID, Team1: c.Team1, Team2: c.Team2, StartTime: c.StartTime,
			OddsTeam1: uint64(c.OddsTeam1), OddsTeam2: uint64(c.OddsTeam2), OddsDraw: uint64(c.OddsDraw),
		}
	case engine.PlaceBet:
		payload = placeBetPayload{MatchID: c.MatchID, Amount: uint64(c.Amount), Selection: c.Selection.String()}
	case engine.ResolveMatch:
		payload = resolveMatchPayload{MatchID: c.MatchID, Winner: c.Winner.String()}
	case engine.ClaimWinnings:
		payload = claimWinningsPayload{MatchID: c.MatchID}
	default:
		return Entry{}, fmt.Errorf("journal: unsupported command %T", cmd)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Seq:     seq,
		Caller:  caller.Identity.String(),
		Admin:   caller.IsAdmin,
		Type:    cmd.Kind(),
		Payload: raw,
	}, nil
}

// Command reconstrói o caller e o comando da linha.
// Seleções/vencedores desconhecidos viram OutcomeUnset e o engine rejeita.
func (e Entry) Command() (engine.Caller, engine.Command, error) {
	id, err := domain.ParseIdentity(e.Caller)
	if err != nil {
		return engine.Caller{}, nil, err
	}
	caller := engine.Caller{Identity: id, IsAdmin: e.Admin}

	switch e.Type {
	case engine.KindCreateMatch:
		var p createMatchPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return caller, nil, fmt.Errorf("journal seq %d: %w", e.Seq, err)
		}
		return caller, engine.CreateMatch{
			MatchID: p.MatchID, Team1: p.Team1, Team2: p.Team2, StartTime: p.StartTime,
			OddsTeam1: domain.Odds(p.OddsTeam1), OddsTeam2: domain.Odds(p.OddsTeam2), OddsDraw: domain.Odds(p.OddsDraw),
		}, nil
	case engine.KindPlaceBet:
		var p placeBetPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return caller, nil, fmt.Errorf("journal seq %d: %w", e.Seq, err)
		}
		sel, _ := domain.ParseOutcome(p.Selection)
		return caller, engine.PlaceBet{MatchID: p.MatchID, Amount: domain.Money(p.Amount), Selection: sel}, nil
	case engine.KindResolveMatch:
		var p resolveMatchPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return caller, nil, fmt.Errorf("journal seq %d: %w", e.Seq, err)
		}
		winner, _ := domain.ParseOutcome(p.Winner)
		return caller, engine.ResolveMatch{MatchID: p.MatchID, Winner: winner}, nil
	case engine.KindClaimWinnings:
		var p claimWinningsPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return caller, nil, fmt.Errorf("journal seq %d: %w", e.Seq, err)
		}
		return caller, engine.ClaimWinnings{MatchID: p.MatchID}, nil
	}
	return caller, nil, fmt.Errorf("journal seq %d: unknown type %q", e.Seq, e.Type)
}

// Writer acrescenta linhas a um io.Writer. Implementa engine.Journal.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	f   *os.File
	seq uint64
}

// NewWriter escreve em w começando após lastSeq.
func NewWriter(w io.Writer, lastSeq uint64) *Writer {
	return &Writer{w: w, seq: lastSeq}
}

// OpenFile abre (ou cria) o arquivo em modo append e continua a numeração.
func OpenFile(path string) (*Writer, error) {
	var last uint64
	if f, err := os.Open(path); err == nil {
		entries, rerr := Read(f)
		_ = f.Close()
		if rerr != nil {
			return nil, rerr
		}
		if n := len(entries); n > 0 {
			last = entries[n-1].Seq
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	w := NewWriter(f, last)
	w.f = f
	return w, nil
}

func (w *Writer) Append(_ context.Context, caller engine.Caller, cmd engine.Command) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := NewEntry(w.seq+1, caller, cmd)
	if err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	if w.f != nil {
		if err := w.f.Sync(); err != nil {
			return fmt.Errorf("sync journal: %w", err)
		}
	}
	w.seq = e.Seq
	return nil
}

func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}

// Read lê todas as linhas; linhas vazias são ignoradas.
func Read(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var out []Entry
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}
