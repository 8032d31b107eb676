package domain

import (
	"encoding/json"
	"fmt"
)

// Tags estáveis da forma persistida. Só este arquivo conhece os inteiros.
const (
	wireVersion = 1

	tagUpcoming uint8 = 0
	tagLive     uint8 = 1
	tagFinished uint8 = 2

	tagTeam1 uint8 = 0
	tagTeam2 uint8 = 1
	tagDraw  uint8 = 2
	tagUnset uint8 = 255

	tagActive uint8 = 0
	tagWon    uint8 = 1
	tagLost   uint8 = 2

	kindMatch = "match"
	kindBet   = "bet"
)

type matchWire struct {
	Kind        string `json:"kind"`
	Version     int    `json:"v"`
	MatchID     string `json:"match_id"`
	Team1       string `json:"team1"`
	Team2       string `json:"team2"`
	StartTime   int64  `json:"start_time"`
	OddsTeam1   uint64 `json:"odds_team1"`
	OddsTeam2   uint64 `json:"odds_team2"`
	OddsDraw    uint64 `json:"odds_draw"`
	TotalStaked uint64 `json:"total_staked"`
	Status      uint8  `json:"status"`
	Winner      uint8  `json:"winner"`
}

type betWire struct {
	Kind              string `json:"kind"`
	Version           int    `json:"v"`
	Owner             []byte `json:"owner"`
	MatchID           string `json:"match_id"`
	Amount            uint64 `json:"amount"`
	Selection         uint8  `json:"selection"`
	LockedOdds        uint64 `json:"locked_odds"`
	Status            uint8  `json:"status"`
	PotentialWinnings uint64 `json:"potential_winnings"`
}

// MatchStatusTag devolve o tag persistido do status.
func MatchStatusTag(s MatchStatus) (uint8, error) {
	switch s {
	case StatusUpcoming:
		return tagUpcoming, nil
	case StatusLive:
		return tagLive, nil
	case StatusFinished:
		return tagFinished, nil
	}
	return 0, fmt.Errorf("unknown match status %d", s)
}

func matchStatusFromTag(t uint8) (MatchStatus, error) {
	switch t {
	case tagUpcoming:
		return StatusUpcoming, nil
	case tagLive:
		return StatusLive, nil
	case tagFinished:
		return StatusFinished, nil
	}
	return 0, fmt.Errorf("unknown match status tag %d", t)
}

// OutcomeTag devolve o tag persistido de vencedor/seleção.
func OutcomeTag(o Outcome) (uint8, error) {
	switch o {
	case OutcomeTeam1:
		return tagTeam1, nil
	case OutcomeTeam2:
		return tagTeam2, nil
	case OutcomeDraw:
		return tagDraw, nil
	case OutcomeUnset:
		return tagUnset, nil
	}
	return 0, fmt.Errorf("unknown outcome %d", o)
}

func outcomeFromTag(t uint8) (Outcome, error) {
	switch t {
	case tagTeam1:
		return OutcomeTeam1, nil
	case tagTeam2:
		return OutcomeTeam2, nil
	case tagDraw:
		return OutcomeDraw, nil
	case tagUnset:
		return OutcomeUnset, nil
	}
	return 0, fmt.Errorf("unknown outcome tag %d", t)
}

// BetStatusTag devolve o tag persistido do status da aposta.
func BetStatusTag(s BetStatus) (uint8, error) {
	switch s {
	case BetActive:
		return tagActive, nil
	case BetWon:
		return tagWon, nil
	case BetLost:
		return tagLost, nil
	}
	return 0, fmt.Errorf("unknown bet status %d", s)
}

func betStatusFromTag(t uint8) (BetStatus, error) {
	switch t {
	case tagActive:
		return BetActive, nil
	case tagWon:
		return BetWon, nil
	case tagLost:
		return BetLost, nil
	}
	return 0, fmt.Errorf("unknown bet status tag %d", t)
}

// EncodeMatch serializa a partida no formato persistido (JSON autodescritivo).
func EncodeMatch(m Match) ([]byte, error) {
	st, err := MatchStatusTag(m.Status)
	if err != nil {
		return nil, err
	}
	w, err := OutcomeTag(m.Winner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(matchWire{
		Kind:        kindMatch,
		Version:     wireVersion,
		MatchID:     m.MatchID,
		Team1:       m.Team1,
		Team2:       m.Team2,
		StartTime:   m.StartTime,
		OddsTeam1:   uint64(m.OddsTeam1),
		OddsTeam2:   uint64(m.OddsTeam2),
		OddsDraw:    uint64(m.OddsDraw),
		TotalStaked: uint64(m.TotalStaked),
		Status:      st,
		Winner:      w,
	})
}

// DecodeMatch é o inverso de EncodeMatch; rejeita kind, versão ou tags desconhecidos.
func DecodeMatch(b []byte) (Match, error) {
	var w matchWire
	if err := json.Unmarshal(b, &w); err != nil {
		return Match{}, fmt.Errorf("decode match: %w", err)
	}
	if w.Kind != kindMatch || w.Version != wireVersion {
		return Match{}, fmt.Errorf("decode match: unexpected kind=%q v=%d", w.Kind, w.Version)
	}
	st, err := matchStatusFromTag(w.Status)
	if err != nil {
		return Match{}, fmt.Errorf("decode match: %w", err)
	}
	winner, err := outcomeFromTag(w.Winner)
	if err != nil {
		return Match{}, fmt.Errorf("decode match: %w", err)
	}
	return Match{
		MatchID:     w.MatchID,
		Team1:       w.Team1,
		Team2:       w.Team2,
		StartTime:   w.StartTime,
		OddsTeam1:   Odds(w.OddsTeam1),
		OddsTeam2:   Odds(w.OddsTeam2),
		OddsDraw:    Odds(w.OddsDraw),
		TotalStaked: Money(w.TotalStaked),
		Status:      st,
		Winner:      winner,
	}, nil
}

// EncodeBet serializa a aposta no formato persistido.
func EncodeBet(b Bet) ([]byte, error) {
	sel, err := OutcomeTag(b.Selection)
	if err != nil {
		return nil, err
	}
	st, err := BetStatusTag(b.Status)
	if err != nil {
		return nil, err
	}
	return json.Marshal(betWire{
		Kind:              kindBet,
		Version:           wireVersion,
		Owner:             []byte(b.Owner),
		MatchID:           b.MatchID,
		Amount:            uint64(b.Amount),
		Selection:         sel,
		LockedOdds:        uint64(b.LockedOdds),
		Status:            st,
		PotentialWinnings: uint64(b.PotentialWinnings),
	})
}

// DecodeBet é o inverso de EncodeBet.
func DecodeBet(b []byte) (Bet, error) {
	var w betWire
	if err := json.Unmarshal(b, &w); err != nil {
		return Bet{}, fmt.Errorf("decode bet: %w", err)
	}
	if w.Kind != kindBet || w.Version != wireVersion {
		return Bet{}, fmt.Errorf("decode bet: unexpected kind=%q v=%d", w.Kind, w.Version)
	}
	sel, err := outcomeFromTag(w.Selection)
	if err != nil {
		return Bet{}, fmt.Errorf("decode bet: %w", err)
	}
	st, err := betStatusFromTag(w.Status)
	if err != nil {
		return Bet{}, fmt.Errorf("decode bet: %w", err)
	}
	return Bet{
		Owner:             Identity(w.Owner),
		MatchID:           w.MatchID,
		Amount:            Money(w.Amount),
		Selection:         sel,
		LockedOdds:        Odds(w.LockedOdds),
		Status:            st,
		PotentialWinnings: Money(w.PotentialWinnings),
	}, nil
}
