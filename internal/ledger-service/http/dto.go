package httpapi

import (
	"github.com/radieske/match-betting-ledger/internal/ledger/audit"
	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

// Valores monetários trafegam como inteiros em unidades de 10^-9; *_display é só apresentação.

type CreateMatchRequest struct {
	MatchID   string `json:"match_id"`
	Team1     string `json:"team1"`
	Team2     string `json:"team2"`
	StartTime int64  `json:"start_time"`
	OddsTeam1 uint64 `json:"odds_team1"`
	OddsTeam2 uint64 `json:"odds_team2"`
	OddsDraw  uint64 `json:"odds_draw"`
}

type PlaceBetRequest struct {
	Amount    uint64 `json:"amount"`
	Selection string `json:"selection"` // team1 | team2 | draw
}

type ResolveMatchRequest struct {
	Winner string `json:"winner"` // team1 | team2 | draw
}

type OddsDTO struct {
	Team1 uint64 `json:"team1"`
	Team2 uint64 `json:"team2"`
	Draw  uint64 `json:"draw"`
}

type MatchResponse struct {
	MatchID            string  `json:"match_id"`
	Team1              string  `json:"team1"`
	Team2              string  `json:"team2"`
	StartTime          int64   `json:"start_time"`
	Odds               OddsDTO `json:"odds"`
	TotalStaked        uint64  `json:"total_staked"`
	TotalStakedDisplay string  `json:"total_staked_display"`
	Status             string  `json:"status"`
	Winner             string  `json:"winner"`
}

type BetResponse struct {
	Owner             string `json:"owner"` // base64url
	MatchID           string `json:"match_id"`
	Amount            uint64 `json:"amount"`
	Selection         string `json:"selection"`
	LockedOdds        uint64 `json:"locked_odds"`
	Status            string `json:"status"`
	PotentialWinnings uint64 `json:"potential_winnings"`
}

// CommandResponse devolve o evento produzido pelo comando confirmado.
type CommandResponse struct {
	Type  events.Type  `json:"type"`
	Event events.Event `json:"event"`
}

type ReconcileResponse struct {
	Matches       int                 `json:"matches"`
	Bets          int                 `json:"bets"`
	Discrepancies []audit.Discrepancy `json:"discrepancies"`
}

type ErrorBody struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func ToMatchResponse(m domain.Match) MatchResponse {
	return MatchResponse{
		MatchID:            m.MatchID,
		Team1:              m.Team1,
		Team2:              m.Team2,
		StartTime:          m.StartTime,
		Odds:               OddsDTO{Team1: uint64(m.OddsTeam1), Team2: uint64(m.OddsTeam2), Draw: uint64(m.OddsDraw)},
		TotalStaked:        uint64(m.TotalStaked),
		TotalStakedDisplay: m.TotalStaked.String(),
		Status:             m.Status.String(),
		Winner:             m.Winner.String(),
	}
}

func ToBetResponse(b domain.Bet) BetResponse {
	return BetResponse{
		Owner:             b.Owner.String(),
		MatchID:           b.MatchID,
		Amount:            uint64(b.Amount),
		Selection:         b.Selection.String(),
		LockedOdds:        uint64(b.LockedOdds),
		Status:            b.Status.String(),
		PotentialWinnings: uint64(b.PotentialWinnings),
	}
}
