package audit

import (
	"fmt"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
)

// DiscrepancyKind classifica uma violação encontrada pela reconciliação.
type DiscrepancyKind string

const (
	OrphanBet            DiscrepancyKind = "orphan_bet"             // aposta sem partida
	SettledOnOpenMatch   DiscrepancyKind = "settled_on_open_match"  // Won/Lost com partida não encerrada
	WonWrongSelection    DiscrepancyKind = "won_wrong_selection"    // Won com seleção != vencedor
	LostWinningSelection DiscrepancyKind = "lost_winning_selection" // Lost com seleção == vencedor
	TotalStakedMismatch  DiscrepancyKind = "total_staked_mismatch"  // total_staked != soma das apostas
	PotentialMismatch    DiscrepancyKind = "potential_mismatch"     // potential != amount x locked_odds
	LockedOddsMismatch   DiscrepancyKind = "locked_odds_mismatch"   // odds travadas != odds da partida
	WinnerStatusMismatch DiscrepancyKind = "winner_status_mismatch" // vencedor e status incoerentes
	InvalidRecord        DiscrepancyKind = "invalid_record"         // valor fora do domínio (amount 0, seleção inválida)
)

type Discrepancy struct {
	Kind    DiscrepancyKind `json:"kind"`
	MatchID string          `json:"match_id"`
	Owner   string          `json:"owner,omitempty"`
	Detail  string          `json:"detail"`
}

// Reconcile confere partidas e apostas contra os invariantes do ledger.
// Recebe um snapshot consistente (engine.Snapshot) e não acessa o store.
func Reconcile(matches []domain.Match, bets []domain.Bet) []Discrepancy {
	var out []Discrepancy
	byID := make(map[string]domain.Match, len(matches))
	for _, m := range matches {
		byID[m.MatchID] = m
		switch {
		case m.Status == domain.StatusFinished && !m.Winner.IsSide():
			out = append(out, Discrepancy{Kind: WinnerStatusMismatch, MatchID: m.MatchID, Detail: "finished without winner"})
		case m.Status != domain.StatusFinished && m.Winner != domain.OutcomeUnset:
			out = append(out, Discrepancy{Kind: WinnerStatusMismatch, MatchID: m.MatchID,
				Detail: fmt.Sprintf("status %s with winner %s", m.Status, m.Winner)})
		}
	}

	sums := make(map[string]domain.Money, len(matches))
	overflowed := make(map[string]bool)
	for _, b := range bets {
		owner := b.Owner.String()
		bad := func(kind DiscrepancyKind, format string, args ...any) {
			out = append(out, Discrepancy{Kind: kind, MatchID: b.MatchID, Owner: owner, Detail: fmt.Sprintf(format, args...)})
		}

		if b.Amount == 0 || !b.Selection.IsSide() {
			bad(InvalidRecord, "amount %d selection %s", b.Amount, b.Selection)
		}
		if p, err := b.Amount.Mul(b.LockedOdds); err != nil || p != b.PotentialWinnings {
			bad(PotentialMismatch, "potential %d, amount %d x odds %d", b.PotentialWinnings, b.Amount, b.LockedOdds)
		}

		m, ok := byID[b.MatchID]
		if !ok {
			bad(OrphanBet, "match does not exist")
			continue
		}
		if s, err := sums[b.MatchID].Add(b.Amount); err != nil {
			overflowed[b.MatchID] = true
		} else {
			sums[b.MatchID] = s
		}
		if odds, ok := m.OddsFor(b.Selection); ok && odds != b.LockedOdds {
			bad(LockedOddsMismatch, "locked %d, match %d", b.LockedOdds, odds)
		}
		if b.Status.Settled() && m.Status != domain.StatusFinished {
			bad(SettledOnOpenMatch, "bet %s, match %s", b.Status, m.Status)
		}
		if b.Status == domain.BetWon && b.Selection != m.Winner {
			bad(WonWrongSelection, "selection %s, winner %s", b.Selection, m.Winner)
		}
		if b.Status == domain.BetLost && b.Selection == m.Winner {
			bad(LostWinningSelection, "selection %s is the winner", b.Selection)
		}
	}

	for _, m := range matches {
		if overflowed[m.MatchID] {
			out = append(out, Discrepancy{Kind: TotalStakedMismatch, MatchID: m.MatchID, Detail: "sum of bet amounts exceeds 2^64-1"})
			continue
		}
		if got := sums[m.MatchID]; got != m.TotalStaked {
			out = append(out, Discrepancy{Kind: TotalStakedMismatch, MatchID: m.MatchID,
				Detail: fmt.Sprintf("total_staked %d, bets sum %d", m.TotalStaked, got)})
		}
	}
	return out
}
