package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/match-betting-ledger/internal/ledger/audit"
	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
)

// execute roda o comando e responde com o evento produzido.
func (a *API) execute(w http.ResponseWriter, r *http.Request, status int, cmd engine.Command) {
	res, err := a.Engine.Execute(r.Context(), caller(r), cmd)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, status, CommandResponse{Type: res.Event.EventType(), Event: res.Event})
}

func (a *API) createMatch(w http.ResponseWriter, r *http.Request) {
	// admin é checado antes do corpo: não-admin recebe 403 mesmo com payload inválido
	if !caller(r).IsAdmin {
		a.writeError(w, r, domain.Errorf(domain.CodeUnauthorized, "caller is not the admin"))
		return
	}
	var req CreateMatchRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.execute(w, r, http.StatusCreated, engine.CreateMatch{
		MatchID:   req.MatchID,
		Team1:     req.Team1,
		Team2:     req.Team2,
		StartTime: req.StartTime,
		OddsTeam1: domain.Odds(req.OddsTeam1),
		OddsTeam2: domain.Odds(req.OddsTeam2),
		OddsDraw:  domain.Odds(req.OddsDraw),
	})
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	// nome desconhecido vira OutcomeUnset; o engine responde InvalidSelection na ordem certa
	sel, _ := domain.ParseOutcome(req.Selection)
	a.execute(w, r, http.StatusCreated, engine.PlaceBet{
		MatchID:   chi.URLParam(r, "id"),
		Amount:    domain.Money(req.Amount),
		Selection: sel,
	})
}

func (a *API) resolveMatch(w http.ResponseWriter, r *http.Request) {
	if !caller(r).IsAdmin {
		a.writeError(w, r, domain.Errorf(domain.CodeUnauthorized, "caller is not the admin"))
		return
	}
	var req ResolveMatchRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	winner, _ := domain.ParseOutcome(req.Winner)
	a.execute(w, r, http.StatusOK, engine.ResolveMatch{MatchID: chi.URLParam(r, "id"), Winner: winner})
}

func (a *API) claimWinnings(w http.ResponseWriter, r *http.Request) {
	a.execute(w, r, http.StatusOK, engine.ClaimWinnings{MatchID: chi.URLParam(r, "id")})
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	ms, err := a.Engine.ListMatches(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]MatchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMatchResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.Engine.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToMatchResponse(m))
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	if !caller(r).IsAdmin {
		a.writeError(w, r, domain.Errorf(domain.CodeUnauthorized, "caller is not the admin"))
		return
	}
	bets, err := a.Engine.ListBets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, ToBetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getMyBet(w http.ResponseWriter, r *http.Request) {
	b, err := a.Engine.GetBet(r.Context(), caller(r).Identity, chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToBetResponse(b))
}

func (a *API) listMyBets(w http.ResponseWriter, r *http.Request) {
	bets, err := a.Engine.ListMyBets(r.Context(), caller(r).Identity)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, ToBetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) reconcile(w http.ResponseWriter, r *http.Request) {
	if !caller(r).IsAdmin {
		a.writeError(w, r, domain.Errorf(domain.CodeUnauthorized, "caller is not the admin"))
		return
	}
	ms, bs, err := a.Engine.Snapshot(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	d := audit.Reconcile(ms, bs)
	if d == nil {
		d = []audit.Discrepancy{}
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{Matches: len(ms), Bets: len(bs), Discrepancies: d})
}
