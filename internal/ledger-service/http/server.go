package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/internal/ledger-service/auth"
	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
)

// API expõe os comandos e consultas do ledger via REST
// Toda rota passa pelo oráculo de autorização, que define o caller do comando
type API struct {
	Log         *zap.Logger
	Engine      *engine.Engine
	Oracle      auth.Oracle
	WS          http.HandlerFunc // hub de websocket; nil => rota /ws desligada
	CORSOrigins []string
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Caller-ID", "X-Admin-Token"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(a.Oracle, a.unauthenticated))

		r.Post("/v1/matches", a.createMatch)               // CreateMatch (admin)
		r.Get("/v1/matches", a.listMatches)                // Lista partidas
		r.Get("/v1/matches/{id}", a.getMatch)              // Uma partida
		r.Post("/v1/matches/{id}/bets", a.placeBet)        // PlaceBet do caller
		r.Get("/v1/matches/{id}/bets", a.listBets)         // Apostas da partida (admin)
		r.Get("/v1/matches/{id}/bets/me", a.getMyBet)      // Aposta do caller
		r.Get("/v1/bets/me", a.listMyBets)                 // Apostas do caller em todas as partidas
		r.Post("/v1/matches/{id}/resolve", a.resolveMatch) // ResolveMatch (admin)
		r.Post("/v1/matches/{id}/claim", a.claimWinnings)  // ClaimWinnings do caller
		r.Get("/v1/audit/reconcile", a.reconcile)          // Reconciliação (admin)
		if a.WS != nil {
			r.Get("/ws", a.WS)
		}
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor mapeia o código de domínio para o status HTTP.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeInvalidArgument, domain.CodeInvalidSelection:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExists, domain.CodeAlreadyResolved, domain.CodeAlreadyProcessed,
		domain.CodeMatchFinished, domain.CodeMatchNotFinished:
		return http.StatusConflict
	case domain.CodeOverflow:
		return http.StatusUnprocessableEntity
	case domain.CodeRetry:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	if code == domain.CodeRetry {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}

func (a *API) unauthenticated(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorBody{Code: "UNAUTHENTICATED", Message: err.Error()}})
}

// decode lê o corpo JSON; campos desconhecidos são rejeitados.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Errorf(domain.CodeInvalidArgument, "body too large")
		}
		return domain.Errorf(domain.CodeInvalidArgument, "bad json: %v", err)
	}
	return nil
}

func caller(r *http.Request) engine.Caller {
	c, _ := auth.FromContext(r.Context())
	return c
}
