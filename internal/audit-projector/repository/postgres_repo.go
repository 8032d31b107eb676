package repository

import (
	"context"
	"database/sql"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

// PostgresRepo persiste a projeção dos eventos de auditoria em ledger_events
// DB: conexão com o banco de dados
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Insert grava o evento uma única vez por event_id; reentregas do Kafka
// caem no ON CONFLICT e devolvem inserted=false.
func (r *PostgresRepo) Insert(ctx context.Context, env events.Envelope, ev events.Event) (inserted bool, err error) {
	const q = `
		INSERT INTO ledger_events
		  (event_id, type, match_id, owner, payload, occurred_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING
	`
	owner, err := OwnerOf(ev)
	if err != nil {
		return false, err
	}
	var ownerArg any // NULL para eventos sem dono
	if owner != nil {
		ownerArg = owner
	}
	res, err := r.DB.ExecContext(ctx, q,
		env.EventID, string(env.Type), env.MatchID, ownerArg, string(env.Data), env.OccurredAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// OwnerOf devolve os bytes da identidade do dono para eventos de aposta (nil nos demais).
func OwnerOf(ev events.Event) ([]byte, error) {
	var s string
	switch v := ev.(type) {
	case events.BetPlaced:
		s = v.Owner
	case events.BetWon:
		s = v.Owner
	case events.BetLost:
		s = v.Owner
	default:
		return nil, nil
	}
	id, err := domain.ParseIdentity(s)
	if err != nil {
		return nil, err
	}
	return []byte(id), nil
}
