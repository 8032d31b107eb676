package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
)

// Postgres guarda os registros serializados em duas tabelas (matches, bets) com chave bytea.
// Update usa READ COMMITTED + SELECT ... FOR UPDATE, o mesmo lock pessimista da carteira.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o store sobre uma conexão já aberta (ver shared/db).
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapPQError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx, forUpdate: true}); err != nil {
		return mapPQError(err)
	}
	if err := tx.Commit(); err != nil {
		return mapPQError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return mapPQError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapPQError(err)
	}
	return tx.Commit()
}

// mapPQError traduz conflitos de concorrência do Postgres para os códigos de domínio.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return domain.Errorf(domain.CodeRetry, "postgres conflict: %s", pqErr.Message)
	case "23505": // unique_violation
		return domain.Errorf(domain.CodeAlreadyExists, "postgres: %s", pqErr.Message)
	}
	return err
}

type pgTx struct {
	tx        *sql.Tx
	forUpdate bool
}

func (t *pgTx) lockClause() string {
	if t.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (t *pgTx) CreateMatch(ctx context.Context, m domain.Match) error {
	value, err := domain.EncodeMatch(m)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO matches (key, match_id, value) VALUES ($1,$2,$3) ON CONFLICT (key) DO NOTHING`,
		domain.MatchKey(m.MatchID), m.MatchID, value)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return matchExists(m.MatchID)
	}
	return nil
}

func (t *pgTx) CreateBet(ctx context.Context, b domain.Bet) error {
	value, err := domain.EncodeBet(b)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO bets (key, owner, match_id, value) VALUES ($1,$2,$3,$4) ON CONFLICT (key) DO NOTHING`,
		b.Key(), []byte(b.Owner), b.MatchID, value)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return betExists(b.Owner, b.MatchID)
	}
	return nil
}

func (t *pgTx) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	var value []byte
	err := t.tx.QueryRowContext(ctx,
		`SELECT value FROM matches WHERE key=$1`+t.lockClause(), domain.MatchKey(matchID)).Scan(&value)
	if err == sql.ErrNoRows {
		return domain.Match{}, matchNotFound(matchID)
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("select match: %w", err)
	}
	return domain.DecodeMatch(value)
}

func (t *pgTx) GetBet(ctx context.Context, owner domain.Identity, matchID string) (domain.Bet, error) {
	var value []byte
	err := t.tx.QueryRowContext(ctx,
		`SELECT value FROM bets WHERE key=$1`+t.lockClause(), domain.BetKey(owner, matchID)).Scan(&value)
	if err == sql.ErrNoRows {
		return domain.Bet{}, betNotFound(owner, matchID)
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("select bet: %w", err)
	}
	return domain.DecodeBet(value)
}

func (t *pgTx) UpdateMatch(ctx context.Context, m domain.Match) error {
	value, err := domain.EncodeMatch(m)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE matches SET value=$2, updated_at=NOW() WHERE key=$1`, domain.MatchKey(m.MatchID), value)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return matchNotFound(m.MatchID)
	}
	return nil
}

func (t *pgTx) UpdateBet(ctx context.Context, b domain.Bet) error {
	value, err := domain.EncodeBet(b)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE bets SET value=$2, updated_at=NOW() WHERE key=$1`, b.Key(), value)
	if err != nil {
		return fmt.Errorf("update bet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return betNotFound(b.Owner, b.MatchID)
	}
	return nil
}

func (t *pgTx) ListMatches(ctx context.Context) ([]domain.Match, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT value FROM matches ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m, err := domain.DecodeMatch(value)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *pgTx) ListBets(ctx context.Context, matchID string) ([]domain.Bet, error) {
	return t.queryBets(ctx,
		`SELECT value FROM bets WHERE ($1 = '' OR match_id = $1) ORDER BY match_id COLLATE "C", owner`, matchID)
}

func (t *pgTx) ListBetsByOwner(ctx context.Context, owner domain.Identity) ([]domain.Bet, error) {
	return t.queryBets(ctx,
		`SELECT value FROM bets WHERE owner = $1 ORDER BY match_id COLLATE "C"`, []byte(owner))
}

func (t *pgTx) queryBets(ctx context.Context, q string, arg any) ([]domain.Bet, error) {
	rows, err := t.tx.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b, err := domain.DecodeBet(value)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
