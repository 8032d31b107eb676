package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
)

const (
	redisMatchPrefix = "ledger:match:"
	redisBetPrefix   = "ledger:bet:"
	redisMatchIndex  = "ledger:matches"
	redisBetsIndex   = "ledger:bets:"  // + match_id => set de chaves de aposta
	redisOwnerIndex  = "ledger:owner:" // + base64url(owner) => set de chaves de aposta

	// tentativas de View antes de desistir com ErrRetry
	redisViewAttempts = 5
)

// Redis guarda os registros serializados em chaves string e usa WATCH/MULTI/EXEC
// para transações otimistas: se outra transação tocar uma chave lida, Update devolve ErrRetry.
type Redis struct {
	client *redis.Client
}

// NewRedis cria o store sobre um cliente já conectado (ver shared/cache).
func NewRedis(c *redis.Client) *Redis { return &Redis{client: c} }

func matchRedisKey(matchID string) string { return redisMatchPrefix + string(domain.MatchKey(matchID)) }

func betRedisKey(owner domain.Identity, matchID string) string {
	return redisBetPrefix + string(domain.BetKey(owner, matchID))
}

func (s *Redis) Update(ctx context.Context, fn func(tx Tx) error) error {
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		t := &redisTx{rd: rtx, watch: rtx, staged: make(map[string][]byte)}
		if err := fn(t); err != nil {
			return err
		}
		if len(t.order) == 0 {
			return nil
		}
		_, err := rtx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, k := range t.order {
				p.Set(ctx, k, t.staged[k], 0)
			}
			for _, id := range t.newMatches {
				p.SAdd(ctx, redisMatchIndex, id)
			}
			for _, b := range t.newBets {
				p.SAdd(ctx, redisBetsIndex+b.MatchID, betRedisKey(b.Owner, b.MatchID))
				p.SAdd(ctx, redisOwnerIndex+b.Owner.String(), betRedisKey(b.Owner, b.MatchID))
			}
			return nil
		})
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return domain.Errorf(domain.CodeRetry, "redis: concurrent update on watched key")
	}
	return err
}

// View coloca sob WATCH cada chave antes de lê-la e fecha com um EXEC vazio:
// se algum commit tocou uma chave lida no meio, fn roda de novo. Assim partidas e
// apostas lidas na mesma View formam um único retrato.
func (s *Redis) View(ctx context.Context, fn func(tx Tx) error) error {
	for i := 0; i < redisViewAttempts; i++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			if err := fn(&redisTx{rd: rtx, watch: rtx, readOnly: true}); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Ping(ctx)
				return nil
			})
			return err
		})
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return domain.Errorf(domain.CodeRetry, "redis: view kept racing concurrent updates")
}

type redisReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

type redisTx struct {
	rd       redisReader
	watch    *redis.Tx
	readOnly bool

	staged     map[string][]byte
	order      []string
	newMatches []string
	newBets    []domain.Bet
}

func (t *redisTx) watchKeys(ctx context.Context, keys ...string) error {
	if t.watch == nil || len(keys) == 0 {
		return nil
	}
	if err := t.watch.Watch(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis watch: %w", err)
	}
	return nil
}

// members lê um set de índice depois de observá-lo.
func (t *redisTx) members(ctx context.Context, key string) ([]string, error) {
	if err := t.watchKeys(ctx, key); err != nil {
		return nil, err
	}
	out, err := t.rd.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return out, nil
}

// get lê a chave (staging primeiro) e a coloca sob WATCH antes da leitura.
func (t *redisTx) get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.staged[key]; ok {
		return v, true, nil
	}
	if err := t.watchKeys(ctx, key); err != nil {
		return nil, false, err
	}
	v, err := t.rd.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (t *redisTx) put(key string, value []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, ok := t.staged[key]; !ok {
		t.order = append(t.order, key)
	}
	t.staged[key] = value
	return nil
}

func (t *redisTx) CreateMatch(ctx context.Context, m domain.Match) error {
	if t.readOnly {
		return errReadOnly
	}
	key := matchRedisKey(m.MatchID)
	_, exists, err := t.get(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return matchExists(m.MatchID)
	}
	value, err := domain.EncodeMatch(m)
	if err != nil {
		return err
	}
	t.newMatches = append(t.newMatches, m.MatchID)
	return t.put(key, value)
}

func (t *redisTx) CreateBet(ctx context.Context, b domain.Bet) error {
	if t.readOnly {
		return errReadOnly
	}
	key := betRedisKey(b.Owner, b.MatchID)
	_, exists, err := t.get(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return betExists(b.Owner, b.MatchID)
	}
	value, err := domain.EncodeBet(b)
	if err != nil {
		return err
	}
	t.newBets = append(t.newBets, b)
	return t.put(key, value)
}

func (t *redisTx) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	v, ok, err := t.get(ctx, matchRedisKey(matchID))
	if err != nil {
		return domain.Match{}, err
	}
	if !ok {
		return domain.Match{}, matchNotFound(matchID)
	}
	return domain.DecodeMatch(v)
}

func (t *redisTx) GetBet(ctx context.Context, owner domain.Identity, matchID string) (domain.Bet, error) {
	v, ok, err := t.get(ctx, betRedisKey(owner, matchID))
	if err != nil {
		return domain.Bet{}, err
	}
	if !ok {
		return domain.Bet{}, betNotFound(owner, matchID)
	}
	return domain.DecodeBet(v)
}

func (t *redisTx) UpdateMatch(ctx context.Context, m domain.Match) error {
	if t.readOnly {
		return errReadOnly
	}
	key := matchRedisKey(m.MatchID)
	_, ok, err := t.get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return matchNotFound(m.MatchID)
	}
	value, err := domain.EncodeMatch(m)
	if err != nil {
		return err
	}
	return t.put(key, value)
}

func (t *redisTx) UpdateBet(ctx context.Context, b domain.Bet) error {
	if t.readOnly {
		return errReadOnly
	}
	key := betRedisKey(b.Owner, b.MatchID)
	_, ok, err := t.get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return betNotFound(b.Owner, b.MatchID)
	}
	value, err := domain.EncodeBet(b)
	if err != nil {
		return err
	}
	return t.put(key, value)
}

// mget busca vários valores; chaves ausentes são ignoradas.
func (t *redisTx) mget(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := t.watchKeys(ctx, keys...); err != nil {
		return nil, err
	}
	vals, err := t.rd.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, []byte(s))
	}
	return out, nil
}

func (t *redisTx) ListMatches(ctx context.Context) ([]domain.Match, error) {
	ids, err := t.members(ctx, redisMatchIndex)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, matchRedisKey(id))
	}
	vals, err := t.mget(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Match, 0, len(vals))
	for _, v := range vals {
		m, err := domain.DecodeMatch(v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sortMatches(out)
	return out, nil
}

func (t *redisTx) ListBets(ctx context.Context, matchID string) ([]domain.Bet, error) {
	matchIDs := []string{matchID}
	if matchID == "" {
		ids, err := t.members(ctx, redisMatchIndex)
		if err != nil {
			return nil, err
		}
		matchIDs = ids
	}

	var out []domain.Bet
	for _, id := range matchIDs {
		keys, err := t.members(ctx, redisBetsIndex+id)
		if err != nil {
			return nil, err
		}
		bets, err := t.decodeBets(ctx, keys, func(b domain.Bet) bool { return b.MatchID == id })
		if err != nil {
			return nil, err
		}
		out = append(out, bets...)
	}
	sortBets(out)
	return out, nil
}

func (t *redisTx) ListBetsByOwner(ctx context.Context, owner domain.Identity) ([]domain.Bet, error) {
	keys, err := t.members(ctx, redisOwnerIndex+owner.String())
	if err != nil {
		return nil, err
	}
	out, err := t.decodeBets(ctx, keys, func(b domain.Bet) bool { return b.Owner == owner })
	if err != nil {
		return nil, err
	}
	sortBets(out)
	return out, nil
}

// decodeBets lê as apostas das chaves de índice e junta as criadas nesta transação
// (keep filtra as novas); valores em staging têm precedência sobre o servidor.
func (t *redisTx) decodeBets(ctx context.Context, keys []string, keep func(domain.Bet) bool) ([]domain.Bet, error) {
	for _, b := range t.newBets {
		if keep(b) {
			keys = append(keys, betRedisKey(b.Owner, b.MatchID))
		}
	}
	var remote []string
	var vals [][]byte
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if v, ok := t.staged[k]; ok {
			vals = append(vals, v)
			continue
		}
		remote = append(remote, k)
	}
	fetched, err := t.mget(ctx, remote)
	if err != nil {
		return nil, err
	}
	vals = append(vals, fetched...)

	out := make([]domain.Bet, 0, len(vals))
	for _, v := range vals {
		b, err := domain.DecodeBet(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
