package audit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/match-betting-ledger/internal/shared/kafka"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

// KafkaPublisher publica o envelope em JSON, com chave = match_id para manter
// a ordem por partida dentro de uma partição.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, env events.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return sharedkafka.WriteJSON(ctx, p.Writer, env.MatchID, b,
		kafka.Header{Key: "event_type", Value: []byte(env.Type)},
	)
}

// RedisBroadcaster repassa o envelope para o canal lido pelo hub de websocket.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Name() string { return "redis" }

func (b *RedisBroadcaster) Publish(ctx context.Context, env events.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}

// LogEmitter escreve uma linha estruturada por evento.
type LogEmitter struct {
	Log *zap.Logger
}

func (l LogEmitter) Name() string { return "log" }

func (l LogEmitter) Publish(_ context.Context, env events.Envelope) error {
	l.Log.Info("audit event",
		zap.String("event_id", env.EventID),
		zap.String("type", string(env.Type)),
		zap.String("match_id", env.MatchID),
		zap.Time("occurred_at", env.OccurredAt),
		zap.ByteString("data", env.Data),
	)
	return nil
}

// Recorder guarda os envelopes em memória (replay e testes).
type Recorder struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Publish(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	r.envs = append(r.envs, env)
	r.mu.Unlock()
	return nil
}

// Envelopes devolve uma cópia do que foi gravado, em ordem.
func (r *Recorder) Envelopes() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Envelope(nil), r.envs...)
}
