package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type EventRepo interface {
	Insert(ctx context.Context, env events.Envelope, ev events.Event) (bool, error)
}

// Processor consome envelopes de auditoria do Kafka e persiste a projeção no banco
// Mensagens inválidas ou que falham após as tentativas vão para a DLQ
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   EventRepo
	DLQ    MessageWriter // opcional

	Retries int           // tentativas extras de escrita no banco
	Backoff time.Duration // base do backoff linear entre tentativas

	OnConsumed  func()       // métricas (counter++)
	OnPersist   func()       // métricas
	OnDuplicate func()       // reentrega já projetada
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed() // callback de métrica: mensagem consumida
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; nunca bloqueia o consumo por causa de uma mensagem ruim.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode", err)
		return
	}
	ev, err := env.Decode()
	if err != nil {
		p.Log.Warn("invalid event", zap.String("event_id", env.EventID), zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode", err)
		return
	}

	var inserted bool
	for i := 0; i <= p.Retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(i) * p.Backoff):
			}
		}
		if inserted, err = p.Repo.Insert(ctx, env, ev); err == nil {
			break
		}
		p.Log.Warn("db insert failed", zap.String("event_id", env.EventID), zap.Int("attempt", i+1), zap.Error(err))
	}
	if err != nil {
		p.fail("db_insert")
		p.deadLetter(ctx, m, "db_insert", err)
		return
	}
	if !inserted {
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return
	}
	if p.OnPersist != nil {
		p.OnPersist() // callback de métrica: persistência concluída
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// deadLetter reenvia a mensagem original para a DLQ com o motivo nos headers
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) {
	if p.DLQ == nil {
		return
	}
	dl := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header(nil), m.Headers...),
			kafka.Header{Key: "dlq_stage", Value: []byte(stage)},
			kafka.Header{Key: "dlq_error", Value: []byte(cause.Error())},
			kafka.Header{Key: "dlq_origin", Value: []byte(fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset))},
		),
	}
	if err := p.DLQ.WriteMessages(ctx, dl); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}
