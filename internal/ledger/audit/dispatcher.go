// Package audit entrega os eventos do ledger para fora do processo (Kafka,
// Redis pub/sub, log) e confere os invariantes do estado persistido.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

// Sink é um destino de envelopes de auditoria.
type Sink interface {
	Name() string
	Publish(ctx context.Context, env events.Envelope) error
}

// Dispatcher carimba cada evento com event_id e horário e entrega a todos os sinks.
// Uma falha em um sink não impede a entrega aos demais.
type Dispatcher struct {
	Log   *zap.Logger
	Sinks []Sink

	NewID func() string
	Now   func() time.Time

	OnError func(sink string) // métricas por sink
}

func NewDispatcher(log *zap.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{Log: log, Sinks: sinks, NewID: uuid.NewString, Now: time.Now}
}

// Emit implementa engine.Emitter.
func (d *Dispatcher) Emit(ctx context.Context, e events.Event) error {
	env, err := events.Wrap(e, d.NewID(), d.Now())
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range d.Sinks {
		if err := s.Publish(ctx, env); err != nil {
			if d.OnError != nil {
				d.OnError(s.Name())
			}
			if d.Log != nil {
				d.Log.Warn("audit sink failed",
					zap.String("sink", s.Name()),
					zap.String("event_id", env.EventID),
					zap.Error(err),
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
