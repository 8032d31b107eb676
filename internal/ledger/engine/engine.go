// Package engine executa os comandos do ledger de apostas sobre um store.Store.
//
// Cada comando roda em uma única transação: autorização e validação de
// argumentos primeiro, depois as pré-condições contra o estado, e só então as
// escritas. O evento de auditoria é emitido depois do commit, uma vez por
// comando confirmado; comandos rejeitados não emitem nada.
package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

const (
	tracerName         = "github.com/radieske/match-betting-ledger/internal/ledger/engine"
	defaultEmitTimeout = 5 * time.Second
)

// Emitter recebe os eventos de comandos confirmados.
type Emitter interface {
	Emit(ctx context.Context, e events.Event) error
}

// Journal registra comandos confirmados, na ordem de commit.
type Journal interface {
	Append(ctx context.Context, caller Caller, cmd Command) error
}

// Result é o que um comando confirmado produz.
type Result struct {
	Event events.Event
}

type Engine struct {
	log     *zap.Logger
	store   store.Store
	emitter Emitter
	journal Journal
	metrics *Metrics
	tracer  trace.Tracer

	emitTimeout time.Duration

	// serializa comandos quando há journal, para que a ordem no arquivo seja a ordem de commit
	mu sync.Mutex
}

type Option func(*Engine)

func WithJournal(j Journal) Option    { return func(e *Engine) { e.journal = j } }
func WithMetrics(m *Metrics) Option    { return func(e *Engine) { e.metrics = m } }
func WithTracer(t trace.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// WithEmitTimeout limita journal + emissão após o commit (padrão 5s).
func WithEmitTimeout(d time.Duration) Option { return func(e *Engine) { e.emitTimeout = d } }

// New monta o engine. emitter pode ser nil (nenhum evento sai do processo).
func New(log *zap.Logger, st store.Store, emitter Emitter, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:     log,
		store:   st,
		emitter: emitter,
		tracer:  otel.Tracer(tracerName),

		emitTimeout: defaultEmitTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute roda um comando para o caller. Em erro nada foi escrito e nenhum
// evento foi emitido; o erro carrega um domain.Code.
func (e *Engine) Execute(ctx context.Context, caller Caller, cmd Command) (Result, error) {
	if e.journal != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	kind := cmd.Kind()
	ctx, span := e.tracer.Start(ctx, "ledger."+kind, trace.WithAttributes(
		attribute.String("ledger.command", kind),
		attribute.String("ledger.match_id", cmd.Match()),
		attribute.Bool("ledger.admin", caller.IsAdmin),
	))
	defer span.End()

	start := time.Now()
	ev, err := e.run(ctx, caller, cmd)
	e.metrics.observe(kind, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.CodeOf(err)))
		e.log.Debug("command rejected",
			zap.String("command", kind),
			zap.String("match_id", cmd.Match()),
			zap.String("code", string(domain.CodeOf(err))),
			zap.Error(err),
		)
		return Result{}, err
	}

	// daqui em diante o comando já está confirmado: journal e emissão não
	// podem depender do cancelamento do chamador
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.emitTimeout)
	defer cancel()

	e.log.Info("command committed", append([]zap.Field{
		zap.String("command", kind),
		zap.String("match_id", cmd.Match()),
	}, eventFields(ev)...)...)

	if e.journal != nil {
		// o estado já foi confirmado; falha aqui só afeta o replay
		if jerr := e.journal.Append(pctx, caller, cmd); jerr != nil {
			e.log.Error("journal append failed", zap.String("command", kind), zap.Error(jerr))
		}
	}
	e.emit(pctx, ev)
	return Result{Event: ev}, nil
}

func (e *Engine) run(ctx context.Context, caller Caller, cmd Command) (events.Event, error) {
	if err := cmd.authorize(caller); err != nil {
		return nil, err
	}
	if err := cmd.validate(caller); err != nil {
		return nil, err
	}
	var ev events.Event
	err := e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		ev, err = cmd.apply(ctx, tx, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *Engine) emit(ctx context.Context, ev events.Event) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.Emit(ctx, ev); err != nil {
		e.metrics.undelivered(ev.EventType())
		e.log.Warn("audit emit failed",
			zap.String("type", string(ev.EventType())),
			zap.String("match_id", ev.EventMatchID()),
			zap.Error(err),
		)
		return
	}
	e.metrics.emitted(ev.EventType())
}

func eventFields(ev events.Event) []zap.Field {
	switch v := ev.(type) {
	case events.BetPlaced:
		return []zap.Field{
			zap.String("owner", v.Owner),
			zap.Stringer("amount", domain.Money(v.Amount)),
			zap.String("selection", v.Selection),
		}
	case events.MatchResolved:
		return []zap.Field{zap.String("winner", v.Winner)}
	case events.BetWon:
		return []zap.Field{zap.String("owner", v.Owner), zap.Stringer("payout", domain.Money(v.Payout))}
	case events.BetLost:
		return []zap.Field{zap.String("owner", v.Owner)}
	}
	return nil
}
