package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

// Metrics agrupa os coletores do engine. Um *Metrics nil desliga tudo.
type Metrics struct {
	Commands    *prometheus.CounterVec   // command, result (ok | código do erro)
	Duration    *prometheus.HistogramVec // command
	Emitted     *prometheus.CounterVec   // type
	EmitErrors  *prometheus.CounterVec   // sink
	Undelivered *prometheus.CounterVec   // type; Emit devolveu erro
}

// NewMetrics cria e registra os coletores em reg (nil => não registra).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_commands_total",
			Help: "comandos executados por resultado",
		}, []string{"command", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_command_duration_seconds",
			Help:    "latência dos comandos, incluindo a transação",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		Emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_emitted_total",
			Help: "eventos de auditoria emitidos",
		}, []string{"type"}),
		EmitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_emit_errors_total",
			Help: "falhas ao entregar eventos por sink",
		}, []string{"sink"}),
		Undelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_undelivered_total",
			Help: "eventos de comandos confirmados que não chegaram a todos os sinks",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.Duration, m.Emitted, m.EmitErrors, m.Undelivered)
	}
	return m
}

func (m *Metrics) observe(kind string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(domain.CodeOf(err))
	}
	m.Commands.WithLabelValues(kind, result).Inc()
	m.Duration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) emitted(t events.Type) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) undelivered(t events.Type) {
	if m == nil {
		return
	}
	m.Undelivered.WithLabelValues(string(t)).Inc()
}

// EmitFailed conta uma falha de entrega por sink (ligado em audit.Dispatcher.OnError).
func (m *Metrics) EmitFailed(sink string) {
	if m == nil {
		return
	}
	m.EmitErrors.WithLabelValues(sink).Inc()
}
