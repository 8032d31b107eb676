package reconciler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/internal/ledger/audit"
	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
)

// SnapshotFunc devolve um retrato consistente do ledger (engine.Snapshot).
type SnapshotFunc func(ctx context.Context) ([]domain.Match, []domain.Bet, error)

// Reconciler roda audit.Reconcile periodicamente e publica o resultado como gauge
type Reconciler struct {
	Log      *zap.Logger
	Snapshot SnapshotFunc
	Timeout  time.Duration

	Discrepancies *prometheus.GaugeVec // por kind; opcional
	OnError       func(string)         // métricas por fase
}

// NewGauge registra ledger_reconcile_discrepancies{kind}.
func NewGauge(reg prometheus.Registerer) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_reconcile_discrepancies",
		Help: "violações encontradas na última reconciliação",
	}, []string{"kind"})
	reg.MustRegister(g)
	return g
}

// RunOnce faz uma rodada e devolve as violações encontradas.
// Uma violação só é reportada se aparecer também num segundo retrato: o que some
// entre as duas leituras era escrita em andamento, não dano ao ledger.
func (r *Reconciler) RunOnce(ctx context.Context) ([]audit.Discrepancy, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	first, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	var found []audit.Discrepancy
	if len(first) > 0 {
		second, err := r.scan(ctx)
		if err != nil {
			return nil, err
		}
		found = confirmed(first, second)
		if n := len(first) - len(found); n > 0 {
			r.Log.Info("reconcile discarded transient discrepancies", zap.Int("count", n))
		}
	}

	if r.Discrepancies != nil {
		r.Discrepancies.Reset() // kinds que sumiram voltam a zero
		for _, d := range found {
			r.Discrepancies.WithLabelValues(string(d.Kind)).Inc()
		}
	}
	if len(found) == 0 {
		r.Log.Debug("reconcile ok")
		return nil, nil
	}
	for _, d := range found {
		r.Log.Error("ledger discrepancy",
			zap.String("kind", string(d.Kind)),
			zap.String("match_id", d.MatchID),
			zap.String("owner", d.Owner),
			zap.String("detail", d.Detail),
		)
	}
	return found, nil
}

func (r *Reconciler) scan(ctx context.Context) ([]audit.Discrepancy, error) {
	matches, bets, err := r.Snapshot(ctx)
	if err != nil {
		r.Log.Warn("reconcile snapshot failed", zap.Error(err))
		if r.OnError != nil {
			r.OnError("snapshot")
		}
		return nil, err
	}
	return audit.Reconcile(matches, bets), nil
}

type discrepancyKey struct {
	kind    audit.DiscrepancyKind
	matchID string
	owner   string
}

// confirmed mantém, na ordem do segundo retrato, o que também estava no primeiro.
func confirmed(first, second []audit.Discrepancy) []audit.Discrepancy {
	seen := make(map[discrepancyKey]bool, len(first))
	for _, d := range first {
		seen[discrepancyKey{d.Kind, d.MatchID, d.Owner}] = true
	}
	var out []audit.Discrepancy
	for _, d := range second {
		if seen[discrepancyKey{d.Kind, d.MatchID, d.Owner}] {
			out = append(out, d)
		}
	}
	return out
}

// Schedule agenda RunOnce a cada intervalo, sem sobreposição de rodadas.
func (r *Reconciler) Schedule(ctx context.Context, s gocron.Scheduler, every time.Duration) (gocron.Job, error) {
	return s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() { _, _ = r.RunOnce(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("ledger-reconcile"),
	)
}
