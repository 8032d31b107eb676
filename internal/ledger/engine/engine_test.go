package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

var (
	admin = Caller{Identity: "A", IsAdmin: true}
	u1    = Caller{Identity: "U1"}
	u2    = Caller{Identity: "U2"}
	u3    = Caller{Identity: "U3"}
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Emit(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type journalEntry struct {
	caller Caller
	cmd    Command
}

type fakeJournal struct{ entries []journalEntry }

func (j *fakeJournal) Append(_ context.Context, c Caller, cmd Command) error {
	j.entries = append(j.entries, journalEntry{c, cmd})
	return nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Memory, *recorder) {
	t.Helper()
	st := store.NewMemory()
	rec := &recorder{}
	return New(nil, st, rec, opts...), st, rec
}

func m1() CreateMatch {
	return CreateMatch{MatchID: "m1", Team1: "T1", Team2: "T2", StartTime: 1_700_000_000, OddsTeam1: 2, OddsTeam2: 3, OddsDraw: 4}
}

func mustExec(t *testing.T, e *Engine, c Caller, cmd Command) Result {
	t.Helper()
	res, err := e.Execute(context.Background(), c, cmd)
	if err != nil {
		t.Fatalf("%s by %s: %v", cmd.Kind(), c.Identity, err)
	}
	return res
}

func wantCode(t *testing.T, err error, code domain.Code) {
	t.Helper()
	if got := domain.CodeOf(err); got != code {
		t.Fatalf("err = %v (code %q), want %q", err, got, code)
	}
}

func TestEndToEndScenario(t *testing.T) {
	e, _, rec := newTestEngine(t)
	ctx := context.Background()

	// 1
	mustExec(t, e, admin, m1())
	m, err := e.GetMatch(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != domain.StatusUpcoming || m.Winner != domain.OutcomeUnset || m.TotalStaked != 0 {
		t.Fatalf("after create: %+v", m)
	}

	// 2
	mustExec(t, e, u1, PlaceBet{MatchID: "m1", Amount: 1_000_000_000, Selection: domain.OutcomeTeam2})
	b, err := e.GetBet(ctx, "U1", "m1")
	if err != nil {
		t.Fatal(err)
	}
	want := domain.Bet{
		Owner: "U1", MatchID: "m1", Amount: 1_000_000_000, Selection: domain.OutcomeTeam2,
		LockedOdds: 3, Status: domain.BetActive, PotentialWinnings: 3_000_000_000,
	}
	if b != want {
		t.Fatalf("bet = %+v, want %+v", b, want)
	}

	// 3
	mustExec(t, e, u2, PlaceBet{MatchID: "m1", Amount: 500_000_000, Selection: domain.OutcomeTeam1})
	if m, _ = e.GetMatch(ctx, "m1"); m.TotalStaked != 1_500_000_000 {
		t.Fatalf("total_staked = %d", m.TotalStaked)
	}

	// 4
	mustExec(t, e, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam2})
	if m, _ = e.GetMatch(ctx, "m1"); m.Status != domain.StatusFinished || m.Winner != domain.OutcomeTeam2 {
		t.Fatalf("after resolve: %+v", m)
	}

	// 5
	res := mustExec(t, e, u1, ClaimWinnings{MatchID: "m1"})
	if got, want := res.Event, (events.BetWon{Owner: domain.Identity("U1").String(), MatchID: "m1", Payout: 3_000_000_000}); got != want {
		t.Fatalf("event = %+v, want %+v", got, want)
	}
	if b, _ = e.GetBet(ctx, "U1", "m1"); b.Status != domain.BetWon {
		t.Fatalf("U1 bet status = %s", b.Status)
	}

	// 6
	res = mustExec(t, e, u2, ClaimWinnings{MatchID: "m1"})
	if got, want := res.Event, (events.BetLost{Owner: domain.Identity("U2").String(), MatchID: "m1"}); got != want {
		t.Fatalf("event = %+v, want %+v", got, want)
	}

	emitted := len(rec.all())

	// 7
	_, err = e.Execute(ctx, u1, ClaimWinnings{MatchID: "m1"})
	wantCode(t, err, domain.CodeAlreadyProcessed)
	if b, _ = e.GetBet(ctx, "U1", "m1"); b.Status != domain.BetWon {
		t.Fatalf("U1 bet changed: %+v", b)
	}

	// 8
	_, err = e.Execute(ctx, u3, PlaceBet{MatchID: "m1", Amount: 100, Selection: domain.OutcomeTeam1})
	wantCode(t, err, domain.CodeMatchFinished)

	// 9
	_, err = e.Execute(ctx, admin, m1())
	wantCode(t, err, domain.CodeAlreadyExists)

	// 10
	_, err = e.Execute(ctx, u1, PlaceBet{MatchID: "m2", Amount: 1, Selection: domain.OutcomeTeam1})
	wantCode(t, err, domain.CodeNotFound)

	if got := len(rec.all()); got != emitted {
		t.Fatalf("failed commands emitted %d events", got-emitted)
	}
	types := make([]events.Type, 0, emitted)
	for _, ev := range rec.all() {
		types = append(types, ev.EventType())
	}
	wantTypes := []events.Type{
		events.TypeMatchCreated, events.TypeBetPlaced, events.TypeBetPlaced,
		events.TypeMatchResolved, events.TypeBetWon, events.TypeBetLost,
	}
	if fmt.Sprint(types) != fmt.Sprint(wantTypes) {
		t.Fatalf("events = %v, want %v", types, wantTypes)
	}
}

func TestCreateMatchValidation(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*CreateMatch)
		code domain.Code
	}{
		{"empty match id", func(c *CreateMatch) { c.MatchID = "" }, domain.CodeInvalidArgument},
		{"match id too long", func(c *CreateMatch) { c.MatchID = strings.Repeat("x", 33) }, domain.CodeInvalidArgument},
		{"match id bad charset", func(c *CreateMatch) { c.MatchID = "m 1" }, domain.CodeInvalidArgument},
		{"empty team", func(c *CreateMatch) { c.Team2 = "" }, domain.CodeInvalidArgument},
		{"team1 odds zero", func(c *CreateMatch) { c.OddsTeam1 = 0 }, domain.CodeInvalidArgument},
		{"team2 odds zero", func(c *CreateMatch) { c.OddsTeam2 = 0 }, domain.CodeInvalidArgument},
		{"draw odds zero", func(c *CreateMatch) { c.OddsDraw = 0 }, domain.CodeInvalidArgument},
		{"max length id", func(c *CreateMatch) { c.MatchID = strings.Repeat("x", 32) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, rec := newTestEngine(t)
			cmd := m1()
			tt.mut(&cmd)
			_, err := e.Execute(context.Background(), admin, cmd)
			wantCode(t, err, tt.code)
			if tt.code != "" && len(rec.all()) != 0 {
				t.Fatal("rejected command emitted an event")
			}
		})
	}
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	mustExec(t, e, admin, m1())

	cmds := []Command{
		m1(),
		CreateMatch{},
		CreateMatch{MatchID: "new", Team1: "a", Team2: "b", OddsTeam1: 1, OddsTeam2: 1, OddsDraw: 1},
		ResolveMatch{MatchID: "m1", Winner: domain.OutcomeDraw},
		ResolveMatch{MatchID: "missing", Winner: domain.Outcome(42)},
		ResolveMatch{},
	}
	for _, cmd := range cmds {
		_, err := e.Execute(ctx, Caller{Identity: "U1", IsAdmin: false}, cmd)
		wantCode(t, err, domain.CodeUnauthorized)
	}
	if m, _ := e.GetMatch(ctx, "m1"); m.Status != domain.StatusUpcoming {
		t.Fatalf("match changed: %+v", m)
	}
}

func TestPlaceBetPreconditionOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("selection checked before amount", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, m1())
		_, err := e.Execute(ctx, u1, PlaceBet{MatchID: "m1", Amount: 0, Selection: domain.OutcomeUnset})
		wantCode(t, err, domain.CodeInvalidSelection)
	})

	t.Run("zero amount", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, m1())
		_, err := e.Execute(ctx, u1, PlaceBet{MatchID: "m1", Amount: 0, Selection: domain.OutcomeDraw})
		wantCode(t, err, domain.CodeInvalidArgument)
	})

	t.Run("finished before selection", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, m1())
		mustExec(t, e, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam1})
		_, err := e.Execute(ctx, u1, PlaceBet{MatchID: "m1", Amount: 0, Selection: domain.Outcome(9)})
		wantCode(t, err, domain.CodeMatchFinished)
	})

	t.Run("one bet per owner and match", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, m1())
		mustExec(t, e, u1, PlaceBet{MatchID: "m1", Amount: 5, Selection: domain.OutcomeDraw})
		_, err := e.Execute(ctx, u1, PlaceBet{MatchID: "m1", Amount: 7, Selection: domain.OutcomeTeam1})
		wantCode(t, err, domain.CodeAlreadyExists)
		if m, _ := e.GetMatch(ctx, "m1"); m.TotalStaked != 5 {
			t.Fatalf("total_staked = %d, want 5", m.TotalStaked)
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, m1())
		_, err := e.Execute(ctx, Caller{}, PlaceBet{MatchID: "m1", Amount: 5, Selection: domain.OutcomeDraw})
		wantCode(t, err, domain.CodeInvalidArgument)
	})
}

func TestLiveMatchAcceptsBets(t *testing.T) {
	e, st, _ := newTestEngine(t)
	ctx := context.Background()
	mustExec(t, e, admin, m1())
	err := st.Update(ctx, func(tx store.Tx) error {
		m, err := tx.GetMatch(ctx, "m1")
		if err != nil {
			return err
		}
		m.Status = domain.StatusLive
		return tx.UpdateMatch(ctx, m)
	})
	if err != nil {
		t.Fatal(err)
	}
	mustExec(t, e, u1, PlaceBet{MatchID: "m1", Amount: 10, Selection: domain.OutcomeTeam1})
	mustExec(t, e, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam1})
}

func TestArithmeticBoundaries(t *testing.T) {
	ctx := context.Background()
	third := domain.Money(math.MaxUint64 / 3)

	t.Run("product equal to max succeeds", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, m1())
		mustExec(t, e, u1, PlaceBet{MatchID: "m1", Amount: third, Selection: domain.OutcomeTeam2})
		b, _ := e.GetBet(ctx, "U1", "m1")
		if b.PotentialWinnings != math.MaxUint64 {
			t.Fatalf("potential = %d", b.PotentialWinnings)
		}
	})

	t.Run("product above max overflows", func(t *testing.T) {
		e, _, rec := newTestEngine(t)
		mustExec(t, e, admin, m1())
		_, err := e.Execute(ctx, u1, PlaceBet{MatchID: "m1", Amount: third + 1, Selection: domain.OutcomeTeam2})
		wantCode(t, err, domain.CodeOverflow)
		if _, err := e.GetBet(ctx, "U1", "m1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("bet written on overflow: %v", err)
		}
		if m, _ := e.GetMatch(ctx, "m1"); m.TotalStaked != 0 {
			t.Fatalf("total_staked = %d", m.TotalStaked)
		}
		if len(rec.all()) != 1 {
			t.Fatalf("events = %v", rec.all())
		}
	})

	t.Run("total staked wrap overflows", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		mustExec(t, e, admin, CreateMatch{MatchID: "m1", Team1: "a", Team2: "b", OddsTeam1: 1, OddsTeam2: 1, OddsDraw: 1})
		mustExec(t, e, u1, PlaceBet{MatchID: "m1", Amount: math.MaxUint64, Selection: domain.OutcomeTeam1})
		_, err := e.Execute(ctx, u2, PlaceBet{MatchID: "m1", Amount: 1, Selection: domain.OutcomeTeam2})
		wantCode(t, err, domain.CodeOverflow)
		if m, _ := e.GetMatch(ctx, "m1"); m.TotalStaked != math.MaxUint64 {
			t.Fatalf("total_staked = %d", m.TotalStaked)
		}
		if _, err := e.GetBet(ctx, "U2", "m1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("U2 bet written: %v", err)
		}
	})
}

func TestResolveMatch(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	_, err := e.Execute(ctx, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam1})
	wantCode(t, err, domain.CodeNotFound)

	mustExec(t, e, admin, m1())
	_, err = e.Execute(ctx, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeUnset})
	wantCode(t, err, domain.CodeInvalidArgument)

	mustExec(t, e, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeDraw})
	_, err = e.Execute(ctx, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam1})
	wantCode(t, err, domain.CodeAlreadyResolved)
	_, err = e.Execute(ctx, admin, ResolveMatch{MatchID: "m1", Winner: domain.Outcome(7)})
	wantCode(t, err, domain.CodeAlreadyResolved)

	if m, _ := e.GetMatch(ctx, "m1"); m.Winner != domain.OutcomeDraw {
		t.Fatalf("winner = %s", m.Winner)
	}
}

func TestClaimWinnings(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	mustExec(t, e, admin, m1())

	_, err := e.Execute(ctx, u1, ClaimWinnings{MatchID: "m1"})
	wantCode(t, err, domain.CodeNotFound)

	mustExec(t, e, u1, PlaceBet{MatchID: "m1", Amount: 10, Selection: domain.OutcomeDraw})
	_, err = e.Execute(ctx, u1, ClaimWinnings{MatchID: "m1"})
	wantCode(t, err, domain.CodeMatchNotFinished)

	mustExec(t, e, admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeDraw})
	res := mustExec(t, e, u1, ClaimWinnings{MatchID: "m1"})
	won, ok := res.Event.(events.BetWon)
	if !ok || won.Payout != 40 {
		t.Fatalf("event = %+v", res.Event)
	}
}

func TestReplayIsRejected(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t)
	trace := []struct {
		c   Caller
		cmd Command
	}{
		{admin, m1()},
		{u1, PlaceBet{MatchID: "m1", Amount: 10, Selection: domain.OutcomeTeam1}},
		{u2, PlaceBet{MatchID: "m1", Amount: 20, Selection: domain.OutcomeTeam2}},
		{admin, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam1}},
		{u1, ClaimWinnings{MatchID: "m1"}},
		{u2, ClaimWinnings{MatchID: "m1"}},
	}
	for _, step := range trace {
		mustExec(t, e, step.c, step.cmd)
	}
	before := snapshot(t, st)
	for _, step := range trace {
		_, err := e.Execute(ctx, step.c, step.cmd)
		switch domain.CodeOf(err) {
		case domain.CodeAlreadyExists, domain.CodeAlreadyProcessed, domain.CodeAlreadyResolved, domain.CodeMatchFinished:
		default:
			t.Fatalf("replay of %s: %v", step.cmd.Kind(), err)
		}
	}
	if after := snapshot(t, st); after != before {
		t.Fatalf("state changed by replay:\n%s\n%s", before, after)
	}
}

func snapshot(t *testing.T, st store.Store) string {
	t.Helper()
	e := New(nil, st, nil)
	ms, bs, err := e.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("%+v %+v", ms, bs)
}

func TestConcurrentBetsKeepTotalConsistent(t *testing.T) {
	ctx := context.Background()
	e, _, rec := newTestEngine(t)
	mustExec(t, e, admin, m1())

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := Caller{Identity: domain.Identity(fmt.Sprintf("user-%d", i))}
			_, err := e.Execute(ctx, c, PlaceBet{MatchID: "m1", Amount: domain.Money(i + 1), Selection: domain.OutcomeTeam1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	bets, err := e.ListBets(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	var sum domain.Money
	for _, b := range bets {
		sum += b.Amount
	}
	m, _ := e.GetMatch(ctx, "m1")
	if len(bets) != n || m.TotalStaked != sum || sum != n*(n+1)/2 {
		t.Fatalf("bets=%d total=%d sum=%d", len(bets), m.TotalStaked, sum)
	}
	if len(rec.all()) != n+1 {
		t.Fatalf("events = %d", len(rec.all()))
	}
}

func TestMetricsAndJournal(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	j := &fakeJournal{}
	e, _, _ := newTestEngine(t, WithMetrics(metrics), WithJournal(j))

	mustExec(t, e, admin, m1())
	_, _ = e.Execute(ctx, admin, m1())
	_, _ = e.Execute(ctx, u1, ResolveMatch{MatchID: "m1", Winner: domain.OutcomeTeam1})

	if got := testutil.ToFloat64(metrics.Commands.WithLabelValues(KindCreateMatch, "ok")); got != 1 {
		t.Fatalf("ok = %v", got)
	}
	if got := testutil.ToFloat64(metrics.Commands.WithLabelValues(KindCreateMatch, string(domain.CodeAlreadyExists))); got != 1 {
		t.Fatalf("already_exists = %v", got)
	}
	if got := testutil.ToFloat64(metrics.Commands.WithLabelValues(KindResolveMatch, string(domain.CodeUnauthorized))); got != 1 {
		t.Fatalf("unauthorized = %v", got)
	}
	if got := testutil.ToFloat64(metrics.Emitted.WithLabelValues(string(events.TypeMatchCreated))); got != 1 {
		t.Fatalf("emitted = %v", got)
	}

	if len(j.entries) != 1 || j.entries[0].cmd.Kind() != KindCreateMatch || !j.entries[0].caller.IsAdmin {
		t.Fatalf("journal = %+v", j.entries)
	}
}

func TestEmitFailureKeepsCommit(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e, _, rec := newTestEngine(t, WithMetrics(metrics))
	rec.err = errors.New("broker down")

	if _, err := e.Execute(ctx, admin, m1()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := e.GetMatch(ctx, "m1"); err != nil {
		t.Fatalf("match not committed: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Undelivered.WithLabelValues(string(events.TypeMatchCreated))); got != 1 {
		t.Fatalf("undelivered = %v", got)
	}
	// falha por sink é contada pelo dispatcher, não pelo engine
	if n := testutil.CollectAndCount(metrics.EmitErrors); n != 0 {
		t.Fatalf("emit error series = %d", n)
	}
}

func TestListBetsRequiresMatch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.ListBets(context.Background(), "nope")
	wantCode(t, err, domain.CodeNotFound)
}

func TestListMyBets(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.ListMyBets(ctx, "")
	wantCode(t, err, domain.CodeInvalidArgument)

	bets, err := e.ListMyBets(ctx, "U1")
	if err != nil || len(bets) != 0 {
		t.Fatalf("no bets: %+v, %v", bets, err)
	}
}

// cancelAfterCommit cancela o contexto do chamador logo depois de um Update bem-sucedido.
type cancelAfterCommit struct {
	*store.Memory
	cancel context.CancelFunc
}

func (s cancelAfterCommit) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.Memory.Update(ctx, fn)
	if err == nil {
		s.cancel()
	}
	return err
}

// ctxEmitter falha como um sink de rede faria com o contexto cancelado.
type ctxEmitter struct{ recorder }

func (c *ctxEmitter) Emit(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.recorder.Emit(ctx, e)
}

func TestCancelledCallerStillEmitsCommittedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	em := &ctxEmitter{}
	j := &fakeJournal{}
	e := New(nil, cancelAfterCommit{Memory: store.NewMemory(), cancel: cancel}, em, WithJournal(j))

	if _, err := e.Execute(ctx, admin, m1()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context should be cancelled after commit")
	}
	if got := em.all(); len(got) != 1 || got[0].EventType() != events.TypeMatchCreated {
		t.Fatalf("events = %v, want one match_created", got)
	}
	if len(j.entries) != 1 {
		t.Fatalf("journal entries = %d", len(j.entries))
	}
}

func TestEmitTimeoutBoundsSinks(t *testing.T) {
	em := &blockingEmitter{}
	e := New(nil, store.NewMemory(), em, WithEmitTimeout(20*time.Millisecond))
	start := time.Now()
	if _, err := e.Execute(context.Background(), admin, m1()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("execute took %v", took)
	}
	if !errors.Is(em.err, context.DeadlineExceeded) {
		t.Fatalf("emitter saw %v", em.err)
	}
}

type blockingEmitter struct{ err error }

func (b *blockingEmitter) Emit(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	b.err = ctx.Err()
	return b.err
}
