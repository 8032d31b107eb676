package journal

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
)

// Failure é uma linha que não pôde ser reaplicada.
type Failure struct {
	Seq  uint64      `json:"seq"`
	Type string      `json:"type"`
	Code domain.Code `json:"code"`
	Err  string      `json:"error"`
}

// Replay reaplica as linhas em ordem. Falhas não interrompem o replay;
// um erro de contexto sim.
func Replay(ctx context.Context, eng *engine.Engine, entries []Entry) (applied int, failures []Failure, err error) {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return applied, failures, err
		}
		caller, cmd, derr := e.Command()
		if derr != nil {
			failures = append(failures, Failure{Seq: e.Seq, Type: e.Type, Code: domain.CodeInvalidArgument, Err: derr.Error()})
			continue
		}
		if _, xerr := eng.Execute(ctx, caller, cmd); xerr != nil {
			failures = append(failures, Failure{Seq: e.Seq, Type: e.Type, Code: domain.CodeOf(xerr), Err: xerr.Error()})
			continue
		}
		applied++
	}
	return applied, failures, nil
}
