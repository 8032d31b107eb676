// Command ledger-replay reaplica um journal de comandos em um store em memória
// e imprime o estado final com o relatório de reconciliação.
//
//	ledger-replay -journal s3://ledger-archive/2026/10/journal.jsonl
//	ledger-replay -journal ./journal.jsonl -upload s3://ledger-archive/journal.jsonl
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httpapi "github.com/radieske/match-betting-ledger/internal/ledger-service/http"
	"github.com/radieske/match-betting-ledger/internal/ledger/audit"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
	"github.com/radieske/match-betting-ledger/internal/ledger/journal"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/internal/shared/config"
	"github.com/radieske/match-betting-ledger/internal/shared/logger"
	"github.com/radieske/match-betting-ledger/internal/shared/objectstore"
)

// exit 2 quando o estado reconstruído viola algum invariante
const exitDiscrepancies = 2

type report struct {
	Source        string                  `json:"source"`
	Entries       int                     `json:"entries"`
	Applied       int                     `json:"applied"`
	Events        int                     `json:"events"`
	Failures      []journal.Failure       `json:"failures"`
	Matches       []httpapi.MatchResponse `json:"matches"`
	Bets          []httpapi.BetResponse   `json:"bets"`
	Discrepancies []audit.Discrepancy     `json:"discrepancies"`
	UploadedTo    string                  `json:"uploaded_to,omitempty"`
}

func main() {
	cfg, err := config.Load("ledger-replay")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s3opts := objectstore.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}
	code, err := run(ctx, log, s3opts, os.Args[1:], os.Stdout)
	if err != nil {
		log.Error("replay failed", zap.Error(err))
		os.Exit(1)
	}
	os.Exit(code)
}

func run(ctx context.Context, log *zap.Logger, s3opts objectstore.Options, args []string, stdout io.Writer) (int, error) {
	fs := flag.NewFlagSet("ledger-replay", flag.ContinueOnError)
	src := fs.String("journal", "", "journal JSONL: caminho local ou s3://bucket/key")
	upload := fs.String("upload", "", "arquiva o journal lido em s3://bucket/key")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *src == "" {
		return 0, errors.New("-journal is required")
	}

	// cliente S3 só quando alguma URI é remota
	var obj *objectstore.Client
	if needsS3(*src) || *upload != "" {
		c, err := objectstore.New(ctx, s3opts)
		if err != nil {
			return 0, err
		}
		obj = c
	}

	rc, err := obj.Open(ctx, *src)
	if err != nil {
		return 0, err
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}
	entries, err := journal.Read(bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}

	rec := &audit.Recorder{}
	eng := engine.New(log, store.NewMemory(), audit.NewDispatcher(log, rec))
	applied, failures, err := journal.Replay(ctx, eng, entries)
	if err != nil {
		return 0, err
	}
	matches, bets, err := eng.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	out := report{
		Source:        *src,
		Entries:       len(entries),
		Applied:       applied,
		Events:        len(rec.Envelopes()),
		Failures:      failures,
		Matches:       make([]httpapi.MatchResponse, 0, len(matches)),
		Bets:          make([]httpapi.BetResponse, 0, len(bets)),
		Discrepancies: audit.Reconcile(matches, bets),
	}
	for _, m := range matches {
		out.Matches = append(out.Matches, httpapi.ToMatchResponse(m))
	}
	for _, b := range bets {
		out.Bets = append(out.Bets, httpapi.ToBetResponse(b))
	}

	if *upload != "" {
		if err := obj.Put(ctx, *upload, bytes.NewReader(raw)); err != nil {
			return 0, err
		}
		out.UploadedTo = *upload
		log.Info("journal archived", zap.String("uri", *upload))
	}

	log.Info("replay done",
		zap.Int("entries", out.Entries),
		zap.Int("applied", applied),
		zap.Int("failures", len(failures)),
		zap.Int("discrepancies", len(out.Discrepancies)),
	)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, err
	}
	if len(out.Discrepancies) > 0 {
		return exitDiscrepancies, nil
	}
	return 0, nil
}

func needsS3(uri string) bool {
	_, _, remote, _ := objectstore.ParseURI(uri)
	return remote
}
