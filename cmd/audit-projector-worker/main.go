package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/internal/audit-projector/consumer"
	"github.com/radieske/match-betting-ledger/internal/audit-projector/reconciler"
	"github.com/radieske/match-betting-ledger/internal/audit-projector/repository"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/internal/shared/cache"
	"github.com/radieske/match-betting-ledger/internal/shared/config"
	"github.com/radieske/match-betting-ledger/internal/shared/db"
	"github.com/radieske/match-betting-ledger/internal/shared/kafka"
	"github.com/radieske/match-betting-ledger/internal/shared/logger"
	"github.com/radieske/match-betting-ledger/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load("audit-projector-worker")
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres guarda a projeção ledger_events
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Consumer group do projetor e DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicLedgerEvents, cfg.ProjectorGroupID)
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLedgerEventsDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_proj_messages_consumed_total", Help: "mensagens consumidas"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_proj_db_writes_total", Help: "eventos projetados no banco"})
	dups := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_proj_duplicates_total", Help: "reentregas já projetadas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "audit_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persist, dups, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repository.NewPostgresRepo(pg),
		DLQ:         dlq,
		Retries:     3,
		Backoff:     200 * time.Millisecond,
		OnConsumed:  func() { consumed.Inc() },
		OnPersist:   func() { persist.Inc() },
		OnDuplicate: func() { dups.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Reconciliação periódica contra o store compartilhado com o ledger-service
	var redisClient *redis.Client
	if cfg.StoreDriver == store.DriverRedis {
		redisClient, err = cache.ConnectRedis(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer redisClient.Close()
	}
	if cfg.StoreDriver == store.DriverPostgres || cfg.StoreDriver == store.DriverRedis {
		st, err := store.Open(cfg.StoreDriver, pg, redisClient)
		if err != nil {
			log.Fatal("store", zap.Error(err))
		}
		rec := &reconciler.Reconciler{
			Log:           log,
			Snapshot:      engine.New(log, st, nil).Snapshot,
			Timeout:       30 * time.Second,
			Discrepancies: reconciler.NewGauge(prometheus.DefaultRegisterer),
			OnError:       func(stage string) { errorsBy.WithLabelValues("reconcile_" + stage).Inc() },
		}
		sched, err := gocron.NewScheduler()
		if err != nil {
			log.Fatal("scheduler", zap.Error(err))
		}
		if _, err := rec.Schedule(ctx, sched, cfg.ReconcileInterval); err != nil {
			log.Fatal("schedule reconcile", zap.Error(err))
		}
		sched.Start()
		defer func() { _ = sched.Shutdown() }()
		log.Info("reconcile scheduled", zap.Duration("every", cfg.ReconcileInterval))
	} else {
		// store em memória é privado do processo do ledger-service
		log.Warn("reconcile disabled for store driver", zap.String("store", cfg.StoreDriver))
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = metricsSrv.Shutdown(sctx)
	}()
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("audit-projector started", zap.String("topic", cfg.TopicLedgerEvents), zap.String("group", cfg.ProjectorGroupID))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}
	log.Info("audit-projector stopped")
}
