package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/match-betting-ledger/internal/ledger-service/auth"
	httpapi "github.com/radieske/match-betting-ledger/internal/ledger-service/http"
	"github.com/radieske/match-betting-ledger/internal/ledger-service/ws"
	"github.com/radieske/match-betting-ledger/internal/ledger/audit"
	"github.com/radieske/match-betting-ledger/internal/ledger/engine"
	"github.com/radieske/match-betting-ledger/internal/ledger/journal"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/internal/shared/cache"
	"github.com/radieske/match-betting-ledger/internal/shared/config"
	"github.com/radieske/match-betting-ledger/internal/shared/db"
	"github.com/radieske/match-betting-ledger/internal/shared/kafka"
	"github.com/radieske/match-betting-ledger/internal/shared/logger"
	"github.com/radieske/match-betting-ledger/internal/shared/metrics"
	sharedotel "github.com/radieske/match-betting-ledger/internal/shared/otel"
)

func main() {
	// carrega config
	cfg, err := config.Load("ledger-service")
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service",
		zap.String("store", cfg.StoreDriver),
		zap.String("auth", cfg.AuthMode),
	)

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := sharedotel.Setup(ctx, cfg.ServiceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("otel setup", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Redis é usado pelo broadcast do websocket e, opcionalmente, como store
	redisClient, err := cache.ConnectRedis(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	var pg *sql.DB
	if cfg.StoreDriver == store.DriverPostgres {
		pg, err = db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := db.EnsureSchema(ctx, pg); err != nil {
			log.Fatal("schema", zap.Error(err))
		}
		log.Info("postgres connected")
	}

	st, err := store.Open(cfg.StoreDriver, pg, redisClient)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}

	// Eventos de auditoria: Kafka (projeção), Redis (websocket) e log
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLedgerEvents)
	defer writer.Close()
	log.Info("kafka writer ready", zap.String("topic", cfg.TopicLedgerEvents))

	m := engine.NewMetrics(prometheus.DefaultRegisterer)
	dispatcher := audit.NewDispatcher(log,
		audit.NewKafkaPublisher(writer),
		audit.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		audit.LogEmitter{Log: log},
	)
	dispatcher.OnError = m.EmitFailed

	opts := []engine.Option{engine.WithMetrics(m)}
	if cfg.JournalPath != "" {
		jw, err := journal.OpenFile(cfg.JournalPath)
		if err != nil {
			log.Fatal("journal", zap.Error(err))
		}
		defer jw.Close()
		opts = append(opts, engine.WithJournal(jw))
		log.Info("journal enabled", zap.String("path", cfg.JournalPath))
	}
	eng := engine.New(log, st, dispatcher, opts...)

	oracle, err := newOracle(cfg)
	if err != nil {
		log.Fatal("auth", zap.Error(err))
	}

	// WebSocket: clientes assinam partidas; eventos chegam pelo Redis Pub/Sub
	hub := ws.NewHub(allowOrigin(cfg.CORSOrigins))
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub)

	api := &httpapi.API{
		Log:         log,
		Engine:      eng,
		Oracle:      oracle,
		WS:          hub.HandleWS,
		CORSOrigins: cfg.CORSOrigins,
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, func(ctx context.Context) error {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if pg != nil {
			if err := pg.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	go func() {
		log.Info("http listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(sctx)
	_ = metricsSrv.Shutdown(sctx)
	log.Info("ledger-service stopped")
}

// newOracle escolhe o oráculo de autorização pelo AUTH_MODE.
func newOracle(cfg config.Config) (auth.Oracle, error) {
	switch cfg.AuthMode {
	case "header":
		return auth.HeaderOracle{AdminToken: cfg.AdminToken}, nil
	case "jwt", "":
		o, err := auth.NewJWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminSubject)
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
}

// allowOrigin aplica ao upgrade do websocket a mesma lista de origens do CORS.
func allowOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
