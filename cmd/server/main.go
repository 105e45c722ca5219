package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollcall/internal/audit"
	"rollcall/internal/checkin"
	checkinservice "rollcall/internal/checkin/service"
	checkinstore "rollcall/internal/checkin/store"
	"rollcall/internal/event"
	eventmetrics "rollcall/internal/event/metrics"
	eventservice "rollcall/internal/event/service"
	eventstore "rollcall/internal/event/store"
	"rollcall/internal/jwtauth"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/postgres"
	platformredis "rollcall/internal/platform/redis"
	"rollcall/internal/registration"
	regservice "rollcall/internal/registration/service"
	regstore "rollcall/internal/registration/store"
	"rollcall/internal/sequence"
	seqmetrics "rollcall/internal/sequence/metrics"
	httptransport "rollcall/internal/transport/http"
	"rollcall/pkg/platform/tx"
)

const sequenceSweepInterval = 6 * time.Hour

// main wires stores, services, and the HTTP surface. Backends are chosen
// from configuration: PostgreSQL and Kafka when configured, in-memory
// otherwise so the server runs standalone in development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		eventStore    eventservice.Store
		regStore      regservice.Store
		checkinStore  checkinservice.Store
		seqStore      sequence.Store
		auditSink     audit.Sink
		runner        tx.Runner = tx.NewMemoryRunner()
		closeBackends []func()
	)

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		closeBackends = append(closeBackends, func() { _ = db.Close() })

		eventStore = eventstore.NewPostgres(db)
		regStore = regstore.NewPostgres(db)
		checkinStore = checkinstore.NewPostgres(db)
		seqStore = sequence.NewPostgresStore(db)
		auditSink = audit.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		log.Info("using postgres backend")
	} else {
		eventStore = eventstore.NewInMemory()
		regStore = regstore.NewInMemory()
		checkinStore = checkinstore.NewInMemory()
		seqStore = sequence.NewInMemoryStore()
		auditSink = audit.NewInMemoryStore()
		log.Info("using in-memory backend")
	}

	if cfg.RedisURL != "" {
		rdb, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		closeBackends = append(closeBackends, func() { _ = rdb.Close() })
		seqStore = sequence.NewRedisStore(rdb.Client)
		log.Info("sequence counters on redis")
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		closeBackends = append(closeBackends, sink.Close)
		auditSink = sink
		log.Info("audit events on kafka", "topic", cfg.KafkaTopic)
	}

	publisher := audit.NewPublisher(auditSink,
		audit.WithLogger(log),
		audit.WithAsyncBuffer(256),
	)

	allocator := sequence.NewAllocator(seqStore,
		sequence.WithLogger(log),
		sequence.WithMetrics(seqmetrics.New()),
	)

	evMetrics := eventmetrics.New()
	events := event.NewService(eventStore, allocator,
		eventservice.WithLogger(log),
		eventservice.WithMetrics(evMetrics),
		eventservice.WithAuditPublisher(publisher),
	)
	ledger := event.NewLedger(eventStore,
		eventservice.WithLedgerLogger(log),
		eventservice.WithLedgerMetrics(evMetrics),
	)
	registrations := registration.NewService(regStore, eventStore, ledger, allocator,
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(publisher),
		regservice.WithTxRunner(runner),
	)
	checkins := checkin.NewService(checkinStore, eventStore, regStore, allocator,
		checkinservice.WithLogger(log),
		checkinservice.WithAuditPublisher(publisher),
		checkinservice.WithTxRunner(runner),
	)

	tokens := jwtauth.NewService(cfg.JWTSigningKey)

	router := httptransport.NewRouter(httptransport.Deps{
		Events:        events,
		Registrations: registrations,
		Checkins:      checkins,
		Validator:     jwtauth.NewValidator(tokens),
		Logger:        log,
		Metrics:       metrics.New(),
	})

	srv := httpserver.New(cfg.Addr, router)

	go sweepSequences(ctx, log, allocator, cfg.SequenceRetainDays)

	go func() {
		log.Info("starting rollcall", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	publisher.Close()
	for _, closeFn := range closeBackends {
		closeFn()
	}
}

// sweepSequences drops expired daily counters on a fixed interval. Counters
// older than the retention window are never read again; the sweep keeps the
// backing table small.
func sweepSequences(ctx context.Context, log *slog.Logger, allocator *sequence.Allocator, retainDays int) {
	ticker := time.NewTicker(sequenceSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := allocator.CleanExpired(ctx, retainDays)
			if err != nil {
				log.Error("sequence sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("sequence sweep", "deleted", deleted)
			}
		}
	}
}
