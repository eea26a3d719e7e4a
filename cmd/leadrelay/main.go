package main

import (
	"context"
	"database/sql"
	"errors"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"academy_site/internal/adapters/crm"
	"academy_site/internal/adapters/observability"
	"academy_site/internal/app"
	"academy_site/internal/domain"
	"academy_site/internal/shared"
	mysqlrepo "academy_site/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve(observability.InitRegistry())

	log.Info().
		Str("crm", cfg.CRMWebhookURL).
		Int("workers", cfg.RelayWorkers).
		Int("batch", cfg.RelayBatch).
		Msg("lead relay starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := crm.New(cfg.CRMWebhookURL, cfg.CRMAPIKey, cfg.CRMRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize CRM client")
	}
	relay := app.NewRelayService(client, repo)

	leads, err := relay.PendingLeads(ctx, cfg.RelayBatch, cfg.RelayMaxAttempts)
	if err != nil {
		log.Fatal().Err(err).Msg("list pending leads failed")
	}
	if len(leads) == 0 {
		log.Info().Msg("no pending leads")
		return
	}

	workers := cfg.RelayWorkers
	if workers < 1 {
		workers = 1
	}
	// bad credentials fail every lead the same way; stop the run
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var delivered, rejected, retry atomic.Int64

	for _, rec := range leads {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("relay interrupted")
			break
		}

		rec := rec // per-iteration copy; module targets go 1.21 loop semantics
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			outcome, err := relay.DeliverLead(ctx, rec)
			switch outcome {
			case app.RelayDelivered:
				delivered.Add(1)
			case app.RelayRejected:
				rejected.Add(1)
			default:
				retry.Add(1)
			}
			relayEvent(log.Logger, rec, outcome, err).Msg("lead relayed")
			if errors.Is(err, domain.ErrUnauthorized) {
				cancel()
			}
		}()
	}

	wg.Wait()
	log.Info().
		Int64("delivered", delivered.Load()).
		Int64("rejected", rejected.Load()).
		Int64("retry", retry.Load()).
		Msg("lead relay completed")
}

// relayEvent starts the per-lead log record. Any delivery error is attached,
// including the one explaining a rejection.
func relayEvent(l zerolog.Logger, rec domain.LeadRecord, outcome app.RelayOutcome, err error) *zerolog.Event {
	var ev *zerolog.Event
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		ev = l.Error()
	case outcome == app.RelayDelivered && err == nil:
		ev = l.Info()
	default:
		ev = l.Warn()
	}
	if err != nil {
		ev = ev.Err(err)
	}
	return ev.Int64("id", rec.ID).Int("attempts", rec.Attempts+1).Str("outcome", string(outcome))
}
