package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/AccessDesk/internal/adapter/fileslot"
	"github.com/Strob0t/AccessDesk/internal/adapter/memslot"
	cfnats "github.com/Strob0t/AccessDesk/internal/adapter/nats"
	"github.com/Strob0t/AccessDesk/internal/adapter/natskv"
	"github.com/Strob0t/AccessDesk/internal/adapter/postgres"
	"github.com/Strob0t/AccessDesk/internal/adapter/ristretto"
	"github.com/Strob0t/AccessDesk/internal/adapter/tiered"
	"github.com/Strob0t/AccessDesk/internal/config"
	"github.com/Strob0t/AccessDesk/internal/port/kvslot"
)

var errNeedsNATS = errors.New("audit backend requires nats.url")

// openSlots builds the slot store selected by cfg.Audit.Backend. The returned
// cleanup releases whatever the store holds open. migrate applies pending
// migrations when the postgres backend is selected.
func openSlots(ctx context.Context, cfg *config.Config, queue *cfnats.Queue, migrate bool) (kvslot.Store, func(), error) {
	noop := func() {}
	maxCost := cfg.Cache.L1MaxSizeMB << 20

	switch cfg.Audit.Backend {
	case "", "memory":
		return memslot.New(), noop, nil

	case "file":
		return fileslot.New(cfg.Audit.FilePath), noop, nil

	case "ristretto":
		s, err := ristretto.New(maxCost, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("ristretto: %w", err)
		}
		return s, s.Close, nil

	case "natskv", "tiered":
		if queue == nil {
			return nil, nil, errNeedsNATS
		}
		l2, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Audit.Backend == "natskv" {
			return l2, noop, nil
		}
		l1, err := ristretto.New(maxCost, cfg.Cache.L2TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("ristretto: %w", err)
		}
		return tiered.New(l1, l2), l1.Close, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if migrate {
			if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrations: %w", err)
			}
			slog.Info("migrations applied")
		}
		return postgres.NewSlotStore(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}
