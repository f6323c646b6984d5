package storage

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"mpv-chat-remote/model"
)

// BatchConfig controls batching of journal inserts.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// Journal asynchronously records command invocations through pgx.Batch.
type Journal struct {
	input   chan model.Invocation
	config  BatchConfig
	sender  batchSender
	log     zerolog.Logger
	dropped atomic.Uint64
	stopped chan struct{}
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewJournal creates a journal and starts background flushes.
func NewJournal(ctx context.Context, pool *pgxpool.Pool, cfg BatchConfig, logger zerolog.Logger) *Journal {
	return newJournal(ctx, pool, cfg, logger)
}

// Record queues an invocation; it returns false when the queue is full.
func (j *Journal) Record(inv model.Invocation) bool {
	select {
	case j.input <- inv:
		return true
	default:
		dropped := j.dropped.Add(1)
		if dropped%100 == 0 {
			j.log.Warn().Uint64("dropped_total", dropped).Msg("journal queue full")
		}
		return false
	}
}

// Dropped returns the number of invocations dropped because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Done is closed after the final flush that follows context cancellation.
func (j *Journal) Done() <-chan struct{} {
	return j.stopped
}

const insertInvocation = `
insert into command_invocations (
  invocation_id, message_id, channel, username, trigger, args, invoked_at
) values ($1,$2,$3,$4,$5,$6,$7)
on conflict (invocation_id) do nothing;`

func (j *Journal) run(ctx context.Context) {
	defer close(j.stopped)

	flushTicker := time.NewTicker(j.config.FlushEvery)
	statsTicker := time.NewTicker(j.config.StatsLogEvery)
	defer flushTicker.Stop()
	defer statsTicker.Stop()

	var (
		batch            = &pgx.Batch{}
		pending          = 0
		totalInserted    uint64
		intervalInserted uint64
	)

	flush := func() {
		if pending == 0 {
			return
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), j.config.FlushTimeout)
		defer cancel()

		br := j.sender.SendBatch(dbCtx, batch)
		if err := br.Close(); err != nil {
			j.log.Error().Err(err).Int("rows", pending).Msg("journal flush failed")
		} else {
			totalInserted += uint64(pending)
			intervalInserted += uint64(pending)
		}

		batch = &pgx.Batch{}
		pending = 0
	}

	queue := func(inv model.Invocation) {
		args := inv.Args
		if args == nil {
			args = []string{}
		}
		argsJSON, _ := json.Marshal(args)
		batch.Queue(insertInvocation,
			inv.ID, nullable(inv.MessageID), inv.Channel, inv.Username, inv.Trigger, argsJSON, inv.InvokedAt.UTC(),
		)
		pending++
		if pending >= j.config.MaxBatch {
			flush()
		}
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case inv := <-j.input:
					queue(inv)
				default:
					break drain
				}
			}
			flush()
			j.log.Info().Uint64("total_inserted", totalInserted).Msg("journal stopped")
			return
		case <-flushTicker.C:
			flush()
		case <-statsTicker.C:
			j.log.Info().
				Uint64("inserted", intervalInserted).
				Dur("interval", j.config.StatsLogEvery).
				Uint64("total", totalInserted).
				Msg("journal stats")
			intervalInserted = 0
		case inv := <-j.input:
			queue(inv)
		}
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newJournal(ctx context.Context, sender batchSender, cfg BatchConfig, logger zerolog.Logger) *Journal {
	j := &Journal{
		input:   make(chan model.Invocation, cfg.ChanBuffer),
		config:  cfg,
		sender:  sender,
		log:     logger,
		stopped: make(chan struct{}),
	}

	go j.run(ctx)

	return j
}
