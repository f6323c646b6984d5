package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mpv-chat-remote/model"
)

// ErrEmptyMessage is reported for a chat message without sender or text.
var ErrEmptyMessage = errors.New("chat message has empty sender or text")

// Source yields chat messages one at a time. Next returns io.EOF once the
// stream has ended.
type Source interface {
	Next(ctx context.Context) (model.ChatMessage, error)
}

// Journal receives a record of every dispatched command.
type Journal interface {
	Record(inv model.Invocation) bool
}

// UserSet is an immutable set of lower-cased user names.
type UserSet map[string]struct{}

// NewUserSet lower-cases names and drops blanks.
func NewUserSet(names []string) UserSet {
	set := make(UserSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Contains is an exact, case-sensitive membership test.
func (s UserSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Dispatcher owns everything the dispatch loop needs: the registry, the
// authorized users and the random source. It is not safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	users    UserSet
	rng      *rand.Rand
	journal  Journal
	log      zerolog.Logger
	now      func() time.Time
}

// NewDispatcher builds a dispatcher. A nil rng is replaced by a randomly seeded one.
func NewDispatcher(registry *Registry, users UserSet, rng *rand.Rand, logger zerolog.Logger) *Dispatcher {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Dispatcher{
		registry: registry,
		users:    users,
		rng:      rng,
		log:      logger,
		now:      time.Now,
	}
}

// SetJournal attaches a journal that records dispatched commands.
func (d *Dispatcher) SetJournal(j Journal) {
	d.journal = j
}

// Run reads messages from src until it ends or ctx is cancelled. A clean end of
// stream returns nil.
func (d *Dispatcher) Run(ctx context.Context, src Source, reply Replier) error {
	d.log.Info().Strs("commands", d.registry.Triggers()).Int("authorized_users", len(d.users)).Msg("dispatcher running")

	for {
		msg, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.log.Info().Msg("chat stream ended")
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read chat: %w", err)
		}

		if _, err := d.Dispatch(ctx, msg, reply); err != nil {
			d.log.Warn().Err(err).Str("message_id", msg.ID).Msg("message discarded")
		}
	}
}

// Dispatch processes one message. It reports whether a handler was invoked.
func (d *Dispatcher) Dispatch(ctx context.Context, msg model.ChatMessage, reply Replier) (bool, error) {
	if msg.Username == "" || msg.Text == "" {
		return false, ErrEmptyMessage
	}

	if !d.users.Contains(strings.ToLower(msg.Username)) {
		return false, nil
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], TriggerPrefix) {
		return false, nil
	}

	trigger, rest := fields[0], fields[1:]
	cmd, ok := d.registry.lookup(trigger)
	if !ok {
		return false, nil
	}

	args := cmd.extract(rest, d.rng)
	d.log.Debug().Str("user", msg.Username).Str("trigger", trigger).Stringer("args", args).Msg("dispatching command")
	d.record(msg, trigger, rest)

	cmd.handler.Handle(ctx, &Request{Message: msg, Args: args, Reply: reply})
	return true, nil
}

func (d *Dispatcher) record(msg model.ChatMessage, trigger string, rest []string) {
	if d.journal == nil {
		return
	}
	inv := model.Invocation{
		ID:        uuid.NewString(),
		MessageID: msg.ID,
		Channel:   msg.Channel,
		Username:  strings.ToLower(msg.Username),
		Trigger:   trigger,
		Args:      rest,
		InvokedAt: d.now().UTC(),
	}
	if !d.journal.Record(inv) {
		d.log.Debug().Str("trigger", trigger).Msg("journal full, invocation dropped")
	}
}
