package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mpv-chat-remote/model"
)

// TriggerPrefix starts every command trigger.
const TriggerPrefix = "!"

var (
	ErrInvalidTrigger   = errors.New("invalid trigger")
	ErrDuplicateTrigger = errors.New("trigger already registered")
)

// Replier writes a chat reply in response to msg.
type Replier interface {
	Reply(msg model.ChatMessage, text string)
}

// Request is what a handler receives for one command.
type Request struct {
	Message model.ChatMessage
	Args    Args
	Reply   Replier
}

// Say replies to the message that triggered the request.
func (r *Request) Say(text string) {
	if r.Reply == nil {
		return
	}
	r.Reply.Reply(r.Message, text)
}

// Handler is the behavior bound to one trigger.
type Handler interface {
	Handle(ctx context.Context, req *Request)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req *Request)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) {
	f(ctx, req)
}

type command struct {
	handler Handler
	extract Extractor
}

// Registry maps triggers to handlers and their argument extractors. It is
// filled once at startup and only read afterwards.
type Registry struct {
	commands map[string]command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]command, 16)}
}

// Register binds trigger to handler. A nil extractor means the handler takes no arguments.
func (r *Registry) Register(trigger string, extract Extractor, handler Handler) error {
	if len(trigger) <= len(TriggerPrefix) || !strings.HasPrefix(trigger, TriggerPrefix) || strings.ContainsAny(trigger, " \t\r\n") {
		return fmt.Errorf("register %q: %w", trigger, ErrInvalidTrigger)
	}
	if handler == nil {
		return fmt.Errorf("register %q: nil handler", trigger)
	}
	if _, exists := r.commands[trigger]; exists {
		return fmt.Errorf("register %q: %w", trigger, ErrDuplicateTrigger)
	}
	if extract == nil {
		extract = None
	}

	r.commands[trigger] = command{handler: handler, extract: extract}
	return nil
}

func (r *Registry) lookup(trigger string) (command, bool) {
	cmd, ok := r.commands[trigger]
	return cmd, ok
}

// Has reports whether trigger is registered.
func (r *Registry) Has(trigger string) bool {
	_, ok := r.commands[trigger]
	return ok
}

// Triggers lists registered triggers in sorted order.
func (r *Registry) Triggers() []string {
	out := make([]string, 0, len(r.commands))
	for t := range r.commands {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
