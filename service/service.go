package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"mpv-chat-remote/bot"
)

// ChatClient is the chat connection: a message source and reply writer with its own lifecycle.
type ChatClient interface {
	bot.Source
	bot.Replier
	Run(ctx context.Context) error
}

// Service ties the chat client to the dispatcher.
type Service struct {
	client     ChatClient
	dispatcher *bot.Dispatcher
	log        zerolog.Logger
}

// New creates a Service from an assembled chat client and dispatcher.
func New(client ChatClient, dispatcher *bot.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{client: client, dispatcher: dispatcher, log: logger}
}

// Run connects the chat client and dispatches its messages until the context
// is cancelled, the stream ends, or the connection fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clientErr := make(chan error, 1)
	go func() {
		clientErr <- s.client.Run(ctx)
	}()

	err := s.dispatcher.Run(ctx, s.client, s.client)
	cancel()

	if cerr := <-clientErr; cerr != nil && !errors.Is(cerr, context.Canceled) {
		s.log.Error().Err(cerr).Msg("chat connection closed with error")
		if err == nil {
			err = cerr
		}
	}

	return err
}
