package twitch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"mpv-chat-remote/config"
	"mpv-chat-remote/model"
)

const eventBuffer = 256

// Client wraps go-twitch-irc. It is the dispatcher's message source and reply writer.
type Client struct {
	client  *twitchirc.Client
	channel string
	say     func(channel, text string)
	limiter *rate.Limiter
	log     zerolog.Logger

	events  chan model.ChatMessage
	done    chan struct{}
	errMu   sync.Mutex
	err     error
	dropped atomic.Uint64
	baseCtx context.Context
}

// NewClient initializes the IRC client and registers callbacks.
func NewClient(cfg config.TwitchConfig, reply config.ReplyConfig, logger zerolog.Logger) *Client {
	client := twitchirc.NewClient(cfg.Username, cfg.OAuthToken)

	c := newClient(cfg.Channel, client.Say, reply, logger)
	c.client = client

	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		c.deliver(toChatMessage(m))
	})

	client.OnConnect(func() {
		c.log.Info().Str("channel", c.channel).Msg("connected, joining channel")
		client.Join(c.channel)
	})

	client.OnSelfJoinMessage(func(m twitchirc.UserJoinMessage) {
		c.log.Info().Str("channel", normalizeChannel(m.Channel)).Msg("joined channel")
	})

	client.OnReconnectMessage(func(m twitchirc.ReconnectMessage) {
		c.log.Warn().Str("raw", m.Raw).Msg("server requested RECONNECT")
	})

	client.OnNoticeMessage(func(m twitchirc.NoticeMessage) {
		c.log.Warn().Str("channel", normalizeChannel(m.Channel)).Str("msg_id", m.MsgID).Msg(m.Message)
	})

	return c
}

func newClient(channel string, say func(channel, text string), reply config.ReplyConfig, logger zerolog.Logger) *Client {
	limit := rate.Inf
	if reply.Interval > 0 {
		limit = rate.Every(reply.Interval)
	}
	burst := reply.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		channel: channel,
		say:     say,
		limiter: rate.NewLimiter(limit, burst),
		log:     logger,
		events:  make(chan model.ChatMessage, eventBuffer),
		done:    make(chan struct{}),
	}
}

// Run connects the client and blocks until the context is cancelled or the
// connection fails. Next reports the outcome once buffered messages are drained.
func (c *Client) Run(ctx context.Context) error {
	c.baseCtx = ctx
	errCh := make(chan error, 1)

	go func() {
		errCh <- c.client.Connect()
	}()

	var err error
	select {
	case <-ctx.Done():
		c.client.Disconnect()
		<-errCh
		err = ctx.Err()
	case err = <-errCh:
		if errors.Is(err, twitchirc.ErrClientDisconnected) {
			err = nil
		}
	}

	c.finish(err)
	return err
}

func (c *Client) finish(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
	close(c.done)
}

func (c *Client) deliver(msg model.ChatMessage) {
	select {
	case c.events <- msg:
	default:
		dropped := c.dropped.Add(1)
		c.log.Warn().Uint64("dropped_total", dropped).Str("user", msg.Username).Msg("event buffer full, message dropped")
	}
}

// Next blocks until a chat message arrives. It returns io.EOF after the
// connection has closed cleanly, or the connection error otherwise.
func (c *Client) Next(ctx context.Context) (model.ChatMessage, error) {
	select {
	case msg := <-c.events:
		return msg, nil
	default:
	}

	select {
	case <-ctx.Done():
		return model.ChatMessage{}, ctx.Err()
	case msg := <-c.events:
		return msg, nil
	case <-c.done:
		select {
		case msg := <-c.events:
			return msg, nil
		default:
		}

		c.errMu.Lock()
		err := c.err
		c.errMu.Unlock()
		if err == nil {
			return model.ChatMessage{}, io.EOF
		}
		return model.ChatMessage{}, err
	}
}

// Reply says text in the channel msg came from, waiting for the rate limiter.
func (c *Client) Reply(msg model.ChatMessage, text string) {
	channel := msg.Channel
	if channel == "" {
		channel = c.channel
	}

	if err := c.limiter.Wait(c.context()); err != nil {
		c.log.Debug().Err(err).Msg("reply abandoned")
		return
	}
	c.say(channel, text)
}

// Dropped returns how many messages were discarded because the buffer was full.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

func toChatMessage(m twitchirc.PrivateMessage) model.ChatMessage {
	sentAt := m.Time
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	return model.ChatMessage{
		ID:          m.ID,
		Channel:     normalizeChannel(m.Channel),
		UserID:      m.User.ID,
		Username:    m.User.Name,
		DisplayName: m.User.DisplayName,
		Text:        m.Message,
		SentAt:      sentAt,
	}
}

func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
}

func (c *Client) context() context.Context {
	if c.baseCtx != nil {
		return c.baseCtx
	}
	return context.Background()
}
