package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"mpv-chat-remote/mpv"
)

// Player is the part of the mpv client the handlers use.
type Player interface {
	mpv.PropertyGetter
	SetProperty(ctx context.Context, name string, value any) error
}

// Default offsets and tracks used when a command argument is missing or invalid.
const (
	DefaultSeekSeconds = 10
	DefaultTrack       = 0
)

type commands struct {
	player Player
	jokes  []string
	log    zerolog.Logger
}

// RegisterDefaults binds the built-in player commands to r.
func RegisterDefaults(r *Registry, player Player, jokes []string, logger zerolog.Logger) error {
	c := &commands{player: player, jokes: jokes, log: logger}

	entries := []struct {
		trigger string
		extract Extractor
		handler Handler
	}{
		{"!play", None, c.setFixed(mpv.PropPause, false)},
		{"!pause", None, c.setFixed(mpv.PropPause, true)},
		{"!rewind", U16OrDefault(DefaultSeekSeconds), c.seek(-1)},
		{"!forward", U16OrDefault(DefaultSeekSeconds), c.seek(1)},
		{"!pos", None, HandlerFunc(c.position)},
		{"!sub", U16OrDefault(DefaultTrack), c.track(mpv.PropSub)},
		{"!aud", U16OrDefault(DefaultTrack), c.track(mpv.PropAudio)},
		{"!vol", OptionalU16, HandlerFunc(c.volume)},
		{"!joke", RandomIndex(len(jokes)), HandlerFunc(c.joke)},
	}

	for _, e := range entries {
		if err := r.Register(e.trigger, e.extract, e.handler); err != nil {
			return err
		}
	}
	return nil
}

func (c *commands) setFixed(name string, value any) Handler {
	return HandlerFunc(func(ctx context.Context, _ *Request) {
		if err := c.player.SetProperty(ctx, name, value); err != nil {
			c.log.Debug().Err(err).Str("property", name).Msg("set property failed")
		}
	})
}

// seek moves time-pos by the argument in seconds; direction is +1 or -1.
func (c *commands) seek(direction float64) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) {
		seconds, ok := req.Args.U16()
		if !ok {
			return
		}

		pos, ok := mpv.GetPropertyAs[float64](ctx, c.player, mpv.PropTimePos)
		if !ok {
			c.log.Debug().Msg("time-pos unavailable, seek skipped")
			return
		}

		target := pos + direction*float64(seconds)
		if err := c.player.SetProperty(ctx, mpv.PropTimePos, target); err != nil {
			c.log.Debug().Err(err).Float64("target", target).Msg("seek failed")
		}
	})
}

func (c *commands) position(ctx context.Context, req *Request) {
	pos, ok := mpv.GetPropertyAs[float64](ctx, c.player, mpv.PropTimePos)
	if !ok {
		return
	}
	duration, ok := mpv.GetPropertyAs[float64](ctx, c.player, mpv.PropDuration)
	if !ok {
		return
	}

	req.Say(fmt.Sprintf("%s / %s (%s remaining)",
		FormatTime(secondsOf(pos)),
		FormatTime(secondsOf(duration)),
		FormatTime(secondsOf(duration-pos)),
	))
}

func (c *commands) track(name string) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) {
		id, ok := req.Args.U16()
		if !ok {
			return
		}
		if err := c.player.SetProperty(ctx, name, id); err != nil {
			c.log.Debug().Err(err).Str("property", name).Msg("track switch failed")
		}
	})
}

func (c *commands) volume(ctx context.Context, req *Request) {
	if level, ok := req.Args.U16(); ok {
		if err := c.player.SetProperty(ctx, mpv.PropVolume, level); err != nil {
			req.Say(fmt.Sprintf("failed to set volume: %v", err))
			return
		}
		req.Say(fmt.Sprintf("(volume has been set to %d%%)", level))
		return
	}

	level, ok := mpv.GetPropertyAs[float64](ctx, c.player, mpv.PropVolume)
	if !ok {
		req.Say("(failed to get volume information)")
		return
	}
	req.Say("volume: " + strconv.FormatFloat(level, 'f', -1, 64) + "%")
}

func (c *commands) joke(_ context.Context, req *Request) {
	idx, ok := req.Args.U16()
	if !ok || int(idx) >= len(c.jokes) {
		return
	}
	req.Say(c.jokes[idx])
}
