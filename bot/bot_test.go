package bot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpv-chat-remote/model"
	"mpv-chat-remote/mpv"
)

type setCall struct {
	name  string
	value any
}

type fakePlayer struct {
	props  map[string]string
	setErr error
	gets   []string
	sets   []setCall
}

func (p *fakePlayer) GetProperty(_ context.Context, name string) (json.RawMessage, error) {
	p.gets = append(p.gets, name)
	raw, ok := p.props[name]
	if !ok {
		return nil, mpv.ErrTransport
	}
	return json.RawMessage(raw), nil
}

func (p *fakePlayer) SetProperty(_ context.Context, name string, value any) error {
	p.sets = append(p.sets, setCall{name: name, value: value})
	return p.setErr
}

func (p *fakePlayer) calls() int {
	return len(p.gets) + len(p.sets)
}

type stubReplier struct {
	replies []string
}

func (r *stubReplier) Reply(_ model.ChatMessage, text string) {
	r.replies = append(r.replies, text)
}

type sliceSource struct {
	msgs []model.ChatMessage
	err  error
}

func (s *sliceSource) Next(context.Context) (model.ChatMessage, error) {
	if len(s.msgs) == 0 {
		if s.err != nil {
			return model.ChatMessage{}, s.err
		}
		return model.ChatMessage{}, io.EOF
	}
	m := s.msgs[0]
	s.msgs = s.msgs[1:]
	return m, nil
}

type stubJournal struct {
	records []model.Invocation
}

func (j *stubJournal) Record(inv model.Invocation) bool {
	j.records = append(j.records, inv)
	return true
}

func newTestDispatcher(t *testing.T, player *fakePlayer, users ...string) *Dispatcher {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterDefaults(reg, player, Jokes, zerolog.Nop()))
	return NewDispatcher(reg, NewUserSet(users), rand.New(rand.NewPCG(1, 2)), zerolog.Nop())
}

func msg(user, text string) model.ChatMessage {
	return model.ChatMessage{ID: "m1", Channel: "chan", Username: user, Text: text}
}

func TestUnknownTriggerIsNoop(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "alice")
	r := &stubReplier{}

	for _, text := range []string{"!stop", "!PLAY", "!playx", "!", "!vol2 5"} {
		handled, err := d.Dispatch(context.Background(), msg("alice", text), r)
		require.NoError(t, err)
		assert.False(t, handled, text)
	}
	assert.Empty(t, r.replies)
	assert.Zero(t, player.calls())
}

func TestNonTriggerMessagesDiscarded(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "alice")
	r := &stubReplier{}

	for _, text := range []string{"play", "hello !play", "   ", "?vol 10"} {
		handled, err := d.Dispatch(context.Background(), msg("alice", text), r)
		require.NoError(t, err)
		assert.False(t, handled, text)
	}
	assert.Empty(t, r.replies)
	assert.Zero(t, player.calls())
}

func TestAuthorization(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "Alice", "bob")

	handled, err := d.Dispatch(context.Background(), msg("mallory", "!play"), nil)
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = d.Dispatch(context.Background(), msg("ALICE", "!play"), nil)
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = d.Dispatch(context.Background(), msg("bob", "!pause"), nil)
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, []setCall{{mpv.PropPause, false}, {mpv.PropPause, true}}, player.sets)
}

func TestUserSetIsExactMatch(t *testing.T) {
	set := NewUserSet([]string{" Alice ", "", "BOB"})
	assert.True(t, set.Contains("alice"))
	assert.True(t, set.Contains("bob"))
	assert.False(t, set.Contains("Alice"))
	assert.Len(t, set, 2)
}

func TestEmptyMessageIsError(t *testing.T) {
	d := newTestDispatcher(t, &fakePlayer{}, "alice")

	_, err := d.Dispatch(context.Background(), msg("", "!play"), nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = d.Dispatch(context.Background(), msg("alice", ""), nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSeek(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"!rewind 5", 95},
		{"!forward 5", 105},
		{"!rewind", 90},
		{"!forward", 110},
		{"!forward abc", 110},
		{"!rewind 70000", 90},
		{"!forward 3 9", 103},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			player := &fakePlayer{props: map[string]string{mpv.PropTimePos: "100"}}
			d := newTestDispatcher(t, player, "alice")

			handled, err := d.Dispatch(context.Background(), msg("alice", tc.text), nil)
			require.NoError(t, err)
			require.True(t, handled)
			require.Len(t, player.sets, 1)
			assert.Equal(t, setCall{mpv.PropTimePos, tc.want}, player.sets[0])
		})
	}
}

func TestSeekSkippedWithoutPosition(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "alice")
	r := &stubReplier{}

	_, err := d.Dispatch(context.Background(), msg("alice", "!forward 10"), r)
	require.NoError(t, err)
	assert.Empty(t, player.sets)
	assert.Empty(t, r.replies)
}

func TestTrackSelection(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "alice")

	for _, text := range []string{"!sub 2", "!aud 3", "!sub", "!aud nope", "!sub -1"} {
		_, err := d.Dispatch(context.Background(), msg("alice", text), nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []setCall{
		{mpv.PropSub, uint16(2)},
		{mpv.PropAudio, uint16(3)},
		{mpv.PropSub, uint16(0)},
		{mpv.PropAudio, uint16(0)},
		{mpv.PropSub, uint16(0)},
	}, player.sets)
}

func TestPosition(t *testing.T) {
	player := &fakePlayer{props: map[string]string{
		mpv.PropTimePos:  "65.7",
		mpv.PropDuration: "3661.2",
	}}
	d := newTestDispatcher(t, player, "alice")
	r := &stubReplier{}

	_, err := d.Dispatch(context.Background(), msg("alice", "!pos"), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"01:05 / 01:01:01 (59:55 remaining)"}, r.replies)
}

func TestPositionSkippedWithoutDuration(t *testing.T) {
	player := &fakePlayer{props: map[string]string{mpv.PropTimePos: "65"}}
	d := newTestDispatcher(t, player, "alice")
	r := &stubReplier{}

	_, err := d.Dispatch(context.Background(), msg("alice", "!pos"), r)
	require.NoError(t, err)
	assert.Empty(t, r.replies)
}

func TestVolume(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		player := &fakePlayer{props: map[string]string{mpv.PropVolume: "80.000000"}}
		d := newTestDispatcher(t, player, "alice")
		r := &stubReplier{}

		_, err := d.Dispatch(context.Background(), msg("alice", "!vol"), r)
		require.NoError(t, err)
		assert.Equal(t, []string{"volume: 80%"}, r.replies)
		assert.Empty(t, player.sets)
	})

	t.Run("get fails", func(t *testing.T) {
		player := &fakePlayer{}
		d := newTestDispatcher(t, player, "alice")
		r := &stubReplier{}

		_, err := d.Dispatch(context.Background(), msg("alice", "!vol loud"), r)
		require.NoError(t, err)
		assert.Equal(t, []string{"(failed to get volume information)"}, r.replies)
	})

	t.Run("set", func(t *testing.T) {
		player := &fakePlayer{}
		d := newTestDispatcher(t, player, "alice")
		r := &stubReplier{}

		_, err := d.Dispatch(context.Background(), msg("alice", "!vol 55"), r)
		require.NoError(t, err)
		assert.Equal(t, []string{"(volume has been set to 55%)"}, r.replies)
		assert.Equal(t, []setCall{{mpv.PropVolume, uint16(55)}}, player.sets)
	})

	t.Run("set fails", func(t *testing.T) {
		player := &fakePlayer{setErr: errors.New("no socket")}
		d := newTestDispatcher(t, player, "alice")
		r := &stubReplier{}

		_, err := d.Dispatch(context.Background(), msg("alice", "!vol 55"), r)
		require.NoError(t, err)
		assert.Equal(t, []string{"failed to set volume: no socket"}, r.replies)
	})
}

func TestJoke(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "alice")
	r := &stubReplier{}

	for i := 0; i < 200; i++ {
		_, err := d.Dispatch(context.Background(), msg("alice", "!joke"), r)
		require.NoError(t, err)
	}

	require.Len(t, r.replies, 200)
	for _, reply := range r.replies {
		assert.Contains(t, Jokes, reply)
	}
	assert.Zero(t, player.calls())
}

func TestRandomIndexBound(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	extract := RandomIndex(3)
	for i := 0; i < 1000; i++ {
		v, ok := extract(nil, rng).U16()
		require.True(t, ok)
		require.Less(t, v, uint16(3))
	}

	_, ok := RandomIndex(0)(nil, rng).U16()
	assert.False(t, ok)
}

func TestRunStopsAtEndOfStream(t *testing.T) {
	player := &fakePlayer{}
	d := newTestDispatcher(t, player, "alice")
	journal := &stubJournal{}
	d.SetJournal(journal)

	src := &sliceSource{msgs: []model.ChatMessage{
		msg("alice", "!play"),
		msg("mallory", "!pause"),
		msg("alice", ""),
		msg("alice", "!forward 3 extra"),
	}}

	require.NoError(t, d.Run(context.Background(), src, &stubReplier{}))
	require.Len(t, journal.records, 2)
	assert.Equal(t, "!play", journal.records[0].Trigger)
	assert.Equal(t, "!forward", journal.records[1].Trigger)
	assert.Equal(t, []string{"3", "extra"}, journal.records[1].Args)
	assert.NotEmpty(t, journal.records[1].ID)
}

func TestRunReturnsSourceError(t *testing.T) {
	d := newTestDispatcher(t, &fakePlayer{}, "alice")
	boom := errors.New("connection reset")

	err := d.Run(context.Background(), &sliceSource{err: boom}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRunReturnsContextError(t *testing.T) {
	d := newTestDispatcher(t, &fakePlayer{}, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, &sliceSource{err: context.Canceled}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	noop := HandlerFunc(func(context.Context, *Request) {})

	require.NoError(t, reg.Register("!a", nil, noop))
	assert.ErrorIs(t, reg.Register("!a", nil, noop), ErrDuplicateTrigger)
	assert.ErrorIs(t, reg.Register("a", nil, noop), ErrInvalidTrigger)
	assert.ErrorIs(t, reg.Register("!", nil, noop), ErrInvalidTrigger)
	assert.ErrorIs(t, reg.Register("!a b", nil, noop), ErrInvalidTrigger)
	assert.Error(t, reg.Register("!b", nil, nil))

	assert.True(t, reg.Has("!a"))
	assert.False(t, reg.Has("!b"))
	assert.Equal(t, []string{"!a"}, reg.Triggers())
}

func TestDefaultTriggers(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterDefaults(reg, &fakePlayer{}, Jokes, zerolog.Nop()))
	assert.Equal(t, []string{"!aud", "!forward", "!joke", "!pause", "!play", "!pos", "!rewind", "!sub", "!vol"}, reg.Triggers())
}

func TestExtractors(t *testing.T) {
	cases := []struct {
		name    string
		extract Extractor
		rest    []string
		want    Args
	}{
		{"default used when absent", U16OrDefault(10), nil, U16(10)},
		{"default used on overflow", U16OrDefault(10), []string{"65536"}, U16(10)},
		{"max value", U16OrDefault(10), []string{"65535"}, U16(65535)},
		{"optional absent", OptionalU16, nil, NoArgs},
		{"optional invalid", OptionalU16, []string{"1.5"}, NoArgs},
		{"optional valid", OptionalU16, []string{"7"}, U16(7)},
		{"none ignores tokens", None, []string{"7"}, NoArgs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.extract(tc.rest, nil))
		})
	}
}

func TestFormatTime(t *testing.T) {
	cases := map[uint64]string{
		0:     "00:00",
		59:    "00:59",
		65:    "01:05",
		3599:  "59:59",
		3600:  "01:00:00",
		3661:  "01:01:01",
		36000: "10:00:00",
	}
	for in, want := range cases {
		t.Run(strconv.FormatUint(in, 10), func(t *testing.T) {
			assert.Equal(t, want, FormatTime(in))
		})
	}
}
