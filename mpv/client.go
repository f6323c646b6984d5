package mpv

import (
	"context"
	"encoding/json"
	"fmt"
)

// Properties read or written by the chat commands.
const (
	PropTimePos  = "time-pos"
	PropDuration = "duration"
	PropPause    = "pause"
	PropSub      = "sid"
	PropAudio    = "aid"
	PropVolume   = "volume"
)

// Client speaks mpv's JSON IPC protocol over a Transport.
type Client struct {
	transport Transport
}

// NewClient wraps transport.
func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

type request struct {
	Command []any `json:"command"`
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// SendCommand sends {"command": args} and returns mpv's raw reply.
func (c *Client) SendCommand(ctx context.Context, args ...any) (string, error) {
	payload, err := json.Marshal(request{Command: args})
	if err != nil {
		return "", fmt.Errorf("%w: encode command: %v", ErrSerialization, err)
	}

	reply, err := c.transport.Send(ctx, string(payload))
	if err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}
	return reply, nil
}

// SetProperty sets a player property to value.
func (c *Client) SetProperty(ctx context.Context, name string, value any) error {
	_, err := c.SendCommand(ctx, "set_property", name, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// GetProperty returns the raw "data" value of a property. The value is nil
// when mpv omits the field.
func (c *Client) GetProperty(ctx context.Context, name string) (json.RawMessage, error) {
	reply, err := c.SendCommand(ctx, "get_property", name)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}

	var resp response
	if err := json.Unmarshal([]byte(reply), &resp); err != nil {
		return nil, fmt.Errorf("get %s: %w: decode reply: %v", name, ErrSerialization, err)
	}
	if resp.Error != "" && resp.Error != "success" {
		return nil, fmt.Errorf("get %s: %w: %s", name, ErrPlayer, resp.Error)
	}

	return resp.Data, nil
}

// PropertyGetter is satisfied by *Client.
type PropertyGetter interface {
	GetProperty(ctx context.Context, name string) (json.RawMessage, error)
}

// GetPropertyAs reads a property and coerces it to T. Any failure, including a
// missing or mistyped value, yields ok == false.
func GetPropertyAs[T Scalar](ctx context.Context, g PropertyGetter, name string) (value T, ok bool) {
	raw, err := g.GetProperty(ctx, name)
	if err != nil || len(raw) == 0 {
		return value, false
	}
	return Coerce[T](raw)
}
