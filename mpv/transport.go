package mpv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultSocketPath is where mpv listens when started with --input-ipc-server=/tmp/mpvsocket.
const DefaultSocketPath = "/tmp/mpvsocket"

var (
	// ErrTransport wraps every failure to reach or talk to the control socket.
	ErrTransport = errors.New("mpv transport")
	// ErrSerialization wraps malformed JSON in either direction.
	ErrSerialization = errors.New("mpv serialization")
	// ErrPlayer is returned when mpv answers with an error status.
	ErrPlayer = errors.New("mpv player")
)

// Transport sends one raw payload to the player and returns its raw reply.
type Transport interface {
	Send(ctx context.Context, payload string) (string, error)
}

// SocketTransport talks to mpv over its Unix domain control socket.
// Each Send opens a fresh connection; only one request is in flight at a time.
type SocketTransport struct {
	path    string
	timeout time.Duration
	dialer  net.Dialer
	mu      sync.Mutex
}

// NewSocketTransport returns a transport for the socket at path.
// A zero timeout means requests wait for as long as ctx allows.
func NewSocketTransport(path string, timeout time.Duration) *SocketTransport {
	if strings.TrimSpace(path) == "" {
		path = DefaultSocketPath
	}
	return &SocketTransport{path: path, timeout: timeout}
}

// Path returns the socket path the transport dials.
func (t *SocketTransport) Path() string {
	return t.path
}

// Send writes payload followed by a newline and returns the first reply line,
// skipping asynchronous event notifications. Invalid UTF-8 in the reply is dropped.
func (t *SocketTransport) Send(ctx context.Context, payload string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	conn, err := t.dialer.DialContext(ctx, "unix", t.path)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", ErrTransport, t.path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// unblock reads when ctx is cancelled without a deadline
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		return "", fmt.Errorf("%w: write: %v", ErrTransport, err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 && !isEvent(line) {
			return strings.ToValidUTF8(string(line), ""), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: read: %v", ErrTransport, ctxErr)
			}
			return "", fmt.Errorf("%w: read: %v", ErrTransport, err)
		}
	}
}

// isEvent reports whether line is an unsolicited mpv event rather than a reply.
func isEvent(line []byte) bool {
	var probe struct {
		Event *string `json:"event"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	return probe.Event != nil
}
