// Package feed follows a running monitor's event log over its websocket.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/mockingbird/pkg/eventlog"
)

// EventsPath is the dashboard route that streams event log entries.
const EventsPath = "/ws/events"

// ErrBadURL is returned for addresses that cannot be turned into a ws URL.
var ErrBadURL = errors.New("feed: bad url")

// URL builds the events websocket URL from a dashboard address such as
// "localhost:8080" or "http://host:8080".
func URL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrBadURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrBadURL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = EventsPath
	}
	return u.String(), nil
}

// Follow dials wsURL and calls fn for every entry until ctx is cancelled or
// the connection drops. The backlog arrives first, then live entries.
// It returns nil when ctx ends the stream.
func Follow(ctx context.Context, wsURL string, fn func(eventlog.Entry)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage on cancel
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	var last uint64
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var e eventlog.Entry
		if err := json.Unmarshal(message, &e); err != nil {
			return fmt.Errorf("decode entry: %w", err)
		}
		// backlog and live relay can overlap at connect
		if e.Seq != 0 && e.Seq <= last {
			continue
		}
		last = e.Seq
		fn(e)
	}
}
