package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/mockingbird/pkg/eventlog"
)

func TestURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "localhost:8080", want: "ws://localhost:8080/ws/events"},
		{in: "http://host:9000", want: "ws://host:9000/ws/events"},
		{in: "https://host", want: "wss://host/ws/events"},
		{in: "ws://host:1/custom", want: "ws://host:1/custom"},
		{in: "ftp://host", err: true},
		{in: "http://", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := URL(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrBadURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// serve starts a websocket server that writes entries and then runs after.
func serve(t *testing.T, entries []eventlog.Entry, after func(*websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, e := range entries {
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
		after(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + EventsPath
}

func TestFollow_DedupesAndStopsOnClose(t *testing.T) {
	entries := []eventlog.Entry{
		{Seq: 1, Message: "Detection enabled"},
		{Seq: 2, Message: "Intruder detected"},
		{Seq: 2, Message: "Intruder detected"},
		{Seq: 3, Message: "playing audio"},
	}
	url := serve(t, entries, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	var got []string
	err := Follow(context.Background(), url, func(e eventlog.Entry) {
		got = append(got, e.Message)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Detection enabled", "Intruder detected", "playing audio"}, got)
}

func TestFollow_ContextCancel(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	url := serve(t, []eventlog.Entry{{Seq: 1, Message: "Detection enabled"}}, func(conn *websocket.Conn) {
		<-hold
	})

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, url, func(e eventlog.Entry) {
			mu.Lock()
			got = append(got, e.Message)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollow_BadPayload(t *testing.T) {
	url := serve(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	})

	err := Follow(context.Background(), url, func(eventlog.Entry) {})
	assert.ErrorContains(t, err, "decode entry")
}

func TestFollow_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + EventsPath
	srv.Close()

	err := Follow(context.Background(), url, func(eventlog.Entry) {})
	assert.ErrorContains(t, err, "websocket dial failed")
}
