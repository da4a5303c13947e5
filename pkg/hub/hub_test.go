package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu      sync.Mutex
	written []string
	types   []int
	closed  chan struct{}
	once    sync.Once
	block   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, t)
	f.written = append(f.written, string(data))
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.written))
	for i, w := range f.written {
		if f.types[i] == websocket.TextMessage || f.types[i] == websocket.BinaryMessage {
			out = append(out, w)
		}
	}
	return out
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h, cancel
}

func connect(t *testing.T, h *Hub, greeting ...Message) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	before := h.ClientCount()
	go NewClient(h, conn, greeting...).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == before+1 }, time.Second, time.Millisecond)
	return conn
}

func TestBroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)
	a := connect(t, h)
	b := connect(t, h)

	require.NoError(t, h.BroadcastJSON(map[string]string{"msg": "hi"}))
	h.Broadcast(NewBinaryMessage([]byte{0xff, 0xd8}))

	for _, c := range []*fakeConn{a, b} {
		require.Eventually(t, func() bool { return len(c.messages()) == 2 }, time.Second, time.Millisecond)
		assert.Equal(t, `{"msg":"hi"}`, c.messages()[0])
		assert.Equal(t, "\xff\xd8", c.messages()[1])
	}
}

func TestGreetingSentFirst(t *testing.T) {
	h, _ := startHub(t)
	c := connect(t, h, NewJSONMessage([]byte(`"one"`)), NewJSONMessage([]byte(`"two"`)))
	h.Broadcast(NewJSONMessage([]byte(`"three"`)))

	require.Eventually(t, func() bool { return len(c.messages()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{`"one"`, `"two"`, `"three"`}, c.messages())
}

func TestSyncedGreeting_NoGap(t *testing.T) {
	h, _ := startHub(t)
	conn := newFakeConn()
	greet := func() []Message {
		// published after the snapshot but before the client is registered
		h.Broadcast(NewJSONMessage([]byte(`"two"`)))
		return []Message{NewJSONMessage([]byte(`"one"`))}
	}
	go NewSyncedClient(h, conn, greet).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
	h.Broadcast(NewJSONMessage([]byte(`"three"`)))

	require.Eventually(t, func() bool { return len(conn.messages()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{`"one"`, `"two"`, `"three"`}, conn.messages())
}

func TestSyncedGreeting_Empty(t *testing.T) {
	h, _ := startHub(t)
	conn := newFakeConn()
	go NewSyncedClient(h, conn, func() []Message { return nil }).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.Broadcast(NewJSONMessage([]byte(`"live"`)))
	require.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, time.Millisecond)
}

func TestClientDisconnect(t *testing.T) {
	h, _ := startHub(t)
	c := connect(t, h)

	c.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestSlowClientDropped(t *testing.T) {
	h, _ := startHub(t)
	slow := newFakeConn()
	slow.block = make(chan struct{})
	defer close(slow.block)
	go NewClient(h, slow).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < sendBuffer+10; i++ {
		h.Broadcast(NewJSONMessage([]byte(`1`)))
		time.Sleep(10 * time.Microsecond)
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestStopReleasesClients(t *testing.T) {
	h, cancel := startHub(t)
	connect(t, h)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, h.ClientCount())
	assert.False(t, h.IsRunning())

	// late clients are turned away
	late := newFakeConn()
	NewClient(h, late).Run()
	select {
	case <-late.closed:
	default:
		t.Fatal("late client not closed")
	}
}

func TestBroadcastJSONError(t *testing.T) {
	h := New("test", nil)
	assert.Error(t, h.BroadcastJSON(make(chan int)))
}
