// Package eventlog keeps the ordered, append-only history of human-readable
// monitoring events ("Detection enabled", "Intruder detected", ...).
package eventlog

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeLayout renders entries as local wall-clock time.
const DefaultTimeLayout = "15:04:05"

// Entry is one logged event. Entries are never modified after Append.
type Entry struct {
	Seq      uint64    `json:"seq"`
	LoggedAt time.Time `json:"logged_at"`
	Message  string    `json:"message"`
	Text     string    `json:"text"` // "<local time>: <message>"
}

// String returns the formatted "<time>: <message>" line.
func (e Entry) String() string {
	return e.Text
}

// Options configures a Log.
type Options struct {
	// Capacity bounds retained history; 0 keeps everything.
	Capacity int

	// TimeLayout formats LoggedAt in Text. Defaults to DefaultTimeLayout.
	TimeLayout string

	// Now overrides the clock (tests).
	Now func() time.Time

	Logger *slog.Logger
}

// Log is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	dropped int // entries evicted by Capacity
	seq     uint64
	opts    Options
	logger  *slog.Logger

	subMu  sync.Mutex
	subs   map[int]chan Entry
	nextID int
}

// New creates an empty log.
func New(opts Options) *Log {
	if opts.TimeLayout == "" {
		opts.TimeLayout = DefaultTimeLayout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Log{
		opts:   opts,
		logger: opts.Logger.With("component", "eventlog"),
		subs:   make(map[int]chan Entry),
	}
}

// Append timestamps msg, stores it and notifies subscribers.
func (l *Log) Append(msg string) Entry {
	now := l.opts.Now()

	l.mu.Lock()
	l.seq++
	e := Entry{
		Seq:      l.seq,
		LoggedAt: now,
		Message:  msg,
		Text:     now.Local().Format(l.opts.TimeLayout) + ": " + msg,
	}
	l.entries = append(l.entries, e)
	if l.opts.Capacity > 0 && len(l.entries) > l.opts.Capacity {
		over := len(l.entries) - l.opts.Capacity
		l.entries = append([]Entry(nil), l.entries[over:]...)
		l.dropped += over
	}
	// publish under the lock so subscribers see entries in Seq order
	l.publish(e)
	l.mu.Unlock()

	l.logger.Debug("event", "seq", e.Seq, "message", msg)
	return e
}

// Len returns the number of entries ever appended.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(l.seq)
}

// All returns a copy of the retained history.
func (l *Log) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns the last n entries, oldest first.
func (l *Log) Recent(n int) []Entry {
	return l.View(n, 0)
}

// View returns the last n entries, never including the first skipFirst
// entries ever logged. This is a presentation offset: the dashboard hides
// its initial placeholder event.
func (l *Log) View(n, skipFirst int) []Entry {
	if n <= 0 {
		return []Entry{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	// index into entries of the first entry past the skipped prefix
	lo := skipFirst - l.dropped
	if lo < 0 {
		lo = 0
	}
	if lo > len(l.entries) {
		lo = len(l.entries)
	}
	start := len(l.entries) - n
	if start < lo {
		start = lo
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Subscribe returns a channel receiving every entry appended from now on,
// and a function that ends the subscription. A subscriber that falls more
// than buffer entries behind misses entries; Append never blocks.
func (l *Log) Subscribe(buffer int) (<-chan Entry, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Entry, buffer)

	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	l.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
			close(ch)
		})
	}
}

func (l *Log) publish(e Entry) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for id, ch := range l.subs {
		select {
		case ch <- e:
		default:
			l.logger.Warn("subscriber lagging, entry dropped", "subscriber", id, "seq", e.Seq)
		}
	}
}
