package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"
)

// DateFolderFormat lays logs out by day: YYYY/MM/DD
const DateFolderFormat = "%d/%02d/%02d"

func FormatDateFolder(year int, month int, day int) string {
	return fmt.Sprintf(DateFolderFormat, year, month, day)
}

// maxBatch is the append block limit. A batch is cut before a record would
// cross it; a single record larger than the limit goes out on its own.
const maxBatch = 4 << 20

// Appender writes a batch of JSON lines to the named log object.
type Appender interface {
	Append(ctx context.Context, name string, data []byte) error
}

type Config struct {
	Level      slog.Leveler
	FlushEvery time.Duration // default 2s
	Prefix     string        // object name inside the day folder, default hostname
}

// Handler is a slog.Handler that batches records as JSON lines and ships
// them to an Appender from a background loop. Handle never blocks on I/O.
type Handler struct {
	sink   *sink
	level  slog.Leveler
	attrs  []scopedAttr
	groups []string
}

// scopedAttr remembers the groups that were open when the attr was added.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

var _ slog.Handler = (*Handler)(nil)

type sink struct {
	appender Appender
	prefix   string
	now      func() time.Time

	limit int

	mu     sync.Mutex
	full   [][]byte
	buf    []byte
	closed bool

	kick   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	ticker *time.Ticker
}

func New(appender Appender, cfg Config) *Handler {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 2 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix, _ = os.Hostname()
	}
	if cfg.Level == nil {
		cfg.Level = slog.LevelInfo
	}
	s := &sink{
		appender: appender,
		prefix:   cfg.Prefix,
		now:      time.Now,
		limit:    maxBatch,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		ticker:   time.NewTicker(cfg.FlushEvery),
	}
	go s.loop()
	return &Handler{sink: s, level: cfg.Level}
}

// Close flushes what is buffered and stops the background loop.
func (h *Handler) Close() error {
	h.sink.mu.Lock()
	if h.sink.closed {
		h.sink.mu.Unlock()
		return nil
	}
	h.sink.closed = true
	h.sink.mu.Unlock()

	close(h.sink.stop)
	<-h.sink.done
	return nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ev := map[string]any{
		"ts":    ts.UTC().Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}

	for _, sa := range h.attrs {
		addAttr(nested(ev, sa.groups), sa.attr)
	}
	target := nested(ev, h.groups)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return err
	}
	return h.sink.add(b.Bytes())
}

func nested(m map[string]any, groups []string) map[string]any {
	for _, g := range groups {
		child, ok := m[g].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[g] = child
		}
		m = child
	}
	return m
}

func addAttr(m map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() != slog.KindGroup {
		if err, ok := a.Value.Any().(error); ok {
			m[a.Key] = err.Error()
			return
		}
		m[a.Key] = a.Value.Any()
		return
	}
	group := m
	if a.Key != "" {
		group = map[string]any{}
		m[a.Key] = group
	}
	for _, ga := range a.Value.Group() {
		addAttr(group, ga)
	}
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, scopedAttr{groups: h.groups, attr: a})
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(slices.Clone(h.groups), name)
	return &h2
}

func (s *sink) add(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if len(s.buf) > 0 && len(s.buf)+len(line) > s.limit {
		s.full = append(s.full, s.buf)
		s.buf = nil
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	s.buf = append(s.buf, line...)
	return nil
}

func (s *sink) take() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	batches := s.full
	if len(s.buf) > 0 {
		batches = append(batches, s.buf)
	}
	s.full = nil
	s.buf = nil
	return batches
}

func (s *sink) flush() {
	batches := s.take()
	if len(batches) == 0 {
		return
	}
	now := s.now().UTC()
	name := FormatDateFolder(now.Year(), int(now.Month()), now.Day()) + "/" + s.prefix + ".jsonl"
	for _, batch := range batches {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.appender.Append(ctx, name, batch)
		cancel()
		if err != nil {
			// the default logger may route back here; write straight to stderr
			fmt.Fprintf(os.Stderr, "logsink: dropped %d bytes: %v\n", len(batch), err)
		}
	}
}

func (s *sink) loop() {
	defer close(s.done)
	defer s.ticker.Stop()
	for {
		select {
		case <-s.stop:
			s.flush()
			return
		case <-s.kick:
			s.flush()
		case <-s.ticker.C:
			s.flush()
		}
	}
}
