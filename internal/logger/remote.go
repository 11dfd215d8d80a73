package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultRemoteBuffer       = 1024
	defaultRemoteFlushTimeout = 5 * time.Second
)

// RemoteOptions configures the queue in front of the remote log sink.
type RemoteOptions struct {
	BufferSize   int
	FlushTimeout time.Duration
}

// RemoteStats counts records that never reached the remote sink.
type RemoteStats struct {
	// BufferFull records were dropped because the queue was full, usually
	// while the sink is slow during a burst of chat traffic.
	BufferFull uint64
	// Closed records arrived after Shutdown.
	Closed uint64
	// Failed records were rejected by the sink itself.
	Failed uint64
}

type queued struct {
	ctx    context.Context
	record slog.Record
	sink   slog.Handler
}

// remoteQueue is shared by every handler derived through WithAttrs and
// WithGroup, so one goroutine ships all records in order.
type remoteQueue struct {
	records      chan queued
	flushTimeout time.Duration
	done         chan struct{}

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool

	bufferFull atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64
}

func newRemoteQueue(opts RemoteOptions) *remoteQueue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultRemoteBuffer
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultRemoteFlushTimeout
	}
	q := &remoteQueue{
		records:      make(chan queued, opts.BufferSize),
		flushTimeout: opts.FlushTimeout,
		done:         make(chan struct{}),
	}
	go q.ship()
	return q
}

func (q *remoteQueue) ship() {
	defer close(q.done)
	for item := range q.records {
		if err := item.sink.Handle(item.ctx, item.record); err != nil {
			q.failed.Add(1)
		}
	}
}

func (q *remoteQueue) push(item queued) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.records <- item:
	default:
		q.bufferFull.Add(1)
	}
}

func (q *remoteQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.records)
	q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RemoteHandler queues records for a slow sink such as Better Stack so
// handlers answering chats never wait on the network. Records are dropped,
// and counted, when the queue is full.
type RemoteHandler struct {
	queue *remoteQueue
	sink  slog.Handler
}

// NewRemoteHandler starts the shipping goroutine for sink.
func NewRemoteHandler(sink slog.Handler, opts RemoteOptions) *RemoteHandler {
	return &RemoteHandler{queue: newRemoteQueue(opts), sink: sink}
}

func (h *RemoteHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.sink.Enabled(ctx, level)
}

// Handle never blocks and never fails.
func (h *RemoteHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.sink.Enabled(ctx, r.Level) {
		h.queue.push(queued{ctx: ctx, record: r.Clone(), sink: h.sink})
	}
	return nil
}

func (h *RemoteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RemoteHandler{queue: h.queue, sink: h.sink.WithAttrs(attrs)}
}

func (h *RemoteHandler) WithGroup(name string) slog.Handler {
	return &RemoteHandler{queue: h.queue, sink: h.sink.WithGroup(name)}
}

// Stats reports how many records were lost so far.
func (h *RemoteHandler) Stats() RemoteStats {
	if h == nil {
		return RemoteStats{}
	}
	return RemoteStats{
		BufferFull: h.queue.bufferFull.Load(),
		Closed:     h.queue.dropped.Load(),
		Failed:     h.queue.failed.Load(),
	}
}

// Shutdown ships what is queued, waiting at most until ctx is done or the
// flush timeout passes when ctx has no deadline.
func (h *RemoteHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.queue.close(ctx)
}
