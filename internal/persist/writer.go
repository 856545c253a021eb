package persist

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 4

// Job writes one entity. It receives the writer's context, which is
// cancelled only after Close has drained every shard.
type Job func(ctx context.Context) error

// Observer receives write outcomes and queue depth changes.
type Observer interface {
	ObserveWrite(op string, err error)
	ObserveQueueDepth(depth int)
}

type nopObserver struct{}

func (nopObserver) ObserveWrite(string, error) {}
func (nopObserver) ObserveQueueDepth(int)      {}

// Option configures a Writer.
type Option func(*Writer)

// WithShards sets the number of shard workers. Values below 1 are ignored.
func WithShards(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.n = n
		}
	}
}

// WithLogger sets the logger used for failed writes.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// WithObserver reports write outcomes, typically to metrics.
func WithObserver(o Observer) Option {
	return func(w *Writer) { w.obs = o }
}

// Writer is a fire-and-forget, coalescing write queue. Safe for concurrent use.
type Writer struct {
	n      int
	shards []*shard
	logger *slog.Logger
	obs    Observer

	depth   atomic.Int64
	barrier atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New starts a Writer and its shard workers.
func New(opts ...Option) *Writer {
	w := &Writer{
		n:      DefaultShards,
		logger: slog.Default(),
		obs:    nopObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.shards = make([]*shard, w.n)
	for i := range w.shards {
		w.shards[i] = newShard()
		w.wg.Add(1)
		go w.run(w.shards[i])
	}
	return w
}

// Submit queues job for key and returns immediately. A pending job for the
// same key is replaced. Returns false if the writer is closed.
func (w *Writer) Submit(key, op string, job Job) bool {
	added, ok := w.shardFor(key).put(key, task{op: op, job: job})
	if !ok {
		return false
	}
	if added {
		w.obs.ObserveQueueDepth(int(w.depth.Add(1)))
	}
	return true
}

// Len returns the number of jobs waiting to run.
func (w *Writer) Len() int {
	return int(w.depth.Load())
}

// Flush blocks until every job submitted before the call has run, or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	done := make([]chan struct{}, 0, len(w.shards))
	for _, s := range w.shards {
		ch := make(chan struct{})
		key := "\x00flush-" + strconv.FormatUint(w.barrier.Add(1), 10)
		added, ok := s.put(key, task{barrier: ch})
		if !ok {
			continue
		}
		if added {
			w.depth.Add(1)
		}
		done = append(done, ch)
	}

	for _, ch := range done {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting jobs, runs everything still queued and waits for the
// workers to exit. Safe to call more than once.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		for _, s := range w.shards {
			s.close()
		}
		w.wg.Wait()
		w.cancel()
	})
}

func (w *Writer) shardFor(key string) *shard {
	return w.shards[xxhash.Sum64String(key)%uint64(len(w.shards))]
}

func (w *Writer) run(s *shard) {
	defer w.wg.Done()

	for {
		key, t, ok := s.take()
		if !ok {
			if s.drained() {
				return
			}
			<-s.signal
			continue
		}

		w.obs.ObserveQueueDepth(int(w.depth.Add(-1)))

		if t.barrier != nil {
			close(t.barrier)
			continue
		}

		err := t.job(w.ctx)
		w.obs.ObserveWrite(t.op, err)
		if err != nil {
			w.logger.Warn("store write failed",
				"op", t.op,
				"key", key,
				"error", err)
		}
	}
}
