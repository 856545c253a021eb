package persist

import "sync"

type task struct {
	op      string
	job     Job
	barrier chan struct{}
}

// shard is a FIFO of keys with at most one pending task per key.
//
// The signal channel is buffered with size 1 so multiple puts coalesce into
// one wakeup; close closes it to wake the worker for the final drain.
type shard struct {
	mu      sync.Mutex
	keys    []string
	pending map[string]task
	closed  bool
	signal  chan struct{}
}

func newShard() *shard {
	return &shard{
		keys:    make([]string, 0, 64),
		pending: make(map[string]task),
		signal:  make(chan struct{}, 1),
	}
}

// put queues t under key, replacing a task still pending for key.
// added reports whether the queue grew; ok is false once the shard is closed.
func (s *shard) put(key string, t task) (added, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}

	if _, exists := s.pending[key]; exists {
		s.pending[key] = t
		return false, true
	}

	s.pending[key] = t
	s.keys = append(s.keys, key)

	select {
	case s.signal <- struct{}{}:
	default:
	}
	return true, true
}

// take removes the oldest key and returns its latest task.
func (s *shard) take() (string, task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) == 0 {
		return "", task{}, false
	}

	key := s.keys[0]
	s.keys[0] = ""
	if len(s.keys) == 1 {
		s.keys = s.keys[:0]
	} else {
		s.keys = s.keys[1:]
	}

	t := s.pending[key]
	delete(s.pending, key)
	return key, t, true
}

func (s *shard) drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed && len(s.keys) == 0
}

func (s *shard) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.signal)
}
