// Package persist mirrors registry mutations to the record store in the
// background.
package persist

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/store"
)

type jobKind int

const (
	jobUpsert jobKind = iota
	jobDelete
	jobArchive
)

type job struct {
	kind    jobKind
	machine inventory.Machine
	id      string
	archive inventory.Archive
}

func (j job) key() string {
	switch j.kind {
	case jobUpsert:
		return j.machine.ID
	case jobArchive:
		return "archive/" + j.archive.EntityID
	}
	return j.id
}

// queue is an unbounded FIFO so enqueueing never blocks the registry.
type queue struct {
	mu     sync.Mutex
	items  []job
	ready  chan struct{}
	closed bool
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(j job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, j)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// pop returns the next job, or false once the queue is closed and drained.
func (q *queue) pop(ctx context.Context) (job, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			j := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return j, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return job{}, false
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return job{}, false
		}
	}
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Writer is an inventory.Sink that writes to a store.Store from a pool of
// workers. Writes for the same machine are applied in order by the same
// worker. Failures are logged and dropped.
type Writer struct {
	store   store.Store
	owner   string
	timeout time.Duration
	shards  []*queue
	wg      sync.WaitGroup
}

// NewWriter creates a writer with size workers.
func NewWriter(size int, s store.Store, ownerID string, timeout time.Duration) *Writer {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	w := &Writer{store: s, owner: ownerID, timeout: timeout}
	for i := 0; i < size; i++ {
		w.shards = append(w.shards, newQueue())
	}
	return w
}

// Start launches the worker goroutines.
func (w *Writer) Start(ctx context.Context) {
	for i, q := range w.shards {
		w.wg.Add(1)
		go w.worker(ctx, i, q)
	}
}

// Close stops accepting writes and waits for queued ones to finish.
func (w *Writer) Close() {
	for _, q := range w.shards {
		q.close()
	}
	w.wg.Wait()
}

func (w *Writer) worker(ctx context.Context, id int, q *queue) {
	defer w.wg.Done()
	logger.Debugf(ctx, "persist worker %d started", id)
	for {
		j, ok := q.pop(ctx)
		if !ok {
			logger.Debugf(ctx, "persist worker %d shutting down", id)
			return
		}
		w.apply(ctx, j)
	}
}

func (w *Writer) apply(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobUpsert:
		err = w.store.Upsert(ctx, w.owner, j.machine)
	case jobDelete:
		err = w.store.Delete(ctx, w.owner, j.id)
	case jobArchive:
		err = w.store.Archive(ctx, w.owner, j.archive)
	}
	if err != nil {
		logger.Errorf(ctx, "persist %s failed: %v", j.key(), err)
	}
}

func (w *Writer) dispatch(j job) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(j.key()))
	q := w.shards[int(h.Sum32()%uint32(len(w.shards)))]
	if !q.push(j) {
		logger.Warnf(context.Background(), "persist writer closed, dropping write for %s", j.key())
	}
}

func (w *Writer) Upsert(m inventory.Machine) {
	w.dispatch(job{kind: jobUpsert, machine: m.Clone()})
}

func (w *Writer) Delete(id string) {
	w.dispatch(job{kind: jobDelete, id: id})
}

func (w *Writer) Archive(a inventory.Archive) {
	w.dispatch(job{kind: jobArchive, archive: a})
}

var _ inventory.Sink = (*Writer)(nil)
