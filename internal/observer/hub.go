package observer

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chatattach/internal/logging"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

type eventKind int

const (
	eventStatus eventKind = iota
	eventDownload
	eventUpload
	eventBarrier
)

type event struct {
	kind     eventKind
	status   models.AttachmentStatus
	msg      models.Message
	progress float64
	id       string
	barrier  chan struct{}
}

// Hub is the notification channel. The zero value is not usable; use NewHub.
type Hub struct {
	logger logging.Logger

	mu        sync.Mutex
	observers map[uint64]Observer
	nextID    uint64
	queue     []event
	closed    bool

	wake chan struct{}
	done chan struct{}
}

func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Hub{
		logger:    logger,
		observers: make(map[uint64]Observer),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds o and returns the function that removes it. The hub holds o
// only until unsubscribe is called; events already being delivered may still
// reach it.
func (h *Hub) Register(o Observer) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.observers[id] = o
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.observers, id)
			h.mu.Unlock()
		})
	}
}

// Len returns the number of registered observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

func (h *Hub) StatusChanged(status models.AttachmentStatus, msg models.Message) {
	h.enqueue(event{kind: eventStatus, status: status, msg: msg})
}

func (h *Hub) DownloadProgress(progress float64, attachmentID string) {
	h.enqueue(event{kind: eventDownload, progress: progress, id: attachmentID})
}

func (h *Hub) UploadProgress(progress float64, messageID string) {
	h.enqueue(event{kind: eventUpload, progress: progress, id: messageID})
}

func (h *Hub) enqueue(e event) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.queue = append(h.queue, e)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every event published before the call has been
// delivered, or ctx is done.
func (h *Hub) Flush(ctx context.Context) error {
	b := make(chan struct{})
	if !h.enqueue(event{kind: eventBarrier, barrier: b}) {
		return nil
	}
	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close delivers what is queued, then stops the dispatcher. Later events are
// dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		<-h.done
		return
	}
	h.closed = true
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		h.mu.Lock()
		batch := h.queue
		h.queue = nil
		closed := h.closed
		h.mu.Unlock()

		for _, e := range batch {
			h.dispatch(e)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-h.wake
	}
}

func (h *Hub) snapshot() []Observer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Observer, 0, len(h.observers))
	for _, o := range h.observers {
		out = append(out, o)
	}
	return out
}

func (h *Hub) dispatch(e event) {
	if e.kind == eventBarrier {
		close(e.barrier)
		return
	}
	for _, o := range h.snapshot() {
		h.deliver(o, e)
	}
}

func (h *Hub) deliver(o Observer, e event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error(context.Background(), "observer panicked", "panic", fmt.Sprint(r), "event", e.kind)
		}
	}()

	switch e.kind {
	case eventStatus:
		o.OnAttachmentStatusChanged(e.status, e.msg)
	case eventDownload:
		o.OnDownloadProgress(e.progress, e.id)
	case eventUpload:
		o.OnUploadProgress(e.progress, e.id)
	}
}
