package attachments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

// fetchCall is one outstanding download shared by every waiter for the same
// attachment ID. Fields other than done are guarded by Service.mu; data and
// err are safe to read once done is closed.
type fetchCall struct {
	done   chan struct{}
	cancel context.CancelFunc
	// prev is an abandoned call for the same ID that may still be winding
	// down; the download waits for it so two never overlap.
	prev *fetchCall

	waiters  int
	messages map[string]*waitingMessage
	finished bool

	data []byte
	err  error
}

type waitingMessage struct {
	msg models.Message
	n   int
}

// Fetch returns the decrypted bytes of the message's attachment, from the
// cache when present, otherwise from the remote store. Callers must not
// modify the returned slice.
func (s *Service) Fetch(ctx context.Context, msg *models.Message) ([]byte, error) {
	att, ok := msg.Attachment()
	if !ok || !att.Uploaded() {
		return nil, common.ErrNoAttachment
	}

	if data, ok := s.store.Get(att.ID); ok {
		s.metrics.cacheLookups.WithLabelValues("hit").Inc()
		return data, nil
	}
	s.metrics.cacheLookups.WithLabelValues("miss").Inc()

	call, data, hit := s.join(ctx, att.ID, msg)
	if hit {
		return data, nil
	}

	select {
	case <-call.done:
		return call.data, call.err
	case <-ctx.Done():
		if !s.withdraw(att.ID, call, msg.ID) {
			<-call.done
			return call.data, call.err
		}
		return nil, fmt.Errorf("fetch %s: %w: %w", att.ID, common.ErrCancelled, context.Cause(ctx))
	}
}

// join attaches the caller to the in-flight download for id, starting one
// if none is running, and moves msg to Loading. The cache is checked again
// under s.mu, since a download may have finished after the caller's lookup;
// in that case join reports a hit and registers nothing.
func (s *Service) join(ctx context.Context, id string, msg *models.Message) (*fetchCall, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[id]
	if ok && call.waiters > 0 {
		s.metrics.waitersJoined.Inc()
	} else {
		if data, hit := s.store.Get(id); hit {
			return nil, data, true
		}
		dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &fetchCall{
			done:     make(chan struct{}),
			cancel:   cancel,
			prev:     call,
			messages: make(map[string]*waitingMessage),
		}
		s.calls[id] = call
		s.metrics.inflight.Inc()
		go s.download(dctx, id, call)
	}

	call.waiters++
	w, ok := call.messages[msg.ID]
	if !ok {
		w = &waitingMessage{msg: snapshot(msg)}
		call.messages[msg.ID] = w
	}
	w.n++

	s.setStatus(msg, models.StatusLoading)
	return call, nil, false
}

// withdraw removes one waiter. It reports false when the call has already
// finished, in which case the caller should take its result instead. The
// download is cancelled when the last waiter leaves.
func (s *Service) withdraw(id string, call *fetchCall, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if call.finished {
		return false
	}

	call.waiters--
	if w, ok := call.messages[messageID]; ok {
		w.n--
		if w.n == 0 {
			delete(call.messages, messageID)
			s.setStatus(&w.msg, models.StatusError)
		}
	}

	if call.waiters == 0 {
		call.cancel()
		s.logger.Debug(context.Background(), "download abandoned", "attachment_id", id)
	}
	return true
}

func (s *Service) download(ctx context.Context, id string, call *fetchCall) {
	var (
		data   []byte
		err    error
		cached bool
	)

	// The abandoned download may have completed and cached the bytes.
	if call.prev != nil {
		select {
		case <-call.prev.done:
		case <-ctx.Done():
		}
		call.prev = nil
		data, cached = s.store.Get(id)
	}

	if !cached {
		data, err = s.fetchRemote(ctx, id)
		s.metrics.downloads.WithLabelValues(resultLabel(err)).Inc()
		if err != nil {
			s.logger.Warn(ctx, "fetch failed", "attachment_id", id, "error", err)
		}
	}
	call.cancel()
	s.metrics.inflight.Dec()

	s.finish(id, call, data, err)
}

func (s *Service) fetchRemote(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &common.TransportError{Op: "download", Kind: common.TransportCancelled, Err: err}
	}

	raw, err := s.engine.Download(ctx, id, func(p float64) {
		s.hub.DownloadProgress(p, id)
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", id, err)
	}

	plain, err := s.cryptor.Decrypt(raw)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w: %w", id, common.ErrDecryptionFailure, err)
	}

	if err := s.store.Put(id, plain); err != nil {
		s.logger.Warn(ctx, "failed to cache attachment", "attachment_id", id, "error", err)
	}
	return plain, nil
}

// finish resolves every remaining waiter and sets their final status.
func (s *Service) finish(id string, call *fetchCall, data []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls[id] == call {
		delete(s.calls, id)
	}

	status := models.StatusLoaded
	if err != nil {
		status = models.StatusError
	}
	for _, w := range call.messages {
		s.setStatus(&w.msg, status)
	}

	call.finished = true
	call.data, call.err = data, err
	close(call.done)
}

// inFlight reports how many attachment IDs have a download registered.
func (s *Service) inFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
