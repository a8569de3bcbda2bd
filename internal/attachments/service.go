package attachments

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dmitrijs2005/chatattach/internal/cache"
	"github.com/dmitrijs2005/chatattach/internal/cryptox"
	"github.com/dmitrijs2005/chatattach/internal/logging"
	"github.com/dmitrijs2005/chatattach/internal/models"
	"github.com/dmitrijs2005/chatattach/internal/observer"
	"github.com/dmitrijs2005/chatattach/internal/transfer"
	"github.com/prometheus/client_golang/prometheus"
)

// Sender delivers a message whose attachment has been uploaded.
type Sender interface {
	Send(ctx context.Context, msg *models.Message) error
}

// Stager keeps outgoing binaries on local disk until they are uploaded.
// staging.Area implements it.
type Stager interface {
	Stage(ctx context.Context, messageID string, data []byte, mimeType string) (*models.StagedAttachment, error)
	Load(ctx context.Context, messageID string) ([]byte, *models.StagedAttachment, error)
	MarkUploaded(ctx context.Context, messageID, attachmentID string) error
}

// Options configures NewService. Engine, Store and Sender are required.
type Options struct {
	Engine  transfer.Engine
	Store   cache.Store
	Sender  Sender
	Cryptor cryptox.Cryptor
	Staging Stager
	// Hub receives status and progress events. When nil the service creates
	// its own and closes it in Close.
	Hub        *observer.Hub
	Logger     logging.Logger
	Registerer prometheus.Registerer
}

var (
	errNoEngine = errors.New("attachments: transfer engine is required")
	errNoStore  = errors.New("attachments: cache store is required")
	errNoSender = errors.New("attachments: sender is required")
)

type Service struct {
	engine  transfer.Engine
	store   cache.Store
	sender  Sender
	cryptor cryptox.Cryptor
	staging Stager
	hub     *observer.Hub
	ownHub  bool
	logger  logging.Logger
	metrics *Metrics

	statusMu sync.Mutex
	statuses map[string]models.AttachmentStatus

	mu    sync.Mutex
	calls map[string]*fetchCall
}

func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Engine == nil:
		return nil, errNoEngine
	case opts.Store == nil:
		return nil, errNoStore
	case opts.Sender == nil:
		return nil, errNoSender
	}

	s := &Service{
		engine:   opts.Engine,
		store:    opts.Store,
		sender:   opts.Sender,
		cryptor:  opts.Cryptor,
		staging:  opts.Staging,
		hub:      opts.Hub,
		logger:   opts.Logger,
		metrics:  NewMetrics(opts.Registerer),
		statuses: make(map[string]models.AttachmentStatus),
		calls:    make(map[string]*fetchCall),
	}
	if s.cryptor == nil {
		s.cryptor = cryptox.Nop{}
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.hub == nil {
		s.hub = observer.NewHub(s.logger)
		s.ownHub = true
	}
	return s, nil
}

// Register subscribes o to status and progress events.
func (s *Service) Register(o observer.Observer) (unsubscribe func()) {
	return s.hub.Register(o)
}

// Flush waits until every event published so far has been delivered.
func (s *Service) Flush(ctx context.Context) error {
	return s.hub.Flush(ctx)
}

// Close stops event delivery if the service created its own hub. A service
// built without Options.Hub runs a dispatcher goroutine until Close is called.
func (s *Service) Close() {
	if s.ownHub {
		s.hub.Close()
	}
}

// Status returns the attachment status of a message; NotLoaded if the
// service has never touched it.
func (s *Service) Status(messageID string) models.AttachmentStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.statuses[messageID]
}

// Forget drops the status entry of a message whose last send or fetch has
// ended, so the table does not grow with every message ever seen. It reports
// false and keeps the entry while an operation is still Loading.
func (s *Service) Forget(messageID string) bool {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if status, ok := s.statuses[messageID]; ok && !status.Terminal() {
		return false
	}
	delete(s.statuses, messageID)
	return true
}

// ClearCache empties the cache store. In-flight downloads are unaffected.
func (s *Service) ClearCache() error {
	return s.store.Clear()
}

// setStatus records status for msg and publishes it unless unchanged.
// Publishing happens under the lock so events reach the hub in table order.
func (s *Service) setStatus(msg *models.Message, status models.AttachmentStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if s.statuses[msg.ID] == status {
		return
	}
	s.statuses[msg.ID] = status
	s.hub.StatusChanged(status, snapshot(msg))
}

func snapshot(msg *models.Message) models.Message {
	c := *msg
	c.Attachments = slices.Clone(msg.Attachments)
	return c
}
