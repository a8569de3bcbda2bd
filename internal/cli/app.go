package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/chatattach/internal/attachments"
	"github.com/dmitrijs2005/chatattach/internal/cache"
	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/config"
	"github.com/dmitrijs2005/chatattach/internal/cryptox"
	"github.com/dmitrijs2005/chatattach/internal/logging"
	"github.com/dmitrijs2005/chatattach/internal/models"
	"github.com/dmitrijs2005/chatattach/internal/observer"
	"github.com/dmitrijs2005/chatattach/internal/staging"
	"github.com/dmitrijs2005/chatattach/internal/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config *config.Config
	logger logging.Logger
	out    io.Writer

	svc      *attachments.Service
	area     *staging.Area
	db       *sql.DB
	registry *prometheus.Registry
	metrics  *http.Server

	mu       sync.Mutex
	messages map[string]*models.Message
}

// NewApp wires the attachment service from c. Logs go to logOut, command
// output to out.
func NewApp(ctx context.Context, c *config.Config, out, logOut io.Writer) (*App, error) {
	logger := logging.New(logOut, c.LogLevel, c.LogJSON)

	cryptor, err := newCryptor(ctx, c, out, logger)
	if err != nil {
		return nil, err
	}

	store, err := cache.New(cache.Options{
		Dir:           c.CacheDir,
		DisableDisk:   c.DisableDiskCache,
		MemoryEntries: c.MemoryCacheEntries,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	db, err := staging.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("staging database: %w", err)
	}

	area, err := staging.NewArea(db, c.StagingDir, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	presigner, err := transfer.NewS3Presigner(ctx, transfer.S3Config{
		Endpoint: c.S3Endpoint,
		Region:   c.S3Region,
		Bucket:   c.S3Bucket,
		User:     c.S3User,
		Password: c.S3Password,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store: %w", err)
	}

	engine := transfer.NewS3Engine(transfer.S3Options{
		Presigner:     presigner,
		Timeout:       c.TransferTimeout,
		MaxConcurrent: int64(c.MaxConcurrentTransfers),
		Logger:        logger,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := attachments.NewService(attachments.Options{
		Engine:     engine,
		Store:      store,
		Sender:     &logSender{logger: logger},
		Cryptor:    cryptor,
		Staging:    area,
		Logger:     logger,
		Registerer: registry,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	svc.Register(progressLogger(logger))

	a := &App{
		config:   c,
		logger:   logger,
		out:      out,
		svc:      svc,
		area:     area,
		db:       db,
		registry: registry,
		messages: make(map[string]*models.Message),
	}

	if c.MetricsAddr != "" {
		if err := a.serveMetrics(ctx, c.MetricsAddr); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func newCryptor(ctx context.Context, c *config.Config, out io.Writer, logger logging.Logger) (cryptox.Cryptor, error) {
	if !c.Encrypt {
		return cryptox.Nop{}, nil
	}

	pass, err := GetPassphrase(out)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	defer common.WipeByteArray(pass)

	if len(pass) == 0 {
		return nil, errors.New("empty passphrase")
	}

	cr, err := cryptox.NewPassphraseCryptor(pass, []byte(c.EncryptionSalt))
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "encryption enabled", "key_fingerprint", cr.Fingerprint())
	return cr, nil
}

func progressLogger(logger logging.Logger) observer.Observer {
	ctx := context.Background()
	return observer.Funcs{
		StatusChanged: func(status models.AttachmentStatus, msg models.Message) {
			logger.Info(ctx, "attachment status", "message_id", msg.ID, "status", status.String())
		},
		DownloadProgress: func(p float64, attachmentID string) {
			logger.Debug(ctx, "download progress", "attachment_id", attachmentID, "progress", p)
		},
		UploadProgress: func(p float64, messageID string) {
			logger.Debug(ctx, "upload progress", "message_id", messageID, "progress", p)
		},
	}
}

// MetricsHandler serves the service's Prometheus registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

func (a *App) serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())
	a.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(ctx, "metrics server stopped", "error", err)
		}
	}()
	a.logger.Info(ctx, "serving metrics", "addr", ln.Addr().String())
	return nil
}

// Close flushes pending events and releases the database and metrics server.
func (a *App) Close(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.svc.Flush(flushCtx); err != nil {
		a.logger.Warn(ctx, "event flush incomplete", "error", err)
	}
	a.svc.Close()

	if a.metrics != nil {
		_ = a.metrics.Shutdown(flushCtx)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(ctx, "failed to close staging database", "error", err)
	}
}

// message returns the session's message for id, creating it if needed, and
// points it at attachmentID when one is given.
func (a *App) message(id, attachmentID string) *models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg, ok := a.messages[id]
	if !ok {
		msg = &models.Message{ID: id}
		a.messages[id] = msg
	}
	if attachmentID != "" {
		if att, ok := msg.Attachment(); !ok || att.ID != attachmentID {
			msg.SetAttachment(models.Attachment{ID: attachmentID})
		}
	}
	return msg
}
