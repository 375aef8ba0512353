package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/jobs"
)

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditWriter persists audit logs off the request path.
type AuditWriter struct {
	queue  *jobs.Queue[*models.AuditLog]
	store  auditStore
	logger *zap.Logger
}

// NewAuditWriter builds a writer backed by a small worker pool.
func NewAuditWriter(store auditStore, logger *zap.Logger) *AuditWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &AuditWriter{store: store, logger: logger}
	w.queue = jobs.NewQueue[*models.AuditLog]("audit", w.persist, jobs.QueueConfig{
		Workers:    2,
		BufferSize: 256,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return w
}

// Start launches the workers.
func (w *AuditWriter) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop flushes buffered entries.
func (w *AuditWriter) Stop() {
	w.queue.Stop()
}

// CreateAuditLog queues the entry. The write falls back to the caller when
// the queue cannot take it.
func (w *AuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := w.queue.Enqueue(log); err != nil {
		w.logger.Warn("audit queue unavailable, writing inline", zap.String("action", log.Action), zap.Error(err))
		return w.store.CreateAuditLog(ctx, log)
	}
	return nil
}

func (w *AuditWriter) persist(ctx context.Context, log *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return w.store.CreateAuditLog(ctx, log)
}
