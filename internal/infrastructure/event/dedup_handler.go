package event

import (
	"context"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultDedupTTL = 24 * time.Hour

// DedupHandler wraps a handler so each event id is handled at most once while
// its claim lives. A failed delivery releases the claim so a redelivery is
// handled again.
type DedupHandler struct {
	next   shared.EventHandler
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewDedupHandler wraps next. A non-positive ttl uses 24h.
func NewDedupHandler(next shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *DedupHandler {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupHandler{next: next, store: store, ttl: ttl, logger: logger}
}

// EventTypes returns the wrapped handler's event types
func (h *DedupHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle claims the event id and forwards the event. When the store is
// unavailable the event is handled anyway.
func (h *DedupHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	key := "event:" + ev.EventID().String()

	claimed, err := h.store.Claim(ctx, key, h.ttl)
	if err != nil {
		h.logger.Warn("Event dedup check failed, handling anyway",
			zap.String("event_id", ev.EventID().String()),
			zap.Error(err))
		return h.next.Handle(ctx, ev)
	}
	if !claimed {
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_id", ev.EventID().String()),
			zap.String("event_type", ev.EventType()))
		return nil
	}

	if err := h.next.Handle(ctx, ev); err != nil {
		if relErr := h.store.Release(ctx, key); relErr != nil {
			h.logger.Warn("Failed to release event claim", zap.String("key", key), zap.Error(relErr))
		}
		return err
	}
	return nil
}

var _ shared.EventHandler = (*DedupHandler)(nil)
