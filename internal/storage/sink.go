package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"velocityFee/internal/model"
	"velocityFee/internal/storage/postgres"
)

// EventSink receives tier engine events.
type EventSink interface {
	Publish(event model.TierEvent)
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(event model.TierEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(event)
		}
	}
}

// PgEventSink writes tier engine events to the tier_events table.
// Insert failures are logged rather than surfaced.
type PgEventSink struct {
	store   *postgres.Store
	logger  *zap.Logger
	timeout time.Duration
}

func NewPgEventSink(store *postgres.Store, logger *zap.Logger) *PgEventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PgEventSink{store: store, logger: logger, timeout: 5 * time.Second}
}

func (s *PgEventSink) Publish(event model.TierEvent) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.InsertTierEvents(ctx, []model.TierEvent{event}); err != nil {
		s.logger.Warn("insert tier event", zap.Error(err), zap.String("pool", event.Pool))
	}
}
