package listeners

import (
	"context"
	"fmt"

	"warehouse-system/internal/events"
	"warehouse-system/pkg/eventbus"

	"go.uber.org/zap"
)

// StatsInvalidator - то, что слушателю нужно от сервиса открытых заказов.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

// Notifier рассылает событие подключённым клиентам.
type Notifier interface {
	Broadcast(ctx context.Context, messageType string, payload interface{}) error
}

type OpenOrderListener struct {
	stats    StatsInvalidator
	notifier Notifier
	logger   *zap.Logger
}

// NewOpenOrderListener: notifier может быть nil.
func NewOpenOrderListener(stats StatsInvalidator, notifier Notifier, logger *zap.Logger) *OpenOrderListener {
	return &OpenOrderListener{stats: stats, notifier: notifier, logger: logger}
}

func (l *OpenOrderListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.OpenOrdersImportedName, l.handleImported)
}

func (l *OpenOrderListener) handleImported(ctx context.Context, e eventbus.Event) error {
	event, ok := e.(events.OpenOrdersImportedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", e)
	}
	if err := l.stats.InvalidateStats(ctx); err != nil {
		return fmt.Errorf("сброс кеша счётчиков после загрузки %d: %w", event.UploadID, err)
	}
	l.logger.Info("Загрузка открытых заказов обработана",
		zap.Uint64("upload_id", event.UploadID),
		zap.String("by", event.UploadedBy),
		zap.String("file", event.SourceFilename),
		zap.Int("new", event.NewCount),
		zap.Int("completed", event.CompletedCount),
		zap.Int("reopened", event.ReopenedCount),
		zap.Int("changed", event.ChangedCount),
	)

	if l.notifier != nil {
		// рассылка не критична: кеш уже сброшен
		if err := l.notifier.Broadcast(ctx, events.OpenOrdersImportedName, importedPayload(event)); err != nil {
			l.logger.Warn("не удалось разослать уведомление о загрузке", zap.Uint64("upload_id", event.UploadID), zap.Error(err))
		}
	}
	return nil
}

func importedPayload(e events.OpenOrdersImportedEvent) map[string]interface{} {
	return map[string]interface{}{
		"upload_id":       e.UploadID,
		"uploaded_by":     e.UploadedBy,
		"source_filename": e.SourceFilename,
		"uploaded_at":     e.UploadedAt,
		"new_count":       e.NewCount,
		"completed_count": e.CompletedCount,
		"reopened_count":  e.ReopenedCount,
		"changed_count":   e.ChangedCount,
		"skipped_count":   e.SkippedCount,
	}
}
