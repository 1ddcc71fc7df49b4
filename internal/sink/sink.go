package sink

import (
	"context"
	"errors"
	"fmt"

	"geoalert/internal/models"
	"geoalert/internal/providers"
	"geoalert/internal/storage"
)

// AlertSink receives every alert the engine produces. Emit may be called
// concurrently for different trackers.
type AlertSink interface {
	Emit(ctx context.Context, alert models.Alert) error
}

type HistorySink struct {
	store storage.AlertStore
}

func NewHistorySink(store storage.AlertStore) *HistorySink {
	return &HistorySink{store: store}
}

func (h *HistorySink) Emit(ctx context.Context, alert models.Alert) error {
	if err := h.store.AppendAlert(ctx, alert); err != nil {
		return fmt.Errorf("store alert %s: %w", alert.ID, err)
	}
	return nil
}

type LogSink struct {
	logger providers.Logger
}

func NewLogSink(logger providers.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Emit(_ context.Context, alert models.Alert) error {
	l.logger.Infof(providers.TypeEngine, "alert %s [%s] tracker=%s: %s - %s",
		alert.ID, alert.Type, alert.TrackerID, alert.Title, alert.Message)
	return nil
}

// Fanout delivers to every sink in order, even after a failure, and joins
// the errors.
type Fanout struct {
	sinks []AlertSink
}

func NewFanout(sinks ...AlertSink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Emit(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Emit(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewAlertSink is the default wiring: persisted history plus the engine log.
func NewAlertSink(store storage.Store, logger providers.Logger) AlertSink {
	return NewFanout(NewHistorySink(store), NewLogSink(logger))
}
