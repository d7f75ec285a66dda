package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wealthwise/internal/amqp"
	"wealthwise/internal/core"
	"wealthwise/internal/goals"
	"wealthwise/internal/sheets"
	"wealthwise/internal/storage"
)

// ExportWorker mirrors the goal collection to a spreadsheet. Every event
// carries the full collection, so the newest event wins and older ones
// that arrive late are acknowledged without exporting.
type ExportWorker struct {
	exporter sheets.GoalExporter
	logger   *slog.Logger

	mu           sync.Mutex
	lastExported time.Time
}

func NewExportWorker(exporter sheets.GoalExporter, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{
		exporter: exporter,
		logger:   logger.With("component", "export_worker"),
	}
}

// HandleGoalEvent processes a single goal event message from AMQP. A
// returned error makes the consumer requeue the message.
func (w *ExportWorker) HandleGoalEvent(ctx context.Context, msg *amqp.GoalEventMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if msg.Timestamp.Before(w.lastExported) {
		w.logger.InfoContext(ctx, "Skipping stale goal event",
			"op", msg.Op,
			"goal_id", msg.GoalID,
			"timestamp", msg.Timestamp,
			"last_exported", w.lastExported)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing goal event",
		"op", msg.Op,
		"goal_id", msg.GoalID,
		"goals", len(msg.Goals))

	if err := w.exporter.ExportGoals(ctx, msg.Goals); err != nil {
		return fmt.Errorf("export goals: %w", err)
	}
	w.lastExported = msg.Timestamp

	w.logger.InfoContext(ctx, "Successfully exported goals",
		"op", msg.Op,
		"goals", len(msg.Goals),
		"timestamp", msg.Timestamp)
	return nil
}

// StartupExport exports the collection currently held in store. It
// recovers from events missed while the worker was down. An absent slot
// exports an empty table; a corrupt one is reported and left alone.
func (w *ExportWorker) StartupExport(ctx context.Context, store storage.Store, key string) error {
	// Events stamped before the read are covered by the snapshot.
	startedAt := time.Now().UTC()
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read goal collection: %w", err)
	}

	collection := []core.Goal{}
	if found {
		if collection, err = goals.Decode(raw); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.exporter.ExportGoals(ctx, collection); err != nil {
		return fmt.Errorf("export goals on startup: %w", err)
	}
	if startedAt.After(w.lastExported) {
		w.lastExported = startedAt
	}

	w.logger.InfoContext(ctx, "Startup export completed", "goals", len(collection), "key", key)
	return nil
}

// LastExported returns the timestamp of the most recent export.
func (w *ExportWorker) LastExported() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastExported
}
