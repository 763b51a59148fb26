// Package worker consumes analysis lifecycle events off the bus and
// records the run history. Persistence happens off the request path,
// so a slow database never delays an upload response.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ringsight/ringsight/internal/domain"
)

// Worker subscribes to completed-analysis events and writes each one
// to the run-history repository.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository
	log  *slog.Logger

	subscription domain.Subscription
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorker creates an unstarted worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, log *slog.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes the worker to the analysis-completed topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAnalysisCompleted, w.handleCompleted)
	if err != nil {
		return err
	}
	w.subscription = sub

	w.log.Info("run-history worker started",
		"topic", domain.TopicAnalysisCompleted,
	)
	return nil
}

func (w *Worker) handleCompleted(ctx context.Context, msg *domain.Message) error {
	var event domain.AnalysisCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.log.Error("malformed analysis event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	run := &domain.AnalysisRun{
		Token:             event.Token,
		CreatedAt:         time.Unix(0, msg.Timestamp).UTC(),
		RowsAccepted:      event.RowsAccepted,
		TotalAccounts:     event.TotalAccounts,
		FlaggedAccounts:   event.FlaggedAccounts,
		Rings:             event.Rings,
		ProcessingSeconds: event.ProcessingSeconds,
		Partial:           event.Partial,
	}
	if err := w.repo.SaveRun(ctx, run); err != nil {
		w.log.Error("failed to persist run",
			"token", event.Token,
			"error", err,
		)
		return err
	}

	w.log.Info("run persisted",
		"token", event.Token,
		"flagged", event.FlaggedAccounts,
		"rings", event.Rings,
	)
	return nil
}

// Stop unsubscribes and halts processing.
func (w *Worker) Stop() {
	if w.subscription != nil {
		_ = w.subscription.Unsubscribe()
	}
	w.cancel()
}
