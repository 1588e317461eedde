package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// Forwarder is the collaborator that actually relays matched messages.
// Implementations own delivery; this module only records tasks and reports
// their outcome.
type Forwarder interface {
	// Enqueue hands one task and its message to the collaborator. A nil
	// return marks the task sent; an error marks it failed with the error
	// text as reason.
	Enqueue(ctx context.Context, task *core.ForwardTask, msg *core.Message) error
}

// DefaultDrainInterval is how often the worker polls for pending tasks when
// no interval is configured.
const DefaultDrainInterval = 5 * time.Second

const defaultDrainBatch = 50

// ForwardWorker drains pending forward tasks to a Forwarder in the
// background. Tasks stay pending across restarts until a drain pass settles
// them, so a crash between match and delivery loses nothing.
type ForwardWorker struct {
	forwards  storage.ForwardTaskRepository
	messages  storage.MessageRepository
	forwarder Forwarder
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewForwardWorker creates a worker over the task and message repositories.
// Non-positive interval or batch size select the defaults.
func NewForwardWorker(forwards storage.ForwardTaskRepository, messages storage.MessageRepository, forwarder Forwarder, interval time.Duration, batchSize int) *ForwardWorker {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	if batchSize <= 0 {
		batchSize = defaultDrainBatch
	}
	return &ForwardWorker{
		forwards:  forwards,
		messages:  messages,
		forwarder: forwarder,
		interval:  interval,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "forward-worker"),
	}
}

// Drain performs one pass: it lists pending tasks oldest first, hands each to
// the forwarder and records the outcome. It returns the number of tasks
// marked sent. Per-task failures are recorded and do not stop the pass.
func (w *ForwardWorker) Drain(ctx context.Context) (int, error) {
	if w.forwarder == nil {
		return 0, ErrNoForwarder
	}

	pending, err := w.forwards.ListPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		msg, err := w.messages.Get(ctx, task.MessageId)
		if err != nil {
			w.logger.Error("pending task references missing message",
				"task_id", task.Id, "message_id", task.MessageId, "err", err)
			if markErr := w.forwards.MarkFailed(ctx, task.Id, "message not found"); markErr != nil {
				w.logger.Error("failed to mark task failed", "task_id", task.Id, "err", markErr)
			}
			continue
		}

		if err := w.forwarder.Enqueue(ctx, task, msg); err != nil {
			w.logger.Warn("forward delivery failed", "task_id", task.Id, "err", err)
			if markErr := w.forwards.MarkFailed(ctx, task.Id, err.Error()); markErr != nil {
				w.logger.Error("failed to mark task failed", "task_id", task.Id, "err", markErr)
			}
			continue
		}

		if err := w.forwards.MarkSent(ctx, task.Id); err != nil {
			w.logger.Error("failed to mark task sent", "task_id", task.Id, "err", err)
			continue
		}
		sent++
	}

	return sent, nil
}

// Start begins periodic draining until Stop is called or ctx is cancelled.
// Drain errors are logged and retried on the next tick.
func (w *ForwardWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return // already running
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := w.Drain(runCtx); err != nil && runCtx.Err() == nil {
					w.logger.Error("drain pass failed", "err", err)
				}
			}
		}
	}()
}

// Stop halts the periodic drain and waits for the loop to exit.
func (w *ForwardWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
