package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

// Enqueuer is the subset of *asynq.Client used by EventNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EventNotifier turns domain events into asynq tasks. It implements events.Notifier.
type EventNotifier struct {
	Client    Enqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// Notify enqueues a task for topics that have one. The event id doubles as
// the task id, so an event is queued at most once.
func (n EventNotifier) Notify(ctx context.Context, ev events.Event) error {
	if n.Client == nil {
		return errors.New("queue: client not configured")
	}
	typename, ok := TaskTypeFor(ev.Topic)
	if !ok {
		return nil
	}
	queueName := n.Queue
	if queueName == "" {
		queueName = DefaultQueue
	}
	maxRetry := n.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 10
	}
	opts := []asynq.Option{asynq.Queue(queueName), asynq.MaxRetry(maxRetry)}
	if ev.ID != "" {
		opts = append(opts, asynq.TaskID(ev.ID))
	}
	if n.Retention > 0 {
		opts = append(opts, asynq.Retention(n.Retention))
	}
	payload := []byte(ev.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := n.Client.EnqueueContext(ctx, asynq.NewTask(typename, payload), opts...)
	switch {
	case err == nil:
		obs.TasksEnqueuedTotal.WithLabelValues(typename, "ok").Inc()
		return nil
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		obs.TasksEnqueuedTotal.WithLabelValues(typename, "duplicate").Inc()
		return nil
	default:
		obs.TasksEnqueuedTotal.WithLabelValues(typename, "error").Inc()
		return fmt.Errorf("queue: enqueue %s: %w", typename, err)
	}
}
