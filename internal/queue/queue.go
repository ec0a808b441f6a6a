package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"qa-ensemble/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeAnswerBatch TaskType = "answer_batch"
)

// Task is a unit of work passed from the API server to workers.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

const maxEnqueueBackoff = 5 * time.Second

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base, maxEnqueueBackoff)):
		}
	}
	return nil
}

// AnswerBatchPayload is the body of a TaskTypeAnswerBatch task.
type AnswerBatchPayload struct {
	RunID     uuid.UUID `json:"run_id"`
	Questions []string  `json:"questions"`
}
