package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"qa-ensemble/internal/app"
	"qa-ensemble/internal/httputil"
	"qa-ensemble/internal/queue"
	"qa-ensemble/internal/store"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	if deps.Queue == nil {
		deps.Log.Error("worker needs QUEUE_PROVIDER=nats")
		os.Exit(1)
	}
	deps.Log.Info("answer worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeAnswerBatch, func(ctx context.Context, task queue.Task) error {
			var payload queue.AnswerBatchPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return handleRun(ctx, deps, payload)
		})
	})

	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "worker")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

// handleRun answers every question of a run and persists the traces. A
// failed run is marked failed; the returned error lets the queue retry it.
func handleRun(ctx context.Context, deps app.Deps, payload queue.AnswerBatchPayload) error {
	log := deps.Log.With("run_id", payload.RunID)
	log.Info("run started", "questions", len(payload.Questions))

	err := answerRun(ctx, deps, payload)
	if err != nil {
		// ctx may already be done; the status write must still happen.
		if upErr := deps.Store.UpdateRunStatus(context.WithoutCancel(ctx), payload.RunID, store.StatusFailed); upErr != nil {
			log.Error("failed to mark run failed", "err", upErr)
		}
		return err
	}
	log.Info("run ready")
	return nil
}

func answerRun(ctx context.Context, deps app.Deps, payload queue.AnswerBatchPayload) error {
	results, err := deps.Pipeline.Run(ctx, payload.Questions)
	if err != nil {
		return fmt.Errorf("run interrupted after %d of %d questions: %w", len(results), len(payload.Questions), err)
	}
	answers := make([]store.Answer, 0, len(results))
	for i, r := range results {
		answers = append(answers, store.Answer{
			RunID:      payload.RunID,
			Index:      i,
			Question:   r.Question,
			Variants:   r.Variants,
			Candidates: r.Candidates,
			Final:      r.Final,
		})
	}
	if err := deps.Store.SaveAnswers(ctx, payload.RunID, answers); err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return deps.Store.UpdateRunStatus(ctx, payload.RunID, store.StatusReady)
}
