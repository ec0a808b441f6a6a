package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"qa-ensemble/internal/app"
	"qa-ensemble/internal/batch"
	"qa-ensemble/internal/httputil"
	"qa-ensemble/internal/queue"
	"qa-ensemble/internal/store"
)

type answerRequest struct {
	Question string `json:"question" validate:"required,max=10000"`
}

type runQuestion struct {
	Input string `json:"input" validate:"required"`
}

type runRequest struct {
	Questions []runQuestion `json:"questions" validate:"required,min=1,max=1000,dive"`
}

func (r runRequest) inputs() []string {
	out := make([]string, len(r.Questions))
	for i, q := range r.Questions {
		out[i] = q.Input
	}
	return out
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	r := httputil.NewRouter(deps.Log, 0)
	r.Post("/api/answer", answerHandler(deps))
	r.Post("/api/runs", createRunHandler(deps))
	r.Get("/api/runs/{id}", getRunHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

// answerHandler runs one question through the pipeline and returns the
// full trace.
func answerHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		results, err := deps.Pipeline.Run(r.Context(), []string{req.Question})
		if err != nil || len(results) == 0 {
			httputil.Fail(deps.Log, w, "request cancelled", err, http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, results[0])
	}
}

func createRunHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Queue == nil {
			httputil.Fail(deps.Log, w, "batch runs need QUEUE_PROVIDER=nats", nil, http.StatusServiceUnavailable)
			return
		}
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		ctx := r.Context()
		run, err := deps.Store.CreateRun(ctx, len(req.Questions))
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist run", err, http.StatusInternalServerError)
			return
		}

		body, err := json.Marshal(queue.AnswerBatchPayload{
			RunID:     run.ID,
			Questions: req.inputs(),
		})
		if err != nil {
			fail(ctx, deps, w, "marshal payload failed", err, run.ID)
			return
		}
		task := queue.Task{Type: queue.TaskTypeAnswerBatch, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(ctx, deps, w, "failed to enqueue run; please retry", err, run.ID)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"run_id": run.ID.String(),
			"status": run.Status,
		})
	}
}

// fail marks the run failed before reporting a 500.
func fail(ctx context.Context, deps app.Deps, w http.ResponseWriter, message string, err error, runID uuid.UUID) {
	log := deps.Log.With("run_id", runID)
	if upErr := deps.Store.UpdateRunStatus(ctx, runID, store.StatusFailed); upErr != nil {
		log.Error("failed to mark run failed", "err", upErr)
	}
	httputil.Fail(log, w, message, err, http.StatusInternalServerError)
}

func getRunHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid run id", err, http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		run, err := deps.Store.GetRun(ctx, runID)
		if errors.Is(err, store.ErrRunNotFound) {
			httputil.Fail(deps.Log, w, "run not found", err, http.StatusNotFound)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load run", err, http.StatusInternalServerError)
			return
		}

		answers := []batch.AnswerRecord{}
		if run.Status == store.StatusReady {
			stored, err := deps.Store.ListAnswers(ctx, runID)
			if err != nil {
				httputil.Fail(deps.Log, w, "failed to load answers", err, http.StatusInternalServerError)
				return
			}
			for _, a := range stored {
				answers = append(answers, batch.AnswerRecord{Output: a.Final})
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"run_id":  run.ID.String(),
			"status":  run.Status,
			"total":   run.Total,
			"answers": answers,
		})
	}
}
