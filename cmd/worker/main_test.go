package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qa-ensemble/internal/app"
	"qa-ensemble/internal/ensemble"
	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/logger"
	"qa-ensemble/internal/queue"
	"qa-ensemble/internal/store"
)

func newTestDeps(t *testing.T, st store.Store) app.Deps {
	t.Helper()
	pipeline, err := ensemble.New(llm.NewStubClient("42"), ensemble.Config{
		Directives: ensemble.DefaultDirectives(),
	}, logger.Discard())
	require.NoError(t, err)
	return app.Deps{Store: st, Pipeline: pipeline, Log: logger.Discard()}
}

func TestHandleRun(t *testing.T) {
	runID := uuid.New()
	payload := queue.AnswerBatchPayload{RunID: runID, Questions: []string{"Q1", "Q2", "Q3"}}

	tests := []struct {
		name    string
		setup   func(*store.MockStore)
		wantErr bool
	}{
		{
			name: "saves answers in order and marks ready",
			setup: func(s *store.MockStore) {
				s.On("SaveAnswers", mock.Anything, runID, mock.MatchedBy(func(answers []store.Answer) bool {
					if len(answers) != 3 {
						return false
					}
					for i, a := range answers {
						if a.Index != i || a.Question != payload.Questions[i] || a.Final != "42" || len(a.Candidates) != 4 {
							return false
						}
					}
					return true
				})).Return(nil).Once()
				s.On("UpdateRunStatus", mock.Anything, runID, store.StatusReady).Return(nil).Once()
			},
		},
		{
			name: "save failure marks run failed",
			setup: func(s *store.MockStore) {
				s.On("SaveAnswers", mock.Anything, runID, mock.Anything).Return(errors.New("db error")).Once()
				s.On("UpdateRunStatus", mock.Anything, runID, store.StatusFailed).Return(nil).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			tt.setup(mockStore)

			err := handleRun(context.Background(), newTestDeps(t, mockStore), payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockStore.AssertExpectations(t)
		})
	}
}

func TestHandleRunWithMemoryStore(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	run, err := st.CreateRun(ctx, 2)
	require.NoError(t, err)

	err = handleRun(ctx, newTestDeps(t, st), queue.AnswerBatchPayload{
		RunID:     run.ID,
		Questions: []string{"What is 6 times 7?", "And 21 times 2?"},
	})
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusReady, got.Status)

	answers, err := st.ListAnswers(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "And 21 times 2?", answers[1].Question)
	assert.Equal(t, "42", answers[1].Final)
}

func TestHandleRunCancelled(t *testing.T) {
	runID := uuid.New()
	mockStore := new(store.MockStore)
	mockStore.On("UpdateRunStatus", mock.Anything, runID, store.StatusFailed).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := handleRun(ctx, newTestDeps(t, mockStore), queue.AnswerBatchPayload{RunID: runID, Questions: []string{"Q"}})

	assert.ErrorIs(t, err, context.Canceled)
	mockStore.AssertNotCalled(t, "SaveAnswers", mock.Anything, mock.Anything, mock.Anything)
	mockStore.AssertExpectations(t)
}
