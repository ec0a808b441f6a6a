package ensemble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/logger"
)

func TestSample(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
		want string
	}{
		{name: "trimmed answer", text: " Paris\n", want: "Paris"},
		{name: "service failure votes empty", err: llm.ServiceFailure(500, "boom", nil), want: ""},
		{name: "transport failure votes empty", err: llm.TransportFailure(errors.New("refused")), want: ""},
		{name: "untyped error votes empty", err: errors.New("weird"), want: ""},
		{name: "empty completion votes empty", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(llm.MockClient)
			m.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
				return r.Temperature == 0.9
			})).Return(tt.text, tt.err).Once()

			s := NewSampler(m, CallOptions{}, logger.Discard())

			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, s.Sample(context.Background(), "capital of France?", 0.9))
			})
			m.AssertExpectations(t)
		})
	}
}

func TestSampleRequestShape(t *testing.T) {
	var got llm.Request
	client := funcClient(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return "x", nil
	})
	opts := CallOptions{System: "ignored", Temperature: 0, MaxTokens: 128, Timeout: time.Second}

	NewSampler(client, opts, logger.Discard()).Sample(context.Background(), "Why?", 1.2)

	assert.Equal(t, AnswerInstruction+"\n\nQuestion: Why?\nAnswer:", got.Prompt)
	assert.Equal(t, AnswerInstruction, got.System)
	assert.Equal(t, 1.2, got.Temperature)
	assert.Equal(t, 128, got.MaxTokens)
	assert.Equal(t, time.Second, got.Timeout)
}

func TestSampleAllKeepsVariantOrder(t *testing.T) {
	client := funcClient(func(_ context.Context, req llm.Request) (string, error) {
		switch {
		case req.Prompt == answerPrompt("a"):
			time.Sleep(20 * time.Millisecond)
			return "A", nil
		case req.Prompt == answerPrompt("b"):
			return "", llm.ServiceFailure(429, "slow down", nil)
		default:
			return "C", nil
		}
	})

	for _, parallel := range []int{1, 3} {
		s := NewSampler(client, CallOptions{MaxParallel: parallel}, logger.Discard())
		got := s.SampleAll(context.Background(), []string{"a", "b", "c"}, 0.9)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"A", "", "C"}, got, "parallel=%d", parallel)
	}
}
