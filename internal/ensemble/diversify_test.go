package ensemble

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/logger"
)

func TestDiversify(t *testing.T) {
	const question = "What is the capital of France?"

	tests := []struct {
		name  string
		setup func(*llm.MockClient)
		want  []string
	}{
		{
			name: "one variant per directive in order",
			setup: func(m *llm.MockClient) {
				m.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
					return strings.HasPrefix(r.Prompt, "Style one.")
				})).Return("  Where does France keep its capital? ", nil).Once()
				m.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
					return strings.HasPrefix(r.Prompt, "Style two.")
				})).Return("Name France's capital city.", nil).Once()
				m.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
					return strings.HasPrefix(r.Prompt, "Style three.")
				})).Return("Which city is the capital of France?", nil).Once()
			},
			want: []string{
				"Where does France keep its capital?",
				"Name France's capital city.",
				"Which city is the capital of France?",
			},
		},
		{
			name: "failed rewrite keeps the original question",
			setup: func(m *llm.MockClient) {
				m.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
					return strings.HasPrefix(r.Prompt, "Style two.")
				})).Return("", llm.ServiceFailure(503, "unavailable", nil)).Once()
				m.On("Complete", mock.Anything, mock.Anything).Return("rewritten", nil).Twice()
			},
			want: []string{"rewritten", question, "rewritten"},
		},
		{
			name: "blank rewrite keeps the original question",
			setup: func(m *llm.MockClient) {
				m.On("Complete", mock.Anything, mock.Anything).Return("   ", nil).Times(3)
			},
			want: []string{question, question, question},
		},
		{
			name: "duplicates are not removed",
			setup: func(m *llm.MockClient) {
				m.On("Complete", mock.Anything, mock.Anything).Return("same", nil).Times(3)
			},
			want: []string{"same", "same", "same"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(llm.MockClient)
			tt.setup(m)

			d := NewDiversifier(m, testDirectives(), CallOptions{}, logger.Discard())
			got := d.Diversify(context.Background(), question)

			assert.Equal(t, tt.want, got)
			m.AssertExpectations(t)
		})
	}
}

func TestDiversifyRequestShape(t *testing.T) {
	var got []llm.Request
	client := funcClient(func(_ context.Context, req llm.Request) (string, error) {
		got = append(got, req)
		return "v", nil
	})
	opts := CallOptions{System: "sys", Temperature: 0, MaxTokens: 256, Timeout: time.Minute}

	NewDiversifier(client, testDirectives()[:1], opts, logger.Discard()).Diversify(context.Background(), "Q?")

	require.Len(t, got, 1)
	assert.Equal(t, "Style one.\n\nRewrite this question clearly:\nQ?", got[0].Prompt)
	assert.Equal(t, "sys", got[0].System)
	assert.Zero(t, got[0].Temperature)
	assert.Equal(t, 256, got[0].MaxTokens)
	assert.Equal(t, time.Minute, got[0].Timeout)
}

func TestDiversifyAllFailuresKeepLength(t *testing.T) {
	client := funcClient(func(context.Context, llm.Request) (string, error) {
		return "", llm.TransportFailure(context.DeadlineExceeded)
	})
	directives := append(DefaultDirectives(), Directive{Name: "extra", Instruction: "Rewrite tersely."})

	got := NewDiversifier(client, directives, CallOptions{}, logger.Discard()).Diversify(context.Background(), "Q?")

	assert.Len(t, got, len(directives))
	for _, v := range got {
		assert.Equal(t, "Q?", v)
	}
}

func TestDiversifyParallelPreservesOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := funcClient(func(_ context.Context, req llm.Request) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// Earlier directives finish last.
		switch {
		case strings.HasPrefix(req.Prompt, "Style one."):
			time.Sleep(30 * time.Millisecond)
			return "first", nil
		case strings.HasPrefix(req.Prompt, "Style two."):
			time.Sleep(15 * time.Millisecond)
			return "second", nil
		default:
			return "third", nil
		}
	})

	d := NewDiversifier(client, testDirectives(), CallOptions{MaxParallel: 2}, logger.Discard())
	got := d.Diversify(context.Background(), "Q?")

	assert.Equal(t, []string{"first", "second", "third"}, got)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
