package ensemble

import (
	"context"
	"log/slog"

	"qa-ensemble/internal/llm"
)

// AnswerInstruction is sent both as the system message and ahead of the
// question when sampling an answer.
const AnswerInstruction = "Hello system, give me the final answer to the prompt. Please only give the answer and nothing but the answer."

// Sampler draws one answer per variant.
type Sampler struct {
	client llm.Client
	opts   CallOptions
	log    *slog.Logger
}

// NewSampler builds a Sampler. opts.System and opts.Temperature are ignored:
// the system message is AnswerInstruction and the temperature is chosen per
// call.
func NewSampler(client llm.Client, opts CallOptions, log *slog.Logger) *Sampler {
	return &Sampler{
		client: client,
		opts:   opts,
		log:    log.With("component", "sampler"),
	}
}

// Sample asks for an answer to variant at the given temperature. It never
// fails: a failed call yields "", which still counts as a vote.
func (s *Sampler) Sample(ctx context.Context, variant string, temperature float64) string {
	text, failure := llm.Classify(s.client.Complete(ctx, llm.Request{
		Prompt:      answerPrompt(variant),
		System:      AnswerInstruction,
		Temperature: temperature,
		MaxTokens:   s.opts.MaxTokens,
		Timeout:     s.opts.Timeout,
	}))
	if failure != nil {
		if failure.Kind != llm.KindEmpty {
			s.log.Warn("sampling failed, voting empty",
				"kind", failure.Kind, "status", failure.Status, "err", failure.Message)
		}
		return ""
	}
	return text
}

// SampleAll samples every variant and returns the candidates in variant
// order.
func (s *Sampler) SampleAll(ctx context.Context, variants []string, temperature float64) []string {
	candidates := make([]string, len(variants))
	fanOut(len(variants), s.opts.MaxParallel, func(i int) {
		candidates[i] = s.Sample(ctx, variants[i], temperature)
	})
	return candidates
}

func answerPrompt(variant string) string {
	return AnswerInstruction + "\n\nQuestion: " + variant + "\nAnswer:"
}
