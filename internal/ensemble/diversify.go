package ensemble

import (
	"context"
	"log/slog"
	"time"

	"qa-ensemble/internal/llm"
)

// CallOptions are the per-call settings shared by the Diversifier and the
// Sampler.
type CallOptions struct {
	System      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxParallel int
}

// Diversifier rewrites a question once per directive.
type Diversifier struct {
	client     llm.Client
	directives []Directive
	opts       CallOptions
	log        *slog.Logger
}

func NewDiversifier(client llm.Client, directives []Directive, opts CallOptions, log *slog.Logger) *Diversifier {
	return &Diversifier{
		client:     client,
		directives: directives,
		opts:       opts,
		log:        log.With("component", "diversifier"),
	}
}

// Diversify returns one variant per directive, in directive order. A slot
// whose rewrite fails or comes back blank holds the original question.
func (d *Diversifier) Diversify(ctx context.Context, question string) []string {
	variants := make([]string, len(d.directives))
	fanOut(len(d.directives), d.opts.MaxParallel, func(i int) {
		variants[i] = d.rewrite(ctx, question, d.directives[i])
	})
	return variants
}

func (d *Diversifier) rewrite(ctx context.Context, question string, dir Directive) string {
	text, failure := llm.Classify(d.client.Complete(ctx, llm.Request{
		Prompt:      rewritePrompt(dir, question),
		System:      d.opts.System,
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
		Timeout:     d.opts.Timeout,
	}))
	if failure != nil {
		d.log.Warn("rewrite failed, keeping original question",
			"directive", dir.Name, "kind", failure.Kind, "status", failure.Status, "err", failure.Message)
		return question
	}
	d.log.Debug("rewrote question", "directive", dir.Name, "variant", text)
	return text
}

func rewritePrompt(dir Directive, question string) string {
	return dir.Instruction + "\n\nRewrite this question clearly:\n" + question
}
