// Package ensemble answers questions by rephrasing them several ways,
// sampling an answer for each phrasing and taking the majority answer.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"qa-ensemble/internal/cache"
	"qa-ensemble/internal/llm"
	"qa-ensemble/internal/vote"
)

// Config is everything the pipeline needs from the environment.
type Config struct {
	Directives         []Directive
	SystemMessage      string
	RewriteTemperature float64
	SampleTemperature  float64
	MaxTokens          int
	Timeout            time.Duration
	MaxParallelCalls   int
}

// Result is the trace of one answered question.
type Result struct {
	Question   string   `json:"question"`
	Variants   []string `json:"variants"`
	Candidates []string     `json:"candidates"`
	Votes      []vote.Count `json:"votes"`
	Final      string       `json:"final"`
}

// Pipeline wires Diversifier, Sampler and majority vote together.
type Pipeline struct {
	diversifier *Diversifier
	sampler     *Sampler
	temperature float64
	log         *slog.Logger

	cache       cache.Cache
	fingerprint string
	cacheTTL    time.Duration
}

// Option configures optional pipeline behavior.
type Option func(*Pipeline)

// WithCache makes Run look answers up in c before computing them and store
// fresh ones with the given TTL. fingerprint must change whenever anything
// that affects answers changes; see Fingerprint.
func WithCache(c cache.Cache, fingerprint string, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.fingerprint = fingerprint
		p.cacheTTL = ttl
	}
}

// New builds a pipeline. It rejects an empty directive list because every
// question needs at least one candidate to vote on.
func New(client llm.Client, cfg Config, log *slog.Logger, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client required")
	}
	if err := validateDirectives(cfg.Directives); err != nil {
		return nil, err
	}
	callOpts := CallOptions{
		System:      cfg.SystemMessage,
		Temperature: cfg.RewriteTemperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		MaxParallel: cfg.MaxParallelCalls,
	}
	p := &Pipeline{
		diversifier: NewDiversifier(client, cfg.Directives, callOpts, log),
		sampler:     NewSampler(client, callOpts, log),
		temperature: cfg.SampleTemperature,
		log:         log.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Answer runs one question through the ensemble.
func (p *Pipeline) Answer(ctx context.Context, question string) Result {
	variants := p.diversifier.Diversify(ctx, question)
	candidates := p.sampler.SampleAll(ctx, variants, p.temperature)
	votes := vote.Tally(candidates)
	final := vote.Majority(candidates)
	p.log.Debug("answered question", "candidates", len(candidates), "distinct", len(votes), "final", final)
	return Result{
		Question:   question,
		Variants:   variants,
		Candidates: candidates,
		Votes:      votes,
		Final:      final,
	}
}

// Run answers questions in order. Call failures never stop the batch; the
// only error is ctx being done, in which case the results so far are
// returned.
func (p *Pipeline) Run(ctx context.Context, questions []string) ([]Result, error) {
	results := make([]Result, 0, len(questions))
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, p.cachedAnswer(ctx, q))
		p.log.Info("question done", "index", i, "total", len(questions))
	}
	return results, nil
}

func (p *Pipeline) cachedAnswer(ctx context.Context, question string) Result {
	if p.cache == nil {
		return p.Answer(ctx, question)
	}
	key := cache.GenerateCacheKey(p.fingerprint, question)
	entry, err := p.cache.GetAnswer(ctx, key)
	if err != nil {
		p.log.Warn("cache lookup failed", "err", err)
	}
	if entry != nil {
		p.log.Debug("cache hit", "key", key)
		return Result{
			Question:   question,
			Variants:   entry.Variants,
			Candidates: entry.Candidates,
			Votes:      vote.Tally(entry.Candidates),
			Final:      entry.Final,
		}
	}

	r := p.Answer(ctx, question)
	// An all-empty vote means the service was unreachable; keep it out of
	// the cache so a re-run tries again.
	if allEmpty(r.Candidates) {
		return r
	}
	if err := p.cache.SetAnswer(ctx, key, &cache.Entry{
		Variants:   r.Variants,
		Candidates: r.Candidates,
		Final:      r.Final,
	}, p.cacheTTL); err != nil {
		p.log.Warn("failed to cache answer", "err", err)
	}
	return r
}

func allEmpty(candidates []string) bool {
	for _, c := range candidates {
		if c != "" {
			return false
		}
	}
	return true
}

// Fingerprint summarizes the settings that influence answers, for use as
// the cache key prefix.
func Fingerprint(provider, model string, cfg Config) string {
	parts := []string{
		provider,
		model,
		cfg.SystemMessage,
		strconv.FormatFloat(cfg.RewriteTemperature, 'g', -1, 64),
		strconv.FormatFloat(cfg.SampleTemperature, 'g', -1, 64),
		strconv.Itoa(cfg.MaxTokens),
	}
	for _, d := range cfg.Directives {
		parts = append(parts, d.Instruction)
	}
	return strings.Join(parts, "\x1f")
}
