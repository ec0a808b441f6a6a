package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusProcessing RunStatus = "processing"
	StatusReady      RunStatus = "ready"
	StatusFailed     RunStatus = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one batch of questions submitted together.
type Run struct {
	ID        uuid.UUID
	Status    RunStatus
	Total     int
	CreatedAt time.Time
}

// Answer is the persisted trace of one question within a run.
type Answer struct {
	RunID      uuid.UUID
	Index      int
	Question   string
	Variants   []string
	Candidates []string
	Final      string
}

// Store defines the persistence contract for runs and their answers.
type Store interface {
	CreateRun(ctx context.Context, total int) (Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus) error
	SaveAnswers(ctx context.Context, runID uuid.UUID, answers []Answer) error
	// ListAnswers returns a run's answers ordered by Index.
	ListAnswers(ctx context.Context, runID uuid.UUID) ([]Answer, error)
}
