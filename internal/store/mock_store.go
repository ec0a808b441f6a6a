package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateRun(ctx context.Context, total int) (Run, error) {
	args := m.Called(ctx, total)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) SaveAnswers(ctx context.Context, runID uuid.UUID, answers []Answer) error {
	args := m.Called(ctx, runID, answers)
	return args.Error(0)
}

func (m *MockStore) ListAnswers(ctx context.Context, runID uuid.UUID) ([]Answer, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Answer), args.Error(1)
}
