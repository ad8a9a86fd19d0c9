package mocks

import (
	"context"

	"erpdocs/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, ev *model.HistoryEvent) (*model.HistoryEvent, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HistoryEvent), args.Error(1)
}

func (m *MockHistoryRepository) ListByDocument(ctx context.Context, documentID string) ([]model.HistoryEvent, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HistoryEvent), args.Error(1)
}
