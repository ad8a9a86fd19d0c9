package mocks

import (
	"context"

	"erpdocs/internal/model"
	"erpdocs/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, in service.ListInput) (*service.DocumentListResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id, actorID, origin string) (*model.DocumentDetail, error) {
	args := m.Called(ctx, id, actorID, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentDetail), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, id string, in service.UpdateInput) (*model.Document, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id, actorID, origin string) error {
	args := m.Called(ctx, id, actorID, origin)
	return args.Error(0)
}

func (m *MockDocumentService) Download(ctx context.Context, id, actorID, origin string) (*service.DownloadResult, error) {
	args := m.Called(ctx, id, actorID, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DownloadResult), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, id, actorID, origin string) (string, error) {
	args := m.Called(ctx, id, actorID, origin)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) History(ctx context.Context, id string) ([]model.HistoryEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HistoryEvent), args.Error(1)
}
