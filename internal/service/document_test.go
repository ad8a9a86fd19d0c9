package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"erpdocs/internal/classify"
	"erpdocs/internal/extract"
	"erpdocs/internal/model"
	"erpdocs/internal/repository"
	repoMocks "erpdocs/internal/repository/mocks"
	"erpdocs/internal/storage"
	storeMocks "erpdocs/internal/storage/mocks"
)

// failingClassifier forces the degraded classification path.
type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string, string, string) (classify.Result, error) {
	return classify.Result{}, errors.New("model unavailable")
}

type fixtures struct {
	store      *storeMocks.MockStorage
	repo       *repoMocks.MockDocumentRepository
	history    *repoMocks.MockHistoryRepository
	classifier classify.Classifier
}

func newService(f *fixtures) DocumentService {
	classifier := f.classifier
	if classifier == nil {
		classifier = classify.NewRules()
	}
	return NewDocumentService(
		f.store,
		f.repo,
		f.history,
		extract.NewRouter(nil, extract.NewSimulated()),
		classifier,
	)
}

func detailFor(doc model.Document) *model.DocumentDetail {
	return &model.DocumentDetail{Document: doc}
}

func TestDocumentService_Ingest(t *testing.T) {
	ctx := context.Background()

	baseInput := func() IngestInput {
		return IngestInput{
			Data:        []byte("this report details inspection findings"),
			Filename:    "audit.txt",
			ContentType: "text/plain",
			Title:       "Fire Safety Audit",
			Description: "Annual inspection report for Building A",
			ActorID:     "actor-1",
			Origin:      "10.0.0.1",
		}
	}

	tests := []struct {
		name       string
		input      func() IngestInput
		classifier classify.Classifier
		setupMocks func(f *fixtures)
		wantErr    error
		wantErrMsg string
		checkRes   func(t *testing.T, res *IngestResult)
	}{
		{
			name:  "happy path derives category from classifier",
			input: baseInput,
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.AnythingOfType("string")).
					Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".txt")
				}), mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
					}, nil)
				f.repo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Category == "Reports" &&
						doc.AICategory == "Reports" &&
						doc.AIConfidence == 0.85 &&
						doc.Status == model.StatusDraft &&
						doc.IsLatestVersion &&
						doc.FileHash != ""
				})).Return(&model.Document{ID: "doc-1", Title: "Fire Safety Audit", Category: "Reports", AICategory: "Reports"}, nil)
				f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
					return ev.Action == model.ActionCreated && ev.DocumentID == "doc-1" && ev.ActorID == "actor-1"
				})).Return(&model.HistoryEvent{ID: 1}, nil)
			},
			checkRes: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, "doc-1", res.Document.ID)
				assert.Equal(t, "Reports", res.Classification.Category)
				assert.Equal(t, 0.85, res.Classification.Confidence)
				assert.True(t, strings.HasPrefix(res.Classification.Summary, "Résumé automatique : Fire Safety Audit."))
				assert.Contains(t, res.Classification.Keywords, "inspection")
			},
		},
		{
			name: "caller category overrides classifier",
			input: func() IngestInput {
				in := baseInput()
				in.Category = "Sécurité"
				return in
			},
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/x.txt", Size: 39}, nil)
				f.repo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Category == "Sécurité" && doc.AICategory == "Reports"
				})).Return(&model.Document{ID: "doc-2"}, nil)
				f.history.On("Append", ctx, mock.Anything).Return(&model.HistoryEvent{ID: 1}, nil)
			},
			checkRes: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, "doc-2", res.Document.ID)
			},
		},
		{
			name: "validation - missing title",
			input: func() IngestInput {
				in := baseInput()
				in.Title = "   "
				return in
			},
			setupMocks: func(f *fixtures) {},
			wantErr:    ErrTitleRequired,
		},
		{
			name: "validation - missing file",
			input: func() IngestInput {
				in := baseInput()
				in.Data = nil
				return in
			},
			setupMocks: func(f *fixtures) {},
			wantErr:    ErrFileRequired,
		},
		{
			name:  "dedup gate hit aborts before storage",
			input: baseInput,
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.Anything).
					Return(&model.Document{ID: "existing-id", Title: "Première version"}, nil).Once()
			},
			wantErrMsg: "document already exists",
		},
		{
			name:  "unique violation race resolves to conflict and cleans up",
			input: baseInput,
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/x.txt"}, nil)
				f.repo.On("Create", ctx, mock.Anything).
					Return(nil, &pgconn.PgError{Code: "23505", ConstraintName: "documents_file_hash_key"})
				f.store.On("Delete", ctx, mock.Anything).Return(nil)
				f.repo.On("FindByHash", ctx, mock.Anything).
					Return(&model.Document{ID: "winner-id", Title: "Winner"}, nil).Once()
			},
			wantErrMsg: "document already exists: Winner (winner-id)",
		},
		{
			name:  "db failure cleans up orphaned content",
			input: baseInput,
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/x.txt"}, nil)
				f.repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				f.store.On("Delete", ctx, mock.Anything).Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:  "storage failure surfaces",
			input: baseInput,
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:       "classifier failure degrades to default bundle",
			input:      baseInput,
			classifier: failingClassifier{},
			setupMocks: func(f *fixtures) {
				f.repo.On("FindByHash", ctx, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "documents/x.txt"}, nil)
				f.repo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.AICategory == "General" && doc.AIConfidence == 0.75
				})).Return(&model.Document{ID: "doc-3"}, nil)
				f.history.On("Append", ctx, mock.Anything).Return(&model.HistoryEvent{ID: 1}, nil)
			},
			checkRes: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, "General", res.Classification.Category)
				assert.Equal(t, 0.75, res.Classification.Confidence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fixtures{
				store:      new(storeMocks.MockStorage),
				repo:       new(repoMocks.MockDocumentRepository),
				history:    new(repoMocks.MockHistoryRepository),
				classifier: tt.classifier,
			}
			svc := newService(f)
			tt.setupMocks(f)

			res, err := svc.Ingest(ctx, tt.input())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}

			f.store.AssertExpectations(t)
			f.repo.AssertExpectations(t)
			f.history.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Ingest_DuplicateDetails(t *testing.T) {
	ctx := context.Background()
	f := &fixtures{
		store:   new(storeMocks.MockStorage),
		repo:    new(repoMocks.MockDocumentRepository),
		history: new(repoMocks.MockHistoryRepository),
	}
	svc := newService(f)

	f.repo.On("FindByHash", ctx, mock.Anything).
		Return(&model.Document{ID: "existing-id", Title: "Première version"}, nil).Once()

	_, err := svc.Ingest(ctx, IngestInput{
		Data:  []byte("same bytes"),
		Title: "Deuxième version",
	})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "existing-id", dup.ExistingID)
	assert.Equal(t, "Première version", dup.ExistingTitle)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		input      ListInput
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    bool
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:  "page math",
			input: ListInput{Page: 2, Limit: 10, SortBy: "created_at", SortDir: "desc"},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.ListQuery{
					SortBy: "created_at", SortDesc: true, Limit: 10, Offset: 10,
				}).Return(&repository.PageResult[model.Document]{
					Items: []model.Document{{ID: "11"}},
					Total: 25,
				}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 25, res.Total)
				assert.Equal(t, 2, res.Page)
				assert.Equal(t, 10, res.Limit)
				assert.Equal(t, 3, res.Pages, "ceil(25/10)")
			},
		},
		{
			name:  "defaults for zero page and limit",
			input: ListInput{},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.ListQuery{
					SortDesc: true, Limit: 10, Offset: 0,
				}).Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 1, res.Page)
				assert.Equal(t, 0, res.Pages)
			},
		},
		{
			name:  "filters pass through conjunctively",
			input: ListInput{Search: "audit", Status: "active", ProjectID: "proj-1", Page: 1, Limit: 5, SortDir: "asc"},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.ListQuery{
					Search: "audit", Status: "active", ProjectID: "proj-1",
					SortDesc: false, Limit: 5, Offset: 0,
				}).Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "repository error",
			input: ListInput{Page: 1, Limit: 10},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fixtures{
				store:   new(storeMocks.MockStorage),
				repo:    new(repoMocks.MockDocumentRepository),
				history: new(repoMocks.MockHistoryRepository),
			}
			svc := newService(f)
			tt.setupMocks(f.repo)

			res, err := svc.List(ctx, tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			f.repo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("read has audited side effects", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{ID: "doc-1", Title: "Audit", ViewCount: 4}), nil)
		f.repo.On("IncrementViewCount", ctx, "doc-1", mock.AnythingOfType("time.Time")).Return(nil)
		f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
			return ev.Action == model.ActionViewed && ev.ActorID == "actor-1" && ev.Origin == "10.0.0.1"
		})).Return(&model.HistoryEvent{ID: 2}, nil)

		detail, err := svc.Get(ctx, "doc-1", "actor-1", "10.0.0.1")

		require.NoError(t, err)
		assert.Equal(t, 5, detail.ViewCount, "view count reflects this read")
		require.NotNil(t, detail.LastAccessedAt)
		f.repo.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)
		f.repo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.Get(ctx, "missing", "actor-1", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)
		_, err := svc.Get(ctx, "", "actor-1", "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("audits only fields that changed value", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		existing := model.Document{
			ID: "doc-1", Title: "Ancien titre", Description: "desc", Status: model.StatusDraft,
		}
		newTitle := "Nouveau titre"
		sameDesc := "desc"
		newStatus := model.StatusActive

		f.repo.On("FindByID", ctx, "doc-1").Return(detailFor(existing), nil)
		f.repo.On("Update", ctx, "doc-1", mock.MatchedBy(func(p repository.UpdatePatch) bool {
			return p.Title != nil && *p.Title == newTitle && p.UpdatedBy == "actor-2"
		})).Return(&model.Document{ID: "doc-1", Title: newTitle, Status: newStatus}, nil)
		f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
			changed, ok := ev.Details["changed_fields"].([]string)
			return ev.Action == model.ActionUpdated && ok &&
				len(changed) == 2 && changed[0] == "title" && changed[1] == "status"
		})).Return(&model.HistoryEvent{ID: 3}, nil)

		updated, err := svc.Update(ctx, "doc-1", UpdateInput{
			Title:       &newTitle,
			Description: &sameDesc,
			Status:      &newStatus,
			ActorID:     "actor-2",
		})

		require.NoError(t, err)
		assert.Equal(t, newTitle, updated.Title)
		f.repo.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("empty patch still stamps the update", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").Return(detailFor(model.Document{ID: "doc-1"}), nil)
		f.repo.On("Update", ctx, "doc-1", mock.MatchedBy(func(p repository.UpdatePatch) bool {
			return p.Title == nil && p.Status == nil && p.UpdatedBy == "actor-2"
		})).Return(&model.Document{ID: "doc-1"}, nil)
		f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
			changed, ok := ev.Details["changed_fields"].([]string)
			return ok && len(changed) == 0
		})).Return(&model.HistoryEvent{ID: 4}, nil)

		_, err := svc.Update(ctx, "doc-1", UpdateInput{ActorID: "actor-2"})
		require.NoError(t, err)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		blank := "  "
		f.repo.On("FindByID", ctx, "doc-1").Return(detailFor(model.Document{ID: "doc-1", Title: "Titre"}), nil)

		_, err := svc.Update(ctx, "doc-1", UpdateInput{Title: &blank, ActorID: "actor-2"})
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("not found", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)
		f.repo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.Update(ctx, "missing", UpdateInput{ActorID: "actor-2"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("audits before removal", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{ID: "doc-1", Title: "Audit", StoragePath: "documents/x.pdf"}), nil)
		f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
			return ev.Action == model.ActionDeleted && ev.Details["title"] == "Audit"
		})).Return(&model.HistoryEvent{ID: 5}, nil)
		f.store.On("Delete", ctx, "documents/x.pdf").Return(nil)
		f.repo.On("Delete", ctx, "doc-1").Return(nil)

		assert.NoError(t, svc.Delete(ctx, "doc-1", "actor-1", "10.0.0.1"))
		f.store.AssertExpectations(t)
		f.repo.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("missing physical content still deletes the record", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{ID: "doc-1", Title: "Audit", StoragePath: "documents/gone.pdf"}), nil)
		f.history.On("Append", ctx, mock.Anything).Return(&model.HistoryEvent{ID: 6}, nil)
		f.store.On("Delete", ctx, "documents/gone.pdf").Return(errors.New("object not found"))
		f.repo.On("Delete", ctx, "doc-1").Return(nil)

		assert.NoError(t, svc.Delete(ctx, "doc-1", "actor-1", ""))
		f.repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)
		f.repo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.Delete(ctx, "missing", "actor-1", ""), ErrNotFound)
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("streams content with audit and counter", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{
				ID: "doc-1", Filename: "audit.pdf", ContentType: "application/pdf", StoragePath: "documents/x.pdf",
			}), nil)
		f.store.On("Get", ctx, "documents/x.pdf").
			Return(io.NopCloser(strings.NewReader("content")), storage.ObjectInfo{Size: 7}, nil)
		f.repo.On("IncrementDownloadCount", ctx, "doc-1").Return(nil)
		f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
			return ev.Action == model.ActionDownloaded && ev.Details["format"] == "pdf"
		})).Return(&model.HistoryEvent{ID: 7}, nil)

		res, err := svc.Download(ctx, "doc-1", "actor-1", "10.0.0.1")

		require.NoError(t, err)
		defer res.Content.Close()
		assert.Equal(t, "audit.pdf", res.Filename)
		assert.Equal(t, "application/pdf", res.ContentType)
		assert.Equal(t, int64(7), res.Size)
		body, _ := io.ReadAll(res.Content)
		assert.Equal(t, "content", string(body))
	})

	t.Run("missing content is distinct from missing record", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{ID: "doc-1", StoragePath: "documents/gone.pdf"}), nil)
		f.store.On("Get", ctx, "documents/gone.pdf").
			Return(nil, storage.ObjectInfo{}, errors.New("no such key"))

		_, err := svc.Download(ctx, "doc-1", "actor-1", "")

		assert.ErrorIs(t, err, ErrContentNotFound)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing record", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)
		f.repo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.Download(ctx, "missing", "actor-1", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDocumentService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns content with audit and counter", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{
				ID: "doc-1", Filename: "audit.pdf", StoragePath: "documents/x.pdf",
			}), nil)
		f.store.On("PresignGet", ctx, "documents/x.pdf", presignExpiry).
			Return("https://minio.local/bucket/documents/x.pdf?sig=abc", nil)
		f.repo.On("IncrementDownloadCount", ctx, "doc-1").Return(nil)
		f.history.On("Append", ctx, mock.MatchedBy(func(ev *model.HistoryEvent) bool {
			return ev.Action == model.ActionDownloaded &&
				ev.Details["format"] == "pdf" &&
				ev.Details["presigned"] == true
		})).Return(&model.HistoryEvent{ID: 9}, nil)

		url, err := svc.DownloadURL(ctx, "doc-1", "actor-1", "10.0.0.1")

		require.NoError(t, err)
		assert.Equal(t, "https://minio.local/bucket/documents/x.pdf?sig=abc", url)
	})

	t.Run("missing record", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)
		f.repo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		_, err := svc.DownloadURL(ctx, "missing", "actor-1", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("presign failure", func(t *testing.T) {
		f := &fixtures{
			store:   new(storeMocks.MockStorage),
			repo:    new(repoMocks.MockDocumentRepository),
			history: new(repoMocks.MockHistoryRepository),
		}
		svc := newService(f)

		f.repo.On("FindByID", ctx, "doc-1").
			Return(detailFor(model.Document{ID: "doc-1", StoragePath: "documents/x.pdf"}), nil)
		f.store.On("PresignGet", ctx, "documents/x.pdf", presignExpiry).
			Return("", errors.New("signer unavailable"))

		_, err := svc.DownloadURL(ctx, "doc-1", "actor-1", "")
		assert.Error(t, err)
	})
}

func TestDocumentService_History(t *testing.T) {
	ctx := context.Background()
	f := &fixtures{
		store:   new(storeMocks.MockStorage),
		repo:    new(repoMocks.MockDocumentRepository),
		history: new(repoMocks.MockHistoryRepository),
	}
	svc := newService(f)

	now := time.Now().UTC()
	events := []model.HistoryEvent{
		{ID: 1, DocumentID: "doc-1", Action: model.ActionCreated, CreatedAt: now},
		{ID: 2, DocumentID: "doc-1", Action: model.ActionViewed, CreatedAt: now.Add(time.Second)},
	}
	f.history.On("ListByDocument", ctx, "doc-1").Return(events, nil)

	got, err := svc.History(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, events, got)

	_, err = svc.History(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
}
