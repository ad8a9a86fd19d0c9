package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"erpdocs/internal/classify"
	"erpdocs/internal/extract"
	"erpdocs/internal/model"
	"erpdocs/internal/repository"
	"erpdocs/internal/storage"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrTitleRequired = errors.New("title is required")
	ErrFileRequired  = errors.New("file is required")
	ErrNotFound      = errors.New("document not found")
	// ErrContentNotFound means the record exists but its backing file content
	// is gone from object storage. Reported distinctly from ErrNotFound.
	ErrContentNotFound = errors.New("document content not found")
)

// DuplicateError signals that a byte-identical document already exists.
// It identifies the existing document so the caller can redirect to it.
type DuplicateError struct {
	ExistingID    string
	ExistingTitle string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("document already exists: %s (%s)", e.ExistingTitle, e.ExistingID)
}

// IngestInput carries everything needed to ingest one uploaded file.
// Title and Data are required; the rest is optional metadata.
type IngestInput struct {
	Data        []byte
	Filename    string
	ContentType string

	Title           string
	Description     string
	Category        string
	Tags            []string
	Status          model.Status
	Priority        model.Priority
	Confidentiality model.Level
	ProjectID       *string
	CompanyID       *string
	EstablishmentID *string

	ActorID string
	Origin  string
}

// IngestResult pairs the created document with the classification bundle
// that produced its AI fields.
type IngestResult struct {
	Document       *model.Document `json:"document"`
	Classification classify.Result `json:"classification"`
}

// ListInput is the service-level filter/pagination/sort request.
type ListInput struct {
	Search          string
	Category        string
	Status          string
	Priority        string
	ProjectID       string
	CompanyID       string
	EstablishmentID string

	Page    int
	Limit   int
	SortBy  string
	SortDir string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Pages int              `json:"pages"`
}

// UpdateInput carries a partial metadata update. nil fields keep their stored
// value; file content, fingerprint and id are immutable after creation.
type UpdateInput struct {
	Title           *string
	Description     *string
	Category        *string
	Tags            *[]string
	Status          *model.Status
	Priority        *model.Priority
	Confidentiality *model.Level
	ProjectID       *string
	CompanyID       *string
	EstablishmentID *string

	ActorID string
	Origin  string
}

// DownloadResult is a document content stream plus the headers to serve it with.
type DownloadResult struct {
	Content     io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// DocumentService defines the use cases of the ingestion/classification pipeline.
type DocumentService interface {
	// Ingest runs the full pipeline: validate, fingerprint, dedup gate,
	// store content, extract text, classify, persist, audit.
	Ingest(ctx context.Context, in IngestInput) (*IngestResult, error)

	// List returns a filtered, sorted page of latest-version documents.
	List(ctx context.Context, in ListInput) (*DocumentListResult, error)

	// Get returns a document with joined display names. Reading has side
	// effects by contract: the view counter and last-accessed time move, and
	// a "viewed" event is appended.
	Get(ctx context.Context, id, actorID, origin string) (*model.DocumentDetail, error)

	// Update applies a partial metadata update and audits which fields changed.
	Update(ctx context.Context, id string, in UpdateInput) (*model.Document, error)

	// Delete audits the deletion, removes the backing content (missing content
	// is tolerated), then removes the record. History survives the document.
	Delete(ctx context.Context, id, actorID, origin string) error

	// Download streams the backing content, bumping the download counter and
	// appending a "downloaded" event.
	Download(ctx context.Context, id, actorID, origin string) (*DownloadResult, error)

	// DownloadURL returns a time-limited presigned URL for the backing
	// content instead of streaming it. Counted and audited like Download.
	DownloadURL(ctx context.Context, id, actorID, origin string) (string, error)

	// History returns the ordered audit trail of a document.
	History(ctx context.Context, id string) ([]model.HistoryEvent, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store      storage.Storage
	repo       repository.DocumentRepository
	history    repository.HistoryRepository
	extractor  extract.Extractor
	classifier classify.Classifier
	now        func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	store storage.Storage,
	repo repository.DocumentRepository,
	history repository.HistoryRepository,
	extractor extract.Extractor,
	classifier classify.Classifier,
) DocumentService {
	return &documentService{
		store:      store,
		repo:       repo,
		history:    history,
		extractor:  extractor,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *documentService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrTitleRequired
	}
	if len(in.Data) == 0 {
		return nil, ErrFileRequired
	}

	hash := extract.Fingerprint(in.Data)

	// Fast-path dedup gate. The unique constraint on file_hash remains the
	// authoritative backstop for the check-then-insert race.
	if existing, err := s.repo.FindByHash(ctx, hash); err == nil {
		return nil, &DuplicateError{ExistingID: existing.ID, ExistingTitle: existing.Title}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dedup check: %w", err)
	}

	ext := filepath.Ext(in.Filename)
	key := filepath.ToSlash(filepath.Join("documents", uuid.New().String()+ext))

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(in.Data), storage.PutObjectOptions{
		Size:        int64(len(in.Data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// Extraction and classification degrade, never abort.
	text, err := s.extractor.Extract(ctx, in.Data, contentType)
	if err != nil {
		logEvent("warn", "text_extraction_degraded", map[string]any{"error": err.Error(), "content_type": contentType})
		text = ""
	}
	cls, err := s.classifier.Classify(ctx, text, in.Title, in.Description)
	if err != nil {
		logEvent("warn", "classification_degraded", map[string]any{"error": err.Error()})
		cls = classify.Result{
			Summary:    "Résumé automatique : " + in.Title + ".",
			Keywords:   []string{},
			Category:   "General",
			Confidence: 0.75,
		}
	}

	category := in.Category
	if category == "" {
		category = cls.Category
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	level := in.Confidentiality
	if level == "" {
		level = model.LevelInternal
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	now := s.now()
	doc := &model.Document{
		ID:              uuid.New().String(),
		FileHash:        hash,
		Filename:        in.Filename,
		StoragePath:     objInfo.Key,
		Size:            objInfo.Size,
		ContentType:     contentType,
		Title:           in.Title,
		Description:     in.Description,
		Category:        category,
		Tags:            tags,
		Status:          status,
		Priority:        priority,
		Confidentiality: level,
		ProjectID:       in.ProjectID,
		CompanyID:       in.CompanyID,
		EstablishmentID: in.EstablishmentID,
		ExtractedText:   text,
		AISummary:       cls.Summary,
		AIKeywords:      cls.Keywords,
		AICategory:      cls.Category,
		AIConfidence:    cls.Confidence,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       in.ActorID,
		UpdatedBy:       in.ActorID,
		IsLatestVersion: true,
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Orphaned content cleanup is mandatory; "already gone" is fine.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			logEvent("error", "ingest_cleanup_failed", map[string]any{"key": key, "error": delErr.Error()})
		}
		if repository.IsUniqueViolation(err) {
			// Lost the race: the constraint is the authoritative conflict signal.
			if existing, findErr := s.repo.FindByHash(ctx, hash); findErr == nil {
				return nil, &DuplicateError{ExistingID: existing.ID, ExistingTitle: existing.Title}
			}
			return nil, &DuplicateError{}
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if _, err := s.history.Append(ctx, &model.HistoryEvent{
		DocumentID: stored.ID,
		Action:     model.ActionCreated,
		ActorID:    in.ActorID,
		Details: map[string]any{
			"title":       stored.Title,
			"category":    stored.Category,
			"ai_category": stored.AICategory,
		},
		Origin:    in.Origin,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	return &IngestResult{Document: stored, Classification: cls}, nil
}

func (s *documentService) List(ctx context.Context, in ListInput) (*DocumentListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	res, err := s.repo.List(ctx, repository.ListQuery{
		Search:          in.Search,
		Category:        in.Category,
		Status:          in.Status,
		Priority:        in.Priority,
		ProjectID:       in.ProjectID,
		CompanyID:       in.CompanyID,
		EstablishmentID: in.EstablishmentID,
		SortBy:          in.SortBy,
		SortDesc:        !strings.EqualFold(in.SortDir, "asc"),
		Limit:           limit,
		Offset:          (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	pages := (res.Total + limit - 1) / limit
	return &DocumentListResult{
		Items: res.Items,
		Total: res.Total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}, nil
}

func (s *documentService) Get(ctx context.Context, id, actorID, origin string) (*model.DocumentDetail, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Side effects are part of the read contract.
	now := s.now()
	if err := s.repo.IncrementViewCount(ctx, id, now); err != nil {
		return nil, fmt.Errorf("increment view count: %w", err)
	}
	if _, err := s.history.Append(ctx, &model.HistoryEvent{
		DocumentID: id,
		Action:     model.ActionViewed,
		ActorID:    actorID,
		Origin:     origin,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	detail.ViewCount++
	detail.LastAccessedAt = &now
	return detail, nil
}

func (s *documentService) Update(ctx context.Context, id string, in UpdateInput) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, ErrTitleRequired
	}

	changed := changedFields(&existing.Document, in)

	now := s.now()
	updated, err := s.repo.Update(ctx, id, repository.UpdatePatch{
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Tags:            in.Tags,
		Status:          in.Status,
		Priority:        in.Priority,
		Confidentiality: in.Confidentiality,
		ProjectID:       in.ProjectID,
		CompanyID:       in.CompanyID,
		EstablishmentID: in.EstablishmentID,
		UpdatedBy:       in.ActorID,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.history.Append(ctx, &model.HistoryEvent{
		DocumentID: id,
		Action:     model.ActionUpdated,
		ActorID:    in.ActorID,
		Details:    map[string]any{"changed_fields": changed},
		Origin:     in.Origin,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	return updated, nil
}

func (s *documentService) Delete(ctx context.Context, id, actorID, origin string) error {
	if id == "" {
		return ErrIDRequired
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	// The audit event is written before the row disappears and is never
	// cascaded away with it.
	now := s.now()
	if _, err := s.history.Append(ctx, &model.HistoryEvent{
		DocumentID: id,
		Action:     model.ActionDeleted,
		ActorID:    actorID,
		Details:    map[string]any{"title": existing.Title},
		Origin:     origin,
		CreatedAt:  now,
	}); err != nil {
		return fmt.Errorf("record history: %w", err)
	}

	// Missing or unremovable content is tolerated; the record still goes.
	if err := s.store.Delete(ctx, existing.StoragePath); err != nil {
		logEvent("warn", "content_delete_failed", map[string]any{
			"document_id": id,
			"key":         existing.StoragePath,
			"error":       err.Error(),
		})
	}

	return s.repo.Delete(ctx, id)
}

func (s *documentService) Download(ctx context.Context, id, actorID, origin string) (*DownloadResult, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rc, info, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		// The record resolved but its content did not: a distinct condition.
		return nil, fmt.Errorf("%w: %s", ErrContentNotFound, doc.StoragePath)
	}

	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		rc.Close()
		return nil, fmt.Errorf("increment download count: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(doc.Filename), ".")
	if _, err := s.history.Append(ctx, &model.HistoryEvent{
		DocumentID: id,
		Action:     model.ActionDownloaded,
		ActorID:    actorID,
		Details:    map[string]any{"format": format},
		Origin:     origin,
		CreatedAt:  s.now(),
	}); err != nil {
		rc.Close()
		return nil, fmt.Errorf("record history: %w", err)
	}

	return &DownloadResult{
		Content:     rc,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Size:        info.Size,
	}, nil
}

// presignExpiry bounds how long a presigned download link stays valid.
const presignExpiry = 15 * time.Minute

func (s *documentService) DownloadURL(ctx context.Context, id, actorID, origin string) (string, error) {
	if id == "" {
		return "", ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	url, err := s.store.PresignGet(ctx, doc.StoragePath, presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign content: %w", err)
	}

	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		return "", fmt.Errorf("increment download count: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(doc.Filename), ".")
	if _, err := s.history.Append(ctx, &model.HistoryEvent{
		DocumentID: id,
		Action:     model.ActionDownloaded,
		ActorID:    actorID,
		Details:    map[string]any{"format": format, "presigned": true},
		Origin:     origin,
		CreatedAt:  s.now(),
	}); err != nil {
		return "", fmt.Errorf("record history: %w", err)
	}

	return url, nil
}

func (s *documentService) History(ctx context.Context, id string) ([]model.HistoryEvent, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return s.history.ListByDocument(ctx, id)
}

// changedFields lists the top-level fields whose value actually changes under
// the patch, for the "updated" audit event.
func changedFields(existing *model.Document, in UpdateInput) []string {
	changed := make([]string, 0, 4)
	if in.Title != nil && *in.Title != existing.Title {
		changed = append(changed, "title")
	}
	if in.Description != nil && *in.Description != existing.Description {
		changed = append(changed, "description")
	}
	if in.Category != nil && *in.Category != existing.Category {
		changed = append(changed, "category")
	}
	if in.Tags != nil && !equalStrings(*in.Tags, existing.Tags) {
		changed = append(changed, "tags")
	}
	if in.Status != nil && *in.Status != existing.Status {
		changed = append(changed, "status")
	}
	if in.Priority != nil && *in.Priority != existing.Priority {
		changed = append(changed, "priority")
	}
	if in.Confidentiality != nil && *in.Confidentiality != existing.Confidentiality {
		changed = append(changed, "confidentiality")
	}
	if in.ProjectID != nil && !equalRef(in.ProjectID, existing.ProjectID) {
		changed = append(changed, "project_id")
	}
	if in.CompanyID != nil && !equalRef(in.CompanyID, existing.CompanyID) {
		changed = append(changed, "company_id")
	}
	if in.EstablishmentID != nil && !equalRef(in.EstablishmentID, existing.EstablishmentID) {
		changed = append(changed, "establishment_id")
	}
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
