package repository

import (
	"context"
	"time"

	"erpdocs/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record. The unique constraint on file_hash
	// is the authoritative duplicate guard; a violation surfaces as the
	// driver's unique-violation error for the service to translate.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document with the project/company/establishment
	// display names joined in, when the references are set.
	FindByID(ctx context.Context, id string) (*model.DocumentDetail, error)

	// FindByHash returns the document carrying the given content fingerprint.
	// Used by the dedup gate as a fast-path pre-check.
	FindByHash(ctx context.Context, hash string) (*model.Document, error)

	// List returns a filtered, sorted page of latest-version documents plus
	// the total row count for the filter.
	List(ctx context.Context, q ListQuery) (*PageResult[model.Document], error)

	// Update applies a partial update and returns the updated row. Fields left
	// nil in the patch keep their stored value. id, file_hash and the file
	// attributes are immutable and not part of the patch.
	Update(ctx context.Context, id string, patch UpdatePatch) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error

	// IncrementViewCount atomically bumps the view counter and stamps the
	// last-accessed time.
	IncrementViewCount(ctx context.Context, id string, accessedAt time.Time) error

	// IncrementDownloadCount atomically bumps the download counter.
	IncrementDownloadCount(ctx context.Context, id string) error
}

// ListQuery holds the filter, sort, and pagination parameters for List.
// Zero-valued filters impose no constraint; supplied filters combine with AND.
// Search is a case-insensitive substring match across title, description,
// extracted text, and AI summary (OR across those fields).
type ListQuery struct {
	Search          string
	Category        string
	Status          string
	Priority        string
	ProjectID       string
	CompanyID       string
	EstablishmentID string

	SortBy   string
	SortDesc bool

	Limit  int
	Offset int
}

// UpdatePatch carries the optional fields of a partial document update.
// nil means "leave unchanged"; omission never nulls a stored value.
type UpdatePatch struct {
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

	UpdatedBy string
	UpdatedAt time.Time
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
