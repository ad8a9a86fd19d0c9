package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"erpdocs/internal/model"
	"erpdocs/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// docColumns is the canonical column list shared by every document query.
const docColumns = `id, file_hash, filename, storage_path, size, content_type,
	title, description, category, tags, status, priority, confidentiality,
	project_id, company_id, establishment_id,
	extracted_text, ai_summary, ai_keywords, ai_category, ai_confidence,
	view_count, download_count, last_accessed_at,
	created_at, updated_at, created_by, updated_by, is_latest_version`

// sortColumns whitelists the columns List may order by. Anything else falls
// back to created_at.
var sortColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"title":          "title",
	"size":           "size",
	"category":       "category",
	"status":         "status",
	"priority":       "priority",
	"view_count":     "view_count",
	"download_count": "download_count",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one documents row. tags and ai_keywords are stored as
// JSONB arrays and decoded here.
func scanDocument(row rowScanner, extra ...any) (*model.Document, error) {
	var (
		d              model.Document
		tagsRaw, kwRaw []byte
		projID, compID sql.NullString
		estID          sql.NullString
		lastAccessed   sql.NullTime
	)
	dest := []any{
		&d.ID, &d.FileHash, &d.Filename, &d.StoragePath, &d.Size, &d.ContentType,
		&d.Title, &d.Description, &d.Category, &tagsRaw, &d.Status, &d.Priority, &d.Confidentiality,
		&projID, &compID, &estID,
		&d.ExtractedText, &d.AISummary, &kwRaw, &d.AICategory, &d.AIConfidence,
		&d.ViewCount, &d.DownloadCount, &lastAccessed,
		&d.CreatedAt, &d.UpdatedAt, &d.CreatedBy, &d.UpdatedBy, &d.IsLatestVersion,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &d.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(kwRaw) > 0 {
		if err := json.Unmarshal(kwRaw, &d.AIKeywords); err != nil {
			return nil, fmt.Errorf("decode ai_keywords: %w", err)
		}
	}
	if projID.Valid {
		d.ProjectID = &projID.String
	}
	if compID.Valid {
		d.CompanyID = &compID.String
	}
	if estID.Valid {
		d.EstablishmentID = &estID.String
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		d.LastAccessedAt = &t
	}
	return &d, nil
}

func marshalStrings(ss []string) ([]byte, error) {
	if ss == nil {
		ss = []string{}
	}
	return json.Marshal(ss)
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	tags, err := marshalStrings(doc.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	keywords, err := marshalStrings(doc.AIKeywords)
	if err != nil {
		return nil, fmt.Errorf("encode ai_keywords: %w", err)
	}

	q := `
		INSERT INTO documents (` + docColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
		RETURNING ` + docColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID, doc.FileHash, doc.Filename, doc.StoragePath, doc.Size, doc.ContentType,
		doc.Title, doc.Description, doc.Category, tags, doc.Status, doc.Priority, doc.Confidentiality,
		doc.ProjectID, doc.CompanyID, doc.EstablishmentID,
		doc.ExtractedText, doc.AISummary, keywords, doc.AICategory, doc.AIConfidence,
		doc.ViewCount, doc.DownloadCount, doc.LastAccessedAt,
		doc.CreatedAt, doc.UpdatedAt, doc.CreatedBy, doc.UpdatedBy, doc.IsLatestVersion,
	)
	return scanDocument(row)
}

// FindByID fetches a single document with display names joined from the
// referenced ERP entities.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.DocumentDetail, error) {
	cols := "d." + strings.ReplaceAll(docColumns, ", ", ", d.")
	q := `
		SELECT ` + cols + `, p.name, c.name, e.name
		FROM documents d
		LEFT JOIN projects p ON p.id = d.project_id
		LEFT JOIN companies c ON c.id = d.company_id
		LEFT JOIN establishments e ON e.id = d.establishment_id
		WHERE d.id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)

	var projName, compName, estName sql.NullString
	doc, err := scanDocument(row, &projName, &compName, &estName)
	if err != nil {
		return nil, err
	}

	detail := &model.DocumentDetail{Document: *doc}
	if projName.Valid {
		detail.ProjectName = &projName.String
	}
	if compName.Valid {
		detail.CompanyName = &compName.String
	}
	if estName.Valid {
		detail.EstablishmentName = &estName.String
	}
	return detail, nil
}

// FindByHash fetches the document carrying the given content fingerprint.
func (r *DocumentPostgres) FindByHash(ctx context.Context, hash string) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE file_hash = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, hash))
}

// List returns a filtered, sorted page of latest-version documents and the
// total row count for the same filter.
func (r *DocumentPostgres) List(ctx context.Context, lq repository.ListQuery) (*repository.PageResult[model.Document], error) {
	where := []string{"is_latest_version = TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if lq.Search != "" {
		p := arg("%" + lq.Search + "%")
		where = append(where, fmt.Sprintf(
			"(title ILIKE %[1]s OR description ILIKE %[1]s OR extracted_text ILIKE %[1]s OR ai_summary ILIKE %[1]s)", p))
	}
	if lq.Category != "" {
		where = append(where, "category = "+arg(lq.Category))
	}
	if lq.Status != "" {
		where = append(where, "status = "+arg(lq.Status))
	}
	if lq.Priority != "" {
		where = append(where, "priority = "+arg(lq.Priority))
	}
	if lq.ProjectID != "" {
		where = append(where, "project_id = "+arg(lq.ProjectID))
	}
	if lq.CompanyID != "" {
		where = append(where, "company_id = "+arg(lq.CompanyID))
	}
	if lq.EstablishmentID != "" {
		where = append(where, "establishment_id = "+arg(lq.EstablishmentID))
	}
	cond := strings.Join(where, " AND ")

	// Count total rows for the filter.
	var total int
	qCount := `SELECT COUNT(*) FROM documents WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	sortCol, ok := sortColumns[lq.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "ASC"
	if lq.SortDesc {
		dir = "DESC"
	}

	qList := fmt.Sprintf(`SELECT `+docColumns+` FROM documents WHERE %s ORDER BY %s %s, id DESC LIMIT %s OFFSET %s`,
		cond, sortCol, dir, arg(lq.Limit), arg(lq.Offset))
	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Update applies the non-nil patch fields in a single UPDATE and returns the
// updated row. updated_by/updated_at are always stamped, even for an empty patch.
func (r *DocumentPostgres) Update(ctx context.Context, id string, patch repository.UpdatePatch) (*model.Document, error) {
	set := []string{"updated_by = $1", "updated_at = $2"}
	args := []any{patch.UpdatedBy, patch.UpdatedAt}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Tags != nil {
		tags, err := marshalStrings(*patch.Tags)
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		add("tags", tags)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Confidentiality != nil {
		add("confidentiality", *patch.Confidentiality)
	}
	if patch.ProjectID != nil {
		add("project_id", *patch.ProjectID)
	}
	if patch.CompanyID != nil {
		add("company_id", *patch.CompanyID)
	}
	if patch.EstablishmentID != nil {
		add("establishment_id", *patch.EstablishmentID)
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), docColumns)
	return scanDocument(r.db.QueryRowContext(ctx, q, args...))
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// IncrementViewCount bumps the view counter atomically at the store so
// concurrent reads never lose an increment, and stamps last_accessed_at.
func (r *DocumentPostgres) IncrementViewCount(ctx context.Context, id string, accessedAt time.Time) error {
	const q = `UPDATE documents SET view_count = view_count + 1, last_accessed_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, accessedAt)
	return err
}

// IncrementDownloadCount bumps the download counter atomically at the store.
func (r *DocumentPostgres) IncrementDownloadCount(ctx context.Context, id string) error {
	const q = `UPDATE documents SET download_count = download_count + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
