package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"erpdocs/internal/model"
	"erpdocs/internal/service"
)

// actorHeader carries the authenticated actor's id, injected by the gateway.
// Authentication itself is out of scope for this service.
const actorHeader = "X-Actor-ID"

func actorID(c *fiber.Ctx) string {
	if id := c.Get(actorHeader); id != "" {
		return id
	}
	return "system"
}

// IngestDocument handles multipart uploads through the full ingestion
// pipeline: fingerprint, dedup gate, storage, extraction, classification,
// persistence, audit.
func IngestDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		in := service.IngestInput{
			Data:        data,
			Filename:    fh.Filename,
			ContentType: ct,
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			Category:    c.FormValue("category"),
			Tags:        splitTags(c.FormValue("tags")),
			ActorID:     actorID(c),
			Origin:      c.IP(),
		}
		if v := c.FormValue("status"); v != "" {
			st := model.Status(v)
			if !st.Valid() {
				return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", "invalid status")
			}
			in.Status = st
		}
		if v := c.FormValue("priority"); v != "" {
			p := model.Priority(v)
			if !p.Valid() {
				return writeError(c, fiber.StatusBadRequest, "INVALID_PRIORITY", "invalid priority")
			}
			in.Priority = p
		}
		if v := c.FormValue("confidentiality"); v != "" {
			l := model.Level(v)
			if !l.Valid() {
				return writeError(c, fiber.StatusBadRequest, "INVALID_CONFIDENTIALITY", "invalid confidentiality level")
			}
			in.Confidentiality = l
		}
		if v := c.FormValue("project_id"); v != "" {
			in.ProjectID = &v
		}
		if v := c.FormValue("company_id"); v != "" {
			in.CompanyID = &v
		}
		if v := c.FormValue("establishment_id"); v != "" {
			in.EstablishmentID = &v
		}

		res, err := docSvc.Ingest(c.UserContext(), in)
		if err != nil {
			var dup *service.DuplicateError
			switch {
			case errors.Is(err, service.ErrTitleRequired):
				return writeError(c, fiber.StatusBadRequest, "TITLE_REQUIRED", "title is required")
			case errors.Is(err, service.ErrFileRequired):
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
			case errors.As(err, &dup):
				return writeConflict(c, dup.ExistingID, dup.ExistingTitle)
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListDocuments returns a filtered, sorted page of latest-version documents.
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := strconv.Atoi(c.Query("page", "1"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "invalid page")
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		res, err := docSvc.List(c.UserContext(), service.ListInput{
			Search:          c.Query("search"),
			Category:        c.Query("category"),
			Status:          c.Query("status"),
			Priority:        c.Query("priority"),
			ProjectID:       c.Query("project_id"),
			CompanyID:       c.Query("company_id"),
			EstablishmentID: c.Query("establishment_id"),
			Page:            page,
			Limit:           limit,
			SortBy:          c.Query("sort_by", "created_at"),
			SortDir:         c.Query("sort_dir", "desc"),
		})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetDocument returns one document with joined display names. The read bumps
// the view counter and appends a "viewed" audit event.
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		detail, err := docSvc.Get(c.UserContext(), id, actorID(c), c.IP())
		if err != nil {
			return handleServiceError(c, err)
		}
		return c.JSON(detail)
	}
}

// updateRequest is the JSON body of a partial update. Absent fields keep
// their stored value.
type updateRequest struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	Category        *string         `json:"category"`
	Tags            *[]string       `json:"tags"`
	Status          *model.Status   `json:"status"`
	Priority        *model.Priority `json:"priority"`
	Confidentiality *model.Level    `json:"confidentiality"`
	ProjectID       *string         `json:"project_id"`
	CompanyID       *string         `json:"company_id"`
	EstablishmentID *string         `json:"establishment_id"`
}

// UpdateDocument applies a partial metadata update and audits the fields
// that actually changed.
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req updateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.Status != nil && !req.Status.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", "invalid status")
		}
		if req.Priority != nil && !req.Priority.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PRIORITY", "invalid priority")
		}
		if req.Confidentiality != nil && !req.Confidentiality.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CONFIDENTIALITY", "invalid confidentiality level")
		}

		doc, err := docSvc.Update(c.UserContext(), id, service.UpdateInput{
			Title:           req.Title,
			Description:     req.Description,
			Category:        req.Category,
			Tags:            req.Tags,
			Status:          req.Status,
			Priority:        req.Priority,
			Confidentiality: req.Confidentiality,
			ProjectID:       req.ProjectID,
			CompanyID:       req.CompanyID,
			EstablishmentID: req.EstablishmentID,
			ActorID:         actorID(c),
			Origin:          c.IP(),
		})
		if err != nil {
			if errors.Is(err, service.ErrTitleRequired) {
				return writeError(c, fiber.StatusBadRequest, "TITLE_REQUIRED", "title cannot be empty")
			}
			return handleServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes the record and its backing content. The deletion is
// audited before the record disappears.
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id, actorID(c), c.IP()); err != nil {
			return handleServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument streams the backing content with attachment headers.
// With ?presign=1 it returns a time-limited URL instead of the bytes.
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if c.QueryBool("presign") {
			url, err := docSvc.DownloadURL(c.UserContext(), id, actorID(c), c.IP())
			if err != nil {
				return handleServiceError(c, err)
			}
			return c.JSON(fiber.Map{"url": url})
		}
		res, err := docSvc.Download(c.UserContext(), id, actorID(c), c.IP())
		if err != nil {
			if errors.Is(err, service.ErrContentNotFound) {
				return writeError(c, fiber.StatusNotFound, "CONTENT_NOT_FOUND", "document content not found")
			}
			return handleServiceError(c, err)
		}

		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+res.Filename+`"`)
		c.Set(fiber.HeaderContentType, res.ContentType)
		if res.Size > 0 {
			return c.SendStream(res.Content, int(res.Size))
		}
		return c.SendStream(res.Content)
	}
}

// DocumentHistory returns a document's ordered audit trail.
func DocumentHistory(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		events, err := docSvc.History(c.UserContext(), id)
		if err != nil {
			return handleServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": events})
	}
}

// handleServiceError maps common domain errors to HTTP responses.
func handleServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// splitTags parses a comma-separated tag list, dropping empties.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
