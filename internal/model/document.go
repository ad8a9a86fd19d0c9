package model

import "time"

// Document represents a stored, classified file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID          string `json:"id"`
	FileHash    string `json:"file_hash"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`

	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Status          Status   `json:"status"`
	Priority        Priority `json:"priority"`
	Confidentiality Level    `json:"confidentiality"`

	ProjectID       *string `json:"project_id"`
	CompanyID       *string `json:"company_id"`
	EstablishmentID *string `json:"establishment_id"`

	ExtractedText string   `json:"extracted_text"`
	AISummary     string   `json:"ai_summary"`
	AIKeywords    []string `json:"ai_keywords"`
	AICategory    string   `json:"ai_category"`
	AIConfidence  float64  `json:"ai_confidence"`

	ViewCount       int        `json:"view_count"`
	DownloadCount   int        `json:"download_count"`
	LastAccessedAt  *time.Time `json:"last_accessed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CreatedBy       string     `json:"created_by"`
	UpdatedBy       string     `json:"updated_by"`
	IsLatestVersion bool       `json:"is_latest_version"`
}

// DocumentDetail is a Document enriched with display names resolved from the
// ERP entities the document references. The names are read-only join results
// and are never written back.
type DocumentDetail struct {
	Document
	ProjectName       *string `json:"project_name"`
	CompanyName       *string `json:"company_name"`
	EstablishmentName *string `json:"establishment_name"`
}

// Status is the document workflow state. It carries no transition rules;
// callers move documents between states freely.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the known workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Priority is the document handling priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Level is the confidentiality level of a document.
type Level string

const (
	LevelPublic     Level = "public"
	LevelInternal   Level = "internal"
	LevelRestricted Level = "restricted"
)

// Valid reports whether l is one of the known confidentiality levels.
func (l Level) Valid() bool {
	switch l {
	case LevelPublic, LevelInternal, LevelRestricted:
		return true
	}
	return false
}
