package extract

import (
	"context"
	"strings"
)

// Package extract turns uploaded file bytes into a text representation used by
// the classifier and by full-text search.
//
// Extraction is never allowed to fail an ingestion: the Router falls back to
// the simulated extractor when a type-specific extractor errors, and the
// simulated extractor itself never errors.

// Extractor produces a text representation of a file given its raw bytes and
// declared media type.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// Simulated is the reference extractor. It maps known media-type families to
// deterministic placeholder text and stands in for a real OCR/parsing backend.
type Simulated struct{}

// NewSimulated returns the deterministic placeholder extractor.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Extract returns placeholder text for the declared media type.
// Plain text content is passed through as-is. Never returns an error.
func (s *Simulated) Extract(_ context.Context, data []byte, contentType string) (string, error) {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	switch {
	case strings.HasPrefix(ct, "text/"):
		return string(data), nil
	case ct == "application/pdf":
		return "Texte extrait simulé du document PDF.", nil
	case ct == "application/msword",
		ct == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "Texte extrait simulé du document Word.", nil
	case ct == "application/vnd.ms-excel",
		ct == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "Données extraites simulées de la feuille de calcul.", nil
	case strings.HasPrefix(ct, "image/"):
		return "Texte OCR simulé de l'image.", nil
	default:
		return "Contenu du document.", nil
	}
}

// Router dispatches to a type-specific extractor by exact media type and
// falls back to a default extractor when none is registered or the specific
// extractor fails.
type Router struct {
	byType   map[string]Extractor
	fallback Extractor
}

// NewRouter builds a Router. The fallback must never fail; in practice it is
// the Simulated extractor.
func NewRouter(byType map[string]Extractor, fallback Extractor) *Router {
	return &Router{byType: byType, fallback: fallback}
}

// Extract runs the extractor registered for contentType, degrading to the
// fallback on any error so extraction cannot abort an ingestion.
func (r *Router) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	if ex, ok := r.byType[ct]; ok {
		if text, err := ex.Extract(ctx, data, contentType); err == nil {
			return text, nil
		}
	}
	return r.fallback.Extract(ctx, data, contentType)
}
