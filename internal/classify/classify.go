package classify

import (
	"context"
	"strings"
	"unicode"
)

// Package classify derives a classification bundle (summary, keywords,
// category, confidence) from a document's extracted text and metadata.
//
// The rule-based implementation is a deterministic stand-in for a real model.
// Keeping it behind the Classifier interface lets a model-backed
// implementation replace it without touching the ingestion pipeline.

// Result is the classification bundle produced for one document. It is a
// transient value: its fields are folded into the document's AI fields at
// creation time and it is never persisted on its own.
type Result struct {
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Classifier derives a classification bundle from extracted text plus the
// caller-supplied title and description.
type Classifier interface {
	Classify(ctx context.Context, text, title, description string) (Result, error)
}

const (
	// maxKeywords bounds the keyword set per document.
	maxKeywords = 10
	// summaryDescriptionLimit bounds how much of the description is quoted in
	// the summary before it is cut with an ellipsis.
	summaryDescriptionLimit = 100
	// minTokenLen is exclusive: only tokens strictly longer qualify as keywords.
	minTokenLen = 3
)

// categoryRule binds matching terms to a category label and its fixed
// confidence score. Rules are evaluated in order; the first match wins.
type categoryRule struct {
	category   string
	confidence float64
	terms      []string
}

var categoryRules = []categoryRule{
	{"Contracts", 0.90, []string{"contrat", "contract", "accord", "agreement", "avenant"}},
	{"Invoices", 0.95, []string{"facture", "invoice", "devis", "quote", "paiement"}},
	{"Reports", 0.85, []string{"rapport", "report", "bilan", "analyse", "synthèse"}},
	{"Procedures", 0.88, []string{"procédure", "procedure", "processus", "process", "manuel", "manual"}},
	{"Technical", 0.82, []string{"technique", "technical", "spécification", "specification", "architecture"}},
}

const (
	defaultCategory   = "General"
	defaultConfidence = 0.75
)

var stopWords = map[string]struct{}{
	// French
	"avec": {}, "dans": {}, "pour": {}, "cette": {}, "sont": {}, "être": {},
	"vous": {}, "nous": {}, "elle": {}, "tous": {}, "plus": {}, "fait": {},
	"leur": {}, "ainsi": {}, "entre": {}, "document": {},
	// English
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "been": {},
	"were": {}, "they": {}, "their": {}, "will": {}, "would": {}, "about": {},
	"which": {}, "there": {}, "these": {}, "than": {}, "into": {},
}

// Rules is the deterministic, rule-based reference classifier.
// It is a pure function of its inputs: no external calls, no side effects.
type Rules struct{}

// NewRules returns the rule-based classifier.
func NewRules() *Rules {
	return &Rules{}
}

var _ Classifier = (*Rules)(nil)

// Classify derives the bundle. It never returns an error; the error is part
// of the interface for model-backed implementations.
func (r *Rules) Classify(_ context.Context, text, title, description string) (Result, error) {
	combined := strings.ToLower(title + " " + description + " " + text)
	category, confidence := matchCategory(combined)

	return Result{
		Summary:    buildSummary(title, description),
		Keywords:   extractKeywords(combined),
		Category:   category,
		Confidence: confidence,
	}, nil
}

// buildSummary composes the automatic summary from the title and a bounded
// prefix of the description.
func buildSummary(title, description string) string {
	var sb strings.Builder
	sb.WriteString("Résumé automatique : ")
	sb.WriteString(title)
	sb.WriteString(".")
	if description != "" {
		sb.WriteString(" ")
		if runes := []rune(description); len(runes) > summaryDescriptionLimit {
			sb.WriteString(string(runes[:summaryDescriptionLimit]))
			sb.WriteString("...")
		} else {
			sb.WriteString(description)
		}
	}
	return sb.String()
}

// matchCategory resolves the first rule whose terms appear in the combined
// lowercase text, defaulting to the generic category.
func matchCategory(combined string) (string, float64) {
	for _, rule := range categoryRules {
		for _, term := range rule.terms {
			if strings.Contains(combined, term) {
				return rule.category, rule.confidence
			}
		}
	}
	return defaultCategory, defaultConfidence
}

// extractKeywords collects distinct tokens longer than minTokenLen, minus
// stop words, in first-seen order, capped at maxKeywords.
func extractKeywords(combined string) []string {
	tokens := strings.FieldsFunc(combined, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		if len([]rune(tok)) <= minTokenLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
