package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_Classify_Categories(t *testing.T) {
	ctx := context.Background()
	c := NewRules()

	tests := []struct {
		name           string
		title          string
		description    string
		text           string
		wantCategory   string
		wantConfidence float64
	}{
		{
			name:           "contract terms",
			title:          "Contrat de maintenance",
			wantCategory:   "Contracts",
			wantConfidence: 0.90,
		},
		{
			name:           "invoice terms",
			title:          "Invoice March",
			text:           "invoice total due",
			wantCategory:   "Invoices",
			wantConfidence: 0.95,
		},
		{
			name:           "report terms",
			title:          "Fire Safety Audit",
			description:    "Annual inspection report for Building A",
			text:           "this report details inspection findings",
			wantCategory:   "Reports",
			wantConfidence: 0.85,
		},
		{
			name:           "procedure terms",
			title:          "Procédure d'évacuation",
			wantCategory:   "Procedures",
			wantConfidence: 0.88,
		},
		{
			name:           "technical terms",
			title:          "Network architecture overview",
			wantCategory:   "Technical",
			wantConfidence: 0.82,
		},
		{
			name:           "no match falls back to general",
			title:          "Photos chantier",
			text:           "images du site",
			wantCategory:   "General",
			wantConfidence: 0.75,
		},
		{
			name:           "first rule in priority order wins",
			title:          "Contract invoice report",
			wantCategory:   "Contracts",
			wantConfidence: 0.90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(ctx, tt.text, tt.title, tt.description)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCategory, res.Category)
			assert.Equal(t, tt.wantConfidence, res.Confidence)
		})
	}
}

func TestRules_Classify_Summary(t *testing.T) {
	ctx := context.Background()
	c := NewRules()

	t.Run("title and short description", func(t *testing.T) {
		res, err := c.Classify(ctx, "", "Fire Safety Audit", "Annual inspection report for Building A")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Summary, "Résumé automatique : Fire Safety Audit."), res.Summary)
		assert.Equal(t, "Résumé automatique : Fire Safety Audit. Annual inspection report for Building A", res.Summary)
	})

	t.Run("long description is truncated with ellipsis", func(t *testing.T) {
		desc := strings.Repeat("a", 150)
		res, err := c.Classify(ctx, "", "Titre", desc)
		require.NoError(t, err)
		assert.Equal(t, "Résumé automatique : Titre. "+strings.Repeat("a", 100)+"...", res.Summary)
	})

	t.Run("empty description yields title-only summary", func(t *testing.T) {
		res, err := c.Classify(ctx, "", "Titre", "")
		require.NoError(t, err)
		assert.Equal(t, "Résumé automatique : Titre.", res.Summary)
	})
}

func TestRules_Classify_Keywords(t *testing.T) {
	ctx := context.Background()
	c := NewRules()

	t.Run("reference scenario", func(t *testing.T) {
		res, err := c.Classify(ctx,
			"this report details inspection findings",
			"Fire Safety Audit",
			"Annual inspection report for Building A",
		)
		require.NoError(t, err)

		assert.Contains(t, res.Keywords, "report")
		assert.Contains(t, res.Keywords, "inspection")
		assert.Contains(t, res.Keywords, "findings")
		// Stop words and short tokens are excluded.
		assert.NotContains(t, res.Keywords, "this")
		assert.NotContains(t, res.Keywords, "for")
		assert.NotContains(t, res.Keywords, "a")
	})

	t.Run("first seen order and deduplication", func(t *testing.T) {
		res, err := c.Classify(ctx, "gamma alpha", "alpha beta", "beta gamma")
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, res.Keywords)
	})

	t.Run("capped at ten keywords", func(t *testing.T) {
		words := []string{
			"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
			"golf", "hotel", "india", "juliett", "kilo", "lima",
		}
		res, err := c.Classify(ctx, strings.Join(words, " "), "", "")
		require.NoError(t, err)
		assert.Len(t, res.Keywords, 10)
		assert.Equal(t, words[:10], res.Keywords)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		a, _ := c.Classify(ctx, "rapport annuel inspection", "Bilan", "synthèse annuelle")
		b, _ := c.Classify(ctx, "rapport annuel inspection", "Bilan", "synthèse annuelle")
		assert.Equal(t, a, b)
	})
}
