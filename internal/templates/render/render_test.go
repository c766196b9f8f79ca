package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
)

func sampleInput() Input {
	return Input{
		RecipientName:      "Jordan Reveille",
		ListingTitle:       "Spring Career Fair",
		ListingDescription: "Meet 80+ employers in the MSC ballroom.",
		ListingLocation:    "Memorial Student Center",
		ListingStartsAt:    time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		BaseURL:            "https://events.example.edu",
		UnsubscribeToken:   "tok123",
	}
}

func TestSelector_PinnedIndex(t *testing.T) {
	sel := NewSelectorWithIntn(func(n int) int { return 1 })
	fn, idx := sel.Select(domain.CategoryEventAnnouncement)
	require.Equal(t, 1, idx)
	c := fn(sampleInput())
	assert.Contains(t, c.Subject, "Spring Career Fair")
	assert.Contains(t, c.HTML, "Jordan Reveille")
	assert.Contains(t, c.HTML, "unsubscribe?token=tok123")
}

func TestSelector_IndexWithinSet(t *testing.T) {
	sel := NewSelector()
	for i := 0; i < 50; i++ {
		_, idx := sel.Select(domain.CategoryMentorshipInvite)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 2)
	}
}

func TestSelector_UnknownCategoryFallsBack(t *testing.T) {
	sel := NewSelectorWithIntn(func(n int) int {
		require.Equal(t, 1, n) // general set has exactly one renderer
		return 0
	})
	fn, idx := sel.Select(domain.Category("made_up"))
	require.Equal(t, 0, idx)
	require.NotNil(t, fn)
}

func TestVariations_EveryCategoryNonEmpty(t *testing.T) {
	for _, cat := range []domain.Category{
		domain.CategoryEventAnnouncement,
		domain.CategoryMentorshipInvite,
		domain.CategoryRegistrationConfirmation,
		domain.CategoryGeneral,
	} {
		require.NotEmpty(t, variations[cat], "category %s", cat)
	}
}

func TestRenderers_EscapeHTML(t *testing.T) {
	in := sampleInput()
	in.ListingTitle = `<script>alert("x")</script>`
	for cat, set := range variations {
		for i, fn := range set {
			c := fn(in)
			assert.NotContains(t, c.HTML, "<script>", "category %s variation %d", cat, i)
		}
	}
}

func TestRenderers_MissingNameUsesFallbackGreeting(t *testing.T) {
	in := sampleInput()
	in.RecipientName = ""
	fn, _ := NewSelectorWithIntn(func(int) int { return 0 }).Select(domain.CategoryGeneral)
	c := fn(in)
	assert.True(t, strings.Contains(c.HTML, "Hi there"))
}
