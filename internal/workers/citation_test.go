package workers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPages_SpaceSeparated(t *testing.T) {
	pages := []PageText{
		{Page: 1, Text: "First page."},
		{Page: 2, Text: "Second page."},
	}
	assert.Equal(t, "First page. Second page.", JoinPages(pages))
}

func TestJoinPages_Empty(t *testing.T) {
	assert.Equal(t, "", JoinPages(nil))
}

func TestLocatePage_ResolvesToSourcePage(t *testing.T) {
	pages := []PageText{
		{Page: 1, Text: "Recitals and definitions."},
		{Page: 2, Text: "Payment terms are net 30 days."},
		{Page: 3, Text: "The Contractor accepts unlimited liability for all claims."},
	}
	joined := JoinPages(pages)

	// A detector cites a span against the joined text.
	target := "unlimited liability"
	start := strings.Index(joined, target)
	require.GreaterOrEqual(t, start, 0)
	c := Citation{
		DocumentID: "doc-1",
		StartChar:  start,
		EndChar:    start + len(target),
		Text:       target,
	}

	resolved := LocatePage(c, pages)
	assert.Equal(t, "doc-1", resolved.DocumentID)
	assert.Equal(t, 3, resolved.Page)
	assert.Equal(t, resolved.Text, pages[2].Text[resolved.StartChar:resolved.EndChar])
}

func TestLocatePage_FirstContainingPageWins(t *testing.T) {
	pages := []PageText{
		{Page: 1, Text: "Notice shall be given in writing."},
		{Page: 2, Text: "Notice shall be given in writing."},
	}
	resolved := LocatePage(Citation{Text: "in writing"}, pages)
	assert.Equal(t, 1, resolved.Page)
}

func TestLocatePage_UnknownSpanUnchanged(t *testing.T) {
	pages := []PageText{{Page: 1, Text: "Nothing relevant here."}}
	c := Citation{Page: 0, StartChar: 10, EndChar: 20, Text: "missing span"}
	assert.Equal(t, c, LocatePage(c, pages))
}

func TestLocatePage_EmptyTextUnchanged(t *testing.T) {
	pages := []PageText{{Page: 1, Text: "Some text."}}
	c := Citation{StartChar: 3, EndChar: 3}
	assert.Equal(t, c, LocatePage(c, pages))
}
