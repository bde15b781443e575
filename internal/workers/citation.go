package workers

import "strings"

// PageText is one page of extracted contract text. Pages are 1-based
// and kept in ascending order; pages with no extractable text are
// never stored.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Citation points at a span of text inside a stored document.
type Citation struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Text       string `json:"text"`
}

// JoinPages flattens a document into a single string with pages
// separated by one space, in page order. Detector offsets are relative
// to this joined form until LocatePage resolves them.
func JoinPages(pages []PageText) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, " ")
}

// LocatePage maps a citation produced against joined text back onto
// the first page whose text contains the cited span. The citation's
// offsets are rewritten to be page-relative. If no page contains the
// span the citation is returned unchanged.
func LocatePage(c Citation, pages []PageText) Citation {
	if c.Text == "" {
		return c
	}
	for _, p := range pages {
		idx := strings.Index(p.Text, c.Text)
		if idx < 0 {
			continue
		}
		c.Page = p.Page
		c.StartChar = idx
		c.EndChar = idx + len(c.Text)
		return c
	}
	return c
}
