package workers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PagesFromPDF extracts per-page plain text from a PDF. Pages are
// numbered from 1 and pages with no extractable text are omitted. A
// PDF yielding no text at all is an error, since nothing downstream
// can work with it.
func PagesFromPDF(r io.ReaderAt, size int64) ([]PageText, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []PageText
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			fmt.Printf("Warning: failed to extract text from page %d: %v\n", i, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, PageText{Page: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text in pdf")
	}
	return pages, nil
}

// PagesFromFile extracts per-page text from a PDF on disk.
func PagesFromFile(path string) ([]PageText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return PagesFromPDF(f, info.Size())
}
