package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ErrDocumentNotFound reports a document id with nothing stored
// under it.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentMeta describes a stored document.
type DocumentMeta struct {
	DocumentID      string    `json:"document_id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	SizeBytes       int64     `json:"size_bytes"`
	PageCount       int       `json:"page_count"`
}

// StoredDocument is the on-disk representation of an ingested
// contract.
type StoredDocument struct {
	DocumentID string       `json:"document_id"`
	Pages      []PageText   `json:"pages"`
	Metadata   DocumentMeta `json:"metadata"`
}

// DocumentStore persists page text, original PDFs, and cached
// extractions under one data directory. An optional MinIO client
// mirrors PDFs to object storage; mirror failures are logged, never
// fatal.
type DocumentStore struct {
	dataDir     string
	minioClient *minio.Client
	bucket      string
}

func NewDocumentStore(dataDir string) (*DocumentStore, error) {
	for _, sub := range []string{"pages", "pdfs", "extracted"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &DocumentStore{dataDir: dataDir}, nil
}

// EnableMinIO turns on PDF mirroring to the given bucket.
func (s *DocumentStore) EnableMinIO(client *minio.Client, bucket string) {
	s.minioClient = client
	s.bucket = bucket
}

func (s *DocumentStore) DataDir() string {
	return s.dataDir
}

func (s *DocumentStore) pagesPath(id string) string {
	return filepath.Join(s.dataDir, "pages", id+".json")
}

func (s *DocumentStore) pdfPath(id string) string {
	return filepath.Join(s.dataDir, "pdfs", id+".pdf")
}

func (s *DocumentStore) extractionPath(id string) string {
	return filepath.Join(s.dataDir, "extracted", id+".json")
}

// SaveDocument persists the page text and metadata, plus the original
// PDF bytes when present. pdfData may be empty for text-only ingests.
func (s *DocumentStore) SaveDocument(ctx context.Context, doc *StoredDocument, pdfData []byte) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := os.WriteFile(s.pagesPath(doc.DocumentID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if len(pdfData) > 0 {
		if err := os.WriteFile(s.pdfPath(doc.DocumentID), pdfData, 0o644); err != nil {
			return fmt.Errorf("failed to write pdf: %w", err)
		}
		s.mirrorPDF(ctx, doc.DocumentID, pdfData)
	}
	return nil
}

func (s *DocumentStore) mirrorPDF(ctx context.Context, id string, pdfData []byte) {
	if s.minioClient == nil {
		return
	}
	objectName := "pdfs/" + id + ".pdf"
	_, err := s.minioClient.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(pdfData), int64(len(pdfData)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		fmt.Printf("Warning: failed to mirror %s to minio: %v\n", objectName, err)
	}
}

// LoadDocument reads a stored document. Missing ids return an error
// wrapping ErrDocumentNotFound.
func (s *DocumentStore) LoadDocument(id string) (*StoredDocument, error) {
	data, err := os.ReadFile(s.pagesPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	var doc StoredDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return &doc, nil
}

// ListDocuments returns metadata for every stored document, newest
// first.
func (s *DocumentStore) ListDocuments() ([]DocumentMeta, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, "pages", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	metas := make([]DocumentMeta, 0, len(paths))
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), ".json")
		doc, err := s.LoadDocument(id)
		if err != nil {
			fmt.Printf("Warning: skipping unreadable document %s: %v\n", id, err)
			continue
		}
		metas = append(metas, doc.Metadata)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UploadTimestamp.After(metas[j].UploadTimestamp)
	})
	return metas, nil
}

// ListDocumentIDs returns the id of every stored document, sorted.
func (s *DocumentStore) ListDocumentIDs() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, "pages", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, strings.TrimSuffix(filepath.Base(p), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveExtraction caches an extraction result next to its document.
func (s *DocumentStore) SaveExtraction(id string, ext *Extraction) error {
	data, err := json.MarshalIndent(ext, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	if err := os.WriteFile(s.extractionPath(id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write extraction: %w", err)
	}
	return nil
}

// LoadExtraction returns the cached extraction for a document, or nil
// when none has been cached yet.
func (s *DocumentStore) LoadExtraction(id string) (*Extraction, error) {
	data, err := os.ReadFile(s.extractionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read extraction %s: %w", id, err)
	}
	var ext Extraction
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("failed to parse extraction %s: %w", id, err)
	}
	return &ext, nil
}

func (s *DocumentStore) CountDocuments() int {
	paths, _ := filepath.Glob(filepath.Join(s.dataDir, "pages", "*.json"))
	return len(paths)
}

func (s *DocumentStore) CountPDFs() int {
	paths, _ := filepath.Glob(filepath.Join(s.dataDir, "pdfs", "*.pdf"))
	return len(paths)
}

func (s *DocumentStore) CountExtractions() int {
	paths, _ := filepath.Glob(filepath.Join(s.dataDir, "extracted", "*.json"))
	return len(paths)
}
