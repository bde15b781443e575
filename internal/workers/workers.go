package workers

import "github.com/google/uuid"

type ToolDef struct {
	Name        string
	Description string
}

// newDocumentID returns a fresh v4 UUID string used for documents,
// chunks, and any other server-assigned identifiers.
func newDocumentID() string {
	return uuid.NewString()
}
