package workers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesFromPDF_InvalidData(t *testing.T) {
	data := []byte("this is not a pdf")
	_, err := PagesFromPDF(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open pdf")
}

func TestPagesFromFile_Missing(t *testing.T) {
	_, err := PagesFromFile("/nonexistent/contract.pdf")
	assert.Error(t, err)
}
