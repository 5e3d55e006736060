package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentType_Known(t *testing.T) {
	for _, dt := range DocumentTypes {
		assert.True(t, dt.Known(), string(dt))
	}

	assert.True(t, DocumentType("  rental agreement\n").Known())
	assert.False(t, DocumentType("Employment Contract").Known())
	assert.False(t, DocumentType("").Known())
}

func TestDocumentTypeLabels(t *testing.T) {
	assert.Equal(t,
		"Health Insurance, Life Insurance, Legal Deed, Rental Agreement, Academic Policy, Financial Statement",
		DocumentTypeLabels(),
	)
}
