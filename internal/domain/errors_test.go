package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] document not indexed", ErrDocumentNotFound.Error())

	wrapped := NewDomainErrorWithCause(ErrCodeValidation, "document could not be parsed", errors.New("bad xref"))
	assert.Equal(t, "[VALIDATION_ERROR] document could not be parsed: bad xref", wrapped.Error())
}

func TestDomainError_IsMatchesWrappedCopies(t *testing.T) {
	cause := errors.New("malformed trailer")
	err := fmt.Errorf("load: %w", NewDomainErrorWithCause(ErrInvalidDocument.Code, ErrInvalidDocument.Message, cause))

	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEmptyDocument)
}
