package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// Cursor marks the last chunk returned by a scroll.
type Cursor struct {
	SourceID  string
	LastIndex int
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates a base64-encoded cursor from a source id and the last
// chunk index returned.
func EncodeCursor(sourceID string, lastIndex int) string {
	raw := sourceID + "|" + strconv.Itoa(lastIndex)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a cursor. An empty cursor yields nil and no error.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	i := strings.LastIndex(string(decoded), "|")
	if i < 0 {
		return nil, ErrInvalidCursor
	}

	lastIndex, err := strconv.Atoi(string(decoded[i+1:]))
	if err != nil || lastIndex < 0 {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		SourceID:  string(decoded[:i]),
		LastIndex: lastIndex,
	}, nil
}

// After returns the chunk index a scroll should continue after, or -1 when
// cursor is empty. The cursor must belong to sourceID.
func After(cursor, sourceID string) (int, error) {
	c, err := DecodeCursor(cursor)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return -1, nil
	}
	if c.SourceID != sourceID {
		return 0, ErrInvalidCursor
	}
	return c.LastIndex, nil
}

// CreateNextCursor creates a cursor for the page after items.
// Returns empty string if there are no more items
func CreateNextCursor[T any](items []T, limit int, sourceID string, getIndex func(T) int) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	return EncodeCursor(sourceID, getIndex(items[len(items)-1]))
}
