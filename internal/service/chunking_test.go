package service

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%04d", i)
	}
	return strings.Join(words, " ")
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func TestSplitter_ShortText(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())

	assert.Equal(t, []string{"Para one.\n\nPara two."}, s.SplitText("  Para one.\n\nPara two.  "))
}

func TestSplitter_EmptyText(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())

	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText(" \n\n \n "))
}

func TestSplitter_WordsRespectSizeAndOverlap(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())
	text := numberedWords(420)

	chunks := s.SplitText(text)

	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 700)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		assert.Contains(t, lastRunes(chunks[i-1], 100), first, "chunk %d should start inside the tail of chunk %d", i, i-1)
	}
	assert.True(t, strings.HasPrefix(chunks[0], "w0000"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "w0419"))
}

func TestSplitter_CharacterFallback(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())
	text := strings.Repeat("abcdefghij", 150)

	chunks := s.SplitText(text)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 700)
	assert.Len(t, chunks[1], 700)
	assert.Len(t, chunks[2], 300)
	assert.Equal(t, chunks[0][600:], chunks[1][:100])
	assert.Equal(t, chunks[1][600:], chunks[2][:100])
}

func TestSplitter_CountsRunes(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())
	text := strings.Repeat("é", 800)

	chunks := s.SplitText(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, 700, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 200, utf8.RuneCountInString(chunks[1]))
}

func TestSplitter_PrefersParagraphBreaks(t *testing.T) {
	s := NewSplitter(SplitterConfig{ChunkSize: 40, ChunkOverlap: 0})
	text := "first paragraph is here\n\nsecond paragraph is here"

	assert.Equal(t, []string{"first paragraph is here", "second paragraph is here"}, s.SplitText(text))
}

func TestSplitter_Deterministic(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())
	text := numberedWords(300) + "\n\n" + numberedWords(50)

	assert.Equal(t, s.SplitText(text), s.SplitText(text))
}

func TestSplitter_Split(t *testing.T) {
	s := NewSplitter(DefaultSplitterConfig())
	pages := []domain.Page{
		{Number: 1, Text: numberedWords(200)},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "Termination requires notice."},
	}

	chunks := s.Split(pages, "lease")

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "lease", c.SourceID)
		assert.Equal(t, domain.FileTypePDF, c.FileType)
	}
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 1, chunks[1].PageNumber)
	assert.Equal(t, 3, chunks[2].PageNumber)
	assert.Equal(t, "Termination requires notice.", chunks[2].Text)
}

func TestNewSplitter_FixesInvalidConfig(t *testing.T) {
	s := NewSplitter(SplitterConfig{ChunkSize: 50, ChunkOverlap: 80})

	assert.Equal(t, 50, s.cfg.ChunkSize)
	assert.Equal(t, 25, s.cfg.ChunkOverlap)
	assert.Equal(t, DefaultSplitterConfig().Separators, s.cfg.Separators)
}
