package service

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/guardian/internal/domain"
)

// SplitterConfig controls how page text is cut into chunks.
type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultSplitterConfig cuts pages into chunks of at most 700 characters that
// share up to 100 characters with their neighbour.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    700,
		ChunkOverlap: 100,
		Separators:   []string{"\n\n", "\n", " ", ""},
	}
}

// Splitter is a recursive character splitter. It tries paragraph breaks first,
// then line breaks, then spaces, and finally individual characters. Lengths are
// counted in runes.
type Splitter struct {
	cfg SplitterConfig
}

func NewSplitter(cfg SplitterConfig) *Splitter {
	def := DefaultSplitterConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = min(def.ChunkOverlap, cfg.ChunkSize/2)
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = def.Separators
	}
	return &Splitter{cfg: cfg}
}

// Split cuts every page and numbers the chunks across the whole document.
func (s *Splitter) Split(pages []domain.Page, sourceID string) []domain.DocumentChunk {
	chunks := make([]domain.DocumentChunk, 0, len(pages))
	for _, page := range pages {
		for _, text := range s.SplitText(page.Text) {
			chunks = append(chunks, domain.DocumentChunk{
				Text:       text,
				SourceID:   sourceID,
				PageNumber: page.Number,
				FileType:   domain.FileTypePDF,
				ChunkIndex: len(chunks),
			})
		}
	}
	return chunks
}

// SplitText returns the trimmed, non-empty chunks of text.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.cfg.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.cfg.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge greedily joins consecutive pieces into chunks, carrying the tail of
// each emitted chunk into the next one while it fits within the overlap.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.cfg.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				out = append(out, doc)
			}
			for total > s.cfg.ChunkOverlap || (total+n > s.cfg.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepingSeparator splits text on sep and glues each separator to the
// start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	if raw[0] != "" {
		parts = append(parts, raw[0])
	}
	for _, p := range raw[1:] {
		parts = append(parts, sep+p)
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
