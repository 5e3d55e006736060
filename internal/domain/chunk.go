package domain

// FileTypePDF is the file_type recorded on chunks parsed from PDF uploads.
const FileTypePDF = "pdf"

// Page is a single page of extracted document text.
type Page struct {
	Number int
	Text   string
}

// DocumentChunk is a bounded text window of an uploaded document.
// Chunks are immutable once created.
type DocumentChunk struct {
	Text       string
	SourceID   string
	PageNumber int
	FileType   string
	// ChunkIndex is the position of the chunk within its document,
	// used to restore emission order when chunks are read back.
	ChunkIndex int
	Embedding  []float32
}

// RetrievalHit is a single similarity match.
type RetrievalHit struct {
	Text       string
	PageNumber int
	SourceID   string
	Score      float32
}

// RetrievalResult is an ordered list of hits, most similar first.
type RetrievalResult []RetrievalHit

// ConversationTurn is one user/assistant exchange from a web Q&A session.
type ConversationTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Texts returns the chunk texts in order.
func Texts(chunks []DocumentChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
