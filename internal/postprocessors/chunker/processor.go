// Package chunker provides a deterministic, boundary-aware text
// chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Backward search windows for clean break points.
const (
	sentenceWindow   = 100
	whitespaceWindow = 50
)

// Processor splits document content into chunks with deterministic IDs.
// The same text with the same parameters always yields the same chunk
// sequence, so re-parsing unchanged content is a no-op diff against the
// index. It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must stay below chunk size or chunking cannot advance
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from
// document content. Each chunk carries the parent document's metadata
// plus its own index, parent source ID and content preview.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	pieces := Split(doc.Content, p.chunkSize, p.overlap)
	if len(pieces) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    piece,
			Position:   i,
			Metadata:   chunkMetadata(doc, i, piece),
		})
	}

	return chunks, nil
}

// Split divides text into chunks of roughly chunkSize characters,
// preferring sentence boundaries, then whitespace, then a hard cut.
//
// Text no longer than chunkSize yields a single trimmed chunk; empty
// input yields no chunks. The next chunk starts at
// max(prevStart+chunkSize-overlap, prevEnd), which guarantees forward
// progress even when a boundary search extended the previous chunk.
func Split(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	content := strings.TrimSpace(text)
	if content == "" {
		return nil
	}
	if len(content) <= chunkSize {
		return []string{content}
	}

	estimated := len(content)/(chunkSize-overlap) + 1
	chunks := make([]string, 0, estimated)

	start := 0
	for start < len(content) {
		end := start + chunkSize
		if end >= len(content) {
			end = len(content)
		} else {
			end = findBreak(content, start, end)
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := start + chunkSize - overlap
		if end > next {
			next = end
		}
		start = next
	}

	return chunks
}

// findBreak searches backward from end for a clean break point:
// first a sentence terminator within sentenceWindow, then whitespace
// within whitespaceWindow, else the hard cut at end.
func findBreak(content string, start, end int) int {
	floor := end - sentenceWindow
	if floor < start {
		floor = start
	}
	for i := end; i > floor; i-- {
		switch content[i] {
		case '.', '!', '?':
			return i + 1
		}
	}

	floor = end - whitespaceWindow
	if floor < start {
		floor = start
	}
	for i := end; i > floor; i-- {
		switch content[i] {
		case ' ', '\t', '\n', '\r':
			return i
		}
	}

	return end
}

// chunkMetadata copies the parent document's fields into chunk
// metadata and adds the chunk-level keys.
func chunkMetadata(doc *domain.Document, index int, content string) map[string]any {
	md := make(map[string]any, len(doc.Metadata)+8)
	for k, v := range doc.Metadata {
		md[k] = v
	}

	md["title"] = doc.Title
	if len(doc.Tags) > 0 {
		md["tags"] = strings.Join(doc.Tags, ",")
	}
	if len(doc.Wikilinks) > 0 {
		md["wikilinks"] = strings.Join(doc.Wikilinks, ",")
	}
	if len(doc.Headings) > 0 {
		md["headings"] = strings.Join(doc.Headings, ",")
	}
	if !doc.ModifiedAt.IsZero() {
		md["modified_at"] = doc.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	md["parent_source_id"] = doc.ID
	md["chunk_index"] = index
	md["preview"] = domain.Preview(content)

	return md
}
