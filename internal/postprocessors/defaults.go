package postprocessors

import (
	"github.com/custodia-labs/recall-cli/internal/postprocessors/chunker"
)

// DefaultPipeline builds the standard processing pipeline: a single
// deterministic chunker. A non-positive chunk size or a negative
// overlap falls back to the chunker defaults.
func DefaultPipeline(chunkSize, overlap int) *Pipeline {
	var opts []chunker.Option
	if chunkSize > 0 {
		opts = append(opts, chunker.WithChunkSize(chunkSize))
	}
	if overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return NewPipeline(chunker.New(opts...))
}
