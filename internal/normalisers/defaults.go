package normalisers

import (
	"github.com/custodia-labs/recall-cli/internal/normalisers/markdown"
	"github.com/custodia-labs/recall-cli/internal/normalisers/plaintext"
)

// registerDefaults registers the built-in normalisers.
func registerDefaults(r *Registry) {
	r.Register(markdown.New())
	r.Register(plaintext.New())
}
