// Package markdown normalises markdown vault documents: frontmatter
// extraction, inline tag and wikilink collection, and markup stripping.
package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

var (
	wikilinkPattern  = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	inlineTagPattern = regexp.MustCompile(`#([a-zA-Z0-9_/-]+)`)
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
)

// Normalise converts a markdown document to a normalised document.
// The Content field contains the plain text with markup stripped, so
// chunk boundaries are not disturbed by formatting syntax. A document
// that is empty after trimming yields a nil result: empty documents
// are skipped, not indexed as empty chunks.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	front, body := splitFrontmatter(string(raw.Content))
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	doc := domain.Document{
		ID:         raw.URI,
		SourceID:   raw.SourceID,
		URI:        raw.URI,
		Title:      extractTitle(front, raw.URI),
		Content:    stripMarkdown(body),
		Tags:       extractTags(front, body),
		Wikilinks:  extractWikilinks(body),
		Headings:   extractHeadings(body),
		Metadata:   copyMetadata(raw.Metadata),
		ModifiedAt: raw.ModifiedAt,
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "markdown"

	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// splitFrontmatter separates a leading YAML frontmatter block from the
// body. A malformed block never fails the document: the whole input is
// returned as body with empty metadata instead.
func splitFrontmatter(content string) (map[string]any, string) {
	s := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(s, "---") {
		return nil, content
	}

	parts := strings.SplitN(s, "---", 3)
	if len(parts) < 3 {
		return nil, content
	}

	var front map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &front); err != nil {
		return nil, content
	}

	return front, strings.TrimPrefix(parts[2], "\n")
}

// extractTitle prefers the frontmatter title, falling back to the
// filename without extension.
func extractTitle(front map[string]any, uri string) string {
	if title, ok := front["title"].(string); ok && title != "" {
		return title
	}

	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename
}

// extractTags unions frontmatter tags with inline #tag markers.
// Case-preserving; exact duplicates removed, insertion order kept.
func extractTags(front map[string]any, body string) []string {
	seen := make(map[string]struct{})
	var tags []string

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	switch v := front["tags"].(type) {
	case string:
		add(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	}

	for _, match := range inlineTagPattern.FindAllStringSubmatch(body, -1) {
		add(match[1])
	}

	return tags
}

// extractWikilinks returns [[target]] references in document order.
// Not deduplicated; repetition count may be meaningful.
func extractWikilinks(body string) []string {
	matches := wikilinkPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	links := make([]string, 0, len(matches))
	for _, match := range matches {
		links = append(links, match[1])
	}
	return links
}

// extractHeadings returns heading texts in document order.
func extractHeadings(body string) []string {
	matches := headingPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	headings := make([]string, 0, len(matches))
	for _, match := range matches {
		headings = append(headings, strings.TrimSpace(match[1]))
	}
	return headings
}

// stripMarkdown removes common markdown formatting for plain text content.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	// Remove code blocks (```...```)
	codeBlock := regexp.MustCompile("(?s)```[^`]*```")
	content = codeBlock.ReplaceAllString(content, "")

	// Remove inline code (`code`)
	inlineCode := regexp.MustCompile("`[^`]+`")
	content = inlineCode.ReplaceAllString(content, "")

	// Remove images ![alt](url)
	images := regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	content = images.ReplaceAllString(content, "")

	// Convert links [text](url) to just text
	links := regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	content = links.ReplaceAllString(content, "$1")

	// Unwrap wikilinks [[target]] to target
	content = wikilinkPattern.ReplaceAllString(content, "$1")

	// Remove heading markers (# ## ### etc)
	headings := regexp.MustCompile(`(?m)^#{1,6}\s+`)
	content = headings.ReplaceAllString(content, "")

	// Remove bold/italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	// Remove blockquote markers
	blockquote := regexp.MustCompile(`(?m)^>\s*`)
	content = blockquote.ReplaceAllString(content, "")

	// Remove horizontal rules
	hr := regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	content = hr.ReplaceAllString(content, "")

	// Remove list markers (- * + and numbered)
	listMarkers := regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	content = listMarkers.ReplaceAllString(content, "")
	numberedList := regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	content = numberedList.ReplaceAllString(content, "")

	// Collapse multiple newlines
	multiNewlines := regexp.MustCompile(`\n{3,}`)
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
