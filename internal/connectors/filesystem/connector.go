// Package filesystem implements the Source interface for a local
// markdown vault: directory walking for full enumeration and an
// fsnotify-backed watch for real-time change events.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Source = (*Connector)(nil)

// Type is the connector type identifier.
const Type = "filesystem"

// excludedDirs are vault system directories that must never be
// indexed. Indexing them would feed the index's own metadata back
// into the pipeline.
var excludedDirs = map[string]struct{}{
	".obsidian":    {},
	".trash":       {},
	".git":         {},
	"node_modules": {},
}

// mimeTypes maps recognised file extensions to MIME types. Files with
// other extensions are ignored by sync and watch.
var mimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
}

// Connector reads documents from a local directory tree.
type Connector struct {
	sourceID string
	rootPath string
}

// New creates a filesystem connector rooted at rootPath.
func New(sourceID, rootPath string) *Connector {
	return &Connector{
		sourceID: sourceID,
		rootPath: rootPath,
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return Type
}

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsWatch:      true,
		SupportsHierarchy:  true,
		SupportsValidation: true,
	}
}

// Validate checks the root exists, is a directory, and contains at
// least one parseable document.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidVault, c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidVault, c.rootPath)
	}

	found := false
	err = filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries don't invalidate the vault
		}
		if d.IsDir() {
			if c.skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.parseable(path) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: walking %s: %v", domain.ErrInvalidVault, c.rootPath, err)
	}
	if !found {
		return fmt.Errorf("%w: %s contains no parseable documents", domain.ErrInvalidVault, c.rootPath)
	}
	return nil
}

// FetchAll enumerates every parseable document under the root.
func (c *Connector) FetchAll(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		walkErr := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if c.skipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !c.parseable(path) {
				return nil
			}

			doc, err := c.read(path)
			if err != nil {
				logger.Warn("Skipping unreadable file %s: %v", path, err)
				return nil
			}

			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil && ctx.Err() == nil {
			errs <- walkErr
		}
	}()

	return docs, errs
}

// Fetch reads a single document by its vault-relative URI.
func (c *Connector) Fetch(_ context.Context, uri string) (*domain.RawDocument, error) {
	path := filepath.Join(c.rootPath, filepath.FromSlash(uri))

	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: uri escapes vault root: %s", domain.ErrInvalidInput, uri)
	}

	doc, err := c.read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Watch emits change events for the vault until ctx is cancelled.
// Subdirectories are watched recursively; directories created while
// watching are added to the watch and their contents emitted as
// creations (files may land before the watch attaches).
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := c.watchTree(watcher, c.rootPath, nil); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}

	changes := make(chan domain.RawDocumentChange)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watch error: %v", err)

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				c.dispatch(ctx, watcher, event, changes)
			}
		}
	}()

	return changes, nil
}

// Close releases resources. The fsnotify watcher is owned by the Watch
// goroutine and closed when its context is cancelled.
func (c *Connector) Close() error {
	return nil
}

// dispatch converts one fsnotify event into zero or more change events.
func (c *Connector) dispatch(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, changes chan<- domain.RawDocumentChange) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if c.skipDir(event.Name) {
				return
			}
			// watch the new directory and surface files created
			// inside it before the watch attached
			if err := c.watchTree(watcher, event.Name, func(path string) {
				c.emit(ctx, changes, domain.ChangeCreated, path)
			}); err != nil {
				logger.Warn("Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !c.parseable(event.Name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		uri, err := c.relURI(event.Name)
		if err != nil {
			return
		}
		select {
		case changes <- domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{SourceID: c.sourceID, URI: uri},
		}:
		case <-ctx.Done():
		}

	case event.Op.Has(fsnotify.Create):
		c.emit(ctx, changes, domain.ChangeCreated, event.Name)

	case event.Op.Has(fsnotify.Write):
		c.emit(ctx, changes, domain.ChangeUpdated, event.Name)
	}
}

// emit reads the file and sends a change event. Files that vanish
// between the event and the read are skipped; their delete event
// follows separately.
func (c *Connector) emit(ctx context.Context, changes chan<- domain.RawDocumentChange, t domain.ChangeType, path string) {
	if !c.parseable(path) {
		return
	}
	doc, err := c.read(path)
	if err != nil {
		logger.Debug("Skipping %s event for %s: %v", t, path, err)
		return
	}
	select {
	case changes <- domain.RawDocumentChange{Type: t, Document: *doc}:
	case <-ctx.Done():
	}
}

// watchTree adds path and all non-excluded subdirectories to the
// watcher. When onFile is non-nil it is invoked for each parseable
// file encountered.
func (c *Connector) watchTree(watcher *fsnotify.Watcher, root string, onFile func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable subtrees are skipped
		}
		if d.IsDir() {
			if c.skipDir(path) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		if onFile != nil && c.parseable(path) {
			onFile(path)
		}
		return nil
	})
}

// read loads one file into a RawDocument with a vault-relative URI.
func (c *Connector) read(path string) (*domain.RawDocument, error) {
	uri, err := c.relURI(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &domain.RawDocument{
		SourceID:   c.sourceID,
		URI:        uri,
		MIMEType:   mimeTypes[strings.ToLower(filepath.Ext(path))],
		Content:    content,
		ModifiedAt: info.ModTime(),
		Metadata: map[string]any{
			"absolute_path": path,
			"size_bytes":    info.Size(),
		},
	}, nil
}

// relURI converts an absolute path to the vault-relative, slash-separated URI.
func (c *Connector) relURI(path string) (string, error) {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// parseable reports whether the file is a recognised content type and
// not hidden or inside an excluded directory.
func (c *Connector) parseable(path string) bool {
	if _, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return !c.excluded(path)
}

// skipDir reports whether a directory is excluded from walking.
func (c *Connector) skipDir(path string) bool {
	if path == c.rootPath {
		return false
	}
	base := filepath.Base(path)
	if _, ok := excludedDirs[base]; ok {
		return true
	}
	return strings.HasPrefix(base, ".")
}

// excluded reports whether any path component is an excluded or hidden
// directory.
func (c *Connector) excluded(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return true
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if _, ok := excludedDirs[part]; ok {
			return true
		}
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
