// Package sourcedoc defines the source-document producer interface the
// Vault Indexer consumes: a host-supplied view of one corpus file plus
// its cached parse (tags, headings, links), without the indexer ever
// needing to know how that parse was produced.
package sourcedoc

import (
	"context"
	"io"
	"time"
)

// Heading is one heading-level line extracted from a file's cached parse.
type Heading struct {
	Level int
	Text  string
}

// Metadata is the host's cached parse of a file: everything the indexer
// needs without re-reading and re-parsing the file itself.
type Metadata struct {
	Tags     []string // frontmatter tags plus inline #tag occurrences
	Headings []Heading
	Links    []string // outbound link targets (wiki-links, relative paths)
}

// File is one corpus file as the host exposes it to the indexer.
type File interface {
	// ID is the stable primary key the provider indexes under, typically
	// the file's path relative to the corpus root.
	ID() string
	Path() string
	Basename() string
	ParentFolder() string
	ModTime() time.Time
	Size() int64
	Metadata() Metadata

	// Open returns a reader over the file's raw content, used for body
	// extraction and the block-reference/code-fence-label scan the
	// cached metadata does not cover. The core assumes UTF-8; non-UTF-8
	// content is treated as lossy best-effort.
	Open() (io.ReadCloser, error)
}

// Source enumerates the corpus's current files. A host typically wraps a
// filesystem walk (see the fsdoc package) but any backing store that can
// produce File values satisfies this.
type Source interface {
	// Walk lists every eligible file for a full cold pass. Order is not
	// significant; the indexer does its own exclusion filtering.
	Walk(ctx context.Context) ([]File, error)
}
