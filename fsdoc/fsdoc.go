// Package fsdoc is the concrete filesystem host for the source-document
// producer interface: it walks a directory with doublestar include/exclude
// globs, parses each markdown file's frontmatter and heading structure with
// goldmark and yaml.v3, and watches the tree with fsnotify to feed a
// watch.Coalescer.
package fsdoc

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/antflydb/vaultsearch/sourcedoc"
)

// Config configures a Source rooted at BaseDir.
type Config struct {
	BaseDir         string
	IncludePatterns []string
	ExcludePatterns []string
}

// defaultExcludes is always applied in addition to any caller-supplied
// exclude patterns.
var defaultExcludes = []string{".git/**"}

// Source walks BaseDir for files matching its include/exclude patterns,
// satisfying sourcedoc.Source. It does not filter by extension; the vault
// indexer skips non-markdown files.
type Source struct {
	cfg Config
}

// NewSource creates a Source over cfg, adding the default .git/** exclude.
func NewSource(cfg Config) *Source {
	cfg.ExcludePatterns = append(append([]string(nil), defaultExcludes...), cfg.ExcludePatterns...)
	return &Source{cfg: cfg}
}

// Walk implements sourcedoc.Source.
func (s *Source) Walk(ctx context.Context) ([]sourcedoc.File, error) {
	var files []sourcedoc.File
	err := filepath.Walk(s.cfg.BaseDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(s.cfg.BaseDir, p)
		if err != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range s.cfg.ExcludePatterns {
			matched, err := doublestar.Match(pattern, rel)
			if err != nil {
				log.Printf("fsdoc: invalid exclude pattern %q: %v", pattern, err)
				continue
			}
			if matched {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if len(s.cfg.IncludePatterns) > 0 {
			included := false
			for _, pattern := range s.cfg.IncludePatterns {
				matched, err := doublestar.Match(pattern, rel)
				if err != nil {
					log.Printf("fsdoc: invalid include pattern %q: %v", pattern, err)
					continue
				}
				if matched {
					included = true
					break
				}
			}
			if !included {
				if info.IsDir() {
					return nil
				}
				return nil
			}
		}

		if info.IsDir() {
			return nil
		}

		files = append(files, &File{absPath: p, relPath: rel, info: info})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// File is a filesystem-backed sourcedoc.File.
type File struct {
	absPath string
	relPath string // slash-separated, relative to the source's BaseDir
	info    os.FileInfo
}

func (f *File) ID() string       { return f.relPath }
func (f *File) Path() string     { return f.absPath }
func (f *File) Basename() string { return filepath.Base(f.absPath) }

// ParentFolder returns the slash-separated folder containing the file,
// relative to the source's BaseDir ("" for files at the root).
func (f *File) ParentFolder() string {
	dir := filepath.ToSlash(filepath.Dir(f.relPath))
	if dir == "." {
		return ""
	}
	return dir
}

func (f *File) ModTime() time.Time { return f.info.ModTime() }
func (f *File) Size() int64        { return f.info.Size() }

// Metadata parses frontmatter tags and heading structure via goldmark.
func (f *File) Metadata() sourcedoc.Metadata {
	raw, err := os.ReadFile(f.absPath)
	if err != nil {
		return sourcedoc.Metadata{}
	}
	return parseMetadata(raw)
}

// Open implements sourcedoc.File.
func (f *File) Open() (io.ReadCloser, error) {
	return os.Open(f.absPath)
}

var (
	inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_/-]+)`)
	wikiLinkRe  = regexp.MustCompile(`\[\[([^\]|#]+)`)
	mdLinkRe    = regexp.MustCompile(`\]\(([^)]+)\)`)
)

// parseMetadata extracts tags, headings, and outbound links from raw
// markdown content.
func parseMetadata(raw []byte) sourcedoc.Metadata {
	frontmatter, body := extractFrontmatter(raw)

	var meta sourcedoc.Metadata
	if frontmatter != nil {
		meta.Tags = append(meta.Tags, frontmatterTags(frontmatter)...)
	}
	for _, m := range inlineTagRe.FindAllStringSubmatch(string(body), -1) {
		meta.Tags = append(meta.Tags, m[1])
	}
	for _, m := range wikiLinkRe.FindAllStringSubmatch(string(body), -1) {
		meta.Links = append(meta.Links, strings.TrimSpace(m[1]))
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(string(body), -1) {
		meta.Links = append(meta.Links, strings.TrimSpace(m[1]))
	}

	md := goldmark.New()
	reader := text.NewReader(body)
	doc := md.Parser().Parse(reader)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			var buf bytes.Buffer
			for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
				buf.Write(child.Text(body))
			}
			meta.Headings = append(meta.Headings, sourcedoc.Heading{
				Level: heading.Level,
				Text:  strings.TrimSpace(buf.String()),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return meta
}

// extractFrontmatter splits a "---\n...\n---\n" YAML delimiter block from
// the rest of the content, tolerating a CRLF closing delimiter.
func extractFrontmatter(content []byte) (map[string]any, []byte) {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, content
	}
	remaining := content[4:]
	endIdx := bytes.Index(remaining, []byte("\n---\n"))
	if endIdx == -1 {
		endIdx = bytes.Index(remaining, []byte("\n---\r\n"))
		if endIdx == -1 {
			return nil, content
		}
	}
	frontmatterYAML := remaining[:endIdx]
	var frontmatter map[string]any
	if err := yaml.Unmarshal(frontmatterYAML, &frontmatter); err != nil {
		return nil, content
	}
	contentStart := 4 + endIdx + 5
	if contentStart >= len(content) {
		return frontmatter, []byte{}
	}
	return frontmatter, content[contentStart:]
}

// frontmatterTags normalizes a frontmatter "tags" field, which in
// practice shows up as either a YAML list or a single scalar string.
func frontmatterTags(frontmatter map[string]any) []string {
	raw, ok := frontmatter["tags"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		return []string{v}
	default:
		return nil
	}
}
