// Package vault implements the Vault Indexer: it wraps a sourcedoc.Source,
// extracts document records from the host's cached parse plus a raw read
// for block references and code-fence labels, and drives the two-phase
// cold-index pass into an index.Provider. Change-driven upsert compares
// each file's {mtime, size} against a persisted, serializable cache blob
// to skip files that have not changed since the last run.
package vault

import (
	"bufio"
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/antflydb/vaultsearch/document"
	"github.com/antflydb/vaultsearch/index"
	"github.com/antflydb/vaultsearch/normalize"
	"github.com/antflydb/vaultsearch/sourcedoc"
)

// Config configures an Indexer.
type Config struct {
	Extensions            []string // allowed file extensions, lowercase with leading dot
	ExcludeFolderPrefixes []string
	IncludeCodeBlocks     bool
	PreserveDiacritics    bool

	BatchSize        int
	MobileBatchSize  int
	BatchDelay       time.Duration
	MobileBatchDelay time.Duration
	Mobile           bool
}

// DefaultConfig returns the indexer's default configuration.
func DefaultConfig() Config {
	return Config{
		Extensions:         []string{".md", ".markdown"},
		BatchSize:          10,
		MobileBatchSize:    5,
		BatchDelay:         50 * time.Millisecond,
		MobileBatchDelay:   100 * time.Millisecond,
		PreserveDiacritics: true,
	}
}

func (c Config) batchSize() int {
	if c.Mobile {
		return c.MobileBatchSize
	}
	return c.BatchSize
}

func (c Config) batchDelay() time.Duration {
	if c.Mobile {
		return c.MobileBatchDelay
	}
	return c.BatchDelay
}

// CacheEntry is the persisted fingerprint of one indexed file, used by
// UpsertIfChanged to skip files that have not changed since last run.
type CacheEntry struct {
	Mtime time.Time `json:"mtime"`
	Size  int64     `json:"size"`
}

var (
	blockRefRe   = regexp.MustCompile(`\^([A-Za-z0-9_-]+)`)
	fenceLabelRe = regexp.MustCompile("(?m)^```([A-Za-z0-9_+-]+)")
	fenceRe      = regexp.MustCompile("(?s)```.*?```")
)

// Indexer wraps a sourcedoc.Source and drives it into an index.Provider.
type Indexer struct {
	cfg      Config
	provider *index.Provider
	source   sourcedoc.Source

	mu    sync.Mutex
	cache map[string]CacheEntry

	bodyPass sync.WaitGroup

	logger *zap.Logger
}

// New creates an Indexer over provider, reading files from source.
func New(provider *index.Provider, source sourcedoc.Source, cfg Config) *Indexer {
	return &Indexer{
		cfg:      cfg,
		provider: provider,
		source:   source,
		cache:    make(map[string]CacheEntry),
		logger:   zap.NewNop(),
	}
}

// SetLogger attaches a structured logger for cold-pass and watch-driven
// indexing events. A nil logger is ignored; an unset Indexer logs nowhere.
func (ix *Indexer) SetLogger(l *zap.Logger) {
	if l != nil {
		ix.logger = l
	}
}

// WaitForBodyPass blocks until the most recently started lazy body pass
// has finished. Callers that need the corpus fully body-indexed before
// proceeding — a one-shot CLI run, a test — can wait on this rather than
// polling; interactive hosts are expected not to.
func (ix *Indexer) WaitForBodyPass() {
	ix.bodyPass.Wait()
}

// excluded reports whether f should be skipped entirely: wrong extension
// or under an excluded folder prefix.
func (ix *Indexer) excluded(f sourcedoc.File) bool {
	ext := strings.ToLower(path.Ext(f.Basename()))
	allowed := false
	for _, e := range ix.cfg.Extensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return true
	}
	for _, prefix := range ix.cfg.ExcludeFolderPrefixes {
		if strings.HasPrefix(f.ParentFolder(), prefix) {
			return true
		}
	}
	return false
}

// metadataOnly builds a document.Document from f's cached metadata alone,
// with an empty body, for phase 1 of the cold index.
func (ix *Indexer) metadataOnly(f sourcedoc.File) document.Document {
	meta := f.Metadata()
	headings := make([]string, len(meta.Headings))
	for i, h := range meta.Headings {
		headings[i] = h.Text
	}
	return document.Document{
		ID:       f.ID(),
		Title:    titleFromBasename(f.Basename()),
		Path:     pathTokens(f.ParentFolder()),
		Tags:     append([]string(nil), meta.Tags...),
		Headings: headings,
		Symbols:  append([]string(nil), meta.Links...),
		MTime:    f.ModTime(),
		Size:     f.Size(),
	}
}

// full builds the complete document.Document for f, reading its raw
// content for the body plus block references and code-fence labels the
// cached metadata doesn't carry.
func (ix *Indexer) full(f sourcedoc.File) (document.Document, error) {
	d := ix.metadataOnly(f)

	rc, err := f.Open()
	if err != nil {
		return document.Document{}, err
	}
	defer rc.Close()

	raw, err := readAll(rc)
	if err != nil {
		return document.Document{}, err
	}

	for _, m := range blockRefRe.FindAllStringSubmatch(raw, -1) {
		d.Symbols = append(d.Symbols, "^"+m[1])
	}
	for _, m := range fenceLabelRe.FindAllStringSubmatch(raw, -1) {
		d.Symbols = append(d.Symbols, m[1])
	}

	body := raw
	if !ix.cfg.IncludeCodeBlocks {
		body = fenceRe.ReplaceAllString(body, " ")
	}
	d.Body = normalize.Normalize(body, ix.cfg.PreserveDiacritics)

	return d, nil
}

func readAll(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := bufio.NewReader(r)
	_, err := io.Copy(&sb, buf)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func titleFromBasename(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext)
}

func pathTokens(parentFolder string) []string {
	parentFolder = strings.Trim(parentFolder, "/")
	if parentFolder == "" {
		return nil
	}
	return strings.Split(parentFolder, "/")
}

// IndexCold runs the two-phase cold corpus index. Phase 1
// (metadata only) is fully awaited before IndexCold returns; phase 2
// (bodies) continues in the background and is lazily paced. IO errors
// during a single file's phase-1 extraction never apply (metadataOnly
// cannot fail); phase-2 read errors are skipped rather than aborting the
// whole pass.
func (ix *Indexer) IndexCold(ctx context.Context) error {
	files, err := ix.source.Walk(ctx)
	if err != nil {
		ix.logger.Error("cold pass walk failed", zap.Error(err))
		return err
	}

	var queue []sourcedoc.File
	for _, f := range files {
		if ix.excluded(f) {
			continue
		}
		ix.provider.Upsert(ix.metadataOnly(f))
		queue = append(queue, f)
	}
	ix.logger.Info("cold pass metadata phase complete",
		zap.Int("walked", len(files)),
		zap.Int("queued", len(queue)),
	)

	ix.bodyPass.Add(1)
	go func() {
		defer ix.bodyPass.Done()
		ix.runBodyPass(ctx, queue)
	}()
	return nil
}

// runBodyPass is phase 2: batched, lazily-paced body extraction.
func (ix *Indexer) runBodyPass(ctx context.Context, files []sourcedoc.File) {
	batchSize := ix.cfg.batchSize()
	if batchSize <= 0 {
		batchSize = 1
	}
	for start := 0; start < len(files); start += batchSize {
		end := start + batchSize
		if end > len(files) {
			end = len(files)
		}
		for _, f := range files[start:end] {
			if ctx.Err() != nil {
				return
			}
			d, err := ix.full(f)
			if err != nil {
				ix.logger.Warn("body pass skipped file", zap.String("id", f.ID()), zap.Error(err))
				continue
			}
			ix.provider.Upsert(d)
			ix.touchCache(f)
		}
		if end < len(files) {
			select {
			case <-time.After(ix.cfg.batchDelay()):
			case <-ctx.Done():
				return
			}
		}
	}
	ix.logger.Info("cold pass body phase complete", zap.Int("indexed", len(files)))
}

// UpsertIfChanged re-indexes f only if its {mtime, size} differ from the
// last recorded cache entry. Reports whether it re-indexed.
func (ix *Indexer) UpsertIfChanged(f sourcedoc.File) (bool, error) {
	ix.mu.Lock()
	entry, ok := ix.cache[f.ID()]
	ix.mu.Unlock()
	if ok && entry.Mtime.Equal(f.ModTime()) && entry.Size == f.Size() {
		return false, nil
	}
	if ix.excluded(f) {
		return false, nil
	}
	d, err := ix.full(f)
	if err != nil {
		return false, err
	}
	ix.provider.Upsert(d)
	ix.touchCache(f)
	return true, nil
}

// Rename removes oldID and indexes f under its new id.
func (ix *Indexer) Rename(oldID string, f sourcedoc.File) (bool, error) {
	ix.provider.Remove(oldID)
	ix.mu.Lock()
	delete(ix.cache, oldID)
	ix.mu.Unlock()
	return ix.UpsertIfChanged(f)
}

// Remove deletes id from the provider and the file cache.
func (ix *Indexer) Remove(id string) {
	ix.provider.Remove(id)
	ix.mu.Lock()
	delete(ix.cache, id)
	ix.mu.Unlock()
}

func (ix *Indexer) touchCache(f sourcedoc.File) {
	ix.mu.Lock()
	ix.cache[f.ID()] = CacheEntry{Mtime: f.ModTime(), Size: f.Size()}
	ix.mu.Unlock()
}

// Serialize returns the file cache — {id -> {mtime, size}} — as a
// persistence blob callers can write to disk and later load back in.
func (ix *Indexer) Serialize() ([]byte, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return sonic.Marshal(ix.cache)
}

// LoadCache replaces the in-memory file cache from a previously
// serialized blob, so UpsertIfChanged can skip unchanged files across
// process restarts.
func (ix *Indexer) LoadCache(data []byte) error {
	cache := make(map[string]CacheEntry)
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &cache); err != nil {
			return err
		}
	}
	ix.mu.Lock()
	ix.cache = cache
	ix.mu.Unlock()
	return nil
}
