// Package index implements the inverted index / search provider: the
// canonical store of postings, per-document metadata, and document
// frequencies, plus the candidate gathering, scoring, and regex
// post-filter pipeline a query runs through. Postings are kept in a map
// keyed by term, with per-doc term sets for cheap removal.
package index

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antflydb/vaultsearch/document"
	"github.com/antflydb/vaultsearch/normalize"
	"github.com/antflydb/vaultsearch/query"
	"github.com/antflydb/vaultsearch/rankheap"
	"github.com/antflydb/vaultsearch/scoring"
)

// Config configures a Provider.
type Config struct {
	MaxDocs            int
	MaxBodyBytes       int
	RegexCandidateK    int
	Scorer             scoring.Config
	PreserveDiacritics bool
}

// DefaultConfig returns the provider's default configuration.
func DefaultConfig() Config {
	return Config{
		MaxDocs:            0,
		MaxBodyBytes:       1 << 20,
		RegexCandidateK:    300,
		Scorer:             scoring.DefaultConfig(),
		PreserveDiacritics: true,
	}
}

type docEntry struct {
	doc   document.Document
	terms map[string]struct{} // every term this doc posted, across all fields, for O(doc terms) removal
}

// Provider is the inverted index: the canonical search structure this
// engine serves queries from. Zero value is not usable; use New.
type Provider struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	postings map[string][]document.Posting // term -> posting entries across all docs/fields
	docs     map[string]*docEntry
	df       map[string]int
	total    int
}

// New creates an empty Provider.
func New(cfg Config) *Provider {
	return &Provider{
		cfg:      cfg,
		logger:   zap.NewNop(),
		postings: make(map[string][]document.Posting),
		docs:     make(map[string]*docEntry),
		df:       make(map[string]int),
	}
}

// SetLogger attaches a structured logger for query tracing. A nil logger
// is ignored; an unset Provider logs nowhere.
func (p *Provider) SetLogger(l *zap.Logger) {
	if l != nil {
		p.logger = l
	}
}

// IndexAll clears the provider then upserts every doc in order.
func (p *Provider) IndexAll(docs []document.Document) {
	p.Clear()
	for i := range docs {
		p.Upsert(docs[i])
	}
}

// Upsert inserts or replaces the document record. If
// max_docs is configured and already reached, a brand-new id is rejected
// (callers must remove before adding beyond the cap); an existing id may
// always be re-upserted in place.
func (p *Provider) Upsert(d document.Document) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.docs[d.ID]; exists {
		p.removeLocked(d.ID)
	} else if p.cfg.MaxDocs > 0 && p.total >= p.cfg.MaxDocs {
		return false
	}

	if p.cfg.MaxBodyBytes > 0 && len(d.Body) > p.cfg.MaxBodyBytes {
		d.Body = d.Body[:p.cfg.MaxBodyBytes]
	}

	entry := &docEntry{doc: d, terms: make(map[string]struct{})}

	for _, f := range document.AllFields {
		text := d.Field(f)
		toks := normalize.Tokenize(text, p.cfg.PreserveDiacritics)
		if len(toks) == 0 {
			continue
		}
		positions := make(map[string][]int)
		for _, tok := range toks {
			positions[tok.Text] = append(positions[tok.Text], tok.Start)
		}
		for term, positions := range positions {
			p.postings[term] = append(p.postings[term], document.Posting{
				DocID:     d.ID,
				Field:     f,
				TF:        len(positions),
				Positions: positions,
			})
			p.df[term]++
			entry.terms[term] = struct{}{}
		}
	}

	p.docs[d.ID] = entry
	p.total++
	return true
}

// Remove deletes a document's metadata and postings.
func (p *Provider) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(id)
}

func (p *Provider) removeLocked(id string) {
	entry, ok := p.docs[id]
	if !ok {
		return
	}
	for term := range entry.terms {
		list := p.postings[term]
		kept := list[:0]
		removed := 0
		for _, posting := range list {
			if posting.DocID == id {
				removed++
				continue
			}
			kept = append(kept, posting)
		}
		if len(kept) == 0 {
			delete(p.postings, term)
		} else {
			p.postings[term] = kept
		}
		p.df[term] -= removed
		if p.df[term] <= 0 {
			delete(p.df, term)
		}
	}
	delete(p.docs, id)
	p.total--
}

// Clear resets all state.
func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.postings = make(map[string][]document.Posting)
	p.docs = make(map[string]*docEntry)
	p.df = make(map[string]int)
	p.total = 0
}

// Len returns the number of indexed documents.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// TermCount returns the number of distinct terms currently in the
// postings map, exposed as a gauge by the health server.
func (p *Provider) TermCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.postings)
}

// Query runs the resolution pipeline and returns at most limit
// results in descending score order. ctx is checked before each
// candidate's scoring step; a cancellation mid-query returns the
// context's error rather than a partial or empty result set, so callers
// can distinguish "no hits" from "didn't finish".
func (p *Provider) Query(ctx context.Context, q document.ParsedQuery, limit int, now time.Time) ([]document.Result, error) {
	traceID := uuid.NewString()
	start := time.Now()

	p.mu.RLock()
	results, err := p.queryLocked(ctx, q, limit, now)
	p.mu.RUnlock()

	p.logger.Info("query",
		zap.String("trace_id", traceID),
		zap.Int("terms", len(q.Terms)),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return results, err
}

func (p *Provider) queryLocked(ctx context.Context, q document.ParsedQuery, limit int, now time.Time) ([]document.Result, error) {
	if limit <= 0 {
		return nil, nil
	}

	if q.Empty() && len(q.Filters.Tag) == 0 && len(q.Filters.Path) == 0 && len(q.Filters.In) == 0 {
		return p.mostRecentLocked(limit), nil
	}

	candidates := p.candidatesLocked(q)

	h := rankheap.New(limit, func(a, b document.Result) bool { return a.Score < b.Score })
	for id := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		entry, ok := p.docs[id]
		if !ok {
			continue
		}
		if !passesFilters(&entry.doc, q.Filters, p.cfg.PreserveDiacritics) {
			continue
		}
		res, ok := scoring.Score(&entry.doc, q, p.cfg.Scorer, now)
		if !ok {
			continue
		}
		h.Push(res)
	}

	results := descending(h.ExtractAll())
	return p.applyRegexFilterLocked(q, results, limit), nil
}

// passesFilters reports whether d satisfies every tag:/path:/in: clause in
// f. Multiple values for the same filter all apply (AND); field
// restriction (#/@) is handled separately by scoring.restrictionAllows,
// since it narrows which field a term can match rather than rejecting a
// document outright.
func passesFilters(d *document.Document, f document.Filters, preserveDiacritics bool) bool {
	for _, tag := range f.Tag {
		if !containsNormalized(d.Tags, tag, preserveDiacritics) {
			return false
		}
	}
	for _, want := range f.Path {
		if !pathContainsNormalized(d.Path, want, preserveDiacritics) {
			return false
		}
	}
	for _, want := range f.In {
		if !containsNormalized(d.Path, want, preserveDiacritics) {
			return false
		}
	}
	return true
}

// containsNormalized reports whether want exactly matches one entry of
// list, normalized; used for tag membership and in: folder-segment
// matching (any segment, not only the leaf).
func containsNormalized(list []string, want string, preserveDiacritics bool) bool {
	nw := normalize.Normalize(want, preserveDiacritics)
	for _, v := range list {
		if normalize.Normalize(v, preserveDiacritics) == nw {
			return true
		}
	}
	return false
}

// pathContainsNormalized reports whether want is a substring of path's
// segments joined with "/", normalized; used for path: which matches
// partial path text rather than a single whole segment.
func pathContainsNormalized(path []string, want string, preserveDiacritics bool) bool {
	joined := normalize.Normalize(strings.Join(path, "/"), preserveDiacritics)
	return strings.Contains(joined, normalize.Normalize(want, preserveDiacritics))
}

// candidatesLocked gathers query candidates: each or-group contributes
// a union of its terms' posting sets, each ordinary term contributes its
// own posting set, and every contributed set is intersected together (AND
// between groups/terms, OR inside each group).
func (p *Provider) candidatesLocked(q document.ParsedQuery) map[string]struct{} {
	var sets []map[string]struct{}
	for _, group := range q.OrGroups {
		sets = append(sets, p.unionTermsLocked(group))
	}
	for _, t := range q.Terms {
		sets = append(sets, p.unionTermsLocked([]string{t}))
	}

	if len(sets) > 0 {
		return intersect(sets)
	}

	// No terms or or-groups: phrases-only or filters-only queries scan
	// every indexed id.
	all := make(map[string]struct{}, len(p.docs))
	for id := range p.docs {
		all[id] = struct{}{}
	}
	return all
}

func (p *Provider) unionTermsLocked(terms []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range terms {
		nt := normalize.Normalize(t, p.cfg.PreserveDiacritics)
		for _, posting := range p.postings[nt] {
			out[posting.DocID] = struct{}{}
		}
	}
	return out
}

func intersect(sets []map[string]struct{}) map[string]struct{} {
	if len(sets) == 0 {
		return map[string]struct{}{}
	}
	out := sets[0]
	for _, s := range sets[1:] {
		next := make(map[string]struct{})
		for id := range out {
			if _, ok := s[id]; ok {
				next[id] = struct{}{}
			}
		}
		out = next
	}
	return out
}

// mostRecentLocked returns the most recently modified documents, used
// when a query has no terms, or-groups, regex, or filters at all.
func (p *Provider) mostRecentLocked(limit int) []document.Result {
	type idMtime struct {
		id    string
		mtime time.Time
	}
	ordered := make([]idMtime, 0, len(p.docs))
	for id, entry := range p.docs {
		ordered = append(ordered, idMtime{id, entry.doc.MTime})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].mtime.After(ordered[j].mtime) })
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	n := len(ordered)
	out := make([]document.Result, n)
	for i, e := range ordered {
		out[i] = document.Result{ID: e.id, Score: float64(n - i)}
	}
	return out
}

// applyRegexFilterLocked narrows results to those whose title or body
// match the query's regex clause, if any.
func (p *Provider) applyRegexFilterLocked(q document.ParsedQuery, results []document.Result, limit int) []document.Result {
	if q.Regex == nil {
		if len(results) > limit {
			results = results[:limit]
		}
		return results
	}
	re, err := query.CompileRegex(q.Regex)
	if err != nil {
		if len(results) > limit {
			results = results[:limit]
		}
		return results
	}

	k := p.cfg.RegexCandidateK
	if k <= 0 || k > len(results) {
		k = len(results)
	}
	filtered := make([]document.Result, 0, k)
	for _, res := range results[:k] {
		entry, ok := p.docs[res.ID]
		if !ok {
			continue
		}
		if re.MatchString(entry.doc.Title) || re.MatchString(entry.doc.Body) {
			filtered = append(filtered, res)
		}
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

func descending(ascending []document.Result) []document.Result {
	for i, j := 0, len(ascending)-1; i < j; i, j = i+1, j-1 {
		ascending[i], ascending[j] = ascending[j], ascending[i]
	}
	return ascending
}

// streamBatch is the unit emitted on the streaming channel: a slice of
// newly-revealed results in descending score order.
type streamBatch = []document.Result

// QueryStream runs a query in streaming mode: every 100 candidates
// processed it emits the current top min(5, limit/2) not yet yielded, and
// on completion emits whatever of the final result set remains unyielded.
// The channel is closed when done; ctx cancellation stops early.
func (p *Provider) QueryStream(ctx context.Context, q document.ParsedQuery, limit int, now time.Time) <-chan streamBatch {
	out := make(chan streamBatch)
	go func() {
		defer close(out)
		p.mu.RLock()
		defer p.mu.RUnlock()

		if limit <= 0 {
			return
		}
		if q.Empty() && len(q.Filters.Tag) == 0 && len(q.Filters.Path) == 0 && len(q.Filters.In) == 0 {
			select {
			case out <- p.mostRecentLocked(limit):
			case <-ctx.Done():
			}
			return
		}

		candidates := p.candidatesLocked(q)
		h := rankheap.New(limit, func(a, b document.Result) bool { return a.Score < b.Score })
		yielded := make(map[string]struct{})
		emitSize := limit / 2
		if emitSize > 5 {
			emitSize = 5
		}
		if emitSize < 1 {
			emitSize = 1
		}

		processed := 0
		for id := range candidates {
			select {
			case <-ctx.Done():
				return
			default:
			}
			entry, ok := p.docs[id]
			if !ok {
				continue
			}
			if !passesFilters(&entry.doc, q.Filters, p.cfg.PreserveDiacritics) {
				continue
			}
			res, ok := scoring.Score(&entry.doc, q, p.cfg.Scorer, now)
			if ok {
				h.Push(res)
			}
			processed++
			if processed%100 == 0 {
				batch := topUnyielded(h, emitSize, yielded)
				if len(batch) > 0 {
					select {
					case out <- batch:
					case <-ctx.Done():
						return
					}
				}
			}
		}

		final := p.applyRegexFilterLocked(q, descending(h.ExtractAll()), limit)
		var remainder streamBatch
		for _, r := range final {
			if _, done := yielded[r.ID]; !done {
				remainder = append(remainder, r)
			}
		}
		if len(remainder) > 0 {
			select {
			case out <- remainder:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// topUnyielded peeks the current top n results not already in yielded,
// marking them as yielded, without disturbing the heap's remaining
// contents (used for progressive streaming emission).
func topUnyielded(h *rankheap.Heap[document.Result], n int, yielded map[string]struct{}) streamBatch {
	snapshot := h.Snapshot()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Score > snapshot[j].Score })
	var batch streamBatch
	for _, r := range snapshot {
		if len(batch) >= n {
			break
		}
		if _, done := yielded[r.ID]; done {
			continue
		}
		batch = append(batch, r)
		yielded[r.ID] = struct{}{}
	}
	return batch
}
