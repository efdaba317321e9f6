package archive

import (
	"bytes"
	"compress/flate"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/titledex/titledex/internal/model"
)

// Handle reads one published category pair. Lookups are a single index
// probe plus one bounded read-and-decompress per matching span; the
// container is never scanned. Safe for concurrent use.
type Handle struct {
	cat model.Category
	f   *os.File
	db  *sql.DB
}

// Open opens the archive pair for one category inside a build directory.
func Open(dir string, cat model.Category) (*Handle, error) {
	db, err := openIndex(indexPath(dir, cat), cat)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(containerPath(dir, cat))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open container: %w", err)
	}
	return &Handle{cat: cat, f: f, db: db}, nil
}

// Category returns the category this handle serves.
func (h *Handle) Category() model.Category { return h.cat }

// Close releases the pair. Lookups in flight on other goroutines must
// have completed.
func (h *Handle) Close() error {
	err := h.db.Close()
	if cerr := h.f.Close(); err == nil {
		err = cerr
	}
	return err
}

type span struct {
	offset int64
	length int64
	crc    uint32
}

// Lookup returns every record filed under key, in write order.
// Single-valued categories yield exactly one record. Returns ErrNotFound
// when the key is absent and ErrCorrupt when a span fails its checksum
// or does not decode.
func (h *Handle) Lookup(ctx context.Context, key string) ([]model.Record, error) {
	return h.spanRecords(ctx,
		`SELECT offset, length, crc FROM spans WHERE key = ? ORDER BY seq`, key)
}

// Linked returns every record whose cross-reference link points at key,
// in write order. Used to join aka titles onto their canonical work;
// those records are filed under their own aka key. Returns ErrNotFound
// when nothing links to key.
func (h *Handle) Linked(ctx context.Context, key string) ([]model.Record, error) {
	return h.spanRecords(ctx,
		`SELECT offset, length, crc FROM spans WHERE link = ? ORDER BY seq`, key)
}

func (h *Handle) spanRecords(ctx context.Context, query, arg string) ([]model.Record, error) {
	rows, err := h.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("probe index: %w", err)
	}
	defer rows.Close()

	var spans []span
	for rows.Next() {
		var s span
		var crc int64
		if err := rows.Scan(&s.offset, &s.length, &crc); err != nil {
			return nil, err
		}
		s.crc = uint32(crc)
		spans = append(spans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, ErrNotFound
	}

	recs := make([]model.Record, 0, len(spans))
	for _, s := range spans {
		rec, err := h.readSpan(s)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// readSpan reads one compressed span at its recorded offset, verifies
// the checksum and decodes the record.
func (h *Handle) readSpan(s span) (model.Record, error) {
	buf := make([]byte, s.length)
	if _, err := h.f.ReadAt(buf, s.offset); err != nil {
		return nil, fmt.Errorf("%w: span at %d: %v", ErrCorrupt, s.offset, err)
	}
	if got := crc32.ChecksumIEEE(buf); got != s.crc {
		return nil, fmt.Errorf("%w: span at %d: checksum %08x, want %08x",
			ErrCorrupt, s.offset, got, s.crc)
	}
	fr := flate.NewReader(bytes.NewReader(buf))
	data, err := io.ReadAll(fr)
	if cerr := fr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: span at %d: %v", ErrCorrupt, s.offset, err)
	}
	rec, err := model.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: span at %d: %v", ErrCorrupt, s.offset, err)
	}
	return rec, nil
}

// Candidates returns the distinct full keys sharing a bare key, in write
// order. Used to enumerate year variants of a title; an empty slice
// means no candidates, not an error.
func (h *Handle) Candidates(ctx context.Context, bareKey string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT DISTINCT key FROM spans WHERE bare_key = ? ORDER BY key`, bareKey)
	if err != nil {
		return nil, fmt.Errorf("probe index: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Records returns the number of records indexed in the pair.
func (h *Handle) Records(ctx context.Context) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spans`).Scan(&n)
	return n, err
}

// Set is a group of open category handles from one build. Categories
// whose pairs were not built are simply absent.
type Set struct {
	BuildID string
	handles map[model.Category]*Handle
}

// OpenBuild opens every category pair present in a build directory.
func OpenBuild(root, buildID string) (*Set, error) {
	dir := BuildDir(root, buildID)
	s := &Set{BuildID: buildID, handles: make(map[model.Category]*Handle)}
	for _, cat := range model.AllCategories {
		if _, err := os.Stat(indexPath(dir, cat)); errors.Is(err, os.ErrNotExist) {
			continue
		}
		h, err := Open(dir, cat)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open %s: %w", cat, err)
		}
		s.handles[cat] = h
	}
	if len(s.handles) == 0 {
		return nil, fmt.Errorf("build %s has no archives", buildID)
	}
	return s, nil
}

// OpenCurrent opens the published build. Returns ErrNoCurrent when no
// build has been published.
func OpenCurrent(root string) (*Set, error) {
	id, err := CurrentBuild(root)
	if err != nil {
		return nil, err
	}
	return OpenBuild(root, id)
}

// Handle returns the open handle for a category, or nil when the build
// has no archive for it.
func (s *Set) Handle(cat model.Category) *Handle {
	return s.handles[cat]
}

// Categories lists the categories this set has open, in build order.
func (s *Set) Categories() []model.Category {
	out := make([]model.Category, 0, len(s.handles))
	for _, cat := range model.AllCategories {
		if _, ok := s.handles[cat]; ok {
			out = append(out, cat)
		}
	}
	return out
}

// Close closes every handle, returning the first error.
func (s *Set) Close() error {
	var first error
	for _, h := range s.handles {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
