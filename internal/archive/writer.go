package archive

import (
	"bytes"
	"compress/flate"
	"database/sql"
	"fmt"
	"hash/crc32"
	"os"
	"strconv"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

// Writer appends compressed record spans to a category's container and
// records their byte spans in the index. Single-writer; offsets grow
// monotonically in write order. Close commits the pair; Abort discards
// it.
type Writer struct {
	cat     model.Category
	dir     string
	f       *os.File
	db      *sql.DB
	tx      *sql.Tx
	insert  *sql.Stmt
	evict   *sql.Stmt
	offset  int64
	records int

	buf bytes.Buffer
	fw  *flate.Writer
}

// NewWriter creates the container and index files for one category
// inside a build directory.
func NewWriter(dir string, cat model.Category) (*Writer, error) {
	if !cat.Valid() {
		return nil, fmt.Errorf("unknown category %q", cat)
	}
	f, err := os.OpenFile(containerPath(dir, cat), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	db, err := createIndex(indexPath(dir, cat))
	if err != nil {
		f.Close()
		return nil, err
	}
	w := &Writer{cat: cat, dir: dir, f: f, db: db}
	if err := w.begin(); err != nil {
		w.Abort()
		return nil, err
	}
	w.fw, _ = flate.NewWriter(&w.buf, flate.DefaultCompression)
	return w, nil
}

func (w *Writer) begin() error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	insert, err := tx.Prepare(
		`INSERT INTO spans (key, bare_key, link, offset, length, crc) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	evict, err := tx.Prepare(`DELETE FROM spans WHERE key = ?`)
	if err != nil {
		return err
	}
	w.tx, w.insert, w.evict = tx, insert, evict
	return nil
}

// Add compresses and appends one record. For single-valued categories a
// duplicate key evicts the previous index entry (last write wins); the
// superseded span stays in the container as unreferenced bytes.
func (w *Writer) Add(rec model.Record) error {
	if rec.Category() != w.cat {
		return fmt.Errorf("%s record given to %s writer", rec.Category(), w.cat)
	}
	data, err := model.Marshal(rec)
	if err != nil {
		return err
	}

	w.buf.Reset()
	w.fw.Reset(&w.buf)
	if _, err := w.fw.Write(data); err != nil {
		return fmt.Errorf("compress record: %w", err)
	}
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("compress record: %w", err)
	}
	span := w.buf.Bytes()

	if _, err := w.f.Write(span); err != nil {
		return fmt.Errorf("append span: %w", err)
	}

	key := rec.Key()
	if !w.cat.MultiValued() {
		if _, err := w.evict.Exec(key); err != nil {
			return fmt.Errorf("evict duplicate key: %w", err)
		}
	}
	var link string
	if l, ok := rec.(model.Linked); ok {
		link = l.LinkKey()
	}
	crc := crc32.ChecksumIEEE(span)
	if _, err := w.insert.Exec(key, title.BareOf(key), link, w.offset, len(span), int64(crc)); err != nil {
		return fmt.Errorf("index span: %w", err)
	}

	w.offset += int64(len(span))
	w.records++
	return nil
}

// Close finalizes the pair: writes the meta counts, commits the index
// and syncs the container. The pair is consistent once Close returns.
func (w *Writer) Close(failures int) (BuildSummary, error) {
	sum := BuildSummary{
		Category: w.cat,
		Records:  w.records,
		Failures: failures,
		Bytes:    w.offset,
	}
	meta := map[string]string{
		"category": string(w.cat),
		"records":  strconv.Itoa(w.records),
		"failures": strconv.Itoa(failures),
	}
	for k, v := range meta {
		if _, err := w.tx.Exec(`INSERT OR REPLACE INTO meta (k, v) VALUES (?, ?)`, k, v); err != nil {
			w.Abort()
			return sum, fmt.Errorf("write index meta: %w", err)
		}
	}
	if err := w.tx.Commit(); err != nil {
		w.Abort()
		return sum, fmt.Errorf("commit index: %w", err)
	}
	w.tx = nil
	if err := w.db.Close(); err != nil {
		return sum, err
	}
	w.db = nil
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return sum, fmt.Errorf("sync container: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return sum, err
	}
	w.f = nil
	return sum, nil
}

// Abort discards the pair's files. Safe to call after a failed Close.
func (w *Writer) Abort() {
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}
	if w.db != nil {
		w.db.Close()
		w.db = nil
	}
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	os.Remove(containerPath(w.dir, w.cat))
	os.Remove(indexPath(w.dir, w.cat))
}
