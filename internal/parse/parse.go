// Package parse turns the line-oriented source dumps into record streams.
//
// Each category has its own parser over the same contract: Next returns
// the next successfully parsed record, a *LineError for a line that does
// not match the category grammar (the stream continues past it), or
// io.EOF once the dump's data section ends. Header and footer boilerplate
// and blank separator lines are consumed internally. Parsers are not safe
// for concurrent use; restart by constructing a new parser over a fresh
// reader.
package parse

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/titledex/titledex/internal/model"
)

// LineError reports a single unparseable line. It carries the source
// position and raw text for diagnostics and is recoverable: consumption
// continues with the next line.
type LineError struct {
	Category model.Category
	Line     int64 // 1-based line number
	Offset   int64 // byte offset of the line start (post-decode)
	Text     string
	Err      error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s line %d: %v: %q", e.Category, e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

// Parser is a lazy, finite stream of records for one category.
type Parser interface {
	Category() model.Category
	// Next returns the next record, a *LineError for a malformed line,
	// or io.EOF when the stream ends.
	Next() (model.Record, error)
}

// ForCategory constructs the parser for a category over an already
// decoded reader (see Open).
func ForCategory(cat model.Category, r io.Reader) (Parser, error) {
	switch cat {
	case model.Movies:
		return NewMovies(r), nil
	case model.AkaTitles:
		return NewAka(r), nil
	case model.Ratings:
		return NewRatings(r), nil
	case model.Plot:
		return NewPlot(r), nil
	case model.Genres, model.RunningTimes, model.ColorInfo, model.Certificates:
		return newBasic(cat, r), nil
	case model.Cast:
		return NewNames(model.RoleActor, r), nil
	case model.Directors:
		return NewNames(model.RoleDirector, r), nil
	case model.Writers:
		return NewNames(model.RoleWriter, r), nil
	}
	return nil, fmt.Errorf("no parser for category %q", cat)
}

// SourceFilenames returns the dump file base names feeding a category.
// Cast is the only category built from more than one file.
func SourceFilenames(cat model.Category) []string {
	if cat == model.Cast {
		return []string{"actors", "actresses"}
	}
	return []string{string(cat)}
}

// Open opens a source dump for reading: transparently decompresses a
// .gz file and decodes the dumps' ISO-8859-1 text to UTF-8.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = f
	closers := []io.Closer{f}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		r = gz
		closers = append([]io.Closer{gz}, closers...)
	}
	return &sourceReader{
		Reader:  transform.NewReader(r, charmap.ISO8859_1.NewDecoder()),
		closers: closers,
	}, nil
}

type sourceReader struct {
	io.Reader
	closers []io.Closer
}

func (s *sourceReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// lineScanner wraps bufio.Scanner with line number and byte offset
// tracking for diagnostics.
type lineScanner struct {
	sc     *bufio.Scanner
	line   int64
	offset int64 // offset of the current line's first byte
	next   int64
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &lineScanner{sc: sc}
}

func (ls *lineScanner) Scan() bool {
	if !ls.sc.Scan() {
		return false
	}
	ls.line++
	ls.offset = ls.next
	ls.next += int64(len(ls.sc.Bytes())) + 1
	return true
}

func (ls *lineScanner) Text() string { return ls.sc.Text() }
func (ls *lineScanner) Err() error   { return ls.sc.Err() }

// skipTo consumes lines until one equals indicator (after trimming),
// then skips extra more lines. Mirrors the header layout of the dumps.
func skipTo(ls *lineScanner, indicator string, extra int) error {
	for ls.Scan() {
		if strings.TrimSpace(ls.Text()) == indicator {
			for i := 0; i < extra; i++ {
				if !ls.Scan() {
					return io.ErrUnexpectedEOF
				}
			}
			return nil
		}
	}
	if err := ls.Err(); err != nil {
		return err
	}
	return fmt.Errorf("header indicator %q not found", indicator)
}

// base carries the state shared by all category parsers.
type base struct {
	cat     model.Category
	ls      *lineScanner
	started bool
	done    bool
	header  func(*lineScanner) error
}

func (b *base) Category() model.Category { return b.cat }

// start runs the header skip on the first Next call.
func (b *base) start() error {
	if b.started {
		return nil
	}
	b.started = true
	if b.header == nil {
		return nil
	}
	if err := b.header(b.ls); err != nil {
		b.done = true
		return fmt.Errorf("%s: %w", b.cat, err)
	}
	return nil
}

// finish marks the stream done, surfacing any scanner error first.
func (b *base) finish() error {
	b.done = true
	if err := b.ls.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (b *base) lineErr(err error) *LineError {
	return &LineError{
		Category: b.cat,
		Line:     b.ls.line,
		Offset:   b.ls.offset,
		Text:     b.ls.Text(),
		Err:      err,
	}
}

// isFooter reports a terminating dash ruler line.
func isFooter(line string) bool {
	return len(line) > 60 && strings.Trim(line, "-") == ""
}

// skipEntry reports lines the original dumps exclude from indexing:
// video games and individual TV episodes.
func skipEntry(line string) bool {
	return strings.Contains(line, "(VG)") || strings.Contains(line, "{")
}

// fieldsN splits s into its first n whitespace-separated fields and the
// remainder with leading whitespace trimmed. ok is false when fewer
// than n fields are present.
func fieldsN(s string, n int) (fields []string, rest string, ok bool) {
	rest = s
	for i := 0; i < n; i++ {
		rest = strings.TrimLeft(rest, " \t")
		j := strings.IndexAny(rest, " \t")
		if j < 0 {
			return nil, "", false
		}
		fields = append(fields, rest[:j])
		rest = rest[j:]
	}
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return nil, "", false
	}
	return fields, rest, true
}

// splitTabs splits on tabs, dropping empty fields produced by runs of
// consecutive delimiters.
func splitTabs(line string) []string {
	parts := strings.Split(line, "\t")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
