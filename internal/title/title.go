// Package title parses raw dump titles and derives canonical keys.
//
// A canonical key is a pure function of the title text: Unicode case
// folding, the leading article moved to a trailing position (so "The
// Matrix" and "Matrix, The" compare equal), then the disambiguating
// year/numeral and episode markers appended. Aka-title variants get
// their own key; their link to the canonical work is carried as data
// on the aka record, never re-derived here.
package title

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Parsed is the decomposition of a raw dump title such as
// `Matrix, The (1999)` or `"Buffy the Vampire Slayer" (1997) {Hush (#4.10)}`.
type Parsed struct {
	Title   string // full display form as it appeared in the dump
	Name    string // bare name, surrounding quotes stripped for TV shows
	Year    int    // 0 when the dump lists "????"
	Numeral string // roman-numeral disambiguator, e.g. "II"
	Episode string // episode marker text inside {...}
	TVShow  bool
}

// titleRE matches a name followed by one or more parenthesized tags, one
// of which carries the year (or ????) and an optional /ROMAN suffix.
// Mirrors the title grammar of the source dumps.
var titleRE = regexp.MustCompile(
	`^(?P<name>.+?)(?: \((?:TV|V|VG|mini|(?P<year>\d{4}|\?{4})(?:/(?P<numeral>[IVXLCDM]+))?)\))+$`)

// Parse decomposes a raw title string. It fails when the string does not
// end in at least one parenthesized year tag.
func Parse(raw string) (Parsed, error) {
	p := Parsed{Title: raw}

	rest := raw
	if i := strings.Index(rest, " {"); i >= 0 && strings.HasSuffix(rest, "}") {
		p.Episode = rest[i+2 : len(rest)-1]
		rest = rest[:i]
	}

	m := titleRE.FindStringSubmatch(rest)
	if m == nil {
		return Parsed{}, fmt.Errorf("cannot parse %q as a title", raw)
	}
	name := m[1]
	if y := m[2]; y != "" && y != "????" {
		p.Year, _ = strconv.Atoi(y)
	}
	p.Numeral = m[3]

	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
		p.TVShow = true
	}
	p.Name = name
	return p, nil
}

// Key returns the full canonical key: bare key plus year, numeral and
// episode disambiguators.
func (p Parsed) Key() string {
	var b strings.Builder
	b.WriteString(BareKey(p.Name))
	year := "????"
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	b.WriteString(" (")
	b.WriteString(year)
	if p.Numeral != "" {
		b.WriteString("/")
		b.WriteString(p.Numeral)
	}
	b.WriteString(")")
	if p.Episode != "" {
		b.WriteString(" {")
		b.WriteString(fold(p.Episode))
		b.WriteString("}")
	}
	return b.String()
}

// articles that are relocated when they lead a title. Lowercase, matched
// after folding.
var articles = []string{
	"the", "a", "an",
	"la", "le", "les", "l'",
	"der", "die", "das",
	"il", "el", "los", "las", "un", "une", "una",
}

// BareKey folds a bare title name and relocates a leading article to a
// trailing position. "The Matrix" and "Matrix, The" both yield
// "matrix, the".
func BareKey(name string) string {
	folded := fold(strings.TrimSpace(name))
	for _, art := range articles {
		if art == "l'" {
			// elided article binds without a space
			if strings.HasPrefix(folded, art) && len(folded) > len(art) {
				return folded[len(art):] + ", " + art
			}
			continue
		}
		if strings.HasPrefix(folded, art+" ") && len(folded) > len(art)+1 {
			return folded[len(art)+1:] + ", " + art
		}
	}
	return folded
}

// BareOf strips the year and episode disambiguators from a full
// canonical key, recovering the bare key used for candidate search.
func BareOf(key string) string {
	if i := strings.LastIndex(key, " {"); i >= 0 {
		key = key[:i]
	}
	if i := strings.LastIndex(key, " ("); i >= 0 {
		key = key[:i]
	}
	return key
}

// pool of folding chains; transformers are stateful and not safe for
// concurrent use.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFC, cases.Fold())
	},
}

func fold(s string) string {
	tr := foldPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
