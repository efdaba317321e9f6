package parse

import (
	"io"
	"strings"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

// MoviesParser reads the movies list: one title per line, a tab, and a
// repeat of the year. Video games and individual episodes are skipped.
type MoviesParser struct {
	base
}

// NewMovies returns a parser for the movies dump.
func NewMovies(r io.Reader) *MoviesParser {
	return &MoviesParser{base: base{
		cat: model.Movies,
		ls:  newLineScanner(r),
		header: func(ls *lineScanner) error {
			return skipTo(ls, "===========", 1)
		},
	}}
}

func (p *MoviesParser) Next() (model.Record, error) {
	if p.done {
		return nil, io.EOF
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	for p.ls.Scan() {
		line := p.ls.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isFooter(line) {
			return nil, p.finish()
		}
		if skipEntry(line) {
			continue
		}
		name, _, found := strings.Cut(line, "\t")
		if !found {
			return nil, p.lineErr(errNoTab)
		}
		parsed, err := title.Parse(name)
		if err != nil {
			return nil, p.lineErr(err)
		}
		return model.MovieRecord{
			CanonicalKey: parsed.Key(),
			Title:        parsed.Title,
			Name:         parsed.Name,
			Year:         parsed.Year,
			Numeral:      parsed.Numeral,
			Episode:      parsed.Episode,
			TVShow:       parsed.TVShow,
		}, nil
	}
	return nil, p.finish()
}
