package parse

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

// RatingsParser reads the movie ratings report: a fixed flag column,
// then distribution histogram, vote count, score and title. The report
// ends at the first blank line; the top/bottom list sections that follow
// are not indexed.
type RatingsParser struct {
	base
}

// NewRatings returns a parser for the ratings dump.
func NewRatings(r io.Reader) *RatingsParser {
	return &RatingsParser{base: base{
		cat: model.Ratings,
		ls:  newLineScanner(r),
		header: func(ls *lineScanner) error {
			return skipTo(ls, "MOVIE RATINGS REPORT", 2)
		},
	}}
}

func (p *RatingsParser) Next() (model.Record, error) {
	if p.done {
		return nil, io.EOF
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	for p.ls.Scan() {
		line := p.ls.Text()
		if strings.TrimSpace(line) == "" {
			return nil, p.finish()
		}
		if skipEntry(line) {
			continue
		}
		// the first six columns carry "new entry" flags
		body := line
		if len(body) > 6 {
			body = body[6:]
		}
		fields, rest, ok := fieldsN(body, 3)
		if !ok {
			return nil, p.lineErr(errors.New("expected distribution, votes, score, title"))
		}
		votes, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, p.lineErr(err)
		}
		score, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, p.lineErr(err)
		}
		parsed, err := title.Parse(rest)
		if err != nil {
			return nil, p.lineErr(err)
		}
		return model.RatingRecord{
			CanonicalKey: parsed.Key(),
			Title:        parsed.Title,
			Distribution: fields[0],
			Votes:        votes,
			Score:        score,
		}, nil
	}
	return nil, p.finish()
}
