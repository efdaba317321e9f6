package parse

import (
	"errors"
	"io"
	"strings"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

var (
	errNoTab     = errors.New("missing tab delimiter")
	errOrphanAka = errors.New("aka line without a preceding title")
	errBadIndent = errors.New("unexpected indentation")
)

// AkaParser reads the aka-titles list: a canonical title line followed
// by indented `   (aka Alternate Title (Year))\t(Region)` lines, entries
// separated by blank lines.
type AkaParser struct {
	base
	lastTitle *title.Parsed
}

// NewAka returns a parser for the aka-titles dump.
func NewAka(r io.Reader) *AkaParser {
	return &AkaParser{base: base{
		cat: model.AkaTitles,
		ls:  newLineScanner(r),
		header: func(ls *lineScanner) error {
			return skipTo(ls, "===============", 2)
		},
	}}
}

func (p *AkaParser) Next() (model.Record, error) {
	if p.done {
		return nil, io.EOF
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	for p.ls.Scan() {
		line := p.ls.Text()
		if strings.TrimSpace(line) == "" {
			p.lastTitle = nil
			continue
		}
		if isFooter(line) {
			return nil, p.finish()
		}
		if skipEntry(line) {
			if line[0] != ' ' {
				p.lastTitle = nil
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "   (aka "):
			if p.lastTitle == nil {
				return nil, p.lineErr(errOrphanAka)
			}
			akaPart, regionPart, _ := strings.Cut(line[8:], "\t")
			akaPart = strings.TrimSpace(akaPart)
			if !strings.HasSuffix(akaPart, ")") {
				return nil, p.lineErr(errors.New("unterminated aka clause"))
			}
			akaTitle := akaPart[:len(akaPart)-1]
			parsed, err := title.Parse(akaTitle)
			if err != nil {
				return nil, p.lineErr(err)
			}
			return model.AkaRecord{
				AkaKey:         parsed.Key(),
				AkaTitle:       akaTitle,
				CanonicalKey:   p.lastTitle.Key(),
				CanonicalTitle: p.lastTitle.Title,
				Region:         strings.Trim(strings.TrimSpace(regionPart), "()"),
			}, nil
		case line[0] != ' ':
			// a canonical title; its aka lines follow
			parsed, err := title.Parse(strings.TrimSpace(line))
			if err != nil {
				p.lastTitle = nil
				return nil, p.lineErr(err)
			}
			p.lastTitle = &parsed
			continue
		default:
			return nil, p.lineErr(errBadIndent)
		}
	}
	return nil, p.finish()
}
