package parse

import (
	"io"
	"strings"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

// PlotParser reads the plot summaries list. Each block is an MV: title
// line followed by PL: summary lines and an optional BY: byline, blocks
// separated by dash rulers. One title may carry several summaries; each
// becomes its own record.
type PlotParser struct {
	base
	lastTitle *title.Parsed
	summary   []string
	byline    string
	pending   error // MV parse failure held while a record is emitted
}

// NewPlot returns a parser for the plot dump.
func NewPlot(r io.Reader) *PlotParser {
	return &PlotParser{base: base{
		cat: model.Plot,
		ls:  newLineScanner(r),
		header: func(ls *lineScanner) error {
			return skipTo(ls, "===================", 1)
		},
	}}
}

func (p *PlotParser) Next() (model.Record, error) {
	if p.done {
		return nil, io.EOF
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	if p.pending != nil {
		err := p.pending
		p.pending = nil
		return nil, err
	}
	for p.ls.Scan() {
		line := p.ls.Text()
		tag, data := "--", ""
		if len(line) >= 4 {
			tag, data = line[0:2], line[4:]
		}
		switch tag {
		case "MV":
			if rec := p.flush(); rec != nil {
				// emit the pending block first; a failure on this MV
				// line surfaces on the next call
				if err := p.setTitle(data); err != nil {
					p.pending = err
				}
				return rec, nil
			}
			if err := p.setTitle(data); err != nil {
				return nil, err
			}
		case "PL":
			if p.lastTitle != nil {
				p.summary = append(p.summary, data)
			}
		case "BY":
			if p.lastTitle != nil {
				p.byline = data
			}
		default:
			// blank lines separate tag groups within one block; only a
			// ruler line ends the block
			if strings.TrimSpace(line) == "" {
				continue
			}
			if rec := p.flush(); rec != nil {
				return rec, nil
			}
		}
	}
	if rec := p.flush(); rec != nil {
		return rec, nil
	}
	return nil, p.finish()
}

// setTitle parses and installs a new MV title, quietly dropping video
// games and individual episodes; a parse failure surfaces as a LineError.
func (p *PlotParser) setTitle(data string) error {
	p.lastTitle = nil
	if skipEntry(data) {
		return nil
	}
	parsed, err := title.Parse(strings.TrimSpace(data))
	if err != nil {
		return p.lineErr(err)
	}
	p.lastTitle = &parsed
	return nil
}

// flush emits the accumulated summary block, if any.
func (p *PlotParser) flush() model.Record {
	if p.lastTitle == nil || len(p.summary) == 0 {
		return nil
	}
	rec := model.PlotRecord{
		CanonicalKey: p.lastTitle.Key(),
		Title:        p.lastTitle.Title,
		Summary:      strings.Join(p.summary, " "),
		Byline:       p.byline,
	}
	p.summary = nil
	p.byline = ""
	return rec
}
