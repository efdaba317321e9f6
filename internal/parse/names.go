package parse

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

var errOrphanCredit = errors.New("credit line without a preceding person")

// NamesParser reads the credit dumps (actors, actresses, directors,
// writers): a person name, a tab, and one title per line; continuation
// lines for the same person start with a tab. Title lines may carry
// `(notes)`, a `[character]` and a billing order `<n>`, each separated
// by double spaces.
type NamesParser struct {
	base
	role       model.Role
	lastPerson string
}

// NewNames returns a credits parser emitting records with the given role.
func NewNames(role model.Role, r io.Reader) *NamesParser {
	cat := model.Cast
	switch role {
	case model.RoleDirector:
		cat = model.Directors
	case model.RoleWriter:
		cat = model.Writers
	}
	return &NamesParser{
		base: base{
			cat: cat,
			ls:  newLineScanner(r),
			header: func(ls *lineScanner) error {
				return skipTo(ls, "----\t\t\t------", 0)
			},
		},
		role: role,
	}
}

func (p *NamesParser) Next() (model.Record, error) {
	if p.done {
		return nil, io.EOF
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	for p.ls.Scan() {
		line := p.ls.Text()
		if strings.TrimSpace(line) == "" {
			p.lastPerson = ""
			continue
		}
		if isFooter(line) {
			return nil, p.finish()
		}
		rest := line
		if line[0] != '\t' {
			person, credit, found := strings.Cut(line, "\t")
			if !found {
				return nil, p.lineErr(errNoTab)
			}
			p.lastPerson = person
			rest = credit
		}
		rest = strings.TrimSpace(rest)
		if rest == "" || skipEntry(rest) {
			continue
		}
		if p.lastPerson == "" {
			return nil, p.lineErr(errOrphanCredit)
		}
		rec, err := p.credit(rest)
		if err != nil {
			return nil, p.lineErr(err)
		}
		return rec, nil
	}
	return nil, p.finish()
}

// credit splits one title line into the title and its casting markers.
func (p *NamesParser) credit(rest string) (model.Record, error) {
	segs := strings.Split(rest, "  ")
	parsed, err := title.Parse(strings.TrimSpace(segs[0]))
	if err != nil {
		return nil, err
	}
	rec := model.CreditRecord{
		CanonicalKey: parsed.Key(),
		Title:        parsed.Title,
		Person:       p.lastPerson,
		Role:         p.role,
	}
	var notes []string
	for _, seg := range segs[1:] {
		seg = strings.TrimSpace(seg)
		switch {
		case seg == "":
		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			rec.Character = seg[1 : len(seg)-1]
		case strings.HasPrefix(seg, "<") && strings.HasSuffix(seg, ">"):
			if n, err := strconv.Atoi(seg[1 : len(seg)-1]); err == nil {
				rec.Position = n
			}
		default:
			notes = append(notes, seg)
		}
	}
	rec.Notes = strings.Join(notes, " ")
	return rec, nil
}
