package parse

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

// certCountries filters the certificates list; only these countries are
// indexed.
var certCountries = map[string]bool{"USA": true}

// basicParser handles the dumps laid out as `title TAB value` lists:
// genres, running-times, color-info and certificates.
type basicParser struct {
	base
}

func newBasic(cat model.Category, r io.Reader) *basicParser {
	header := func(ls *lineScanner) error {
		return skipTo(ls, strings.Repeat("-", 77), 3)
	}
	if cat == model.Genres {
		header = func(ls *lineScanner) error {
			return skipTo(ls, "8: THE GENRES LIST", 2)
		}
	}
	return &basicParser{base: base{cat: cat, ls: newLineScanner(r), header: header}}
}

func (p *basicParser) Next() (model.Record, error) {
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
		fields := splitTabs(line)
		if len(fields) < 2 {
			// some running-times entries carry no value at all
			continue
		}
		parsed, err := title.Parse(fields[0])
		if err != nil {
			return nil, p.lineErr(err)
		}
		rec, err := p.record(parsed, strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, p.lineErr(err)
		}
		if rec == nil {
			continue
		}
		return rec, nil
	}
	return nil, p.finish()
}

// record builds the category-specific variant from the value field. A
// nil record with nil error means the line is skipped, not failed.
func (p *basicParser) record(parsed title.Parsed, value string) (model.Record, error) {
	switch p.cat {
	case model.Genres:
		return model.GenreRecord{
			CanonicalKey: parsed.Key(),
			Title:        parsed.Title,
			Genre:        value,
		}, nil
	case model.RunningTimes:
		minutes, country, err := parseDuration(value)
		if err != nil {
			return nil, err
		}
		return model.RunningTimeRecord{
			CanonicalKey: parsed.Key(),
			Title:        parsed.Title,
			Minutes:      minutes,
			Country:      country,
		}, nil
	case model.ColorInfo:
		return model.ColorInfoRecord{
			CanonicalKey: parsed.Key(),
			Title:        parsed.Title,
			Info:         value,
		}, nil
	case model.Certificates:
		country, cert, found := strings.Cut(value, ":")
		if !found || !certCountries[country] {
			return nil, nil
		}
		return model.CertificateRecord{
			CanonicalKey: parsed.Key(),
			Title:        parsed.Title,
			Certificate:  cert,
			Country:      country,
		}, nil
	}
	return nil, errors.New("not a basic-list category")
}

// parseDuration handles the `[COUNTRY:]DURATION[:trailing]` running-time
// field. The dump contains oddities like "54 min." and "2 x 90"; leading
// digits are salvaged, matching how the original data was interpreted.
func parseDuration(value string) (minutes int, country string, err error) {
	if value == "" {
		return 0, "", errors.New("empty running time")
	}
	if value[0] < '0' || value[0] > '9' {
		var found bool
		country, value, found = strings.Cut(value, ":")
		if !found {
			return 0, "", errors.New("running time has no duration field")
		}
	}
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return n, country, nil
	}
	for i, c := range value {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0, "", errors.New("unparseable running time")
			}
			n, _ := strconv.Atoi(value[:i])
			return n, country, nil
		}
	}
	return 0, "", errors.New("unparseable running time")
}
