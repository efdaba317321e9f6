// Package model defines the record variants stored in category archives.
package model

import (
	"encoding/json"
	"fmt"
)

// Category identifies one kind of source dump file and its archive.
type Category string

const (
	Movies       Category = "movies"
	AkaTitles    Category = "aka-titles"
	Ratings      Category = "ratings"
	Plot         Category = "plot"
	Genres       Category = "genres"
	RunningTimes Category = "running-times"
	ColorInfo    Category = "color-info"
	Certificates Category = "certificates"
	Cast         Category = "cast"
	Directors    Category = "directors"
	Writers      Category = "writers"
)

// AllCategories lists every known category in build order.
var AllCategories = []Category{
	Movies, AkaTitles, Ratings, Plot, Genres,
	RunningTimes, ColorInfo, Certificates,
	Cast, Directors, Writers,
}

// MultiValued reports whether a category legitimately stores several
// records under one canonical key. Single-valued categories resolve
// duplicate keys last-write-wins; multi-valued ones accumulate in
// write order.
func (c Category) MultiValued() bool {
	switch c {
	case AkaTitles, Plot, Genres, RunningTimes, Cast, Directors, Writers:
		return true
	}
	return false
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	for _, k := range AllCategories {
		if c == k {
			return true
		}
	}
	return false
}

// Record is one structured fact parsed from a dump line. Records are
// immutable once parsed; the builder serializes them as-is.
type Record interface {
	// Key returns the canonical title key the record is filed under.
	Key() string
	// Category returns the archive category the record belongs to.
	Category() Category
}

// Linked is implemented by records that cross-reference another work's
// canonical key. The index stores the link so joins can follow it in
// reverse.
type Linked interface {
	Record
	LinkKey() string
}

// MovieRecord is one entry from the movies list: the canonical display
// title broken into its components.
type MovieRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"` // display form, e.g. `Matrix, The (1999)`
	Name         string `json:"name"`  // bare name without year suffix
	Year         int    `json:"year,omitempty"`
	Numeral      string `json:"numeral,omitempty"` // roman-numeral disambiguator
	Episode      string `json:"episode,omitempty"`
	TVShow       bool   `json:"tv_show,omitempty"`
}

func (r MovieRecord) Key() string        { return r.CanonicalKey }
func (r MovieRecord) Category() Category { return Movies }

// AkaRecord maps an alternate title to its canonical work. It is filed
// under the aka title's own key; the link to the canonical work is the
// CanonicalKey field, explicit data rather than anything re-derived.
type AkaRecord struct {
	AkaKey         string `json:"key"`
	AkaTitle       string `json:"aka_title"`
	CanonicalKey   string `json:"canonical_key"`
	CanonicalTitle string `json:"canonical_title"`
	Region         string `json:"region,omitempty"`
}

func (r AkaRecord) Key() string        { return r.AkaKey }
func (r AkaRecord) Category() Category { return AkaTitles }
func (r AkaRecord) LinkKey() string    { return r.CanonicalKey }

// RatingRecord is one entry from the ratings report.
type RatingRecord struct {
	CanonicalKey string  `json:"key"`
	Title        string  `json:"title"`
	Distribution string  `json:"distribution"` // ten-char vote histogram
	Votes        int     `json:"votes"`
	Score        float64 `json:"score"`
}

func (r RatingRecord) Key() string        { return r.CanonicalKey }
func (r RatingRecord) Category() Category { return Ratings }

// PlotRecord is one plot summary block.
type PlotRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Byline       string `json:"byline,omitempty"`
}

func (r PlotRecord) Key() string        { return r.CanonicalKey }
func (r PlotRecord) Category() Category { return Plot }

// GenreRecord assigns one genre to a title. Titles with several genres
// produce several records.
type GenreRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"`
	Genre        string `json:"genre"`
}

func (r GenreRecord) Key() string        { return r.CanonicalKey }
func (r GenreRecord) Category() Category { return Genres }

// RunningTimeRecord is one running-time entry, optionally country-tagged.
type RunningTimeRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"`
	Minutes      int    `json:"minutes"`
	Country      string `json:"country,omitempty"`
}

func (r RunningTimeRecord) Key() string        { return r.CanonicalKey }
func (r RunningTimeRecord) Category() Category { return RunningTimes }

// ColorInfoRecord holds the color/black-and-white designation.
type ColorInfoRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"`
	Info         string `json:"info"`
}

func (r ColorInfoRecord) Key() string        { return r.CanonicalKey }
func (r ColorInfoRecord) Category() Category { return ColorInfo }

// CertificateRecord holds a certification rating for one country.
type CertificateRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"`
	Certificate  string `json:"certificate"`
	Country      string `json:"country"`
}

func (r CertificateRecord) Key() string        { return r.CanonicalKey }
func (r CertificateRecord) Category() Category { return Certificates }

// Role distinguishes the credit categories.
type Role string

const (
	RoleActor    Role = "actor"
	RoleDirector Role = "director"
	RoleWriter   Role = "writer"
)

// CreditRecord is one person credited on a title. Position is the
// billing order when present; 0 means unbilled.
type CreditRecord struct {
	CanonicalKey string `json:"key"`
	Title        string `json:"title"`
	Person       string `json:"person"`
	Role         Role   `json:"role"`
	Character    string `json:"character,omitempty"`
	Position     int    `json:"position,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

func (r CreditRecord) Key() string { return r.CanonicalKey }

func (r CreditRecord) Category() Category {
	switch r.Role {
	case RoleDirector:
		return Directors
	case RoleWriter:
		return Writers
	}
	return Cast
}

// envelope tags a serialized record with its category so the reader can
// decode the right variant.
type envelope struct {
	Category Category        `json:"c"`
	Payload  json.RawMessage `json:"r"`
}

// Marshal serializes a record with its category tag.
func Marshal(r Record) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", r.Category(), err)
	}
	return json.Marshal(envelope{Category: r.Category(), Payload: payload})
}

// Unmarshal decodes a serialized record back into its concrete variant.
func Unmarshal(data []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode record envelope: %w", err)
	}
	var rec Record
	switch env.Category {
	case Movies:
		rec = new(MovieRecord)
	case AkaTitles:
		rec = new(AkaRecord)
	case Ratings:
		rec = new(RatingRecord)
	case Plot:
		rec = new(PlotRecord)
	case Genres:
		rec = new(GenreRecord)
	case RunningTimes:
		rec = new(RunningTimeRecord)
	case ColorInfo:
		rec = new(ColorInfoRecord)
	case Certificates:
		rec = new(CertificateRecord)
	case Cast, Directors, Writers:
		rec = new(CreditRecord)
	default:
		return nil, fmt.Errorf("unknown record category %q", env.Category)
	}
	if err := json.Unmarshal(env.Payload, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", env.Category, err)
	}
	return deref(rec), nil
}

// deref returns the value form of the pointer variants built in Unmarshal
// so callers compare records by value.
func deref(r Record) Record {
	switch v := r.(type) {
	case *MovieRecord:
		return *v
	case *AkaRecord:
		return *v
	case *RatingRecord:
		return *v
	case *PlotRecord:
		return *v
	case *GenreRecord:
		return *v
	case *RunningTimeRecord:
		return *v
	case *ColorInfoRecord:
		return *v
	case *CertificateRecord:
		return *v
	case *CreditRecord:
		return *v
	}
	return r
}
