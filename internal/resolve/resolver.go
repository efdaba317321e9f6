// Package resolve joins records across category archives into one
// entity per title query.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/titledex/titledex/internal/archive"
	"github.com/titledex/titledex/internal/logging"
	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/title"
)

// ErrNotFound reports a query that matched no title in the movies or
// aka-titles archives.
var ErrNotFound = errors.New("title not found")

// AmbiguousError reports a query that matched several distinct works.
// Disambiguate by passing the year.
type AmbiguousError struct {
	Query      string
	Candidates []string // full canonical keys, sorted
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q matches %d titles", e.Query, len(e.Candidates))
}

// Entity is the unified view of one work, joined across every archive
// that has records for it. Attribute fields are zero when the archive
// or the key is absent.
type Entity struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Name  string `json:"name"`
	Year  int    `json:"year,omitempty"`

	AkaTitles   []model.AkaRecord    `json:"aka_titles,omitempty"`
	Rating      *model.RatingRecord  `json:"rating,omitempty"`
	Plot        string               `json:"plot,omitempty"`
	PlotByline  string               `json:"plot_byline,omitempty"`
	Genres      []string             `json:"genres,omitempty"`
	RunningTime int                  `json:"running_time,omitempty"` // median minutes
	ColorInfo   string               `json:"color_info,omitempty"`
	Certificate string               `json:"certificate,omitempty"`
	Cast        []model.CreditRecord `json:"cast,omitempty"`
	Directors   []model.CreditRecord `json:"directors,omitempty"`
	Writers     []model.CreditRecord `json:"writers,omitempty"`
}

// Options configures a Resolver.
type Options struct {
	// Strict escalates attribute-archive storage errors to hard
	// failures. Off, the resolver logs them and omits the attribute.
	Strict bool
}

// Resolver answers title queries against one open archive set.
type Resolver struct {
	set    *archive.Set
	strict bool
	log    zerolog.Logger
}

// New returns a resolver over an open archive set. The set must stay
// open for the resolver's lifetime.
func New(set *archive.Set, opts Options) *Resolver {
	return &Resolver{
		set:    set,
		strict: opts.Strict,
		log:    logging.Named("resolve"),
	}
}

// Resolve normalizes the query, settles it to exactly one canonical key
// and joins every attribute archive for it. year disambiguates between
// same-named works; 0 means unspecified. Returns ErrNotFound or an
// *AmbiguousError when the query cannot be settled.
func (r *Resolver) Resolve(ctx context.Context, query string, year int) (*Entity, error) {
	movies := r.set.Handle(model.Movies)
	if movies == nil {
		return nil, errors.New("movies archive not available")
	}

	key, err := r.settle(ctx, movies, query, year)
	if err != nil {
		return nil, err
	}

	recs, err := movies.Lookup(ctx, key)
	if errors.Is(err, archive.ErrNotFound) {
		// an aka record may cross-link a work missing from the movies
		// dump; a dangling link is a not-found outcome, not a failure
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	mv := recs[0].(model.MovieRecord)
	e := &Entity{Key: mv.CanonicalKey, Title: mv.Title, Name: mv.Name, Year: mv.Year}

	if err := r.join(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// settle turns a free-text query into exactly one canonical key that
// exists in the movies archive. Candidates come from the movies archive
// first; when it has none, aka titles are followed to their canonical
// works.
func (r *Resolver) settle(ctx context.Context, movies *archive.Handle, query string, year int) (string, error) {
	bare := title.BareKey(query)
	keys, err := movies.Candidates(ctx, bare)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		keys, err = r.akaCandidates(ctx, bare)
		if err != nil {
			return "", err
		}
	}
	if year > 0 {
		keys = filterYear(keys, year)
	}
	switch len(keys) {
	case 0:
		return "", ErrNotFound
	case 1:
		return keys[0], nil
	}
	sort.Strings(keys)
	return "", &AmbiguousError{Query: query, Candidates: keys}
}

// akaCandidates follows alternate titles matching the bare key to their
// canonical works. The canonical key is carried on the aka record
// itself; it is never re-derived from the aka text.
func (r *Resolver) akaCandidates(ctx context.Context, bare string) ([]string, error) {
	aka := r.set.Handle(model.AkaTitles)
	if aka == nil {
		return nil, nil
	}
	akaKeys, err := aka.Candidates(ctx, bare)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var keys []string
	for _, ak := range akaKeys {
		recs, err := aka.Lookup(ctx, ak)
		if errors.Is(err, archive.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			ck := rec.(model.AkaRecord).CanonicalKey
			if !seen[ck] {
				seen[ck] = true
				keys = append(keys, ck)
			}
		}
	}
	return keys, nil
}

// filterYear keeps keys whose year disambiguator matches.
func filterYear(keys []string, year int) []string {
	marker := " (" + strconv.Itoa(year)
	var out []string
	for _, k := range keys {
		if i := lastParen(k); i >= 0 && len(k) > i+len(marker) && k[i:i+len(marker)] == marker {
			out = append(out, k)
		}
	}
	return out
}

func lastParen(key string) int {
	if i := indexEpisode(key); i >= 0 {
		key = key[:i]
	}
	for i := len(key) - 1; i > 0; i-- {
		if key[i] == '(' && key[i-1] == ' ' {
			return i - 1
		}
	}
	return -1
}

func indexEpisode(key string) int {
	for i := len(key) - 1; i > 0; i-- {
		if key[i] == '{' && key[i-1] == ' ' {
			return i - 1
		}
	}
	return -1
}

// join fans out over the attribute archives and fills the entity.
// Absent archives and absent keys are omitted; storage errors are
// omitted with a log line unless the resolver is strict.
func (r *Resolver) join(ctx context.Context, e *Entity) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(cat model.Category, apply func([]model.Record)) {
		h := r.set.Handle(cat)
		if h == nil {
			return
		}
		lookup := h.Lookup
		if cat == model.AkaTitles {
			// aka records are filed under their own key; follow their
			// cross-reference link in reverse
			lookup = h.Linked
		}
		g.Go(func() error {
			recs, err := lookup(gctx, e.Key)
			if errors.Is(err, archive.ErrNotFound) {
				return nil
			}
			if err != nil {
				if r.strict {
					return fmt.Errorf("%s: %w", cat, err)
				}
				r.log.Warn().Str("category", string(cat)).Str("key", e.Key).
					Err(err).Msg("attribute lookup failed, omitting")
				return nil
			}
			mu.Lock()
			apply(recs)
			mu.Unlock()
			return nil
		})
	}

	fetch(model.AkaTitles, func(recs []model.Record) {
		for _, rec := range recs {
			e.AkaTitles = append(e.AkaTitles, rec.(model.AkaRecord))
		}
	})
	fetch(model.Ratings, func(recs []model.Record) {
		rt := recs[0].(model.RatingRecord)
		e.Rating = &rt
	})
	fetch(model.Plot, func(recs []model.Record) {
		// when several summaries survive, the shortest wins
		best := recs[0].(model.PlotRecord)
		for _, rec := range recs[1:] {
			if p := rec.(model.PlotRecord); len(p.Summary) < len(best.Summary) {
				best = p
			}
		}
		e.Plot = best.Summary
		e.PlotByline = best.Byline
	})
	fetch(model.Genres, func(recs []model.Record) {
		for _, rec := range recs {
			e.Genres = append(e.Genres, rec.(model.GenreRecord).Genre)
		}
		sort.Strings(e.Genres)
	})
	fetch(model.RunningTimes, func(recs []model.Record) {
		mins := make([]int, 0, len(recs))
		for _, rec := range recs {
			mins = append(mins, rec.(model.RunningTimeRecord).Minutes)
		}
		e.RunningTime = median(mins)
	})
	fetch(model.ColorInfo, func(recs []model.Record) {
		e.ColorInfo = recs[0].(model.ColorInfoRecord).Info
	})
	fetch(model.Certificates, func(recs []model.Record) {
		c := recs[0].(model.CertificateRecord)
		e.Certificate = c.Country + ":" + c.Certificate
	})
	fetch(model.Cast, func(recs []model.Record) {
		e.Cast = credits(recs)
	})
	fetch(model.Directors, func(recs []model.Record) {
		e.Directors = credits(recs)
	})
	fetch(model.Writers, func(recs []model.Record) {
		e.Writers = credits(recs)
	})

	return g.Wait()
}

// credits converts and sorts credit records by billing order; unbilled
// entries (position 0) sort last, keeping their write order.
func credits(recs []model.Record) []model.CreditRecord {
	out := make([]model.CreditRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.(model.CreditRecord))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return billing(out[i].Position) < billing(out[j].Position)
	})
	return out
}

func billing(pos int) int {
	if pos == 0 {
		return 1 << 30
	}
	return pos
}

// median returns the median of the values, averaging the middle pair
// for even counts.
func median(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	sort.Ints(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
