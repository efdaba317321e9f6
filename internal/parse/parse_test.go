package parse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/titledex/titledex/internal/model"
)

// collect drains a parser, counting malformed lines.
func collect(t *testing.T, p Parser) (recs []model.Record, failures int) {
	t.Helper()
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return recs, failures
		}
		var le *LineError
		if errors.As(err, &le) {
			failures++
			continue
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		recs = append(recs, rec)
	}
}

var moviesDump = "MOVIES LIST\n" +
	"===========\n" +
	"\n" +
	"Matrix, The (1999)\t1999\n" +
	"\"Buffy the Vampire Slayer\" (1997)\t1997-2003\n" +
	"Tetris (1989) (VG)\t1989\n" +
	"line with no tab at all\n" +
	"Avventura, L' (1960)\t1960\n" +
	strings.Repeat("-", 80) + "\n" +
	"SUBMITTING UPDATES\n"

func TestMovies(t *testing.T) {
	recs, failures := collect(t, NewMovies(strings.NewReader(moviesDump)))
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	mv := recs[0].(model.MovieRecord)
	if mv.CanonicalKey != "matrix, the (1999)" {
		t.Errorf("got key %q", mv.CanonicalKey)
	}
	if mv.Year != 1999 || mv.TVShow {
		t.Errorf("got %+v", mv)
	}
	buffy := recs[1].(model.MovieRecord)
	if !buffy.TVShow || buffy.Name != "Buffy the Vampire Slayer" {
		t.Errorf("got %+v", buffy)
	}
	if recs[2].Key() != "avventura, l' (1960)" {
		t.Errorf("got key %q", recs[2].Key())
	}
}

const akaDump = "AKA TITLES LIST\n" +
	"===============\n" +
	"header line one\n" +
	"header line two\n" +
	"\n" +
	"Matrix, The (1999)\n" +
	"   (aka Matrica (1999))\t(Slovenia)\n" +
	"   (aka Matrix (1999))\t(Germany)\n" +
	"\n" +
	"Avventura, L' (1960)\n" +
	"   (aka Adventure, The (1960))\t(USA)\n"

func TestAka(t *testing.T) {
	recs, failures := collect(t, NewAka(strings.NewReader(akaDump)))
	if failures != 0 {
		t.Errorf("expected 0 failures, got %d", failures)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	aka := recs[0].(model.AkaRecord)
	if aka.AkaKey != "matrica (1999)" {
		t.Errorf("got aka key %q", aka.AkaKey)
	}
	if aka.CanonicalKey != "matrix, the (1999)" {
		t.Errorf("got canonical key %q", aka.CanonicalKey)
	}
	if aka.Region != "Slovenia" {
		t.Errorf("got region %q", aka.Region)
	}
	last := recs[2].(model.AkaRecord)
	if last.CanonicalKey != "avventura, l' (1960)" {
		t.Errorf("got canonical key %q", last.CanonicalKey)
	}
}

func TestAkaOrphanLine(t *testing.T) {
	dump := "===============\nx\ny\n" +
		"   (aka Matrica (1999))\t(Slovenia)\n"
	_, failures := collect(t, NewAka(strings.NewReader(dump)))
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

const ratingsDump = "header noise\n" +
	"MOVIE RATINGS REPORT\n" +
	"\n" +
	"New  Distribution  Votes  Rank  Title\n" +
	"      0000000125  1852213   8.7  Matrix, The (1999)\n" +
	"      0000001222     2534   7.9  Avventura, L' (1960)\n" +
	"      not a rating line\n" +
	"\n" +
	"TOP 250 MOVIES\n" +
	"      0000000111   999999   9.9  Should Not Appear (2000)\n"

func TestRatings(t *testing.T) {
	recs, failures := collect(t, NewRatings(strings.NewReader(ratingsDump)))
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	r := recs[0].(model.RatingRecord)
	if r.Distribution != "0000000125" || r.Votes != 1852213 || r.Score != 8.7 {
		t.Errorf("got %+v", r)
	}
	if r.CanonicalKey != "matrix, the (1999)" {
		t.Errorf("got key %q", r.CanonicalKey)
	}
}

var plotDump = "PLOT SUMMARIES LIST\n" +
	"===================\n" +
	"\n" +
	"MV: Matrix, The (1999)\n" +
	"\n" +
	"PL: A computer hacker learns about\n" +
	"PL: the true nature of reality.\n" +
	"\n" +
	"BY: Some Author <author@example.com>\n" +
	"\n" +
	strings.Repeat("-", 79) + "\n" +
	"MV: Avventura, L' (1960)\n" +
	"\n" +
	"PL: A woman disappears during a Mediterranean boating trip.\n" +
	"\n" +
	strings.Repeat("-", 79) + "\n"

func TestPlot(t *testing.T) {
	recs, failures := collect(t, NewPlot(strings.NewReader(plotDump)))
	if failures != 0 {
		t.Errorf("expected 0 failures, got %d", failures)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	p := recs[0].(model.PlotRecord)
	if p.Summary != "A computer hacker learns about the true nature of reality." {
		t.Errorf("got summary %q", p.Summary)
	}
	if p.Byline != "Some Author <author@example.com>" {
		t.Errorf("got byline %q", p.Byline)
	}
	if recs[1].Key() != "avventura, l' (1960)" {
		t.Errorf("got key %q", recs[1].Key())
	}
}

func TestPlotMalformedTitleWhileBlockPending(t *testing.T) {
	dump := "===================\n" +
		"\n" +
		"MV: Matrix, The (1999)\n" +
		"PL: Short.\n" +
		"MV: not a parseable title\n" +
		"PL: text under the bad title\n" +
		strings.Repeat("-", 79) + "\n" +
		"MV: Avventura, L' (1960)\n" +
		"PL: A woman disappears.\n" +
		strings.Repeat("-", 79) + "\n"
	recs, failures := collect(t, NewPlot(strings.NewReader(dump)))
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].(model.PlotRecord).Summary != "Short." {
		t.Errorf("got summary %q", recs[0].(model.PlotRecord).Summary)
	}
	if recs[1].Key() != "avventura, l' (1960)" {
		t.Errorf("got key %q", recs[1].Key())
	}
}

const genresDump = "8: THE GENRES LIST\n" +
	"==================\n" +
	"\n" +
	"Matrix, The (1999)\tAction\n" +
	"Matrix, The (1999)\tSci-Fi\n" +
	"Avventura, L' (1960)\tDrama\n"

func TestGenres(t *testing.T) {
	recs, failures := collect(t, newBasic(model.Genres, strings.NewReader(genresDump)))
	if failures != 0 {
		t.Errorf("expected 0 failures, got %d", failures)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if g := recs[1].(model.GenreRecord); g.Genre != "Sci-Fi" {
		t.Errorf("got genre %q", g.Genre)
	}
}

func basicDump(lines ...string) string {
	return "SOME LIST\n" + strings.Repeat("-", 77) + "\n" +
		"skip one\nskip two\nskip three\n" + strings.Join(lines, "\n") + "\n"
}

func TestRunningTimes(t *testing.T) {
	dump := basicDump(
		"Matrix, The (1999)\t136",
		"Avventura, L' (1960)\tUSA:143 min.",
		"Odd One (2000)\tGermany:approx",
	)
	recs, failures := collect(t, newBasic(model.RunningTimes, strings.NewReader(dump)))
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	rt := recs[1].(model.RunningTimeRecord)
	if rt.Minutes != 143 || rt.Country != "USA" {
		t.Errorf("got %+v", rt)
	}
}

func TestCertificatesCountryFilter(t *testing.T) {
	dump := basicDump(
		"Matrix, The (1999)\tUSA:R",
		"Matrix, The (1999)\tGermany:16",
	)
	recs, failures := collect(t, newBasic(model.Certificates, strings.NewReader(dump)))
	if failures != 0 {
		t.Errorf("expected 0 failures, got %d", failures)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if c := recs[0].(model.CertificateRecord); c.Certificate != "R" || c.Country != "USA" {
		t.Errorf("got %+v", c)
	}
}

const actorsDump = "THE ACTORS LIST\n" +
	"Name\t\t\tTitles\n" +
	"----\t\t\t------\n" +
	"Reeves, Keanu\tMatrix, The (1999)  [Neo]  <1>\n" +
	"\tJohnny Mnemonic (1995)  [Johnny]  <1>\n" +
	"\n" +
	"Fishburne, Laurence\tMatrix, The (1999)  [Morpheus]  <2>\n"

func TestNames(t *testing.T) {
	recs, failures := collect(t, NewNames(model.RoleActor, strings.NewReader(actorsDump)))
	if failures != 0 {
		t.Errorf("expected 0 failures, got %d", failures)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	neo := recs[0].(model.CreditRecord)
	if neo.Person != "Reeves, Keanu" || neo.Character != "Neo" || neo.Position != 1 {
		t.Errorf("got %+v", neo)
	}
	if neo.Category() != model.Cast {
		t.Errorf("got category %q", neo.Category())
	}
	// continuation line inherits the person
	if jm := recs[1].(model.CreditRecord); jm.Person != "Reeves, Keanu" {
		t.Errorf("got person %q", jm.Person)
	}
	if m := recs[2].(model.CreditRecord); m.Person != "Fishburne, Laurence" || m.Position != 2 {
		t.Errorf("got %+v", m)
	}
}

func TestNamesRoles(t *testing.T) {
	dump := "----\t\t\t------\n" +
		"Wachowski, Lana\tMatrix, The (1999)\n"
	recs, _ := collect(t, NewNames(model.RoleDirector, strings.NewReader(dump)))
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Category() != model.Directors {
		t.Errorf("got category %q", recs[0].Category())
	}
}

func TestLineErrorDetails(t *testing.T) {
	p := NewMovies(strings.NewReader(moviesDump))
	var le *LineError
	for {
		_, err := p.Next()
		if errors.As(err, &le) {
			break
		}
		if errors.Is(err, io.EOF) {
			t.Fatal("no LineError surfaced")
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if le.Category != model.Movies {
		t.Errorf("got category %q", le.Category)
	}
	if le.Text != "line with no tab at all" {
		t.Errorf("got text %q", le.Text)
	}
	if le.Line == 0 || le.Offset == 0 {
		t.Errorf("missing position: line %d offset %d", le.Line, le.Offset)
	}
}
