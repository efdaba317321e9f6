package title

import "testing"

func TestParse(t *testing.T) {
	p, err := Parse("Matrix, The (1999)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "Matrix, The" || p.Year != 1999 {
		t.Errorf("got name %q year %d", p.Name, p.Year)
	}
	if p.TVShow || p.Episode != "" || p.Numeral != "" {
		t.Errorf("unexpected extras: %+v", p)
	}
}

func TestParseTVEpisode(t *testing.T) {
	p, err := Parse(`"Buffy the Vampire Slayer" (1997) {Hush (#4.10)}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.TVShow {
		t.Error("expected TV show")
	}
	if p.Name != "Buffy the Vampire Slayer" {
		t.Errorf("got name %q", p.Name)
	}
	if p.Episode != "Hush (#4.10)" {
		t.Errorf("got episode %q", p.Episode)
	}
	if p.Year != 1997 {
		t.Errorf("got year %d", p.Year)
	}
}

func TestParseNumeral(t *testing.T) {
	p, err := Parse("Crime and Punishment (1998/II)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Numeral != "II" || p.Year != 1998 {
		t.Errorf("got year %d numeral %q", p.Year, p.Numeral)
	}
	if got := p.Key(); got != "crime and punishment (1998/II)" {
		t.Errorf("got key %q", got)
	}
}

func TestParseUnknownYear(t *testing.T) {
	p, err := Parse("Lost Film (????)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Year != 0 {
		t.Errorf("got year %d", p.Year)
	}
	if got := p.Key(); got != "lost film (????)" {
		t.Errorf("got key %q", got)
	}
}

func TestParseRejectsBareName(t *testing.T) {
	if _, err := Parse("no year marker here"); err == nil {
		t.Fatal("expected error")
	}
}

func TestKeyEquivalentForms(t *testing.T) {
	a, err := Parse("The Matrix (1999)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := Parse("Matrix, The (1999)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "matrix, the (1999)" {
		t.Errorf("got key %q", a.Key())
	}
}

func TestKeyDeterministic(t *testing.T) {
	p, _ := Parse("Cidade de Deus (2002)")
	first := p.Key()
	for i := 0; i < 100; i++ {
		if got := p.Key(); got != first {
			t.Fatalf("key changed on call %d: %q vs %q", i, got, first)
		}
	}
}

func TestBareKeyArticles(t *testing.T) {
	cases := []struct{ in, want string }{
		{"The Matrix", "matrix, the"},
		{"A Beautiful Mind", "beautiful mind, a"},
		{"La Dolce Vita", "dolce vita, la"},
		{"L'Avventura", "avventura, l'"},
		{"Der Untergang", "untergang, der"},
		{"Los Olvidados", "olvidados, los"},
		{"Theodore Rex", "theodore rex"}, // "the" must match a whole word
		{"Matrix, The", "matrix, the"},
	}
	for _, c := range cases {
		if got := BareKey(c.in); got != c.want {
			t.Errorf("BareKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBareOf(t *testing.T) {
	cases := []struct{ in, want string }{
		{"matrix, the (1999)", "matrix, the"},
		{"crime and punishment (1998/II)", "crime and punishment"},
		{"buffy the vampire slayer (1997) {hush (#4.10)}", "buffy the vampire slayer"},
		{"lost film (????)", "lost film"},
	}
	for _, c := range cases {
		if got := BareOf(c.in); got != c.want {
			t.Errorf("BareOf(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFoldUnicode(t *testing.T) {
	if BareKey("CAFÉ") != BareKey("café") {
		t.Errorf("folding differs: %q vs %q", BareKey("CAFÉ"), BareKey("café"))
	}
}
