package model

import "testing"

func TestMarshalRoundTrip(t *testing.T) {
	in := MovieRecord{CanonicalKey: "matrix, the (1999)", Title: "Matrix, The (1999)", Name: "Matrix, The", Year: 1999}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := out.(MovieRecord)
	if !ok {
		t.Fatalf("got %T", out)
	}
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestUnmarshalRoutesCreditsByRole(t *testing.T) {
	in := CreditRecord{CanonicalKey: "matrix, the (1999)", Person: "Wachowski, Lana", Role: RoleDirector}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Category() != Directors {
		t.Errorf("got category %q", out.Category())
	}
}

func TestUnmarshalUnknownCategory(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"c":"bogus","r":{}}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestMultiValued(t *testing.T) {
	multi := map[Category]bool{
		AkaTitles: true, Plot: true, Genres: true, RunningTimes: true,
		Cast: true, Directors: true, Writers: true,
	}
	for _, cat := range AllCategories {
		if got := cat.MultiValued(); got != multi[cat] {
			t.Errorf("%s: MultiValued() = %v", cat, got)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, cat := range AllCategories {
		if !cat.Valid() {
			t.Errorf("%s should be valid", cat)
		}
	}
	if Category("bogus").Valid() {
		t.Error("bogus should not be valid")
	}
}
