package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/titledex/titledex/internal/archive"
	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/resolve"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	root := t.TempDir()
	id := archive.NewBuildID()
	dir := archive.BuildDir(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w, err := archive.NewWriter(dir, model.Movies)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	for _, rec := range []model.Record{
		model.MovieRecord{CanonicalKey: "matrix, the (1999)", Title: "Matrix, The (1999)", Name: "Matrix, The", Year: 1999},
		model.MovieRecord{CanonicalKey: "titanic (1953)", Title: "Titanic (1953)", Name: "Titanic", Year: 1953},
		model.MovieRecord{CanonicalKey: "titanic (1997)", Title: "Titanic (1997)", Name: "Titanic", Year: 1997},
	} {
		if err := w.Add(rec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := w.Close(0); err != nil {
		t.Fatalf("close: %v", err)
	}

	set, err := archive.OpenBuild(root, id)
	if err != nil {
		t.Fatalf("open build: %v", err)
	}
	t.Cleanup(func() { set.Close() })

	return New(resolve.New(set, resolve.Options{})).Router()
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("got status %d", rec.Code)
	}
}

func TestResolveOK(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/resolve?q=The+Matrix")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body)
	}
	var e resolve.Entity
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Key != "matrix, the (1999)" || e.Year != 1999 {
		t.Errorf("got %+v", e)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/v1/resolve?q=Titanic")
	if rec.Code != http.StatusMultipleChoices {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Candidates []string `json:"candidates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Candidates) != 2 {
		t.Errorf("got candidates %v", body.Candidates)
	}

	rec = get(t, h, "/v1/resolve?q=Titanic&year=1997")
	if rec.Code != http.StatusOK {
		t.Errorf("got status %d: %s", rec.Code, rec.Body)
	}
}

func TestResolveNotFound(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/resolve?q=Nonexistent")
	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d", rec.Code)
	}
}

func TestResolveBadRequest(t *testing.T) {
	h := newTestServer(t)
	if rec := get(t, h, "/v1/resolve"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing q: got status %d", rec.Code)
	}
	if rec := get(t, h, "/v1/resolve?q=x&year=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad year: got status %d", rec.Code)
	}
}
