package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/titledex/titledex/internal/logging"
	"github.com/titledex/titledex/internal/model"
	"github.com/titledex/titledex/internal/parse"
)

// drain feeds every record from one parser into the writer. Malformed
// lines are counted and skipped; any other error is fatal to the build.
func drain(ctx context.Context, w *Writer, p parse.Parser) (failures int, err error) {
	log := logging.Named("build")
	for {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return failures, nil
		}
		var le *parse.LineError
		if errors.As(err, &le) {
			failures++
			log.Debug().
				Str("category", string(le.Category)).
				Int64("line", le.Line).
				Str("text", le.Text).
				Err(le.Err).
				Msg("skipping malformed line")
			continue
		}
		if err != nil {
			return failures, fmt.Errorf("%s: %w", p.Category(), err)
		}
		if err := w.Add(rec); err != nil {
			return failures, err
		}
	}
}

// sourcePath locates a category source file under srcDir, preferring the
// compressed form. ok is false when neither exists.
func sourcePath(srcDir, name string) (string, bool) {
	for _, p := range []string{
		filepath.Join(srcDir, name+".list.gz"),
		filepath.Join(srcDir, name+".list"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// BuildCategory builds one category's archive pair inside dir from the
// dumps found in srcDir. Categories fed by several dumps (cast) consume
// them in order into the same pair. A missing source file is not an
// error; ok reports whether any source was found.
func BuildCategory(ctx context.Context, dir, srcDir string, cat model.Category) (sum BuildSummary, ok bool, err error) {
	var sources []string
	for _, name := range parse.SourceFilenames(cat) {
		if p, found := sourcePath(srcDir, name); found {
			sources = append(sources, p)
		}
	}
	if len(sources) == 0 {
		return BuildSummary{Category: cat}, false, nil
	}

	w, err := NewWriter(dir, cat)
	if err != nil {
		return BuildSummary{}, false, err
	}

	failures := 0
	for _, src := range sources {
		r, err := parse.Open(src)
		if err != nil {
			w.Abort()
			return BuildSummary{}, false, err
		}
		p, err := parse.ForCategory(cat, r)
		if err != nil {
			r.Close()
			w.Abort()
			return BuildSummary{}, false, err
		}
		n, err := drain(ctx, w, p)
		failures += n
		if cerr := r.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", src, cerr)
		}
		if err != nil {
			w.Abort()
			return BuildSummary{}, false, err
		}
	}

	sum, err = w.Close(failures)
	if err != nil {
		w.Abort()
		return BuildSummary{}, false, err
	}
	return sum, true, nil
}

// Rebuild builds a complete new build from the dumps in srcDir and
// atomically publishes it. Categories run concurrently; a failure in any
// one abandons the whole build and leaves the previous published build
// untouched. Returns the manifest of the published build.
func Rebuild(ctx context.Context, root, srcDir string) (Manifest, error) {
	log := logging.Named("build")
	id := NewBuildID()
	dir := BuildDir(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create build dir: %w", err)
	}

	m := Manifest{
		BuildID:    id,
		CreatedAt:  time.Now().UTC(),
		Categories: make(map[model.Category]BuildSummary, len(model.AllCategories)),
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]BuildSummary, len(model.AllCategories))
	built := make([]bool, len(model.AllCategories))
	for i, cat := range model.AllCategories {
		i, cat := i, cat
		g.Go(func() error {
			start := time.Now()
			sum, ok, err := BuildCategory(gctx, dir, srcDir, cat)
			if err != nil {
				return err
			}
			if !ok {
				log.Info().Str("category", string(cat)).Msg("no source file, skipping")
				return nil
			}
			log.Info().
				Str("category", string(cat)).
				Int("records", sum.Records).
				Int("failures", sum.Failures).
				Int64("bytes", sum.Bytes).
				Dur("elapsed", time.Since(start)).
				Msg("category built")
			results[i] = sum
			built[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		os.RemoveAll(dir)
		return Manifest{}, err
	}

	any := false
	for i, cat := range model.AllCategories {
		if built[i] {
			m.Categories[cat] = results[i]
			any = true
		}
	}
	if !any {
		os.RemoveAll(dir)
		return Manifest{}, fmt.Errorf("no source dumps found in %s", srcDir)
	}

	if err := WriteManifest(root, m); err != nil {
		os.RemoveAll(dir)
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	if err := Publish(root, id); err != nil {
		os.RemoveAll(dir)
		return Manifest{}, err
	}
	log.Info().Str("build", id).Int("categories", len(m.Categories)).Msg("build published")
	return m, nil
}
