// Package archive builds and reads the per-category archive pairs: a
// container file of independently compressed record spans plus a SQLite
// index mapping canonical keys to byte spans.
//
// Builds are all-or-nothing: every pair is written under builds/<ULID>/
// and becomes visible only when the CURRENT pointer file is atomically
// renamed over. Published builds are immutable; a rebuild produces a new
// build directory and repoints CURRENT, leaving handles open against the
// previous build valid until closed.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/titledex/titledex/internal/model"
)

var (
	// ErrNotFound reports a key absent from an archive. Absence is an
	// expected outcome, distinct from corruption or I/O failure.
	ErrNotFound = errors.New("key not found in archive")

	// ErrCorrupt reports a span that failed its checksum or could not
	// be decoded. Fatal to the lookup, not to the process.
	ErrCorrupt = errors.New("archive corrupt")

	// ErrNoCurrent reports that no build has been published yet.
	ErrNoCurrent = errors.New("no published build")
)

const (
	containerExt = ".arc"
	indexExt     = ".idx"
	buildsDir    = "builds"
	currentFile  = "CURRENT"
	manifestFile = "manifest.json"
)

// BuildSummary reports the outcome of one category's build.
type BuildSummary struct {
	Category model.Category `json:"category"`
	Records  int            `json:"records"`
	Failures int            `json:"failures"`
	Bytes    int64          `json:"bytes"` // container size, compressed
}

// Manifest describes one published build.
type Manifest struct {
	BuildID    string                          `json:"build_id"`
	CreatedAt  time.Time                       `json:"created_at"`
	Categories map[model.Category]BuildSummary `json:"categories"`
}

// NewBuildID returns a fresh build identifier.
func NewBuildID() string {
	return ulid.Make().String()
}

// BuildDir returns the directory holding one build's archive pairs.
func BuildDir(root, buildID string) string {
	return filepath.Join(root, buildsDir, buildID)
}

func containerPath(dir string, cat model.Category) string {
	return filepath.Join(dir, string(cat)+containerExt)
}

func indexPath(dir string, cat model.Category) string {
	return filepath.Join(dir, string(cat)+indexExt)
}

// CurrentBuild returns the published build id, or ErrNoCurrent.
func CurrentBuild(root string) (string, error) {
	b, err := os.ReadFile(filepath.Join(root, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoCurrent
	}
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", ErrNoCurrent
	}
	return id, nil
}

// WriteManifest stores the manifest inside the build directory.
func WriteManifest(root string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(BuildDir(root, m.BuildID), manifestFile), b, 0o644)
}

// ReadManifest loads a build's manifest.
func ReadManifest(root, buildID string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(BuildDir(root, buildID), manifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("manifest for build %s: %w", buildID, err)
	}
	return m, nil
}

// Publish atomically repoints CURRENT at the given build. Readers opened
// against the previous build keep working; new opens see the new build.
func Publish(root, buildID string) error {
	tmp := filepath.Join(root, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(buildID+"\n"), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(root, currentFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish build %s: %w", buildID, err)
	}
	return nil
}
