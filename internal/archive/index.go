package archive

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/titledex/titledex/internal/model"
)

// The index is a SQLite database next to the container. The spans table
// maps canonical keys to compressed byte spans; seq preserves write
// order so multi-valued categories read back in the order they were
// written. The link column holds a record's cross-reference to another
// work's key (aka titles), empty elsewhere. The meta table pins the
// category and build counts so a reader can verify it opened the pair
// it expected.
const indexSchema = `
CREATE TABLE IF NOT EXISTS spans (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	key      TEXT NOT NULL,
	bare_key TEXT NOT NULL,
	link     TEXT NOT NULL DEFAULT '',
	offset   INTEGER NOT NULL,
	length   INTEGER NOT NULL,
	crc      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spans_key ON spans(key);
CREATE INDEX IF NOT EXISTS idx_spans_bare ON spans(bare_key);
CREATE INDEX IF NOT EXISTS idx_spans_link ON spans(link);

CREATE TABLE IF NOT EXISTS meta (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
);
`

// createIndex opens a fresh writable index database.
func createIndex(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return db, nil
}

// openIndex opens an index read-only and verifies its category tag.
func openIndex(path string, cat model.Category) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	var got string
	err = db.QueryRow(`SELECT v FROM meta WHERE k = 'category'`).Scan(&got)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("index %s is unreadable: %w", path, err)
	}
	if got != string(cat) {
		db.Close()
		return nil, fmt.Errorf("index %s holds category %q, want %q", path, got, cat)
	}
	return db, nil
}
