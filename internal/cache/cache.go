// Package cache persists the per-file analysis output — symbols and
// edges — in a transactional SQLite database, keyed by content hash so
// repeated runs only re-analyze what changed.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dusk-indust/dimpact/internal/errs"
	"github.com/dusk-indust/dimpact/internal/symbol"
)

// Scope selects where the cache file lives.
type Scope string

const (
	Local  Scope = "local"
	Global Scope = "global"
)

const dirName = "impactcache"

// Paths describes the resolved on-disk location of one cache database.
type Paths struct {
	Dir string
	DB  string
}

// ResolvePaths computes the cache location for scope, honoring an
// explicit override directory first.
func ResolvePaths(scope Scope, overrideDir, repoRoot string) Paths {
	if overrideDir != "" {
		return Paths{Dir: overrideDir, DB: filepath.Join(overrideDir, "index.db")}
	}
	switch scope {
	case Global:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			if home, err := os.UserHomeDir(); err == nil {
				base = filepath.Join(home, ".config")
			} else {
				base = ".config"
			}
		}
		dir := filepath.Join(base, dirName, "cache", SchemaVersion, repoKey(repoRoot))
		return Paths{Dir: dir, DB: filepath.Join(dir, "index.db")}
	default:
		dir := filepath.Join(repoRoot, "."+dirName, SchemaVersion)
		return Paths{Dir: dir, DB: filepath.Join(dir, "index.db")}
	}
}

func repoKey(repoRoot string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(repoRoot)))
	return hex.EncodeToString(sum[:])[:16]
}

// Cache owns the database connection exclusively; no handle escapes
// this package. ToolVersion is recorded in meta for diagnostics.
type Cache struct {
	db          *sql.DB
	paths       Paths
	toolVersion string
}

// Open opens (creating if needed) the cache database at paths. A
// schema-version mismatch or an unreadable database triggers a full
// rebuild rather than a migration, per errs.CacheCorrupt.
func Open(paths Paths, toolVersion string) (*Cache, error) {
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return nil, errs.New(errs.CacheIO, "cache.Open", fmt.Errorf("create cache dir: %w", err))
	}
	db, err := sql.Open("sqlite3", paths.DB+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, errs.New(errs.CacheCorrupt, "cache.Open", fmt.Errorf("open cache db: %w", err))
	}

	version, verr := readSchemaVersion(db)
	if verr != nil || version != SchemaVersion {
		if verr != nil || version != "" {
			// Unreadable or stale schema: discard and rebuild fresh.
			log.Printf("cache: rebuilding %s fresh (schema version %q, read error: %v)", paths.DB, version, verr)
			db.Close()
			if err := os.Remove(paths.DB); err != nil && !os.IsNotExist(err) {
				return nil, errs.New(errs.CacheIO, "cache.Open", fmt.Errorf("remove stale cache: %w", err))
			}
			db, err = sql.Open("sqlite3", paths.DB+"?_journal_mode=WAL&_synchronous=NORMAL")
			if err != nil {
				return nil, errs.New(errs.CacheCorrupt, "cache.Open", err)
			}
		}
		if err := createSchema(db, toolVersion); err != nil {
			db.Close()
			return nil, errs.New(errs.CacheCorrupt, "cache.Open", err)
		}
	}

	return &Cache{db: db, paths: paths, toolVersion: toolVersion}, nil
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Stats reports row counts across the three content tables.
type Stats struct {
	Files   int
	Symbols int
	Edges   int
}

// Stats returns current row counts.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&s.Files); err != nil {
		return Stats{}, fmt.Errorf("cache: stats files: %w", err)
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&s.Symbols); err != nil {
		return Stats{}, fmt.Errorf("cache: stats symbols: %w", err)
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&s.Edges); err != nil {
		return Stats{}, fmt.Errorf("cache: stats edges: %w", err)
	}
	return s, nil
}

// Clear drops every row but keeps the schema in place.
func (c *Cache) Clear() error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin clear: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"edges", "symbols", "files"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("cache: clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// FileRow mirrors the files table's staleness-relevant columns.
type FileRow struct {
	Path        string
	Language    symbol.Language
	ContentHash string
	MTime       int64
}

// Fresh reports whether row matches the current on-disk file. The hash
// is authoritative: only the content hash is compared, so an mtime
// mismatch with an identical hash is still considered fresh and
// currentMTime is not consulted.
func (row FileRow) Fresh(currentHash string, currentMTime int64) bool {
	return row.ContentHash == currentHash
}

// HashContent returns the content hash used for staleness comparisons.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadFileRows returns every file row currently recorded.
func (c *Cache) LoadFileRows() (map[string]FileRow, error) {
	rows, err := c.db.Query(`SELECT path, language, content_hash, mtime FROM files`)
	if err != nil {
		return nil, fmt.Errorf("cache: load file rows: %w", err)
	}
	defer rows.Close()
	out := make(map[string]FileRow)
	for rows.Next() {
		var r FileRow
		var lang string
		if err := rows.Scan(&r.Path, &lang, &r.ContentHash, &r.MTime); err != nil {
			return nil, fmt.Errorf("cache: scan file row: %w", err)
		}
		r.Language = symbol.Language(lang)
		out[r.Path] = r
	}
	return out, rows.Err()
}

// PathUpdate is the replacement row set for one path. Present=false
// drops the path's rows entirely (the file was deleted).
type PathUpdate struct {
	Path        string
	Language    symbol.Language
	ContentHash string
	MTime       int64
	Present     bool
	Symbols     []symbol.Symbol
	Edges       []symbol.Reference
}

// withRetry runs fn once and, on failure, once more after a brief
// pause before giving up. A persistent failure is wrapped as
// errs.CacheIO so the caller can degrade to cache-disabled mode for
// this run instead of aborting it outright, per the transient-write-
// failure handling policy.
func withRetry(op string, fn func() error) error {
	if err := fn(); err != nil {
		time.Sleep(50 * time.Millisecond)
		if err := fn(); err != nil {
			return errs.New(errs.CacheIO, op, err)
		}
	}
	return nil
}

// UpdatePaths recomputes the rows for exactly the given paths,
// replacing them transactionally: a partial crash leaves either the
// prior row set for a path or the new one, never a mix.
func (c *Cache) UpdatePaths(updates []PathUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return withRetry("cache.UpdatePaths", func() error { return c.updatePathsOnce(updates) })
}

func (c *Cache) updatePathsOnce(updates []PathUpdate) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin update: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		if _, err := sq.Delete("edges").Where(sq.Eq{"src_path": u.Path}).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("cache: delete edges for %s: %w", u.Path, err)
		}
		if _, err := sq.Delete("symbols").Where(sq.Eq{"path": u.Path}).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("cache: delete symbols for %s: %w", u.Path, err)
		}
		if _, err := sq.Delete("files").Where(sq.Eq{"path": u.Path}).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("cache: delete file row for %s: %w", u.Path, err)
		}
		if !u.Present {
			continue
		}
		if _, err := sq.Insert("files").
			Columns("path", "language", "content_hash", "mtime", "schema_version").
			Values(u.Path, string(u.Language), u.ContentHash, u.MTime, SchemaVersion).
			RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("cache: insert file row for %s: %w", u.Path, err)
		}
		for _, s := range u.Symbols {
			if _, err := sq.Insert("symbols").
				Columns("symbol_id", "path", "kind", "name", "line_start", "line_end", "container").
				Values(s.ID.String(), s.Path, string(s.Kind), s.Name, s.LineStart, s.LineEnd, nullableString(s.Container)).
				RunWith(tx).Exec(); err != nil {
				return fmt.Errorf("cache: insert symbol %s: %w", s.ID, err)
			}
		}
		for _, e := range u.Edges {
			if _, err := sq.Insert("edges").
				Columns("from_id", "to_id", "kind", "src_path").
				Values(e.From.String(), e.To.String(), string(e.Kind), u.Path).
				RunWith(tx).Exec(); err != nil {
				return fmt.Errorf("cache: insert edge %s->%s: %w", e.From, e.To, err)
			}
		}
	}
	return tx.Commit()
}

// Verify compares currentHashes (path → content hash, as read fresh off
// disk) against the cached file rows without mutating anything. stale
// holds paths present in both but whose hash no longer matches; missing
// holds paths cached but absent from currentHashes entirely.
func (c *Cache) Verify(currentHashes map[string]string) (stale, missing []string, err error) {
	rows, err := c.LoadFileRows()
	if err != nil {
		return nil, nil, err
	}
	for path, row := range rows {
		hash, ok := currentHashes[path]
		if !ok {
			missing = append(missing, path)
			continue
		}
		if !row.Fresh(hash, 0) {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)
	sort.Strings(missing)
	return stale, missing, nil
}

// ReplaceEdges swaps every edge row sourced from path for edges,
// transactionally. It is the second phase of a two-phase update: the
// first phase (UpdatePaths) replaces files and symbols so the full
// symbol table is available for resolution, then the caller resolves
// references against that complete table and calls ReplaceEdges with
// the result — mirroring why edges live in their own phase rather than
// being computed from a partial symbol table.
func (c *Cache) ReplaceEdges(path string, edges []symbol.Reference) error {
	return withRetry("cache.ReplaceEdges", func() error { return c.replaceEdgesOnce(path, edges) })
}

func (c *Cache) replaceEdgesOnce(path string, edges []symbol.Reference) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin replace edges: %w", err)
	}
	defer tx.Rollback()
	if _, err := sq.Delete("edges").Where(sq.Eq{"src_path": path}).RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("cache: delete edges for %s: %w", path, err)
	}
	for _, e := range edges {
		if _, err := sq.Insert("edges").
			Columns("from_id", "to_id", "kind", "src_path").
			Values(e.From.String(), e.To.String(), string(e.Kind), path).
			RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("cache: insert edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return tx.Commit()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// LoadGraph reads every Symbol and Reference currently cached, for
// in-memory graph assembly.
func (c *Cache) LoadGraph() ([]symbol.Symbol, []symbol.Reference, error) {
	symRows, err := c.db.Query(`SELECT symbol_id, path, kind, name, line_start, line_end, container FROM symbols`)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: load symbols: %w", err)
	}
	defer symRows.Close()

	var syms []symbol.Symbol
	for symRows.Next() {
		var idStr, path, kind, name string
		var lineStart, lineEnd int
		var container sql.NullString
		if err := symRows.Scan(&idStr, &path, &kind, &name, &lineStart, &lineEnd, &container); err != nil {
			return nil, nil, fmt.Errorf("cache: scan symbol row: %w", err)
		}
		id, err := symbol.ParseID(idStr)
		if err != nil {
			return nil, nil, fmt.Errorf("cache: malformed cached symbol id: %w", err)
		}
		syms = append(syms, symbol.Symbol{
			ID: id, Language: id.Language, Path: path, Kind: symbol.Kind(kind), Name: name,
			LineStart: lineStart, LineEnd: lineEnd, Container: container.String,
		})
	}
	if err := symRows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := c.db.Query(`SELECT from_id, to_id, kind FROM edges`)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: load edges: %w", err)
	}
	defer edgeRows.Close()

	var refs []symbol.Reference
	for edgeRows.Next() {
		var fromStr, toStr, kind string
		if err := edgeRows.Scan(&fromStr, &toStr, &kind); err != nil {
			return nil, nil, fmt.Errorf("cache: scan edge row: %w", err)
		}
		from, err := symbol.ParseID(fromStr)
		if err != nil {
			return nil, nil, fmt.Errorf("cache: malformed cached edge from-id: %w", err)
		}
		to, err := symbol.ParseID(toStr)
		if err != nil {
			return nil, nil, fmt.Errorf("cache: malformed cached edge to-id: %w", err)
		}
		refs = append(refs, symbol.Reference{From: from, To: to, Kind: symbol.RefKind(kind)})
	}
	return syms, refs, edgeRows.Err()
}

// LoadGraphForPath restricts LoadGraph to rows whose src_path (for
// edges) or path (for symbols) equals path — used to check cache
// consistency against a freshly analyzed file.
func (c *Cache) LoadGraphForPath(path string) ([]symbol.Symbol, []symbol.Reference, error) {
	syms, refs, err := c.LoadGraph()
	if err != nil {
		return nil, nil, err
	}
	var filteredSyms []symbol.Symbol
	for _, s := range syms {
		if s.Path == path {
			filteredSyms = append(filteredSyms, s)
		}
	}
	var filteredRefs []symbol.Reference
	for _, r := range refs {
		if r.From.Path == path {
			filteredRefs = append(filteredRefs, r)
		}
	}
	sort.Slice(filteredSyms, func(i, j int) bool { return symbol.SortKey(filteredSyms[i]) < symbol.SortKey(filteredSyms[j]) })
	return filteredSyms, filteredRefs, nil
}
