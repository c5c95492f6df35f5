package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// Store is the metadata store: files, chunks, symbols, and dependency
// edges, backed by a single SQLite database file (metadata.db in the
// repo's data directory).
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Open opens (creating if absent) the metadata database at path,
// taking an exclusive process lock at path+".lock" per the spec's
// single-writer-process invariant. The lock is released by Close.
func Open(path string) (*Store, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: acquire writer lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: another process holds the writer lock for %s", errs.ErrLockPoisoned, path)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: open sqlite: %v", errs.ErrIO, err)
	}
	db.SetMaxOpenConns(1)

	version, err := getSchemaVersion(db)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	stored, _ := strconv.Atoi(version)
	compiled, _ := strconv.Atoi(schemaVersion)
	switch {
	case stored == 0:
		if err := createSchema(db); err != nil {
			_ = lock.Unlock()
			return nil, err
		}
	case stored > compiled:
		// A store written by a newer binary is fatal; an older store
		// would run migrations here instead.
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: metadata.db schema version %s exceeds supported version %s", errs.ErrStoreCorruption, version, schemaVersion)
	case stored < compiled:
		if err := migrateSchema(db, stored); err != nil {
			_ = lock.Unlock()
			return nil, err
		}
	}

	return &Store{db: db, lock: lock}, nil
}

// Close releases the database handle and the writer lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

// UpsertFile inserts or updates a file record by path, returning its id.
func (s *Store) UpsertFile(f domain.File) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO files (path, language, content_hash, size_bytes, last_modified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			last_modified = excluded.last_modified
	`, f.Path, string(f.Language), f.ContentHash, f.SizeBytes, f.LastModified)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert file %s: %v", errs.ErrIO, f.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		return s.fileIDByPath(f.Path)
	}
	return id, nil
}

func (s *Store) fileIDByPath(path string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: lookup file id for %s: %v", errs.ErrIO, path, err)
	}
	return id, nil
}

// GetFile returns the file record at path, or (domain.File{}, false, nil)
// if absent.
func (s *Store) GetFile(path string) (domain.File, bool, error) {
	var f domain.File
	err := s.db.QueryRow(`
		SELECT id, path, language, content_hash, size_bytes, last_modified
		FROM files WHERE path = ?
	`, path).Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.SizeBytes, &f.LastModified)
	if err == sql.ErrNoRows {
		return domain.File{}, false, nil
	}
	if err != nil {
		return domain.File{}, false, fmt.Errorf("%w: get file %s: %v", errs.ErrIO, path, err)
	}
	return f, true, nil
}

// ReindexResult carries the ids assigned during a ReindexFile call, so
// the caller can forward them to the vector index and dependency graph.
type ReindexResult struct {
	FileID    int64
	ChunkIDs  []int64
	SymbolIDs []int64
}

// ReindexFile atomically replaces one file's chunks, symbols, and
// dependency edges. Deletes run in strict dependency order (edges
// first, then symbols, then chunks) before any insert, all inside one
// transaction, so no ghost edge can survive.
//
// Chunk ids don't exist yet when the caller builds symbols, so each
// symbols[i].ChunkID is interpreted as an INDEX into the chunks slice
// (the position of the owning chunk), not a database id; ReindexFile
// resolves it to the real autoincrement id assigned during this same
// transaction before inserting the symbol row. A nil ChunkID means the
// symbol has no owning chunk (true for every sub-chunk past the
// first).
func (s *Store) ReindexFile(f domain.File, chunks []domain.Chunk, symbols []domain.Symbol, edges []domain.DependencyEdge) (ReindexResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return ReindexResult{}, fmt.Errorf("%w: begin reindex tx: %v", errs.ErrIO, err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRow(`SELECT id FROM files WHERE path = ?`, f.Path).Scan(&fileID)
	if err == sql.ErrNoRows {
		res, insertErr := tx.Exec(`
			INSERT INTO files (path, language, content_hash, size_bytes, last_modified)
			VALUES (?, ?, ?, ?, ?)
		`, f.Path, string(f.Language), f.ContentHash, f.SizeBytes, f.LastModified)
		if insertErr != nil {
			return ReindexResult{}, fmt.Errorf("%w: insert file: %v", errs.ErrIO, insertErr)
		}
		fileID, _ = res.LastInsertId()
	} else if err != nil {
		return ReindexResult{}, fmt.Errorf("%w: lookup file: %v", errs.ErrIO, err)
	} else {
		if _, err := tx.Exec(`
			UPDATE files SET language = ?, content_hash = ?, size_bytes = ?, last_modified = ?
			WHERE id = ?
		`, string(f.Language), f.ContentHash, f.SizeBytes, f.LastModified, fileID); err != nil {
			return ReindexResult{}, fmt.Errorf("%w: update file: %v", errs.ErrIO, err)
		}
	}

	// Delete order: edges -> symbols -> chunks. Edges reference symbols,
	// symbols reference chunks; deleting in this order never leaves a
	// dangling reference even momentarily within the transaction.
	if _, err := tx.Exec(`
		DELETE FROM dependency_edges
		WHERE source IN (SELECT id FROM symbols WHERE file_id = ?)
		   OR target IN (SELECT id FROM symbols WHERE file_id = ?)
	`, fileID, fileID); err != nil {
		return ReindexResult{}, fmt.Errorf("%w: delete stale edges: %v", errs.ErrIO, err)
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return ReindexResult{}, fmt.Errorf("%w: delete stale symbols: %v", errs.ErrIO, err)
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return ReindexResult{}, fmt.Errorf("%w: delete stale chunks: %v", errs.ErrIO, err)
	}

	result := ReindexResult{FileID: fileID}

	for _, c := range chunks {
		res, err := tx.Exec(`
			INSERT INTO chunks (file_id, symbol_path, kind, visibility, line_start, line_end, content, doc_comment, token_count, weight, vector_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, fileID, c.SymbolPath, string(c.Kind), string(c.Visibility), c.LineStart, c.LineEnd, c.Content, c.DocComment, c.TokenCount, c.Weight, c.VectorID)
		if err != nil {
			return ReindexResult{}, fmt.Errorf("%w: insert chunk %s: %v", errs.ErrIO, c.SymbolPath, err)
		}
		id, _ := res.LastInsertId()
		result.ChunkIDs = append(result.ChunkIDs, id)
	}

	for _, sym := range symbols {
		var resolvedChunkID sql.NullInt64
		if sym.ChunkID != nil {
			idx := int(*sym.ChunkID)
			if idx < 0 || idx >= len(result.ChunkIDs) {
				return ReindexResult{}, fmt.Errorf("%w: symbol %s references out-of-range chunk index %d", errs.ErrInvalidParams, sym.FQN, idx)
			}
			resolvedChunkID = sql.NullInt64{Int64: result.ChunkIDs[idx], Valid: true}
		}
		res, err := tx.Exec(`
			INSERT INTO symbols (name, fqn, kind, file_id, line, chunk_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sym.Name, sym.FQN, string(sym.Kind), fileID, sym.Line, resolvedChunkID)
		if err != nil {
			return ReindexResult{}, fmt.Errorf("%w: insert symbol %s: %v", errs.ErrIO, sym.FQN, err)
		}
		id, _ := res.LastInsertId()
		result.SymbolIDs = append(result.SymbolIDs, id)
	}

	for _, e := range edges {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO dependency_edges (source, target, kind) VALUES (?, ?, ?)
		`, e.Source, e.Target, string(e.Kind)); err != nil {
			return ReindexResult{}, fmt.Errorf("%w: insert edge: %v", errs.ErrIO, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ReindexResult{}, fmt.Errorf("%w: commit reindex tx: %v", errs.ErrIO, err)
	}
	return result, nil
}

// DeleteFile removes a file and (via ON DELETE CASCADE) its chunks,
// symbols, and incident dependency edges.
func (s *Store) DeleteFile(path string) error {
	_, err := s.db.Exec(`DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("%w: delete file %s: %v", errs.ErrIO, path, err)
	}
	return nil
}

// Clear deletes every file (cascading to its chunks, symbols, and
// dependency edges) and resets the autoincrement counters, leaving an
// empty store with the same open connection and schema version. Used
// by the engine-level clear_index() operation.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin clear tx: %v", errs.ErrIO, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"dependency_edges", "symbols", "chunks", "files"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("%w: clear %s: %v", errs.ErrIO, table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM sqlite_sequence WHERE name IN ('files', 'chunks', 'symbols')`); err != nil {
		return fmt.Errorf("%w: reset sequences: %v", errs.ErrIO, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit clear tx: %v", errs.ErrIO, err)
	}
	return nil
}

// LexicalHit is one FTS5 match.
type LexicalHit struct {
	ChunkID int64
	Rank    float64
}

// SearchLexical runs a BM25-ranked FTS5 query over chunk content, doc
// comments, and symbol paths (field weights 1.0 / 0.5 / 2.0),
// returning the top limit hits ordered best-first (FTS5's bm25() is
// negative and more-negative-is-better, so Rank is negated here to be
// higher-is-better like every other score in the retrieval core).
//
// The query is wrapped as a phrase literal with inner double quotes
// stripped — not escaped — so punctuation like hyphens and colons
// survives the FTS5 syntax.
func (s *Store) SearchLexical(query string, limit int) ([]LexicalHit, error) {
	safeQuery := `"` + strings.ReplaceAll(query, `"`, "") + `"`
	rows, err := s.db.Query(`
		SELECT rowid, bm25(chunks_fts, 1.0, 0.5, 2.0) AS score FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, safeQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: lexical search: %v", errs.ErrIO, err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.ChunkID, &h.Rank); err != nil {
			return nil, fmt.Errorf("%w: scan lexical hit: %v", errs.ErrIO, err)
		}
		h.Rank = -h.Rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// GetChunk returns one chunk by id.
func (s *Store) GetChunk(id int64) (domain.Chunk, bool, error) {
	var c domain.Chunk
	var vectorID sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, file_id, symbol_path, kind, visibility, line_start, line_end, content, doc_comment, token_count, weight, vector_id
		FROM chunks WHERE id = ?
	`, id).Scan(&c.ID, &c.FileID, &c.SymbolPath, &c.Kind, &c.Visibility, &c.LineStart, &c.LineEnd, &c.Content, &c.DocComment, &c.TokenCount, &c.Weight, &vectorID)
	if err == sql.ErrNoRows {
		return domain.Chunk{}, false, nil
	}
	if err != nil {
		return domain.Chunk{}, false, fmt.Errorf("%w: get chunk %d: %v", errs.ErrIO, id, err)
	}
	if vectorID.Valid {
		v := uint64(vectorID.Int64)
		c.VectorID = &v
	}
	return c, true, nil
}

// ChunksByFile returns every chunk belonging to a file id.
func (s *Store) ChunksByFile(fileID int64) ([]domain.Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, file_id, symbol_path, kind, visibility, line_start, line_end, content, doc_comment, token_count, weight, vector_id
		FROM chunks WHERE file_id = ?
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks for file %d: %v", errs.ErrIO, fileID, err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var vectorID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.FileID, &c.SymbolPath, &c.Kind, &c.Visibility, &c.LineStart, &c.LineEnd, &c.Content, &c.DocComment, &c.TokenCount, &c.Weight, &vectorID); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", errs.ErrIO, err)
		}
		if vectorID.Valid {
			v := uint64(vectorID.Int64)
			c.VectorID = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SymbolsByFile returns every symbol belonging to a file id.
func (s *Store) SymbolsByFile(fileID int64) ([]domain.Symbol, error) {
	rows, err := s.db.Query(`
		SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols WHERE file_id = ?
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: list symbols for file %d: %v", errs.ErrIO, fileID, err)
	}
	defer rows.Close()

	var out []domain.Symbol
	for rows.Next() {
		var sym domain.Symbol
		var chunkID sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.FQN, &sym.Kind, &sym.FileID, &sym.Line, &chunkID); err != nil {
			return nil, fmt.Errorf("%w: scan symbol: %v", errs.ErrIO, err)
		}
		if chunkID.Valid {
			id := chunkID.Int64
			sym.ChunkID = &id
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// AllEdges returns every dependency edge currently stored, used to
// rebuild the in-memory dependency graph at startup.
func (s *Store) AllEdges() ([]domain.DependencyEdge, error) {
	rows, err := s.db.Query(`SELECT source, target, kind FROM dependency_edges`)
	if err != nil {
		return nil, fmt.Errorf("%w: list edges: %v", errs.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.DependencyEdge
	for rows.Next() {
		var e domain.DependencyEdge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind); err != nil {
			return nil, fmt.Errorf("%w: scan edge: %v", errs.ErrIO, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllSymbols returns every symbol currently stored, used to rebuild
// the in-memory dependency graph at startup.
func (s *Store) AllSymbols() ([]domain.Symbol, error) {
	rows, err := s.db.Query(`SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols`)
	if err != nil {
		return nil, fmt.Errorf("%w: list all symbols: %v", errs.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Symbol
	for rows.Next() {
		var sym domain.Symbol
		var chunkID sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.FQN, &sym.Kind, &sym.FileID, &sym.Line, &chunkID); err != nil {
			return nil, fmt.Errorf("%w: scan symbol: %v", errs.ErrIO, err)
		}
		if chunkID.Valid {
			id := chunkID.Int64
			sym.ChunkID = &id
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// FilePath returns the default metadata.db path under a data directory.
func FilePath(dataDir string) string {
	return filepath.Join(dataDir, "metadata.db")
}

// Now returns the current time for last-indexed bookkeeping. Defined
// as a var so tests can stub it if ever needed.
var Now = func() time.Time { return time.Now().UTC() }
