package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// GetSymbolByFQN returns the symbol with the given fully-qualified
// name, or (domain.Symbol{}, false, nil) if none exists. FQNs are
// unique across the store at any quiescent point.
func (s *Store) GetSymbolByFQN(fqn string) (domain.Symbol, bool, error) {
	return s.scanOneSymbol(`
		SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols WHERE fqn = ?
	`, fqn)
}

// GetFileByID returns the file record with the given id, or
// (domain.File{}, false, nil) if absent. Used by the retrieval core
// to resolve a chunk's FilePath for display without a second
// round-trip keyed by path.
func (s *Store) GetFileByID(id int64) (domain.File, bool, error) {
	var f domain.File
	err := s.db.QueryRow(`
		SELECT id, path, language, content_hash, size_bytes, last_modified
		FROM files WHERE id = ?
	`, id).Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.SizeBytes, &f.LastModified)
	if err == sql.ErrNoRows {
		return domain.File{}, false, nil
	}
	if err != nil {
		return domain.File{}, false, fmt.Errorf("%w: get file by id %d: %v", errs.ErrIO, id, err)
	}
	return f, true, nil
}

// AllFiles returns every indexed file record, used by full-scan change
// detection and status reporting.
func (s *Store) AllFiles() ([]domain.File, error) {
	rows, err := s.db.Query(`SELECT id, path, language, content_hash, size_bytes, last_modified FROM files`)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %v", errs.ErrIO, err)
	}
	defer rows.Close()

	var files []domain.File
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.SizeBytes, &f.LastModified); err != nil {
			return nil, fmt.Errorf("%w: scan file row: %v", errs.ErrIO, err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetSymbolByID returns the symbol with the given id.
func (s *Store) GetSymbolByID(id int64) (domain.Symbol, bool, error) {
	return s.scanOneSymbol(`
		SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols WHERE id = ?
	`, id)
}

// GetChunkByVectorID returns the chunk whose vector_id matches the
// given vector index id, or (domain.Chunk{}, false, nil) if none does.
// Used to translate vectorindex.Result.ID back into a chunk row after
// a semantic-candidate search.
func (s *Store) GetChunkByVectorID(vectorID uint64) (domain.Chunk, bool, error) {
	var c domain.Chunk
	var vid sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, file_id, symbol_path, kind, visibility, line_start, line_end, content, doc_comment, token_count, weight, vector_id
		FROM chunks WHERE vector_id = ?
	`, int64(vectorID)).Scan(&c.ID, &c.FileID, &c.SymbolPath, &c.Kind, &c.Visibility, &c.LineStart, &c.LineEnd, &c.Content, &c.DocComment, &c.TokenCount, &c.Weight, &vid)
	if err == sql.ErrNoRows {
		return domain.Chunk{}, false, nil
	}
	if err != nil {
		return domain.Chunk{}, false, fmt.Errorf("%w: get chunk by vector id %d: %v", errs.ErrIO, vectorID, err)
	}
	if vid.Valid {
		v := uint64(vid.Int64)
		c.VectorID = &v
	}
	return c, true, nil
}

// GetSymbolByChunkID returns the symbol owning the given chunk, or
// (domain.Symbol{}, false, nil) if the chunk has no owning symbol (a
// sub-chunk past the first) or doesn't exist. Used by the retrieval
// core's anchor selection and graph boost.
func (s *Store) GetSymbolByChunkID(chunkID int64) (domain.Symbol, bool, error) {
	return s.scanOneSymbol(`
		SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols WHERE chunk_id = ?
	`, chunkID)
}

func (s *Store) scanOneSymbol(query string, arg any) (domain.Symbol, bool, error) {
	var sym domain.Symbol
	var chunkID sql.NullInt64
	err := s.db.QueryRow(query, arg).Scan(&sym.ID, &sym.Name, &sym.FQN, &sym.Kind, &sym.FileID, &sym.Line, &chunkID)
	if err == sql.ErrNoRows {
		return domain.Symbol{}, false, nil
	}
	if err != nil {
		return domain.Symbol{}, false, fmt.Errorf("%w: lookup symbol: %v", errs.ErrIO, err)
	}
	if chunkID.Valid {
		id := chunkID.Int64
		sym.ChunkID = &id
	}
	return sym, true, nil
}

// SearchSymbolsByName returns symbols whose bare name starts with
// prefix, ordered by ascending FQN length (the shortest-wins rule for
// import-resolution ambiguity).
func (s *Store) SearchSymbolsByName(prefix string, limit int) ([]domain.Symbol, error) {
	return s.searchSymbols(`
		SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY length(fqn) ASC
		LIMIT ?
	`, likePrefix(prefix), limit)
}

// SearchSymbolsByFQNSuffix returns symbols whose FQN ends with suffix
// (used by stage-2 import resolution), ordered by ascending FQN
// length.
func (s *Store) SearchSymbolsByFQNSuffix(suffix string, limit int) ([]domain.Symbol, error) {
	return s.searchSymbols(`
		SELECT id, name, fqn, kind, file_id, line, chunk_id FROM symbols
		WHERE fqn LIKE ? ESCAPE '\'
		ORDER BY length(fqn) ASC
		LIMIT ?
	`, "%"+escapeLike(suffix), limit)
}

func (s *Store) searchSymbols(query string, pattern string, limit int) ([]domain.Symbol, error) {
	rows, err := s.db.Query(query, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search symbols: %v", errs.ErrIO, err)
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

func likePrefix(prefix string) string { return escapeLike(prefix) + "%" }

// escapeLike escapes SQLite LIKE metacharacters so prefix/suffix
// searches treat user-supplied fragments as literals.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

// InsertDependency inserts one dependency edge, idempotent on the
// (source, target, kind) triple.
func (s *Store) InsertDependency(e domain.DependencyEdge) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO dependency_edges (source, target, kind) VALUES (?, ?, ?)
	`, e.Source, e.Target, string(e.Kind))
	if err != nil {
		return fmt.Errorf("%w: insert dependency edge: %v", errs.ErrIO, err)
	}
	return nil
}

// GetUpstreamDependencies returns every edge whose source is id (what
// id depends on).
func (s *Store) GetUpstreamDependencies(id int64) ([]domain.DependencyEdge, error) {
	return s.queryEdges(`SELECT source, target, kind FROM dependency_edges WHERE source = ?`, id)
}

// GetDownstreamDependencies returns every edge whose target is id
// (what depends on id).
func (s *Store) GetDownstreamDependencies(id int64) ([]domain.DependencyEdge, error) {
	return s.queryEdges(`SELECT source, target, kind FROM dependency_edges WHERE target = ?`, id)
}

// GetAllDependencies returns every edge touching id in either direction.
func (s *Store) GetAllDependencies(id int64) ([]domain.DependencyEdge, error) {
	return s.queryEdges(`SELECT source, target, kind FROM dependency_edges WHERE source = ? OR target = ?`, id, id)
}

func (s *Store) queryEdges(query string, args ...any) ([]domain.DependencyEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query dependency edges: %v", errs.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.DependencyEdge
	for rows.Next() {
		var e domain.DependencyEdge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind); err != nil {
			return nil, fmt.Errorf("%w: scan dependency edge: %v", errs.ErrIO, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteDependenciesForSymbol removes every edge incident on id. A
// symbol's edges must be deleted before the symbol itself; callers needing full file deletion use DeleteFile's
// cascade instead, this is for targeted single-symbol cleanup.
func (s *Store) DeleteDependenciesForSymbol(id int64) error {
	_, err := s.db.Exec(`DELETE FROM dependency_edges WHERE source = ? OR target = ?`, id, id)
	if err != nil {
		return fmt.Errorf("%w: delete dependencies for symbol %d: %v", errs.ErrIO, id, err)
	}
	return nil
}

// SetChunkVectorID records the vector-index id assigned to a chunk
// after embedding, keeping the chunk row and the vector index entry
// in sync.
func (s *Store) SetChunkVectorID(chunkID int64, vectorID uint64) error {
	_, err := s.db.Exec(`UPDATE chunks SET vector_id = ? WHERE id = ?`, vectorID, chunkID)
	if err != nil {
		return fmt.Errorf("%w: set vector id for chunk %d: %v", errs.ErrIO, chunkID, err)
	}
	return nil
}

// Statistics summarizes the store's current contents, returned by the
// engine-level Status call.
type Statistics struct {
	FileCount   int
	ChunkCount  int
	SymbolCount int
	EdgeCount   int
	VectorCount int // chunks with a non-null vector_id
}

// Statistics computes row counts across the core tables.
func (s *Store) Statistics() (Statistics, error) {
	var st Statistics
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&st.FileCount); err != nil {
		return Statistics{}, fmt.Errorf("%w: count files: %v", errs.ErrIO, err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&st.ChunkCount); err != nil {
		return Statistics{}, fmt.Errorf("%w: count chunks: %v", errs.ErrIO, err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&st.SymbolCount); err != nil {
		return Statistics{}, fmt.Errorf("%w: count symbols: %v", errs.ErrIO, err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dependency_edges`).Scan(&st.EdgeCount); err != nil {
		return Statistics{}, fmt.Errorf("%w: count edges: %v", errs.ErrIO, err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE vector_id IS NOT NULL`).Scan(&st.VectorCount); err != nil {
		return Statistics{}, fmt.Errorf("%w: count vectors: %v", errs.ErrIO, err)
	}
	return st, nil
}

// LanguageDistribution returns the file count per language, used by
// status() for an at-a-glance repo composition summary.
func (s *Store) LanguageDistribution() (map[domain.Language]int, error) {
	rows, err := s.db.Query(`SELECT language, COUNT(*) FROM files GROUP BY language`)
	if err != nil {
		return nil, fmt.Errorf("%w: language distribution: %v", errs.ErrIO, err)
	}
	defer rows.Close()

	out := make(map[domain.Language]int)
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, fmt.Errorf("%w: scan language distribution: %v", errs.ErrIO, err)
		}
		out[domain.Language(lang)] = count
	}
	return out, rows.Err()
}

// CheckIntegrity runs SQLite's integrity check plus the store's own
// ghost-edge invariant: a dependency edge whose source or target
// symbol no longer exists.
// Returns the list of problems found; an empty slice means the store
// is consistent.
func (s *Store) CheckIntegrity() ([]string, error) {
	var problems []string

	var sqliteResult string
	if err := s.db.QueryRow(`PRAGMA integrity_check`).Scan(&sqliteResult); err != nil {
		return nil, fmt.Errorf("%w: run integrity_check: %v", errs.ErrIO, err)
	}
	if sqliteResult != "ok" {
		problems = append(problems, fmt.Sprintf("sqlite integrity_check: %s", sqliteResult))
	}

	var ghostEdges int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM dependency_edges e
		WHERE NOT EXISTS (SELECT 1 FROM symbols WHERE id = e.source)
		   OR NOT EXISTS (SELECT 1 FROM symbols WHERE id = e.target)
	`).Scan(&ghostEdges)
	if err != nil {
		return nil, fmt.Errorf("%w: ghost edge scan: %v", errs.ErrIO, err)
	}
	if ghostEdges > 0 {
		problems = append(problems, fmt.Sprintf("%s: %d dependency edge(s) reference a deleted symbol", errs.ErrGhostEdge, ghostEdges))
	}

	sort.Strings(problems)
	return problems, nil
}
