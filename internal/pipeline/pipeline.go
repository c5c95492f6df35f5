// Package pipeline implements the indexing pipeline: it consumes
// file-change events, drives them through the language analyzers, the
// chunker, and the optional embedder, and atomically persists the
// result into the metadata store, the vector index, and the dependency
// graph.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/steeltroops-ai/omnicontext/internal/chunker"
	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/embed"
	"github.com/steeltroops-ai/omnicontext/internal/errs"
	"github.com/steeltroops-ai/omnicontext/internal/graph"
	"github.com/steeltroops-ai/omnicontext/internal/parser"
	"github.com/steeltroops-ai/omnicontext/internal/store"
	"github.com/steeltroops-ai/omnicontext/internal/vectorindex"
)

// Config bounds the pipeline's file discovery and concurrency, mirroring
// config.IndexingConfig. Kept independent of the config package so
// internal/pipeline never imports internal/config.
type Config struct {
	RootDir          string
	ExcludePatterns  []string
	MaxFileSizeBytes int64
	ParseConcurrency int
	FollowSymlinks   bool
	EventQueueDepth  int
	EmbedBatchSize   int
	Chunker          chunker.Config
}

// DefaultConfig returns the indexing defaults.
func DefaultConfig(rootDir string) Config {
	return Config{
		RootDir:          rootDir,
		MaxFileSizeBytes: 1 << 20,
		ParseConcurrency: 4,
		EventQueueDepth:  1024,
		EmbedBatchSize:   32,
		Chunker:          chunker.DefaultConfig(),
	}
}

// Stats is the per-batch counters an index run reports to its caller.
// A run never aborts on a single bad file; failures are counted
// instead.
type Stats struct {
	FilesProcessed      int
	FilesFailed         int
	ChunksCreated       int
	SymbolsExtracted    int
	EmbeddingsGenerated int
}

func (s *Stats) merge(other Stats) {
	s.FilesProcessed += other.FilesProcessed
	s.FilesFailed += other.FilesFailed
	s.ChunksCreated += other.ChunksCreated
	s.SymbolsExtracted += other.SymbolsExtracted
	s.EmbeddingsGenerated += other.EmbeddingsGenerated
}

// Pipeline owns the long-lived resources driven by indexing events. It
// holds no per-request state beyond the shared store, vector index,
// graph, and embedder handles, so a single Pipeline value is reused
// across the engine's lifetime.
type Pipeline struct {
	cfg       Config
	store     *store.Store
	vectors   *vectorindex.Index
	depgraph  *graph.DepGraph
	embedder  embed.Provider
	analyzers *parser.Registry

	excludes []glob.Glob

	pathMu sync.Map // path -> *sync.Mutex, serializes same-path events
}

// New constructs a Pipeline over already-open component handles. The
// caller owns the lifetime of those handles; Shutdown only flushes the
// vector index, it does not close the store or embedder.
func New(cfg Config, s *store.Store, v *vectorindex.Index, g *graph.DepGraph, e embed.Provider) *Pipeline {
	if cfg.ParseConcurrency <= 0 {
		cfg.ParseConcurrency = 4
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 1 << 20
	}
	if cfg.Chunker.MaxTokens <= 0 {
		cfg.Chunker = chunker.DefaultConfig()
	}
	excludes := make([]glob.Glob, 0, len(cfg.ExcludePatterns))
	for _, p := range cfg.ExcludePatterns {
		if g, err := glob.Compile(p, '/'); err == nil {
			excludes = append(excludes, g)
		}
	}
	return &Pipeline{
		cfg:       cfg,
		store:     s,
		vectors:   v,
		depgraph:  g,
		embedder:  e,
		analyzers: parser.NewRegistry(),
		excludes:  excludes,
	}
}

// Shutdown flushes the vector index to disk. Callers are expected to
// stop feeding new events and await in-flight Run goroutines before
// calling Shutdown.
func (p *Pipeline) Shutdown() error {
	if p.vectors == nil {
		return nil
	}
	return p.vectors.Save()
}

// Run drains events from the channel until it closes or an
// EventShutdown event arrives, dispatching FileChanged/FileDeleted
// events across a bounded worker pool. Events for the same path are
// routed to the same shard so per-path ordering is preserved even
// under concurrency; the pipeline never reorders events for one path.
func (p *Pipeline) Run(ctx context.Context, events <-chan domain.PipelineEvent) (Stats, error) {
	n := p.cfg.ParseConcurrency
	shards := make([]chan domain.PipelineEvent, n)
	for i := range shards {
		shards[i] = make(chan domain.PipelineEvent, 16)
	}

	var mu sync.Mutex
	total := Stats{}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		ch := shards[i]
		g.Go(func() error {
			for ev := range ch {
				st := p.dispatch(gctx, ev)
				mu.Lock()
				total.merge(st)
				mu.Unlock()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range shards {
				close(ch)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if ev.Kind == domain.EventShutdown {
					return nil
				}
				if ev.Kind == domain.EventFullScan {
					paths, err := p.discover()
					if err != nil {
						log.Printf("pipeline: full scan: %v", err)
						continue
					}
					for _, path := range paths {
						shards[shardFor(path, n)] <- domain.PipelineEvent{Kind: domain.EventFileChanged, Path: path}
					}
					continue
				}
				shards[shardFor(ev.Path, n)] <- ev
			}
		}
	})

	err := g.Wait()
	return total, err
}

func shardFor(path string, n int) int {
	sum := sha256.Sum256([]byte(path))
	return int(sum[0]) % n
}

// dispatch processes one event, recovering per-file errors locally:
// skip the file, log, increment a counter, never abort the batch.
func (p *Pipeline) dispatch(ctx context.Context, ev domain.PipelineEvent) Stats {
	switch ev.Kind {
	case domain.EventFileChanged:
		if err := p.processFileChanged(ctx, ev.Path); err != nil {
			log.Printf("pipeline: index %s: %v", ev.Path, err)
			return Stats{FilesFailed: 1}
		}
		return Stats{FilesProcessed: 1}
	case domain.EventFileDeleted:
		if err := p.processFileDeleted(ev.Path); err != nil {
			log.Printf("pipeline: delete %s: %v", ev.Path, err)
			return Stats{FilesFailed: 1}
		}
		return Stats{}
	default:
		return Stats{}
	}
}

// ProcessPaths runs processFileChanged for each path, at most
// ParseConcurrency files at a time, and returns the aggregate Stats. This is the synchronous entry point
// index() uses for a one-shot full index, where the caller wants a
// single returned Stats value rather than a streamed event pipeline.
func (p *Pipeline) ProcessPaths(ctx context.Context, paths []string) Stats {
	sem := make(chan struct{}, p.cfg.ParseConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := Stats{}

	for _, path := range paths {
		path := path
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			st := p.dispatch(ctx, domain.PipelineEvent{Kind: domain.EventFileChanged, Path: path})
			mu.Lock()
			total.merge(st)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return total
}

// FullScan walks RootDir applying the configured exclude patterns and
// max file size, returning the paths index() should process. Symlinks
// are only followed when FollowSymlinks is set.
func (p *Pipeline) FullScan() ([]string, error) {
	return p.discover()
}

func (p *Pipeline) discover() ([]string, error) {
	var paths []string
	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // per-entry IO errors are skipped, not fatal to the scan
		}
		if d.IsDir() {
			if p.excluded(path) && path != p.cfg.RootDir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 && !p.cfg.FollowSymlinks {
			return nil
		}
		if p.excluded(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > p.cfg.MaxFileSizeBytes {
			return nil
		}
		lang := domain.LanguageFromExtension(extOf(path))
		if lang == domain.LangUnknown {
			return nil
		}
		paths = append(paths, path)
		return nil
	}
	if err := filepath.WalkDir(p.cfg.RootDir, walkFn); err != nil {
		return nil, fmt.Errorf("%w: full scan: %v", errs.ErrIO, err)
	}
	return paths, nil
}

// excluded matches a path against ExcludePatterns using three rules:
// glob-like component match, "*.ext" suffix match, and exact name
// match on any path component.
func (p *Pipeline) excluded(path string) bool {
	rel, err := filepath.Rel(p.cfg.RootDir, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	components := strings.Split(rel, "/")

	for _, pat := range p.cfg.ExcludePatterns {
		if strings.HasPrefix(pat, "*.") {
			ext := strings.TrimPrefix(pat, "*")
			if strings.HasSuffix(rel, ext) {
				return true
			}
			continue
		}
		for _, c := range components {
			if c == pat {
				return true
			}
		}
	}
	for _, g := range p.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

// processFileChanged runs the full per-file sequence: read and
// hash-skip, analyze, chunk, reindex atomically, embed, update the
// dependency graph.
func (p *Pipeline) processFileChanged(ctx context.Context, path string) error {
	lock := p.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", errs.ErrIO, path, err)
	}
	if info.Size() > p.cfg.MaxFileSizeBytes {
		return nil // step 1: files over the size ceiling are skipped, not an error
	}

	source, err := readBounded(path, p.cfg.MaxFileSizeBytes)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", errs.ErrIO, path, err)
	}
	hash := contentHash(source)

	relPath, err := filepath.Rel(p.cfg.RootDir, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	if existing, found, err := p.store.GetFile(relPath); err == nil && found && existing.ContentHash == hash {
		return nil // step 1: unchanged content, skip
	}

	lang := domain.LanguageFromExtension(extOf(path))
	if lang == domain.LangUnknown {
		return nil // step 2
	}

	elements, imports, err := p.analyzers.Analyze(lang, relPath, source)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", errs.ErrParse, relPath, err)
	}

	chunks := chunker.ChunkElements(elements, 0, p.cfg.Chunker)
	symbols := buildSymbols(elements, chunks)

	file := domain.File{
		Path:         relPath,
		Language:     lang,
		ContentHash:  hash,
		SizeBytes:    info.Size(),
		LastModified: info.ModTime().Unix(),
	}

	result, err := p.store.ReindexFile(file, chunks, symbols, nil)
	if err != nil {
		return fmt.Errorf("reindex %s: %w", relPath, err)
	}

	if p.embedder != nil && p.embedder.IsAvailable() {
		p.embedChunks(ctx, lang, result, chunks)
	}

	p.updateGraph(result, elements, imports)
	return nil
}

// embedChunks formats, embeds (in batches), normalizes, and persists a
// vector per chunk. A batch failure is logged;
// affected chunks simply keep no vector id, matching the degraded-mode
// contract rather than failing the whole file.
func (p *Pipeline) embedChunks(ctx context.Context, lang domain.Language, result store.ReindexResult, chunks []domain.Chunk) {
	batchSize := p.cfg.EmbedBatchSize
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		ids := result.ChunkIDs[start:end]

		vectors, err := embed.EmbedChunks(ctx, p.embedder, lang, batch)
		if err != nil {
			log.Printf("pipeline: embed batch [%d:%d): %v", start, end, err)
			continue
		}
		for i, v := range vectors {
			chunkID := ids[i]
			if err := p.vectors.Add(uint64(chunkID), v); err != nil {
				log.Printf("pipeline: vector add chunk %d: %v", chunkID, err)
				continue
			}
			if err := p.store.SetChunkVectorID(chunkID, uint64(chunkID)); err != nil {
				log.Printf("pipeline: set vector id chunk %d: %v", chunkID, err)
			}
		}
	}
}

// processFileDeleted cascade-deletes the file in the store, removes
// its vectors, and drops its symbol nodes (and every incident edge)
// from the graph.
func (p *Pipeline) processFileDeleted(path string) error {
	lock := p.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	relPath, err := filepath.Rel(p.cfg.RootDir, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	file, found, err := p.store.GetFile(relPath)
	if err != nil {
		return fmt.Errorf("get file %s: %w", relPath, err)
	}
	if !found {
		return nil
	}

	symbols, err := p.store.SymbolsByFile(file.ID)
	if err != nil {
		return fmt.Errorf("symbols for %s: %w", relPath, err)
	}
	chunks, err := p.store.ChunksByFile(file.ID)
	if err != nil {
		return fmt.Errorf("chunks for %s: %w", relPath, err)
	}

	if err := p.store.DeleteFile(relPath); err != nil {
		return fmt.Errorf("delete %s: %w", relPath, err)
	}

	if p.vectors != nil {
		ids := make([]uint64, 0, len(chunks))
		for _, c := range chunks {
			if c.VectorID != nil {
				ids = append(ids, *c.VectorID)
			}
		}
		p.vectors.RemoveBatch(ids)
	}

	for _, sym := range symbols {
		p.depgraph.RemoveSymbol(sym.ID)
	}
	return nil
}

func (p *Pipeline) lockFor(path string) *sync.Mutex {
	v, _ := p.pathMu.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func readBounded(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxBytes+1))
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// buildSymbols produces one domain.Symbol per structural element.
// ChunkID is set to the index of the element's
// first emitted sub-chunk (store.ReindexFile resolves that index to a
// real chunk id inside the reindex transaction); elements that produced
// no chunk (shouldn't happen, but guarded) get no chunk link.
func buildSymbols(elements []domain.StructuralElement, chunks []domain.Chunk) []domain.Symbol {
	firstChunkOf := make(map[string]int, len(elements))
	for i, c := range chunks {
		base := baseSymbolPath(c.SymbolPath)
		if _, ok := firstChunkOf[base]; !ok {
			firstChunkOf[base] = i
		}
	}

	symbols := make([]domain.Symbol, 0, len(elements))
	for _, el := range elements {
		sym := domain.Symbol{
			Name: el.Name,
			FQN:  el.SymbolPath,
			Kind: el.Kind,
			Line: el.LineStart,
		}
		if idx, ok := firstChunkOf[el.SymbolPath]; ok {
			i64 := int64(idx)
			sym.ChunkID = &i64
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

// baseSymbolPath strips a chunker-assigned "[k/n]" sub-chunk suffix so
// multiple sub-chunks of one oversized element still map back to the
// element's own symbol path.
func baseSymbolPath(symbolPath string) string {
	if i := strings.LastIndex(symbolPath, "["); i > 0 && strings.HasSuffix(symbolPath, "]") {
		return symbolPath[:i]
	}
	return symbolPath
}
