package graph

import (
	"fmt"
	"sort"
	"sync"

	libgraph "github.com/dominikbraun/graph"
	"github.com/maypok86/otter"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// DepGraph is the multi-language symbol dependency graph: a
// directed graph over symbol ids, built from the DependencyEdge list
// produced by the indexing pipeline. It answers upstream/downstream
// BFS, undirected distance, cycle detection, and community-detection
// queries used by the retrieval core's graph boost.
//
// dominikbraun/graph holds the vertex/edge store, maypok86/otter
// caches derived query results, and one RWMutex guards the whole
// structure.
type DepGraph struct {
	mu sync.RWMutex
	g  libgraph.Graph[int64, int64]

	symbols map[int64]domain.Symbol
	// fqnIndex maps a fully-qualified name to its symbol id, for
	// exact-match import resolution (resolution stage 1).
	fqnIndex map[string]int64
	// suffixIndex maps a dotted-suffix of an FQN to candidate symbol
	// ids, for resolution stage 2.
	suffixIndex map[string][]int64
	// nameIndex maps a bare symbol name to candidate ids, stage 3.
	nameIndex map[string][]int64

	queryCache otter.Cache[string, []int64]
}

// New builds an empty dependency graph.
func New() *DepGraph {
	cache, err := otter.MustBuilder[string, []int64](10_000).Build()
	if err != nil {
		panic(fmt.Sprintf("graph: build query cache: %v", err))
	}
	return &DepGraph{
		g:           libgraph.New(func(id int64) int64 { return id }, libgraph.Directed()),
		symbols:     make(map[int64]domain.Symbol),
		fqnIndex:    make(map[string]int64),
		suffixIndex: make(map[string][]int64),
		nameIndex:   make(map[string][]int64),
		queryCache:  cache,
	}
}

// AddSymbol registers a symbol as a vertex and indexes it for import
// resolution. Re-adding the same id replaces its metadata.
func (d *DepGraph) AddSymbol(sym domain.Symbol) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.symbols[sym.ID]; !exists {
		_ = d.g.AddVertex(sym.ID)
	}
	d.symbols[sym.ID] = sym
	d.fqnIndex[sym.FQN] = sym.ID

	for _, suffix := range dottedSuffixes(sym.FQN) {
		d.suffixIndex[suffix] = appendUnique(d.suffixIndex[suffix], sym.ID)
	}
	d.nameIndex[sym.Name] = appendUnique(d.nameIndex[sym.Name], sym.ID)

	d.queryCache.Clear()
}

// RemoveSymbol deletes a symbol and every edge touching it. Edges must
// be removed before the vertex itself so no ghost edge survives.
func (d *DepGraph) RemoveSymbol(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sym, ok := d.symbols[id]
	if !ok {
		return
	}

	edges, _ := d.g.Edges()
	for _, e := range edges {
		if e.Source == id || e.Target == id {
			_ = d.g.RemoveEdge(e.Source, e.Target)
		}
	}
	_ = d.g.RemoveVertex(id)

	delete(d.symbols, id)
	delete(d.fqnIndex, sym.FQN)
	for _, suffix := range dottedSuffixes(sym.FQN) {
		d.suffixIndex[suffix] = removeValue(d.suffixIndex[suffix], id)
	}
	d.nameIndex[sym.Name] = removeValue(d.nameIndex[sym.Name], id)

	d.queryCache.Clear()
}

// AddEdge inserts a directed dependency edge. Both endpoints must
// already be registered via AddSymbol; an edge to an unknown vertex is
// rejected with an error and not stored, matching the "ghost edges are
// impossible by construction" invariant: callers build edges only from
// symbols they just indexed. Re-adding an existing edge is a no-op.
func (d *DepGraph) AddEdge(edge domain.DependencyEdge) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.symbols[edge.Source]; !ok {
		return fmt.Errorf("graph: add edge: unknown source symbol %d", edge.Source)
	}
	if _, ok := d.symbols[edge.Target]; !ok {
		return fmt.Errorf("graph: add edge: unknown target symbol %d", edge.Target)
	}
	if err := d.g.AddEdge(edge.Source, edge.Target); err != nil {
		if err == libgraph.ErrEdgeAlreadyExists {
			return nil
		}
		return err
	}
	d.queryCache.Clear()
	return nil
}

// Upstream returns the ids reachable from id by following edges
// forward (what id depends on) up to maxDepth hops, breadth-first.
// Results are served from the query cache until the next mutation.
func (d *DepGraph) Upstream(id int64, maxDepth int) []int64 {
	key := fmt.Sprintf("up:%d:%d", id, maxDepth)
	if cached, ok := d.queryCache.Get(key); ok {
		return cached
	}
	result := d.bfs(id, maxDepth, func(v int64) ([]int64, error) { return d.successors(v) })
	d.queryCache.Set(key, result)
	return result
}

// Downstream returns the ids that depend on id, by following edges in
// reverse, up to maxDepth hops, breadth-first.
func (d *DepGraph) Downstream(id int64, maxDepth int) []int64 {
	key := fmt.Sprintf("down:%d:%d", id, maxDepth)
	if cached, ok := d.queryCache.Get(key); ok {
		return cached
	}
	result := d.bfs(id, maxDepth, func(v int64) ([]int64, error) { return d.predecessors(v) })
	d.queryCache.Set(key, result)
	return result
}

func (d *DepGraph) successors(v int64) ([]int64, error) {
	adj, err := d.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(adj[v]))
	for target := range adj[v] {
		out = append(out, target)
	}
	return out, nil
}

func (d *DepGraph) predecessors(v int64) ([]int64, error) {
	pred, err := d.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(pred[v]))
	for source := range pred[v] {
		out = append(out, source)
	}
	return out, nil
}

func (d *DepGraph) bfs(start int64, maxDepth int, neighbors func(int64) ([]int64, error)) []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.symbols[start]; !ok {
		return nil
	}

	visited := map[int64]bool{start: true}
	frontier := []int64{start}
	var result []int64

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, v := range frontier {
			ns, err := neighbors(v)
			if err != nil {
				continue
			}
			for _, n := range ns {
				if !visited[n] {
					visited[n] = true
					result = append(result, n)
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return result
}

// Distance returns the fewest hops between a and b treating edges as
// undirected, or -1 if they are not connected within maxDepth.
func (d *DepGraph) Distance(a, b int64, maxDepth int) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if a == b {
		return 0
	}
	if _, ok := d.symbols[a]; !ok {
		return -1
	}
	if _, ok := d.symbols[b]; !ok {
		return -1
	}

	visited := map[int64]bool{a: true}
	frontier := []int64{a}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, v := range frontier {
			for _, n := range d.undirectedNeighbors(v) {
				if visited[n] {
					continue
				}
				if n == b {
					return depth
				}
				visited[n] = true
				next = append(next, n)
			}
		}
		frontier = next
	}
	return -1
}

func (d *DepGraph) undirectedNeighbors(v int64) []int64 {
	succ, _ := d.successors(v)
	pred, _ := d.predecessors(v)
	seen := make(map[int64]bool, len(succ)+len(pred))
	out := make([]int64, 0, len(succ)+len(pred))
	for _, n := range append(succ, pred...) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// InDegree returns the number of edges pointing at id.
func (d *DepGraph) InDegree(id int64) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pred, err := d.g.PredecessorMap()
	if err != nil {
		return 0
	}
	return len(pred[id])
}

// dottedSuffixes returns every dotted/`::`-delimited suffix of fqn,
// shortest last, used to populate stage-2 suffix resolution. For
// "pkg.sub.Type.method" this yields
// ["sub.Type.method", "Type.method", "method"].
func dottedSuffixes(fqn string) []string {
	parts := splitQualified(fqn)
	if len(parts) <= 1 {
		return nil
	}
	var suffixes []string
	for i := 1; i < len(parts); i++ {
		suffixes = append(suffixes, joinQualified(parts[i:]))
	}
	return suffixes
}

func splitQualified(fqn string) []string {
	var parts []string
	cur := make([]byte, 0, len(fqn))
	i := 0
	for i < len(fqn) {
		if i+1 < len(fqn) && fqn[i] == ':' && fqn[i+1] == ':' {
			parts = append(parts, string(cur))
			cur = cur[:0]
			i += 2
			continue
		}
		if fqn[i] == '.' {
			parts = append(parts, string(cur))
			cur = cur[:0]
			i++
			continue
		}
		cur = append(cur, fqn[i])
		i++
	}
	parts = append(parts, string(cur))
	return parts
}

func joinQualified(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}

func appendUnique(xs []int64, x int64) []int64 {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}

func removeValue(xs []int64, x int64) []int64 {
	out := xs[:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// ResolveImport resolves an import path or call-site reference to a
// symbol id in three stages: exact FQN match,
// then FQN-suffix match (accepted only when exactly one symbol has
// that suffix), then bare-name fallback (likewise only when the name
// is unique). Returns 0, false when no stage resolves.
func (d *DepGraph) ResolveImport(reference string) (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if id, ok := d.fqnIndex[reference]; ok {
		return id, true
	}
	if ids, ok := d.suffixIndex[reference]; ok && len(ids) == 1 {
		return ids[0], true
	}
	parts := splitQualified(reference)
	name := parts[len(parts)-1]
	if ids, ok := d.nameIndex[name]; ok && len(ids) == 1 {
		return ids[0], true
	}
	return 0, false
}

// tarjanState holds the bookkeeping for Tarjan's strongly connected
// components algorithm, run by Cycles over the directed graph. Every
// component is collected, single vertices included; Cycles then keeps
// only those with two or more members.
type tarjanState struct {
	index, lowlink map[int64]int
	onStack        map[int64]bool
	stack          []int64
	counter        int
	components     [][]int64
}

// Cycles returns every strongly connected component of size >= 2,
// i.e. every cyclic dependency group in the symbol graph.
func (d *DepGraph) Cycles() [][]int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st := &tarjanState{
		index:   make(map[int64]int),
		lowlink: make(map[int64]int),
		onStack: make(map[int64]bool),
	}
	ids := make([]int64, 0, len(d.symbols))
	for id := range d.symbols {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, seen := st.index[id]; !seen {
			d.tarjanVisit(id, st)
		}
	}

	var cycles [][]int64
	for _, c := range st.components {
		if len(c) >= 2 {
			cycles = append(cycles, c)
		}
	}
	return cycles
}

func (d *DepGraph) tarjanVisit(v int64, st *tarjanState) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	succ, _ := d.successors(v)
	sort.Slice(succ, func(i, j int) bool { return succ[i] < succ[j] })
	for _, w := range succ {
		if _, seen := st.index[w]; !seen {
			d.tarjanVisit(w, st)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var component []int64
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		st.components = append(st.components, component)
	}
}

// VertexCount returns the number of symbols currently in the graph.
func (d *DepGraph) VertexCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.symbols)
}

// EdgeCount returns the number of dependency edges currently stored.
func (d *DepGraph) EdgeCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	edges, err := d.g.Edges()
	if err != nil {
		return 0
	}
	return len(edges)
}

// Clear resets the graph to empty.
func (d *DepGraph) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.g = libgraph.New(func(id int64) int64 { return id }, libgraph.Directed())
	d.symbols = make(map[int64]domain.Symbol)
	d.fqnIndex = make(map[string]int64)
	d.suffixIndex = make(map[string][]int64)
	d.nameIndex = make(map[string][]int64)
	d.queryCache.Clear()
}
