package pipeline

import (
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/store"
)

// updateGraph registers this file's symbols as graph nodes, resolves
// call and type-hierarchy edges from the analyzer's best-effort
// reference/extends/implements lists, and resolves import edges keyed
// by the file's first symbol. Edges are persisted to the store and
// added to the in-memory graph together so the two never diverge by
// more than one file's worth of mutations.
func (p *Pipeline) updateGraph(result store.ReindexResult, elements []domain.StructuralElement, imports []domain.ImportStatement) {
	if len(result.SymbolIDs) != len(elements) {
		return // defensive: a prior store error should already have aborted
	}

	local := make(map[string]int64, len(elements))
	for i, el := range elements {
		local[el.Name] = result.SymbolIDs[i]
	}

	for i, el := range elements {
		p.depgraph.AddSymbol(domain.Symbol{
			ID:   result.SymbolIDs[i],
			Name: el.Name,
			FQN:  el.SymbolPath,
			Kind: el.Kind,
			Line: el.LineStart,
		})
	}

	for i, el := range elements {
		sourceID := result.SymbolIDs[i]
		for _, ref := range el.References {
			if ref == el.Name {
				continue // self-reference, not a dependency
			}
			if targetID, ok := p.resolveName(local, ref); ok && targetID != sourceID {
				p.addEdge(domain.DependencyEdge{Source: sourceID, Target: targetID, Kind: domain.DepCalls})
			}
		}
		for _, parent := range el.Extends {
			if targetID, ok := p.resolveName(local, parent); ok {
				p.addEdge(domain.DependencyEdge{Source: sourceID, Target: targetID, Kind: domain.DepExtends})
			}
		}
		for _, iface := range el.Implements {
			if targetID, ok := p.resolveName(local, iface); ok {
				p.addEdge(domain.DependencyEdge{Source: sourceID, Target: targetID, Kind: domain.DepImplements})
			}
		}
	}

	if len(result.SymbolIDs) == 0 || len(imports) == 0 {
		return
	}
	fileSourceID := result.SymbolIDs[0]
	for _, imp := range imports {
		if targetID, ok := p.resolveImport(imp); ok && targetID != fileSourceID {
			p.addEdge(domain.DependencyEdge{Source: fileSourceID, Target: targetID, Kind: domain.DepImports})
		}
	}
}

// resolveName resolves a bare reference name to a symbol id for
// call/extends/implements edges: prefer a symbol local to this file,
// else fall back to the first global match SearchSymbolsByName returns.
// Other symbols with the same name are not considered.
func (p *Pipeline) resolveName(local map[string]int64, name string) (int64, bool) {
	if id, ok := local[name]; ok {
		return id, true
	}
	matches, err := p.store.SearchSymbolsByName(name, 1)
	if err != nil || len(matches) == 0 {
		return 0, false
	}
	return matches[0].ID, true
}

// resolveImport resolves an import in three stages: exact FQN (both
// separators), then store-backed FQN-suffix match, then bare-name
// fallback.
func (p *Pipeline) resolveImport(imp domain.ImportStatement) (int64, bool) {
	name := imp.Name
	if name == "" {
		return 0, false // whole-module import with no named symbol to link
	}

	for _, sep := range []string{"::", "."} {
		if sym, ok, err := p.store.GetSymbolByFQN(imp.Path + sep + name); err == nil && ok {
			return sym.ID, true
		}
	}

	if matches, err := p.store.SearchSymbolsByFQNSuffix(name, 5); err == nil && len(matches) > 0 {
		if len(matches) == 1 {
			return matches[0].ID, true
		}
		for _, m := range matches {
			if containsPath(m.FQN, imp.Path) {
				return m.ID, true
			}
		}
		return matches[0].ID, true // shortest FQN wins: results are ordered ascending by length
	}

	if matches, err := p.store.SearchSymbolsByName(name, 1); err == nil && len(matches) > 0 {
		return matches[0].ID, true
	}
	return 0, false
}

// addEdge persists the edge to the store unconditionally (its target
// was already resolved through a store symbol lookup, so it is never a
// ghost edge there) and mirrors it into the in-memory graph on a
// best-effort basis: if the target symbol hasn't been added to this
// graph instance yet (e.g. it lives in a file indexed in a previous
// process run), the graph simply lags the store by one file's worth of
// mutations until the next rehydration.
func (p *Pipeline) addEdge(edge domain.DependencyEdge) {
	_ = p.store.InsertDependency(edge)
	_ = p.depgraph.AddEdge(edge)
}

func containsPath(fqn, path string) bool {
	return path != "" && strings.Contains(fqn, path)
}
