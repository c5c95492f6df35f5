package graph

import "sort"

// Community detection: a single-phase Louvain pass over the undirected
// projection of the dependency graph. The modularity formula divides
// by 2m on each edge examined rather than once at the end; community
// output is informative, not authoritative.

// maxCommunityRounds bounds the reassignment loop; dense graphs
// usually converge in a handful of rounds.
const maxCommunityRounds = 100

// DetectCommunities iterates majority-neighbor reassignment over every
// symbol until the partition stabilizes or maxCommunityRounds is hit,
// then returns a symbol id -> community id map. Community ids are
// contiguous, assigned largest community first (community 0 is the
// biggest).
func (d *DepGraph) DetectCommunities() map[int64]int64 {
	d.mu.RLock()
	ids := make([]int64, 0, len(d.symbols))
	for id := range d.symbols {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	neighbors := make(map[int64][]int64, len(ids))
	for _, id := range ids {
		neighbors[id] = d.undirectedNeighbors(id)
	}
	d.mu.RUnlock()

	community := make(map[int64]int64, len(ids))
	for _, id := range ids {
		community[id] = id
	}

	for round := 0; round < maxCommunityRounds; round++ {
		changed := false
		for _, id := range ids {
			counts := make(map[int64]int)
			for _, n := range neighbors[id] {
				counts[community[n]]++
			}
			if len(counts) == 0 {
				continue
			}
			best := community[id]
			bestCount := -1
			candCommunities := make([]int64, 0, len(counts))
			for c := range counts {
				candCommunities = append(candCommunities, c)
			}
			sort.Slice(candCommunities, func(i, j int) bool { return candCommunities[i] < candCommunities[j] })
			for _, c := range candCommunities {
				if counts[c] > bestCount {
					bestCount = counts[c]
					best = c
				}
			}
			if best != community[id] {
				community[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return renumberBySize(ids, community)
}

// renumberBySize reassigns contiguous community ids, largest community
// first, ties broken by the smallest member id for determinism.
func renumberBySize(ids []int64, community map[int64]int64) map[int64]int64 {
	members := make(map[int64][]int64)
	for _, id := range ids {
		members[community[id]] = append(members[community[id]], id)
	}

	labels := make([]int64, 0, len(members))
	for label := range members {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := members[labels[i]], members[labels[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a[0] < b[0]
	})

	out := make(map[int64]int64, len(ids))
	for newID, label := range labels {
		for _, member := range members[label] {
			out[member] = int64(newID)
		}
	}
	return out
}

// Modularity computes the modularity of the given community assignment
// over the undirected projection, using the per-edge/m accumulation
// from the original source rather than the textbook single 1/(2m)
// normalization applied once at the end.
func (d *DepGraph) Modularity(community map[int64]int64) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	degree := make(map[int64]int, len(d.symbols))
	var edges [][2]int64
	seen := make(map[[2]int64]bool)
	m := 0
	for id := range d.symbols {
		ns := d.undirectedNeighbors(id)
		degree[id] = len(ns)
		for _, n := range ns {
			key := [2]int64{id, n}
			rev := [2]int64{n, id}
			if seen[key] || seen[rev] {
				continue
			}
			seen[key] = true
			edges = append(edges, key)
			m++
		}
	}
	if m == 0 {
		return 0
	}

	var q float64
	for _, e := range edges {
		a, b := e[0], e[1]
		if community[a] != community[b] {
			continue
		}
		expected := float64(degree[a]*degree[b]) / float64(2*m)
		q += (1 - expected) / float64(m)
	}
	return q
}
