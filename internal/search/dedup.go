package search

// dedupOverlap walks results best-first and drops a result if any previously kept
// result is in the same file with line-range overlap ratio
// |A ∩ B| / min(|A|, |B|) > 0.5. kept order is the input order minus
// drops, then truncated to limit.
func dedupOverlap(items []boosted, limit int) []boosted {
	type keptRange struct {
		filePath  string
		lineStart int
		lineEnd   int
	}
	var kept []keptRange
	out := make([]boosted, 0, limit)

	for _, item := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		overlaps := false
		for _, k := range kept {
			if k.filePath != item.FilePath {
				continue
			}
			if overlapRatio(k.lineStart, k.lineEnd, item.Chunk.LineStart, item.Chunk.LineEnd) > 0.5 {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		kept = append(kept, keptRange{item.FilePath, item.Chunk.LineStart, item.Chunk.LineEnd})
		out = append(out, item)
	}
	return out
}

// overlapRatio computes |A ∩ B| / min(|A|, |B|) for two inclusive
// line ranges.
func overlapRatio(aStart, aEnd, bStart, bEnd int) float64 {
	lenA := aEnd - aStart + 1
	lenB := bEnd - bStart + 1
	if lenA <= 0 || lenB <= 0 {
		return 0
	}
	interStart := max(aStart, bStart)
	interEnd := min(aEnd, bEnd)
	inter := interEnd - interStart + 1
	if inter <= 0 {
		return 0
	}
	minLen := lenA
	if lenB < minLen {
		minLen = lenB
	}
	return float64(inter) / float64(minLen)
}
