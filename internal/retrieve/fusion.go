package retrieve

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"corectx/internal/relstore"
)

// rrfK is the standard Reciprocal Rank Fusion denominator constant.
const rrfK = 60

// fuseRRF combines the per-chunk best lexical and vector hits via
// Reciprocal Rank Fusion: rank each source, sum 1/(rrfK+rank) across
// sources present, and keep both raw stage scores for diagnostics.
func fuseRRF(lexical map[uuid.UUID]relstore.LexicalResult, vector map[uuid.UUID]vectorHit) []Item {
	lexRanked := rankLexical(lexical)
	vecRanked := rankVector(vector)

	lexPos := make(map[uuid.UUID]int, len(lexRanked))
	for i, id := range lexRanked {
		lexPos[id] = i + 1
	}
	vecPos := make(map[uuid.UUID]int, len(vecRanked))
	for i, id := range vecRanked {
		vecPos[id] = i + 1
	}

	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, id := range lexRanked {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range vecRanked {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		var item Item
		lr, hasLex := lexical[id]
		vr, hasVec := vector[id]

		fContrib, vContrib := 0.0, 0.0
		if p := lexPos[id]; p > 0 {
			fContrib = 1.0 / float64(rrfK+p)
		}
		if p := vecPos[id]; p > 0 {
			vContrib = 1.0 / float64(rrfK+p)
		}

		if hasLex {
			item.Chunk = lr.Chunk
			item.Snippet = lr.Snippet
			item.BM25Score = lr.Score
		}
		if hasVec {
			item.Chunk = vr.Chunk
			item.VectorScore = vr.Score
		}
		item.Score = fContrib + vContrib
		item.Explanation = map[string]any{
			"bm25_rank": lexPos[id],
			"vec_rank":  vecPos[id],
			"bm25_rrf":  fContrib,
			"vec_rrf":   vContrib,
		}
		items = append(items, item)
	}
	return items
}

func rankLexical(m map[uuid.UUID]relstore.LexicalResult) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if m[ids[i]].Score != m[ids[j]].Score {
			return m[ids[i]].Score > m[ids[j]].Score
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}

func rankVector(m map[uuid.UUID]vectorHit) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if m[ids[i]].Score != m[ids[j]].Score {
			return m[ids[i]].Score > m[ids[j]].Score
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// applyFreshness multiplies each item's score by exp(-lambda*age_days)
// using the chunk's ingestion timestamp. lambda<=0 disables decay.
func applyFreshness(items []Item, lambda float64, now time.Time) {
	if lambda <= 0 {
		return
	}
	for i := range items {
		ts := items[i].Chunk.Provenance.IngestedAt
		if ts.IsZero() {
			continue
		}
		ageDays := now.Sub(ts).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		items[i].Score *= math.Exp(-lambda * ageDays)
	}
}

// pseudoRerankBlend recomputes each item's final score as a weighted blend
// of vector score, bm25 score, and keyword overlap between the original
// query and the item's snippet, then sorts descending and truncates to k.
func pseudoRerankBlend(items []Item, originalQuery string, k int) []Item {
	for i := range items {
		overlap := keywordOverlap(originalQuery, items[i].Snippet)
		items[i].Score = 0.4*items[i].VectorScore + 0.4*items[i].BM25Score + 0.2*overlap
		items[i].Explanation["keyword_overlap"] = overlap
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Chunk.ID.String() < items[j].Chunk.ID.String()
	})
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items
}

func keywordOverlap(query, snippet string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	sTokens := map[string]bool{}
	for _, t := range tokenize(snippet) {
		sTokens[t] = true
	}
	hits := 0
	for _, t := range qTokens {
		if sTokens[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}
