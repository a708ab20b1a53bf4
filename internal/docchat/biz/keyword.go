package biz

import (
	"context"
	"math"
	"sort"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/utils/textutil"
)

// KeywordIndex scores passages by TF-IDF weighted term overlap. It is the
// retrieval path when no embedding provider is configured, and the
// fallback when embedding the query fails.
type KeywordIndex struct {
	chunks []*store.Chunk
	// termFreqs[i] holds the term frequencies of chunks[i].
	termFreqs []map[string]float64
	// docFreq counts how many chunks contain each term.
	docFreq map[string]int
}

// BuildKeywordIndex tokenizes every chunk once so queries only pay for
// their own terms.
func BuildKeywordIndex(chunks []*store.Chunk) *KeywordIndex {
	idx := &KeywordIndex{
		chunks:    chunks,
		termFreqs: make([]map[string]float64, len(chunks)),
		docFreq:   make(map[string]int),
	}

	for i, chunk := range chunks {
		terms := textutil.Tokenize(chunk.Content)
		tf := make(map[string]float64, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		if len(terms) > 0 {
			for term := range tf {
				tf[term] /= float64(len(terms))
				idx.docFreq[term]++
			}
		}
		idx.termFreqs[i] = tf
	}

	return idx
}

// Len returns the number of indexed chunks.
func (idx *KeywordIndex) Len() int {
	return len(idx.chunks)
}

// Search scores every chunk against the query terms and returns the topK
// best. Scores are normalized to [0, 1] by the best match. Chunks sharing
// no terms with the query score zero and are excluded.
func (idx *KeywordIndex) Search(ctx context.Context, query string, topK int, minScore float64) ([]*store.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryTerms := textutil.Tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	// Deduplicate query terms; repeating a word in the question should
	// not multiply its weight.
	unique := make(map[string]bool, len(queryTerms))
	for _, term := range queryTerms {
		unique[term] = true
	}

	n := float64(len(idx.chunks))
	var results []*store.SearchResult

	for i, chunk := range idx.chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var score float64
		for term := range unique {
			tf := idx.termFreqs[i][term]
			if tf == 0 {
				continue
			}
			df := idx.docFreq[term]
			idf := math.Log((n+1)/(float64(df)+1)) + 1
			score += tf * idf
		}
		if score <= 0 {
			continue
		}

		results = append(results, &store.SearchResult{Chunk: *chunk, Score: score})
	}

	if len(results) == 0 {
		return nil, nil
	}

	// Normalize by the best score so thresholds behave the same way as
	// in embedding mode.
	best := 0.0
	for _, r := range results {
		if r.Score > best {
			best = r.Score
		}
	}
	filtered := results[:0]
	for _, r := range results {
		r.Score /= best
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	results = filtered

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}
