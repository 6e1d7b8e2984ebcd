package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/carewell/scheduling-agent/pkg/logging"
)

type document struct {
	content   string
	embedding []float32
}

// Retriever keeps clinic documents in memory and answers similarity
// queries. With no embedder configured it scores by keyword overlap, which
// keeps FAQ answers working without any model dependency.
type Retriever struct {
	embedder Embedder
	logger   *logging.Logger

	mu   sync.RWMutex
	docs []document
}

// NewRetriever creates a retriever. embedder may be nil.
func NewRetriever(embedder Embedder, logger *logging.Logger) *Retriever {
	if logger == nil {
		logger = logging.Default()
	}
	return &Retriever{embedder: embedder, logger: logger}
}

// AddDocuments embeds (when possible) and stores the contents.
func (r *Retriever) AddDocuments(ctx context.Context, contents []string) error {
	if len(contents) == 0 {
		return nil
	}
	var embeddings [][]float32
	if r.embedder != nil {
		var err error
		embeddings, err = r.embedder.Embed(ctx, contents)
		if err != nil {
			r.logger.Warn("embedding failed, storing documents for keyword retrieval only", "error", err)
			embeddings = nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, content := range contents {
		doc := document{content: content}
		if embeddings != nil && i < len(embeddings) {
			doc.embedding = embeddings[i]
		}
		r.docs = append(r.docs, doc)
	}
	return nil
}

// Context returns the topK most relevant documents joined into one block of
// supporting context for the model. topK defaults to 3.
func (r *Retriever) Context(ctx context.Context, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = 3
	}

	r.mu.RLock()
	docs := make([]document, len(r.docs))
	copy(docs, r.docs)
	r.mu.RUnlock()
	if len(docs) == 0 {
		return "", nil
	}

	var queryVec []float32
	if r.embedder != nil {
		vecs, err := r.embedder.Embed(ctx, []string{query})
		if err != nil {
			r.logger.Warn("query embedding failed, falling back to keyword scoring", "error", err)
		} else if len(vecs) == 1 {
			queryVec = vecs[0]
		}
	}

	type scored struct {
		score   float64
		content string
	}
	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		var score float64
		if queryVec != nil && doc.embedding != nil {
			score = cosineSimilarity(queryVec, doc.embedding)
		} else {
			score = keywordOverlap(query, doc.content)
		}
		if score > 0 {
			results = append(results, scored{score: score, content: doc.content})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if len(results) > topK {
		results = results[:topK]
	}
	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.content
	}
	return strings.Join(parts, "\n"), nil
}

// Size reports how many documents are stored.
func (r *Retriever) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keywordOverlap counts query words of length >= 3 present in the document.
func keywordOverlap(query, doc string) float64 {
	docLower := strings.ToLower(doc)
	var hits int
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, "?!.,:;\"'")
		if len(word) < 3 {
			continue
		}
		if strings.Contains(docLower, word) {
			hits++
		}
	}
	return float64(hits)
}
