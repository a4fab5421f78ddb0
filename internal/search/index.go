// Package search provides the in-memory similarity index the resource
// matcher retrieves candidates from. The index is built once at startup
// from the full resource directory; a build failure is fatal because a
// matcher without an index can only degrade every request.
package search

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Document is one indexable item.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Hit is one query result, most similar first.
type Hit struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Index answers nearest-neighbour queries over the indexed documents.
type Index interface {
	Query(ctx context.Context, text string, k int) ([]Hit, error)
	Size() int
}

// Embedder matches llm.Embedder without importing it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChromemIndex is an Index over an in-process chromem-go collection.
type ChromemIndex struct {
	collection *chromem.Collection
}

// BuildIndex embeds and indexes all documents. Errors here should stop
// startup; callers get ErrIndexUnavailable wrapped with the cause.
func BuildIndex(ctx context.Context, name string, docs []Document, embedder Embedder) (*ChromemIndex, error) {
	if embedder == nil {
		return nil, errors.IndexUnavailable(fmt.Errorf("no embedder configured"))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(name, nil, chromem.EmbeddingFunc(embedder.Embed))
	if err != nil {
		return nil, errors.IndexUnavailable(err)
	}

	if len(docs) > 0 {
		chromemDocs := make([]chromem.Document, 0, len(docs))
		for _, doc := range docs {
			chromemDocs = append(chromemDocs, chromem.Document{
				ID:       doc.ID,
				Content:  doc.Content,
				Metadata: doc.Metadata,
			})
		}
		if err := collection.AddDocuments(ctx, chromemDocs, 4); err != nil {
			return nil, errors.IndexUnavailable(err)
		}
	}

	return &ChromemIndex{collection: collection}, nil
}

// Query returns up to k hits for the text, most similar first. k is
// clamped to the collection size since chromem rejects over-asks.
func (idx *ChromemIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := idx.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search: query failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, Hit{
			ID:       res.ID,
			Score:    res.Similarity,
			Content:  res.Content,
			Metadata: res.Metadata,
		})
	}
	return hits, nil
}

// Size reports how many documents the index holds.
func (idx *ChromemIndex) Size() int {
	return idx.collection.Count()
}
