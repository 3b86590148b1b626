package rag

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

var _ retriever.Retriever = (*EinoRetriever)(nil)

// EinoRetriever exposes a Retriever as an Eino retriever component so
// fragments can flow into Eino chains as scored schema.Documents.
type EinoRetriever struct {
	// r is the underlying fragment retriever.
	r Retriever

	// topK is used when the caller does not pass retriever.WithTopK.
	topK int
}

// NewEinoRetriever wraps r. topK <= 0 defaults to DefaultTopK.
func NewEinoRetriever(r Retriever, topK int) (*EinoRetriever, error) {
	if r == nil {
		return nil, fmt.Errorf("rag: retriever must not be nil")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &EinoRetriever{r: r, topK: topK}, nil
}

// Retrieve implements retriever.Retriever.
func (e *EinoRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	k := e.topK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &k}, opts...)
	if options.TopK != nil {
		k = *options.TopK
	}

	fragments, err := e.r.Retrieve(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("rag: eino retrieve: %w", err)
	}

	docs := make([]*schema.Document, 0, len(fragments))
	for _, f := range fragments {
		if options.ScoreThreshold != nil && f.Similarity < *options.ScoreThreshold {
			continue
		}
		md := make(map[string]any, len(f.Metadata)+4)
		for k, v := range f.Metadata {
			md[k] = v
		}
		md["source"] = f.Source
		md["document_id"] = f.DocumentID
		md["start"] = f.Start
		md["end"] = f.End

		doc := &schema.Document{ID: f.ID, Content: f.Text, MetaData: md}
		docs = append(docs, doc.WithScore(f.Similarity))
	}
	return docs, nil
}
