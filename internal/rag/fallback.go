package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// curatedDocuments is the fallback corpus used when live sources cannot be
// indexed.
var curatedDocuments = []Document{
	{
		Title:   "Employment Standards Act",
		Section: "Minimum Wage",
		RawText: "The Employment Standards Act sets minimum standards for wages, hours of work, and working conditions in British Columbia. Employers must pay at least the minimum wage of $16.75 per hour as of 2024.",
	},
	{
		Title:   "Human Rights Code",
		Section: "Prohibited Grounds",
		RawText: "The BC Human Rights Code prohibits discrimination based on race, colour, ancestry, place of origin, religion, marital status, family status, physical or mental disability, sex, sexual orientation, gender identity or expression, and age.",
	},
	{
		Title:   "Residential Tenancy Act",
		Section: "Landlord Entry Rights",
		RawText: "Under the Residential Tenancy Act, landlords must provide 24 hours written notice before entering a rental unit, except in cases of emergency. Tenants have the right to quiet enjoyment of their rental unit.",
	},
}

// CuratedDocuments returns a copy of the fallback corpus with IDs assigned.
func CuratedDocuments() []Document {
	docs := make([]Document, len(curatedDocuments))
	for i, d := range curatedDocuments {
		d.ID = documentID(d.URL, d.Title)
		docs[i] = d
	}
	return docs
}

// degrade indexes the curated corpus and moves to StateDegraded. The curated
// texts go through the gateway first; if the upstream embedder is unusable
// they are embedded locally and the local embedder also serves queries, so
// query and index dimensions always agree.
func (o *Orchestrator) degrade(ctx context.Context, cause error) error {
	o.cfg.Metrics.degraded()
	o.log.Warn("rag: live sources unavailable, loading curated fallback", slog.Any("cause", cause))

	docs := CuratedDocuments()
	fragments, err := o.chunkAll(docs)
	if err != nil {
		return fmt.Errorf("rag: fallback: %w", err)
	}

	var queryEmbedder Embedder = o.gateway
	idx, err := o.embedAndIndex(ctx, o.gateway, fragments)
	if err != nil {
		o.log.Warn("rag: embedding service unavailable for fallback, using local embedder", slog.Any("error", err))
		queryEmbedder = o.cfg.FallbackEmbedder
		idx, err = o.embedAndIndex(context.WithoutCancel(ctx), o.cfg.FallbackEmbedder, fragments)
		if err != nil {
			return fmt.Errorf("rag: fallback: %w", err)
		}
	}

	o.publish(StateDegraded, docs, fragments, idx, queryEmbedder)
	return nil
}
