// Package report assembles the legal assistance prompt from a user profile
// and retrieved legislation, and streams the model's report to a writer.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/bclegal-go/internal/budget"
	"github.com/54b3r/bclegal-go/internal/logging"
	"github.com/54b3r/bclegal-go/internal/rag"
	"github.com/54b3r/bclegal-go/internal/recommend"
)

// Config holds the dependencies required to construct a Generator.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.BaseChatModel

	// Retriever supplies legislation excerpts as scored Eino documents, e.g.
	// rag.NewEinoRetriever over the orchestrator. May be nil, in which case
	// reports are generated without retrieved context.
	Retriever retriever.Retriever

	// TopK is the number of fragments requested per report. Defaults to
	// rag.DefaultTopK if zero.
	TopK int

	// MaxContextTokens bounds the estimated input size. Retrieved fragments
	// are dropped weakest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Generator produces legal assistance reports.
type Generator struct {
	chatModel        model.BaseChatModel
	retriever        retriever.Retriever
	topK             int
	maxContextTokens int
}

// Result describes a completed report.
type Result struct {
	// Sources lists the distinct document titles injected as context, in
	// similarity order.
	Sources []string

	// Bytes is the number of report bytes written.
	Bytes int
}

// New constructs a Generator from cfg.
func New(cfg *Config) (*Generator, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("report: ChatModel must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Generator{
		chatModel:        cfg.ChatModel,
		retriever:        cfg.Retriever,
		topK:             topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Generate streams a report for p to w. When prompt is non-empty it replaces
// the prompt built from the profile.
func (g *Generator) Generate(ctx context.Context, p *recommend.UserProfile, prompt string, w io.Writer) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("report: profile must not be nil")
	}
	if prompt == "" {
		prompt = BuildPrompt(p)
	}

	messages, sources := g.buildMessages(ctx, p, prompt)

	sr, err := g.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("report: stream failed: %w", err)
	}
	defer sr.Close()

	res := &Result{Sources: sources}
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("report: stream receive error: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		n, err := io.WriteString(w, msg.Content)
		res.Bytes += n
		if err != nil {
			return res, fmt.Errorf("report: write error: %w", err)
		}
	}
	return res, nil
}

// buildMessages returns [system, context?, user] with the context block
// trimmed to the token budget.
func (g *Generator) buildMessages(ctx context.Context, p *recommend.UserProfile, prompt string) ([]*schema.Message, []string) {
	log := logging.FromContext(ctx)
	fixed := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}

	var fragments []rag.Fragment
	if g.retriever != nil {
		docs, err := g.retriever.Retrieve(ctx, retrievalQuery(p), retriever.WithTopK(g.topK))
		if err != nil {
			// Retrieval failure is non-fatal.
			log.Warn("report: retrieval failed, continuing without context", slog.Any("error", err))
		}
		fragments = fromDocuments(docs)
	}

	before := len(fragments)
	fragments = budget.FitFragments(fixed, fragments, g.maxContextTokens)
	if dropped := before - len(fragments); dropped > 0 {
		log.Warn("budget: dropped fragments to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(fragments)),
			slog.Int("max_tokens", g.maxContextTokens),
		)
	}

	ragContext := buildContext(fragments)
	if ragContext == "" {
		return fixed, nil
	}

	var sources []string
	for _, f := range fragments {
		if !slices.Contains(sources, f.Source) {
			sources = append(sources, f.Source)
		}
	}
	return []*schema.Message{fixed[0], schema.SystemMessage(ragContext), fixed[1]}, sources
}

// fromDocuments maps scored Eino documents back to fragments, reading the
// source title from the "source" metadata key.
func fromDocuments(docs []*schema.Document) []rag.Fragment {
	out := make([]rag.Fragment, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		source, _ := d.MetaData["source"].(string)
		out = append(out, rag.Fragment{
			ID:         d.ID,
			Text:       d.Content,
			Source:     source,
			Similarity: d.Score(),
		})
	}
	return out
}
