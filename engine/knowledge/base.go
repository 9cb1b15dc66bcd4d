package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/humwire/humwire/pkg/fn"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the vector side of the knowledge base.
type Index interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
}

// DefaultThreshold is the minimum cosine score for a semantic match.
const DefaultThreshold = 0.55

// Source says how an answer was found.
type Source string

const (
	SourceSemantic Source = "semantic"
	SourceKeyword  Source = "keyword"
	SourceNone     Source = "none"
)

// Match is the best FAQ entry for a question.
type Match struct {
	Entry  Entry   `json:"entry"`
	Score  float32 `json:"score,omitempty"`
	Source Source  `json:"source"`
}

// Base answers questions from Entries. Without an embedder and index it
// only matches keywords.
type Base struct {
	embedder  Embedder
	index     Index
	threshold float32
	workers   int
	logger    *slog.Logger
}

// NewBase creates a knowledge base. embedder and index may both be nil.
func NewBase(embedder Embedder, index Index, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{embedder: embedder, index: index, threshold: DefaultThreshold, workers: 4, logger: logger}
}

// Semantic reports whether vector search is configured.
func (b *Base) Semantic() bool { return b.embedder != nil && b.index != nil }

// PointID is the stable Qdrant point ID of an entry.
func PointID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("humwire:faq:"+entryID)).String()
}

// Reindex embeds every entry and upserts it. Point IDs are derived from the
// entry ID, so reindexing replaces rather than duplicates.
func (b *Base) Reindex(ctx context.Context) (int, error) {
	if !b.Semantic() {
		return 0, nil
	}
	embed := fn.BatchStage(b.workers, fn.Stage[Entry, Point](func(ctx context.Context, e Entry) fn.Result[Point] {
		vec, err := b.embedder.Embed(ctx, e.Text())
		if err != nil {
			return fn.Err[Point](fmt.Errorf("knowledge: embed %s: %w", e.ID, err))
		}
		return fn.Ok(Point{ID: PointID(e.ID), EntryID: e.ID, Embedding: vec})
	}))
	points, err := embed(ctx, Entries).Unwrap()
	if err != nil {
		return 0, err
	}
	if err := b.index.EnsureCollection(ctx, len(points[0].Embedding)); err != nil {
		return 0, err
	}
	if err := b.index.Upsert(ctx, points); err != nil {
		return 0, err
	}
	b.logger.Info("knowledge indexed", "entries", len(points))
	return len(points), nil
}

// Find returns the best entry for question. Semantic search is tried first
// when configured; any failure there falls back to keywords.
func (b *Base) Find(ctx context.Context, question string) Match {
	if b.Semantic() {
		m, err := b.search(ctx, question)
		if err != nil {
			b.logger.Warn("knowledge search failed, using keywords", "err", err)
		} else if m.Source == SourceSemantic {
			return m
		}
	}
	if e, ok := MatchKeywords(question); ok {
		return Match{Entry: e, Source: SourceKeyword}
	}
	return Match{Source: SourceNone}
}

func (b *Base) search(ctx context.Context, question string) (Match, error) {
	vec, err := b.embedder.Embed(ctx, question)
	if err != nil {
		return Match{}, err
	}
	hits, err := b.index.Search(ctx, vec, 1)
	if err != nil {
		return Match{}, err
	}
	if len(hits) == 0 || hits[0].Score < b.threshold {
		return Match{Source: SourceNone}, nil
	}
	e, ok := ByID(hits[0].EntryID)
	if !ok {
		return Match{Source: SourceNone}, nil
	}
	return Match{Entry: e, Score: hits[0].Score, Source: SourceSemantic}, nil
}

// Answer returns the matched entry's answer or Fallback.
func (b *Base) Answer(ctx context.Context, question string) (string, Match) {
	m := b.Find(ctx, question)
	if m.Source == SourceNone {
		return Fallback, m
	}
	return m.Entry.Answer, m
}
