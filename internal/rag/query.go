package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"go.uber.org/zap"
)

const (
	DefaultTopK      = 3
	DefaultThreshold = 0.7
)

type QueryParams struct {
	Query           string  `json:"query"`
	KnowledgeBaseID string  `json:"knowledge_base_id"`
	TopK            int     `json:"top_k"`
	Threshold       float64 `json:"threshold"`
}

type QueryResult struct {
	Answer     string  `json:"answer"`
	Sources    []Chunk `json:"sources"`
	Confidence float64 `json:"confidence"`
}

// Query retrieves the highest-scoring chunks above the similarity threshold
// and asks the dispatcher for a generated answer over them. Results are
// cached per user+query+params when a cache is configured.
func (s *Service) Query(ctx context.Context, userID uint64, p QueryParams) (*QueryResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, common.NewValidationError("query", "query is required")
	}
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	if p.Threshold > 1 {
		return nil, common.NewValidationError("threshold", "threshold must be between 0 and 1")
	}

	cacheKey := fmt.Sprintf("rag:%d:%s:%s:%d:%.2f", userID, p.KnowledgeBaseID, p.Query, p.TopK, p.Threshold)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			var cached QueryResult
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				s.log.Debug("rag cache hit", zap.String("key", cacheKey))
				return &cached, nil
			}
		}
	}

	chunks := s.candidateChunks(userID, p.KnowledgeBaseID)

	kept := chunks[:0]
	for _, c := range chunks {
		if c.Score >= p.Threshold {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) > p.TopK {
		kept = kept[:p.TopK]
	}

	req := ragRequest(p.Query, kept)
	out, err := s.dispatcher.RAG(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &QueryResult{
		Answer:     out.Answer,
		Sources:    kept,
		Confidence: out.Confidence,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(res); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), s.cacheTTL); err != nil {
				s.log.Warn("rag cache set failed", zap.Error(err))
			}
		}
	}
	return res, nil
}

func ragRequest(query string, chunks []Chunk) dispatch.RAGRequest {
	sources := make([]dispatch.SourceChunk, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, dispatch.SourceChunk{
			ID:         c.ID,
			Content:    c.Content,
			DocumentID: c.DocumentID,
			Score:      c.Score,
		})
	}
	return dispatch.RAGRequest{Query: query, Sources: sources}
}

func (s *Service) candidateChunks(userID uint64, kbID string) []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	var out []Chunk
	for _, id := range sp.docOrder {
		doc := sp.docs[id]
		if kbID != "" && doc.KnowledgeBaseID != kbID {
			continue
		}
		out = append(out, doc.Chunks...)
	}
	return out
}
