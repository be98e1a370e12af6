package rag

import (
	"context"
	"testing"
	"time"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	d := dispatch.New(dispatch.Options{
		ChatLatencyMin: time.Millisecond,
		ChatLatencyMax: 2 * time.Millisecond,
		FixedLatency:   time.Millisecond,
		Seed:           1,
	})
	opts = append([]Option{WithUploadTick(time.Millisecond)}, opts...)
	return NewService(d, nil, opts...)
}

func uploadOne(t *testing.T, svc *Service, userID uint64, kbID, name string) *Document {
	t.Helper()
	err := svc.UploadWait(context.Background(), userID, kbID, []FileInfo{{Name: name, Size: 1024}})
	require.NoError(t, err)
	docs := svc.Documents(userID)
	require.NotEmpty(t, docs)
	return docs[len(docs)-1]
}

func TestSeededKnowledgeBases(t *testing.T) {
	svc := newTestService(t)

	kbs := svc.KnowledgeBases(7)
	require.Len(t, kbs, 2)
	assert.Equal(t, "Technical Docs", kbs[0].Name)
	assert.Equal(t, "Product Manual", kbs[1].Name)
	assert.False(t, kbs[0].IsPublic)
	assert.True(t, kbs[1].IsPublic)

	// Another user gets an independent space.
	other := svc.KnowledgeBases(8)
	require.Len(t, other, 2)
	_, err := svc.CreateKB(8, "Extra", "")
	require.NoError(t, err)
	assert.Len(t, svc.KnowledgeBases(8), 3)
	assert.Len(t, svc.KnowledgeBases(7), 2)
}

func TestCreateKBRequiresName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateKB(1, "  ", "desc")
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}

func TestUploadProgressTicks(t *testing.T) {
	svc := newTestService(t)

	ch, err := svc.Upload(context.Background(), 1, "kb1", []FileInfo{{Name: "guide.pdf", Size: 2048}})
	require.NoError(t, err)

	var percents []int
	for p := range ch {
		assert.Equal(t, "guide.pdf", p.FileName)
		percents = append(percents, p.Percent)
	}
	require.Len(t, percents, 11)
	assert.Equal(t, 0, percents[0])
	assert.Equal(t, 100, percents[10])
	for i := 1; i < len(percents); i++ {
		assert.Equal(t, 10, percents[i]-percents[i-1])
	}

	docs := svc.Documents(1)
	require.Len(t, docs, 1)
	assert.Equal(t, "guide.pdf", docs[0].Name)
	assert.Equal(t, "pdf", docs[0].Type)
	assert.Equal(t, "kb1", docs[0].KnowledgeBaseID)
	require.Len(t, docs[0].Chunks, 1)

	kbs := svc.KnowledgeBases(1)
	assert.Equal(t, []string{docs[0].ID}, kbs[0].DocumentIDs)
}

func TestUploadUnknownKB(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Upload(context.Background(), 1, "nope", []FileInfo{{Name: "a.txt"}})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Upload(context.Background(), 1, "kb1", nil)
	assert.True(t, common.IsValidationError(err))
}

func TestDeleteDocumentDetachesFromKB(t *testing.T) {
	svc := newTestService(t)
	doc := uploadOne(t, svc, 1, "kb1", "notes.md")

	require.NoError(t, svc.DeleteDocument(1, doc.ID))
	assert.Empty(t, svc.Documents(1))
	assert.Empty(t, svc.KnowledgeBases(1)[0].DocumentIDs)

	assert.ErrorIs(t, svc.DeleteDocument(1, doc.ID), common.ErrNotFound)
}

func TestQueryThresholdAndTopK(t *testing.T) {
	svc := newTestService(t)
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		uploadOne(t, svc, 1, "kb1", name)
	}

	// Threshold 0 falls back to the default, so only chunks scoring at or
	// above it come back.
	res, err := svc.Query(context.Background(), 1, QueryParams{Query: "how do I install"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.LessOrEqual(t, len(res.Sources), DefaultTopK)
	for _, c := range res.Sources {
		assert.GreaterOrEqual(t, c.Score, DefaultThreshold)
	}
	for i := 1; i < len(res.Sources); i++ {
		assert.GreaterOrEqual(t, res.Sources[i-1].Score, res.Sources[i].Score)
	}

	// A permissive threshold keeps every chunk up to topK.
	res, err = svc.Query(context.Background(), 1, QueryParams{Query: "anything", Threshold: 0.5, TopK: 10})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 4)

	// An impossible threshold yields an answer with no sources.
	res, err = svc.Query(context.Background(), 1, QueryParams{Query: "anything", Threshold: 0.999})
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
}

func TestQueryValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Query(context.Background(), 1, QueryParams{Query: "   "})
	assert.True(t, common.IsValidationError(err))

	_, err = svc.Query(context.Background(), 1, QueryParams{Query: "q", Threshold: 1.5})
	assert.True(t, common.IsValidationError(err))
}

func TestQueryScopedToKnowledgeBase(t *testing.T) {
	svc := newTestService(t)
	uploadOne(t, svc, 1, "kb1", "tech.txt")
	uploadOne(t, svc, 1, "kb2", "manual.txt")

	res, err := svc.Query(context.Background(), 1, QueryParams{Query: "q", KnowledgeBaseID: "kb2", Threshold: 0.5, TopK: 10})
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Contains(t, res.Sources[0].Content, "manual.txt")
}

type countingCache struct {
	data map[string]string
	gets int
	sets int
}

func (c *countingCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *countingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func TestQueryUsesCache(t *testing.T) {
	cache := &countingCache{data: make(map[string]string)}
	svc := newTestService(t, WithCache(cache, time.Minute))
	uploadOne(t, svc, 1, "kb1", "a.txt")

	first, err := svc.Query(context.Background(), 1, QueryParams{Query: "q", Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Query(context.Background(), 1, QueryParams{Query: "q", Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, first.Answer, second.Answer)
}
