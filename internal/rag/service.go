// Package rag manages mock knowledge bases and documents, and answers
// queries through the simulated dispatcher. Nothing is embedded or ranked for
// real; chunk scores are derived deterministically so topK/threshold behavior
// stays testable.
package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"go.uber.org/zap"
)

// ResultCache caches query results. Implemented by the redis store and the
// in-process fallback; a nil cache disables caching.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type Service struct {
	dispatcher *dispatch.Dispatcher
	cache      ResultCache
	cacheTTL   time.Duration
	log        *zap.Logger

	// uploadTick is the simulated per-increment upload delay.
	uploadTick time.Duration

	mu     sync.Mutex
	spaces map[uint64]*space
}

// space is one user's owned store, seeded at first touch.
type space struct {
	kbOrder  []string
	kbs      map[string]*KnowledgeBase
	docOrder []string
	docs     map[string]*Document
}

type Option func(*Service)

func WithCache(c ResultCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithUploadTick shortens the simulated upload timer, mainly for tests.
func WithUploadTick(d time.Duration) Option {
	return func(s *Service) { s.uploadTick = d }
}

func NewService(dispatcher *dispatch.Dispatcher, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		dispatcher: dispatcher,
		log:        log,
		uploadTick: 200 * time.Millisecond,
		spaces:     make(map[uint64]*space),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) spaceFor(userID uint64) *space {
	sp, ok := s.spaces[userID]
	if !ok {
		sp = &space{
			kbs:  make(map[string]*KnowledgeBase),
			docs: make(map[string]*Document),
		}
		seedSpace(sp, userID)
		s.spaces[userID] = sp
	}
	return sp
}

func seedSpace(sp *space, userID uint64) {
	now := time.Now()
	for _, kb := range []*KnowledgeBase{
		{ID: "kb1", Name: "Technical Docs", Description: "Programming and technical documentation", UserID: userID, IsPublic: false, CreatedAt: now},
		{ID: "kb2", Name: "Product Manual", Description: "Product usage guides and FAQ", UserID: userID, IsPublic: true, CreatedAt: now},
	} {
		sp.kbOrder = append(sp.kbOrder, kb.ID)
		sp.kbs[kb.ID] = kb
	}
}

func (s *Service) CreateKB(userID uint64, name, description string) (*KnowledgeBase, error) {
	if strings.TrimSpace(name) == "" {
		return nil, common.NewValidationError("name", "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	kb := &KnowledgeBase{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		UserID:      userID,
		CreatedAt:   time.Now(),
	}
	sp.kbOrder = append(sp.kbOrder, kb.ID)
	sp.kbs[kb.ID] = kb
	return cloneKB(kb), nil
}

func (s *Service) KnowledgeBases(userID uint64) []*KnowledgeBase {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	out := make([]*KnowledgeBase, 0, len(sp.kbOrder))
	for _, id := range sp.kbOrder {
		out = append(out, cloneKB(sp.kbs[id]))
	}
	return out
}

func (s *Service) Documents(userID uint64) []*Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	out := make([]*Document, 0, len(sp.docOrder))
	for _, id := range sp.docOrder {
		out = append(out, cloneDoc(sp.docs[id]))
	}
	return out
}

// DeleteDocument removes the document from the list and detaches it from its
// knowledge base.
func (s *Service) DeleteDocument(userID uint64, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	doc, ok := sp.docs[docID]
	if !ok {
		return common.ErrNotFound
	}

	delete(sp.docs, docID)
	for i, id := range sp.docOrder {
		if id == docID {
			sp.docOrder = append(sp.docOrder[:i], sp.docOrder[i+1:]...)
			break
		}
	}
	if kb, ok := sp.kbs[doc.KnowledgeBaseID]; ok {
		for i, id := range kb.DocumentIDs {
			if id == docID {
				kb.DocumentIDs = append(kb.DocumentIDs[:i], kb.DocumentIDs[i+1:]...)
				break
			}
		}
	}
	return nil
}

// FileInfo describes one file to "upload". Only the name and size matter; the
// content is synthesized.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Progress is one upload progress tick for a file, percent 0..100.
type Progress struct {
	FileIndex int    `json:"file_index"`
	FileName  string `json:"file_name"`
	Percent   int    `json:"percent"`
}

// Upload simulates ingesting files into a knowledge base. Progress ticks
// stream over the returned channel in +10 increments per file; each document
// lands in the store when its file reaches 100. The channel closes when all
// files are done.
func (s *Service) Upload(ctx context.Context, userID uint64, kbID string, files []FileInfo) (<-chan Progress, error) {
	if len(files) == 0 {
		return nil, common.NewValidationError("files", "no files to upload")
	}

	s.mu.Lock()
	sp := s.spaceFor(userID)
	_, ok := sp.kbs[kbID]
	s.mu.Unlock()
	if !ok {
		return nil, common.ErrNotFound
	}

	out := make(chan Progress, 16)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.uploadTick)
		defer ticker.Stop()

		for i, f := range files {
			for pct := 0; pct <= 100; pct += 10 {
				select {
				case out <- Progress{FileIndex: i, FileName: f.Name, Percent: pct}:
				case <-ctx.Done():
					return
				}
				if pct == 100 {
					break
				}
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}

			doc := s.synthesizeDocument(userID, kbID, f)
			s.mu.Lock()
			sp := s.spaceFor(userID)
			sp.docOrder = append(sp.docOrder, doc.ID)
			sp.docs[doc.ID] = doc
			if kb, ok := sp.kbs[kbID]; ok {
				kb.DocumentIDs = append(kb.DocumentIDs, doc.ID)
			}
			s.mu.Unlock()

			s.log.Debug("document uploaded",
				zap.Uint64("user_id", userID),
				zap.String("kb_id", kbID),
				zap.String("doc", f.Name),
			)
		}
	}()

	return out, nil
}

// UploadWait runs Upload and drains the progress channel. Convenience for
// callers that do not stream.
func (s *Service) UploadWait(ctx context.Context, userID uint64, kbID string, files []FileInfo) error {
	ch, err := s.Upload(ctx, userID, kbID, files)
	if err != nil {
		return err
	}
	for range ch {
	}
	return ctx.Err()
}

func (s *Service) synthesizeDocument(userID uint64, kbID string, f FileInfo) *Document {
	id := uuid.NewString()
	docType := strings.TrimPrefix(filepath.Ext(f.Name), ".")
	if docType == "" {
		docType = "text"
	}

	chunkID := "chunk-" + id
	return &Document{
		ID:              id,
		Name:            f.Name,
		Content:         fmt.Sprintf("This is the simulated content of %s. A real ingestion pipeline would store the actual file content here.", f.Name),
		Type:            docType,
		Size:            f.Size,
		UploadedAt:      time.Now(),
		UserID:          userID,
		KnowledgeBaseID: kbID,
		Chunks: []Chunk{{
			ID:         chunkID,
			Content:    fmt.Sprintf("First chunk of %s...", f.Name),
			Metadata:   map[string]string{"page": "1", "section": "introduction"},
			DocumentID: id,
			Score:      mockScore(chunkID),
		}},
		Metadata: map[string]string{"source": "upload"},
	}
}

// mockScore maps a chunk id to a stable similarity in [0.5,1).
func mockScore(chunkID string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chunkID))
	return 0.5 + float64(h.Sum32()%50)/100
}

func cloneKB(kb *KnowledgeBase) *KnowledgeBase {
	cp := *kb
	cp.DocumentIDs = append([]string(nil), kb.DocumentIDs...)
	return &cp
}

func cloneDoc(d *Document) *Document {
	cp := *d
	cp.Chunks = append([]Chunk(nil), d.Chunks...)
	return &cp
}
