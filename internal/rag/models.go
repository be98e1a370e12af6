package rag

import "time"

type KnowledgeBase struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      uint64    `json:"-"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	DocumentIDs []string  `json:"document_ids"`
}

type Chunk struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Embedding  []float64         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata"`
	DocumentID string            `json:"document_id"`
	// Score is the mock similarity in [0.5,1); real retrieval would compute
	// it per query, the mock derives it from the chunk id.
	Score float64 `json:"score"`
}

type Document struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Content         string            `json:"content"`
	Type            string            `json:"type"`
	Size            int64             `json:"size"`
	UploadedAt      time.Time         `json:"uploaded_at"`
	UserID          uint64            `json:"-"`
	KnowledgeBaseID string            `json:"knowledge_base_id"`
	Chunks          []Chunk           `json:"chunks"`
	Metadata        map[string]string `json:"metadata"`
}
