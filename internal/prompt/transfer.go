package prompt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportParseError wraps a malformed import payload. It is reported, never
// propagated as a crash; the store is untouched when it fires.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string {
	return fmt.Sprintf("prompt import: %v", e.Err)
}

func (e *ImportParseError) Unwrap() error { return e.Err }

// importedTemplate is the accepted wire shape. Unknown or extra fields are
// ignored; ids and timestamps are regenerated on import.
type importedTemplate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// Import parses an exported template array and appends every entry as a fresh
// non-built-in template. It returns how many templates were added.
func (s *Store) Import(raw []byte) (int, error) {
	var entries []importedTemplate
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, &ImportParseError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, e := range entries {
		category := e.Category
		if category == "" || !s.categoryExists(category) {
			category = "general"
		}
		t := &Template{
			ID:          uuid.NewString(),
			Name:        e.Name,
			Description: e.Description,
			Content:     e.Content,
			Category:    category,
			Tags:        normalizeTags(e.Tags),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.order = append(s.order, t.ID)
		s.templates[t.ID] = t
	}
	return len(entries), nil
}

// Export serializes the non-built-in templates only.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Template, 0)
	for _, id := range s.order {
		if t := s.templates[id]; !t.IsBuiltIn {
			out = append(out, cloneTemplate(t))
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func ExportFilename(at time.Time) string {
	return fmt.Sprintf("prompts-export-%d.json", at.UnixMilli())
}
