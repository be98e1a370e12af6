// Package prompt holds the in-memory prompt template store. Built-ins are
// seeded at construction and immutable; user templates have full CRUD.
package prompt

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangzx96/llm-workbench/internal/common"
)

var ErrBuiltIn = errors.New("prompt: built-in templates cannot be modified")

// CategoryAll matches every category in Filter.
const CategoryAll = "all"

type Store struct {
	mu         sync.RWMutex
	order      []string
	templates  map[string]*Template
	categories []Category
}

func NewStore() *Store {
	s := &Store{
		templates:  make(map[string]*Template),
		categories: defaultCategories(),
	}
	for _, t := range builtInTemplates(time.Now()) {
		s.order = append(s.order, t.ID)
		s.templates[t.ID] = t
	}
	return s
}

func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) categoryExists(id string) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

type CreateInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (s *Store) Create(in CreateInput) (*Template, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.NewValidationError("name", "name is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, common.NewValidationError("content", "content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category := in.Category
	if category == "" || !s.categoryExists(category) {
		category = "general"
	}

	now := time.Now()
	t := &Template{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Content:     in.Content,
		Category:    category,
		Tags:        normalizeTags(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.order = append(s.order, t.ID)
	s.templates[t.ID] = t
	return cloneTemplate(t), nil
}

func (s *Store) Get(id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneTemplate(t), nil
}

func (s *Store) Update(id string, in CreateInput) (*Template, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, common.NewValidationError("name", "name is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, common.NewValidationError("content", "content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if t.IsBuiltIn {
		return nil, ErrBuiltIn
	}

	t.Name = in.Name
	t.Description = in.Description
	t.Content = in.Content
	if in.Category != "" && s.categoryExists(in.Category) {
		t.Category = in.Category
	}
	t.Tags = normalizeTags(in.Tags)
	t.UpdatedAt = time.Now()
	return cloneTemplate(t), nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return common.ErrNotFound
	}
	if t.IsBuiltIn {
		return ErrBuiltIn
	}

	delete(s.templates, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) List() []*Template {
	return s.Filter("", CategoryAll)
}

// Filter returns templates whose name, description or any tag contains the
// search term (case-insensitive) and whose category matches exactly, in
// insertion order. CategoryAll matches every category.
func (s *Store) Filter(search, category string) []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))

	var out []*Template
	for _, id := range s.order {
		t := s.templates[id]
		if category != "" && category != CategoryAll && t.Category != category {
			continue
		}
		if needle != "" && !matches(t, needle) {
			continue
		}
		out = append(out, cloneTemplate(t))
	}
	return out
}

func matches(t *Template, needle string) bool {
	if strings.Contains(strings.ToLower(t.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func cloneTemplate(t *Template) *Template {
	cp := *t
	cp.Tags = append([]string(nil), t.Tags...)
	return &cp
}
