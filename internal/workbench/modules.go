// Package workbench coordinates the debug workbench session: which module is
// active, who is logged in, and which modules the current auth state unlocks.
package workbench

import "strings"

type ModuleID string

const (
	ModuleChat   ModuleID = "chat"
	ModulePrompt ModuleID = "prompt"
	ModuleRAG    ModuleID = "rag"
	ModuleAgent  ModuleID = "agent"
)

type ModuleInfo struct {
	ID           ModuleID `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Badge        string   `json:"badge,omitempty"`
	RequiresAuth bool     `json:"requires_auth"`
}

// Registry is the static table of workbench modules.
type Registry struct {
	order   []ModuleID
	modules map[ModuleID]ModuleInfo
}

func NewRegistry() *Registry {
	r := &Registry{modules: make(map[ModuleID]ModuleInfo)}
	for _, m := range []ModuleInfo{
		{ID: ModuleChat, Name: "Chat", Description: "Multi-model chat debugging"},
		{ID: ModulePrompt, Name: "Prompts", Description: "Prompt template management"},
		{ID: ModuleRAG, Name: "RAG", Description: "Retrieval-augmented generation", Badge: "login required", RequiresAuth: true},
		{ID: ModuleAgent, Name: "Agents", Description: "AI agent execution", Badge: "login required", RequiresAuth: true},
	} {
		r.order = append(r.order, m.ID)
		r.modules[m.ID] = m
	}
	return r
}

func (r *Registry) Get(id ModuleID) (ModuleInfo, bool) {
	m, ok := r.modules[ModuleID(strings.ToLower(string(id)))]
	return m, ok
}

// Available reports whether a module can be entered given the auth state.
// chat and prompt are always open; rag and agent require authentication.
func (r *Registry) Available(id ModuleID, isAuthenticated bool) bool {
	m, ok := r.Get(id)
	if !ok {
		return false
	}
	return !m.RequiresAuth || isAuthenticated
}

func (r *Registry) List() []ModuleInfo {
	out := make([]ModuleInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modules[id])
	}
	return out
}
