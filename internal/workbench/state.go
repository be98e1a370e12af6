package workbench

import (
	"errors"
	"sync"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/identity"
)

var ErrUnknownModule = errors.New("unknown module")

// State is one user's session state: the authenticated-user slot, the active
// module, and the auth-prompt signal counter. All methods are safe for
// concurrent use; the invariant user-present == isAuthenticated holds at all
// times because login/logout are the only writers of both.
type State struct {
	mu           sync.Mutex
	registry     *Registry
	user         *identity.User
	activeModule ModuleID
	authPrompts  uint64
}

func NewState(registry *Registry) *State {
	return &State{registry: registry, activeModule: ModuleChat}
}

func (s *State) Login(u *identity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// Logout clears the user slot. Leaving an auth-gated module logged out is not
// representable, so the active module falls back to chat.
func (s *State) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	if s.activeModule == ModuleRAG || s.activeModule == ModuleAgent {
		s.activeModule = ModuleChat
	}
}

func (s *State) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

func (s *State) CurrentUser() *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *State) ActiveModule() ModuleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeModule
}

// SwitchModule activates target. A gated module with no authenticated user is
// refused: the active module stays put and the auth-prompt signal fires
// exactly once for the refusal.
func (s *State) SwitchModule(target ModuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.registry.Get(target)
	if !ok {
		return ErrUnknownModule
	}
	if info.RequiresAuth && s.user == nil {
		s.authPrompts++
		return common.ErrNotAuthenticated
	}
	s.activeModule = info.ID
	return nil
}

// AuthPromptSignals returns how many times a refused switch asked for the
// auth prompt.
func (s *State) AuthPromptSignals() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authPrompts
}

// Manager hands out one State per user id. Guests share the zero id.
type Manager struct {
	mu       sync.Mutex
	registry *Registry
	states   map[uint64]*State
}

func NewManager(registry *Registry) *Manager {
	return &Manager{registry: registry, states: make(map[uint64]*State)}
}

func (m *Manager) StateFor(userID uint64) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		st = NewState(m.registry)
		m.states[userID] = st
	}
	return st
}

func (m *Manager) Registry() *Registry { return m.registry }
