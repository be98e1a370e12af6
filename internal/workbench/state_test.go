package workbench

import (
	"testing"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoUser() *identity.User {
	return &identity.User{ID: 1, Username: "admin", Role: identity.RoleAdmin}
}

func TestAvailability(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Available(ModuleChat, false))
	assert.True(t, r.Available(ModulePrompt, false))
	assert.False(t, r.Available(ModuleRAG, false))
	assert.False(t, r.Available(ModuleAgent, false))

	assert.True(t, r.Available(ModuleRAG, true))
	assert.True(t, r.Available(ModuleAgent, true))

	assert.False(t, r.Available(ModuleID("billing"), true))
}

func TestSwitchGatedModuleWithoutAuth(t *testing.T) {
	st := NewState(NewRegistry())

	err := st.SwitchModule(ModuleRAG)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	// module unchanged, prompt signalled exactly once
	assert.Equal(t, ModuleChat, st.ActiveModule())
	assert.Equal(t, uint64(1), st.AuthPromptSignals())
}

func TestSwitchAfterLogin(t *testing.T) {
	st := NewState(NewRegistry())
	st.Login(demoUser())

	require.NoError(t, st.SwitchModule(ModuleAgent))
	assert.Equal(t, ModuleAgent, st.ActiveModule())
	assert.Equal(t, uint64(0), st.AuthPromptSignals())
}

func TestLogoutFromGatedModuleFallsBackToChat(t *testing.T) {
	for _, target := range []ModuleID{ModuleRAG, ModuleAgent} {
		st := NewState(NewRegistry())
		st.Login(demoUser())
		require.NoError(t, st.SwitchModule(target))

		st.Logout()
		assert.Equal(t, ModuleChat, st.ActiveModule())
		assert.False(t, st.IsAuthenticated())
		assert.Nil(t, st.CurrentUser())
	}
}

func TestLogoutFromOpenModuleKeepsModule(t *testing.T) {
	st := NewState(NewRegistry())
	st.Login(demoUser())
	require.NoError(t, st.SwitchModule(ModulePrompt))

	st.Logout()
	assert.Equal(t, ModulePrompt, st.ActiveModule())
}

func TestSwitchUnknownModule(t *testing.T) {
	st := NewState(NewRegistry())
	st.Login(demoUser())

	err := st.SwitchModule(ModuleID("billing"))
	require.ErrorIs(t, err, ErrUnknownModule)
	assert.Equal(t, ModuleChat, st.ActiveModule())
}

func TestManagerSeparatesUsers(t *testing.T) {
	m := NewManager(NewRegistry())

	guest := m.StateFor(0)
	admin := m.StateFor(1)
	admin.Login(demoUser())

	require.NoError(t, admin.SwitchModule(ModuleRAG))
	assert.Equal(t, ModuleChat, guest.ActiveModule())
	assert.Same(t, admin, m.StateFor(1))
}
