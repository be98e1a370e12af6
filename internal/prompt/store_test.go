package prompt

import (
	"errors"
	"testing"
	"time"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededBuiltIns(t *testing.T) {
	s := NewStore()

	all := s.List()
	require.Len(t, all, 5)
	for _, tpl := range all {
		assert.True(t, tpl.IsBuiltIn)
	}
	assert.Len(t, s.Categories(), 6)
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore()

	created, err := s.Create(CreateInput{
		Name:     "SQL Helper",
		Content:  "You write SQL.",
		Category: "coding",
		Tags:     []string{"sql", " sql ", "db", ""},
	})
	require.NoError(t, err)
	assert.False(t, created.IsBuiltIn)
	assert.Equal(t, []string{"sql", "db"}, created.Tags)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SQL Helper", got.Name)
}

func TestCreateRequiresNameAndContent(t *testing.T) {
	s := NewStore()

	_, err := s.Create(CreateInput{Name: "  ", Content: "x"})
	require.True(t, common.IsValidationError(err))

	_, err = s.Create(CreateInput{Name: "x", Content: ""})
	require.True(t, common.IsValidationError(err))
	assert.Len(t, s.List(), 5)
}

func TestBuiltInGuards(t *testing.T) {
	s := NewStore()

	before := s.List()
	err := s.Delete("code-reviewer")
	require.ErrorIs(t, err, ErrBuiltIn)

	_, err = s.Update("code-reviewer", CreateInput{Name: "n", Content: "c"})
	require.ErrorIs(t, err, ErrBuiltIn)

	// store unchanged after refused operations
	after := s.List()
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.Equal(t, before[i].Content, after[i].Content)
	}
}

func TestUpdateAndDeleteUserTemplate(t *testing.T) {
	s := NewStore()

	created, err := s.Create(CreateInput{Name: "Draft", Content: "v1", Category: "writing"})
	require.NoError(t, err)

	updated, err := s.Update(created.ID, CreateInput{Name: "Draft", Content: "v2", Category: "writing"})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Content)

	require.NoError(t, s.Delete(created.ID))
	_, err = s.Get(created.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, s.Delete("missing"), common.ErrNotFound)
}

func TestFilter(t *testing.T) {
	s := NewStore()

	_, err := s.Create(CreateInput{Name: "Rust Mentor", Content: "c", Category: "coding", Tags: []string{"rust"}})
	require.NoError(t, err)

	// case-insensitive name match
	got := s.Filter("rust", CategoryAll)
	require.Len(t, got, 1)
	assert.Equal(t, "Rust Mentor", got[0].Name)

	// tag match
	got = s.Filter("RUST", "coding")
	require.Len(t, got, 1)

	// category narrows
	assert.Empty(t, s.Filter("rust", "writing"))
	assert.Len(t, s.Filter("", "coding"), 2) // built-in code reviewer + rust mentor

	// description match
	got = s.Filter("patient", CategoryAll)
	require.Len(t, got, 1)
	assert.Equal(t, "teacher", got[0].ID)
}

func TestExportOnlyUserTemplates(t *testing.T) {
	s := NewStore()

	_, err := s.Create(CreateInput{Name: "Mine", Content: "c", Category: "general"})
	require.NoError(t, err)

	raw, err := s.Export()
	require.NoError(t, err)

	fresh := NewStore()
	n, err := fresh.Import(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportExportRoundTrip(t *testing.T) {
	s := NewStore()

	inputs := []CreateInput{
		{Name: "One", Description: "first", Content: "c1", Category: "coding", Tags: []string{"a", "b"}},
		{Name: "Two", Description: "second", Content: "c2", Category: "writing", Tags: []string{"x"}},
	}
	for _, in := range inputs {
		_, err := s.Create(in)
		require.NoError(t, err)
	}

	raw, err := s.Export()
	require.NoError(t, err)

	fresh := NewStore()
	n, err := fresh.Import(raw)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	imported := fresh.Filter("", CategoryAll)[5:] // skip built-ins
	require.Len(t, imported, 2)
	for i, tpl := range imported {
		assert.Equal(t, inputs[i].Name, tpl.Name)
		assert.Equal(t, inputs[i].Content, tpl.Content)
		assert.Equal(t, inputs[i].Category, tpl.Category)
		assert.Equal(t, inputs[i].Tags, tpl.Tags)
		assert.False(t, tpl.IsBuiltIn)
	}
}

func TestImportMalformed(t *testing.T) {
	s := NewStore()

	_, err := s.Import([]byte("{not json"))
	var pe *ImportParseError
	require.True(t, errors.As(err, &pe))
	assert.Len(t, s.List(), 5)
}

func TestImportIgnoresUnknownFieldsAndForcesNonBuiltIn(t *testing.T) {
	s := NewStore()

	raw := []byte(`[{"name":"X","content":"c","category":"coding","tags":["t"],"is_built_in":true,"id":"sneaky","bogus":123}]`)
	n, err := s.Import(raw)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got := s.Filter("X", CategoryAll)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsBuiltIn)
	assert.NotEqual(t, "sneaky", got[0].ID)
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename(time.UnixMilli(1700000000000))
	assert.Equal(t, "prompts-export-1700000000000.json", name)
}
