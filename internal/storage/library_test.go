package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/word-quest/pkg/story"
)

const testCatalog = `{"worlds": [
  {"id": "bridge", "emoji": "🌉", "locked": false, "storyFile": "bridge.json"},
  {"id": "spelling-academy", "title": "Spelling Academy", "description": "Master the art of perfect spelling", "emoji": "✏️", "locked": true}
]}`

func writeDataDir(t *testing.T, catalog string, stories map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stories"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "worlds.json"), []byte(catalog), 0o644))
	for name, body := range stories {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stories", name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadLibrary(t *testing.T) {
	dir := writeDataDir(t, testCatalog, map[string]string{"bridge.json": bridgeStory})
	lib, err := LoadLibrary(dir, NewMemoryKV(), testLogger())
	require.NoError(t, err)

	worlds, err := lib.List(context.Background())
	require.NoError(t, err)
	require.Len(t, worlds, 2)
	assert.Equal(t, "bridge", worlds[0].ID)
	assert.Equal(t, "The Bridge", worlds[0].Title, "title falls back to the story title")
	assert.False(t, worlds[0].Locked)
	assert.True(t, worlds[1].Locked)
	assert.Nil(t, worlds[1].Story)
}

func TestLoadLibrary_Errors(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		stories map[string]string
	}{
		{"missing story file", testCatalog, nil},
		{"invalid story", testCatalog, map[string]string{"bridge.json": `{"title":"x","startNodeId":"a","nodes":{}}`}},
		{"unlocked without story", `{"worlds":[{"id":"x","locked":false}]}`, nil},
		{"duplicate id", `{"worlds":[{"id":"x","locked":true},{"id":"x","locked":true}]}`, nil},
		{"corrupt catalog", `{"worlds":`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeDataDir(t, tt.catalog, tt.stories)
			_, err := LoadLibrary(dir, NewMemoryKV(), testLogger())
			assert.Error(t, err)
		})
	}
}

func TestLibrary_Playable(t *testing.T) {
	ctx := context.Background()
	dir := writeDataDir(t, testCatalog, map[string]string{"bridge.json": bridgeStory})
	lib, err := LoadLibrary(dir, NewMemoryKV(), testLogger())
	require.NoError(t, err)

	w, err := lib.Playable(ctx, "bridge")
	require.NoError(t, err)
	assert.Equal(t, "start", w.Story.StartNodeID)

	_, err = lib.Playable(ctx, "spelling-academy")
	assert.ErrorIs(t, err, ErrWorldLocked)

	_, err = lib.Playable(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestLibrary_AddGenerated(t *testing.T) {
	ctx := context.Background()
	dir := writeDataDir(t, testCatalog, map[string]string{"bridge.json": bridgeStory})
	kv := NewMemoryKV()
	lib, err := LoadLibrary(dir, kv, testLogger())
	require.NoError(t, err)

	generated := `{
	  "title": "Generated Cave", "description": "From the generator", "startNodeId": "a",
	  "nodes": [
	    {"id": "a", "content": "Dark as hell.", "choices": [{"id": "go", "text": "Go", "nextNodeId": "b"}]},
	    {"id": "b", "content": "Light.", "isEnding": true}
	  ]
	}`
	w, softened, err := lib.AddGenerated(ctx, []byte(generated))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, softened)
	assert.True(t, w.Generated)
	assert.Equal(t, "Generated Cave", w.Title)

	worlds, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, worlds, 3)
	assert.Equal(t, w.ID, worlds[2].ID)

	// a fresh library over the same KV sees the stored story
	reloaded, err := LoadLibrary(dir, kv, testLogger())
	require.NoError(t, err)
	got, err := reloaded.Playable(ctx, w.ID)
	require.NoError(t, err)
	_, ok := got.Story.Node("b")
	assert.True(t, ok)
	a, _ := got.Story.Node("a")
	assert.Equal(t, "Dark as heck.", a.Content, "stored text is the softened text")
}

func TestLibrary_AddGeneratedRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	dir := writeDataDir(t, testCatalog, map[string]string{"bridge.json": bridgeStory})
	kv := NewMemoryKV()
	lib, err := LoadLibrary(dir, kv, testLogger())
	require.NoError(t, err)

	bad := `{"title":"Broken","startNodeId":"a","nodes":[
	  {"id":"a","content":"x","choices":[{"id":"go","text":"Go","nextNodeId":"nowhere"}]}
	]}`
	_, _, err = lib.AddGenerated(ctx, []byte(bad))
	var verr *story.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	assert.Len(t, verr.Errors, 2)
	assert.Equal(t, 0, kv.Len(), "invalid stories must not be stored")
}
