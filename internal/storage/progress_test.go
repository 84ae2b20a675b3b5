package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/word-quest/pkg/state"
	"github.com/jwebster45206/word-quest/pkg/story"
)

const bridgeStory = `{
  "title": "The Bridge",
  "description": "Test",
  "startNodeId": "start",
  "nodes": {
    "start": {"id": "start", "content": "A river.",
      "choices": [
        {"id": "swim", "text": "Swim", "nextNodeId": "shore"},
        {"id": "wait", "text": "Wait", "nextNodeId": "start"}
      ]},
    "shore": {"id": "shore", "content": "Dry land.", "itemsGained": ["pebble"],
      "choices": [{"id": "rest", "text": "Rest", "nextNodeId": "end"}]},
    "end": {"id": "end", "content": "Home.", "isEnding": true}
  }
}`

func bridgeGraph(t *testing.T) *story.Graph {
	t.Helper()
	g, err := story.Parse([]byte(bridgeStory))
	require.NoError(t, err)
	return g
}

func resolverFor(worldID string, g *story.Graph) GraphResolver {
	return func(id string) (*story.Graph, error) {
		if id != worldID {
			return nil, ErrStoryNotFound
		}
		return g, nil
	}
}

func TestProgressStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()
	g := bridgeGraph(t)

	ps := state.New("start", time.UnixMilli(1700000000000))
	ps.Advance(state.Step{NextNodeID: "shore", Answer: &state.QuizAnswer{QuizIndex: 0, ChoiceID: "swim"}}, time.UnixMilli(1700000001000))

	require.NoError(t, store.Profile(profileID).Save(ctx, "bridge", ps))

	raw, found, err := kv.Get(ctx, "progress:"+profileID.String())
	require.NoError(t, err)
	require.True(t, found)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.EqualValues(t, 1, rec["version"])
	assert.Equal(t, "bridge", rec["worldId"])

	saved, ok := store.Load(ctx, profileID, resolverFor("bridge", g))
	require.True(t, ok)
	assert.Equal(t, "bridge", saved.WorldID)
	assert.Equal(t, []string{"start", "shore"}, saved.Progress.NodeStack)
	assert.Equal(t, "shore", saved.Progress.CurrentNodeID)
	assert.Equal(t, ps.QuizAnswers, saved.Progress.QuizAnswers)
	assert.Equal(t, int64(1700000001000), saved.Progress.LastUpdated.UnixMilli())
}

func TestProgressStore_LoadMissing(t *testing.T) {
	store := NewProgressStore(NewMemoryKV(), testLogger())
	_, ok := store.Load(context.Background(), uuid.New(), resolverFor("bridge", bridgeGraph(t)))
	assert.False(t, ok)
}

func TestProgressStore_DiscardsUntrustedRecords(t *testing.T) {
	g := bridgeGraph(t)

	tests := []struct {
		name   string
		record string
	}{
		{"corrupt json", `{"version":1,`},
		{"unknown version", `{"version":7,"worldId":"bridge","progress":{"nodeStack":["start"]}}`},
		{"unknown world", `{"version":1,"worldId":"atlantis","progress":{"nodeStack":["start"]}}`},
		{"missing progress", `{"version":1,"worldId":"bridge"}`},
		{"empty stack", `{"version":1,"worldId":"bridge","progress":{"nodeStack":[]}}`},
		{"stale node", `{"version":1,"worldId":"bridge","progress":{"nodeStack":["start","cave"]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			store := NewProgressStore(kv, testLogger())
			profileID := uuid.New()
			require.NoError(t, kv.Set(ctx, progressKey(profileID), tt.record))

			_, ok := store.Load(ctx, profileID, resolverFor("bridge", g))
			assert.False(t, ok)
			_, found, _ := kv.Get(ctx, progressKey(profileID))
			assert.False(t, found, "discarded record should be removed")
		})
	}
}

func TestProgressStore_SanitizesAnswers(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()

	record := `{"version":1,"worldId":"bridge","progress":{
	  "currentNodeId":"start",
	  "nodeStack":["start","start","shore"],
	  "inventory":null,
	  "quizAnswers":[
	    {"quizIndex":0,"choiceId":"wait"},
	    {"quizIndex":0,"choiceId":"swim"},
	    {"quizIndex":1,"choiceId":"rest"},
	    {"quizIndex":1,"choiceId":"swim"},
	    {"quizIndex":2,"choiceId":"rest"},
	    {"quizIndex":9,"choiceId":"swim"}
	  ]}}`
	require.NoError(t, kv.Set(ctx, progressKey(profileID), record))

	saved, ok := store.Load(ctx, profileID, resolverFor("bridge", bridgeGraph(t)))
	require.True(t, ok)

	ps := saved.Progress
	assert.Equal(t, "shore", ps.CurrentNodeID)
	assert.Equal(t, []string{"start", "shore"}, ps.VisitedNodes)
	assert.NotNil(t, ps.Inventory)
	// first answer per index wins, an unknown choice is dropped, the tail quiz
	// and an out-of-range index are dropped
	assert.Equal(t, []state.QuizAnswer{{QuizIndex: 0, ChoiceID: "wait"}}, ps.QuizAnswers)
}

func TestProfileStore_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewProgressStore(kv, testLogger())
	profile := store.Profile(uuid.New())

	ps := state.New("start", time.Now())
	require.NoError(t, profile.Save(ctx, "bridge", ps))
	assert.False(t, profile.MemoryOnly())

	kv.SetFailure(errors.New("quota exceeded"))
	ps.Advance(state.Step{NextNodeID: "shore"}, time.Now())
	err := profile.Save(ctx, "bridge", ps)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.True(t, profile.MemoryOnly())

	kv.SetFailure(nil)
	ps.Advance(state.Step{NextNodeID: "end"}, time.Now())
	assert.NoError(t, profile.Save(ctx, "bridge", ps))
	assert.Equal(t, []string{"start", "shore", "end"}, profile.Latest().NodeStack)

	raw, _, _ := kv.Get(ctx, progressKey(profile.ProfileID()))
	assert.NotContains(t, raw, "end", "memory-only store must not write again")
}

func TestProgressStore_Clear(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()

	require.NoError(t, store.Profile(profileID).Save(ctx, "bridge", state.New("start", time.Now())))
	require.NoError(t, store.Clear(ctx, profileID))
	_, ok := store.Load(ctx, profileID, resolverFor("bridge", bridgeGraph(t)))
	assert.False(t, ok)
}

func TestProgressStore_Redis(t *testing.T) {
	kv, mr := setupTestRedis(t, 30*24*time.Hour)
	defer mr.Close()
	defer kv.Close()

	ctx := context.Background()
	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()
	require.NoError(t, store.Profile(profileID).Save(ctx, "bridge", state.New("start", time.Now())))

	assert.True(t, mr.Exists(progressKey(profileID)))
	saved, ok := store.Load(ctx, profileID, resolverFor("bridge", bridgeGraph(t)))
	require.True(t, ok)
	assert.Equal(t, []string{"start"}, saved.Progress.NodeStack)
}

// storyOutageKV fails reads of generated stories while progress stays readable.
type storyOutageKV struct {
	*MemoryKV
	down bool
}

func (k *storyOutageKV) Get(ctx context.Context, key string) (string, bool, error) {
	if k.down && strings.HasPrefix(key, "story:") {
		return "", false, errors.New("connection refused")
	}
	return k.MemoryKV.Get(ctx, key)
}

func TestProgressStore_KeepsProgressWhenWorldUnreadable(t *testing.T) {
	ctx := context.Background()
	kv := &storyOutageKV{MemoryKV: NewMemoryKV()}
	dir := writeDataDir(t, testCatalog, map[string]string{"bridge.json": bridgeStory})
	lib, err := LoadLibrary(dir, kv, testLogger())
	require.NoError(t, err)

	w, _, err := lib.AddGenerated(ctx, []byte(`{"title": "Cave", "startNodeId": "a", "nodes": [
	  {"id": "a", "content": "Dark.", "choices": [{"id": "go", "text": "Go", "nextNodeId": "b"}]},
	  {"id": "b", "content": "Light.", "isEnding": true}]}`))
	require.NoError(t, err)

	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()
	require.NoError(t, store.Profile(profileID).Save(ctx, w.ID, state.New("a", time.Now())))

	kv.down = true
	_, ok := store.Load(ctx, profileID, lib.Resolver(ctx))
	assert.False(t, ok)
	_, found, _ := kv.Get(ctx, progressKey(profileID))
	assert.True(t, found, "a temporary outage must not discard progress")

	kv.down = false
	saved, ok := store.Load(ctx, profileID, lib.Resolver(ctx))
	require.True(t, ok)
	assert.Equal(t, w.ID, saved.WorldID)
}

func TestProgressStore_DiscardsLockedWorld(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	dir := writeDataDir(t, testCatalog, map[string]string{"bridge.json": bridgeStory})
	lib, err := LoadLibrary(dir, kv, testLogger())
	require.NoError(t, err)

	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()
	require.NoError(t, store.Profile(profileID).Save(ctx, "spelling-academy", state.New("start", time.Now())))

	_, ok := store.Load(ctx, profileID, lib.Resolver(ctx))
	assert.False(t, ok)
	_, found, _ := kv.Get(ctx, progressKey(profileID))
	assert.False(t, found)
}

func TestProgressStore_DropsAnswersOffTheStack(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewProgressStore(kv, testLogger())
	profileID := uuid.New()

	// "wait" leads back to start, but the stack moved on to shore
	record := `{"version":1,"worldId":"bridge","progress":{
	  "nodeStack":["start","shore","end"],
	  "quizAnswers":[
	    {"quizIndex":0,"choiceId":"wait"},
	    {"quizIndex":1,"choiceId":"rest"}
	  ]}}`
	require.NoError(t, kv.Set(ctx, progressKey(profileID), record))

	saved, ok := store.Load(ctx, profileID, resolverFor("bridge", bridgeGraph(t)))
	require.True(t, ok)
	assert.Equal(t, []state.QuizAnswer{{QuizIndex: 1, ChoiceID: "rest"}}, saved.Progress.QuizAnswers)
}
