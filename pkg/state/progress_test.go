package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	ps := New("start", now)

	assert.Equal(t, "start", ps.CurrentNodeID)
	assert.Equal(t, []string{"start"}, ps.NodeStack)
	assert.Equal(t, []string{"start"}, ps.VisitedNodes)
	assert.Empty(t, ps.Inventory)
	assert.Empty(t, ps.QuizAnswers)
	assert.Equal(t, now, ps.LastUpdated)
}

func TestAdvance_AppendsOnly(t *testing.T) {
	ps := New("start", time.Now())
	ps.Advance(Step{
		NextNodeID:  "cave",
		ItemsGained: []string{"Torch"},
		Answer:      &QuizAnswer{QuizIndex: 0, ChoiceID: "enter"},
	}, time.Now())

	before := ps.Clone()
	later := time.Now().Add(time.Second)
	ps.Advance(Step{NextNodeID: "start", ItemsGained: []string{"Torch"}}, later)

	require.Len(t, ps.NodeStack, len(before.NodeStack)+1)
	assert.Equal(t, before.NodeStack, ps.NodeStack[:len(before.NodeStack)], "prior history must not change")
	assert.Equal(t, "start", ps.CurrentNodeID)
	assert.Equal(t, []string{"Torch", "Torch"}, ps.Inventory, "duplicate items are kept")
	assert.Equal(t, []string{"start", "cave"}, ps.VisitedNodes, "visited nodes are distinct")
	assert.Equal(t, before.QuizAnswers, ps.QuizAnswers, "dice steps record no answer")
	assert.Equal(t, later, ps.LastUpdated)
}

func TestHasItemAndAnswer(t *testing.T) {
	ps := New("start", time.Now())
	assert.False(t, ps.HasItem("key"))

	ps.Advance(Step{NextNodeID: "hall", ItemsGained: []string{"key"}, Answer: &QuizAnswer{QuizIndex: 0, ChoiceID: "left"}}, time.Now())
	assert.True(t, ps.HasItem("key"))

	a, ok := ps.Answer(0)
	require.True(t, ok)
	assert.Equal(t, "left", a.ChoiceID)

	_, ok = ps.Answer(1)
	assert.False(t, ok)
}

func TestClone_IsDeep(t *testing.T) {
	ps := New("start", time.Now())
	c := ps.Clone()
	c.Advance(Step{NextNodeID: "x", ItemsGained: []string{"y"}}, time.Now())

	assert.Equal(t, []string{"start"}, ps.NodeStack)
	assert.Empty(t, ps.Inventory)
}

func TestNormalize(t *testing.T) {
	ps := &ProgressState{
		CurrentNodeID: "wrong",
		NodeStack:     []string{"start", "hall", "start", "cellar"},
		QuizAnswers: []QuizAnswer{
			{QuizIndex: 0, ChoiceID: "a"},
			{QuizIndex: 0, ChoiceID: "b"},
			{QuizIndex: 1, ChoiceID: "c"},
		},
	}
	require.NoError(t, ps.Normalize())

	assert.Equal(t, "cellar", ps.CurrentNodeID)
	assert.Equal(t, []string{"start", "hall", "cellar"}, ps.VisitedNodes)
	assert.Equal(t, []QuizAnswer{{0, "a"}, {1, "c"}}, ps.QuizAnswers)
	assert.NotNil(t, ps.Inventory)

	empty := &ProgressState{}
	assert.ErrorIs(t, empty.Normalize(), ErrEmptyHistory)
}

func TestProgressState_JSON(t *testing.T) {
	ps := New("start", time.UnixMilli(1712345678901))
	ps.Advance(Step{NextNodeID: "hall", ItemsGained: []string{"Ancient Map"}, Answer: &QuizAnswer{QuizIndex: 0, ChoiceID: "go"}}, time.UnixMilli(1712345679000))

	data, err := json.Marshal(ps)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1712345679000), raw["lastUpdated"])
	assert.Equal(t, "hall", raw["currentNodeId"])

	var loaded ProgressState
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, ps.NodeStack, loaded.NodeStack)
	assert.Equal(t, ps.Inventory, loaded.Inventory)
	assert.Equal(t, ps.QuizAnswers, loaded.QuizAnswers)
	assert.True(t, ps.LastUpdated.Equal(loaded.LastUpdated))
}
