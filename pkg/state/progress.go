package state

import (
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// QuizAnswer records which choice resolved the quiz at a linearization index.
type QuizAnswer struct {
	QuizIndex int    `json:"quizIndex"`
	ChoiceID  string `json:"choiceId"`
}

// ProgressState is the mutable state of one reading session.
// NodeStack is the authoritative history; VisitedNodes is derived from it.
type ProgressState struct {
	CurrentNodeID string       `json:"currentNodeId"`
	NodeStack     []string     `json:"nodeStack"`
	Inventory     []string     `json:"inventory"`
	VisitedNodes  []string     `json:"visitedNodes"`
	QuizAnswers   []QuizAnswer `json:"quizAnswers"`
	LastUpdated   time.Time    `json:"-"`
}

// New starts a fresh session positioned at the start node.
func New(startNodeID string, now time.Time) *ProgressState {
	return &ProgressState{
		CurrentNodeID: startNodeID,
		NodeStack:     []string{startNodeID},
		Inventory:     make([]string, 0),
		VisitedNodes:  []string{startNodeID},
		QuizAnswers:   make([]QuizAnswer, 0),
		LastUpdated:   now,
	}
}

// Step is one committed move through the story.
type Step struct {
	NextNodeID  string
	ItemsGained []string
	Answer      *QuizAnswer // nil for dice rolls
}

// Advance commits a step. It is the only mutator used by the engines.
// Items are appended as-is; a node granting an item twice grants it twice.
func (ps *ProgressState) Advance(step Step, now time.Time) {
	if step.Answer != nil {
		ps.QuizAnswers = append(ps.QuizAnswers, *step.Answer)
	}
	ps.Inventory = append(ps.Inventory, step.ItemsGained...)
	ps.NodeStack = append(ps.NodeStack, step.NextNodeID)
	if !slices.Contains(ps.VisitedNodes, step.NextNodeID) {
		ps.VisitedNodes = append(ps.VisitedNodes, step.NextNodeID)
	}
	ps.CurrentNodeID = step.NextNodeID
	ps.LastUpdated = now
}

// Tail returns the position and id of the most recently visited node.
func (ps *ProgressState) Tail() (int, string) {
	if len(ps.NodeStack) == 0 {
		return -1, ""
	}
	last := len(ps.NodeStack) - 1
	return last, ps.NodeStack[last]
}

// HasItem reports whether the inventory holds item.
func (ps *ProgressState) HasItem(item string) bool {
	return slices.Contains(ps.Inventory, item)
}

// Answer returns the recorded answer for a quiz index.
func (ps *ProgressState) Answer(quizIndex int) (QuizAnswer, bool) {
	for _, a := range ps.QuizAnswers {
		if a.QuizIndex == quizIndex {
			return a, true
		}
	}
	return QuizAnswer{}, false
}

// Clone returns a deep copy.
func (ps *ProgressState) Clone() *ProgressState {
	if ps == nil {
		return nil
	}
	return &ProgressState{
		CurrentNodeID: ps.CurrentNodeID,
		NodeStack:     slices.Clone(ps.NodeStack),
		Inventory:     slices.Clone(ps.Inventory),
		VisitedNodes:  slices.Clone(ps.VisitedNodes),
		QuizAnswers:   slices.Clone(ps.QuizAnswers),
		LastUpdated:   ps.LastUpdated,
	}
}

var ErrEmptyHistory = errors.New("progress has an empty node stack")

// Normalize rebuilds derived fields after loading: the current node is the
// stack tail, visited nodes are the distinct stack entries, and only the
// first answer per quiz index is kept.
func (ps *ProgressState) Normalize() error {
	if len(ps.NodeStack) == 0 {
		return ErrEmptyHistory
	}
	_, ps.CurrentNodeID = ps.Tail()

	visited := make([]string, 0, len(ps.NodeStack))
	for _, id := range ps.NodeStack {
		if !slices.Contains(visited, id) {
			visited = append(visited, id)
		}
	}
	ps.VisitedNodes = visited

	answers := make([]QuizAnswer, 0, len(ps.QuizAnswers))
	seen := make(map[int]bool, len(ps.QuizAnswers))
	for _, a := range ps.QuizAnswers {
		if seen[a.QuizIndex] {
			continue
		}
		seen[a.QuizIndex] = true
		answers = append(answers, a)
	}
	ps.QuizAnswers = answers

	if ps.Inventory == nil {
		ps.Inventory = make([]string, 0)
	}
	return nil
}

type progressJSON ProgressState

// MarshalJSON stores LastUpdated as Unix milliseconds.
func (ps ProgressState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		progressJSON
		LastUpdated int64 `json:"lastUpdated"`
	}{progressJSON(ps), ps.LastUpdated.UnixMilli()})
}

func (ps *ProgressState) UnmarshalJSON(data []byte) error {
	var aux struct {
		*progressJSON
		LastUpdated int64 `json:"lastUpdated"`
	}
	aux.progressJSON = (*progressJSON)(ps)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ps.LastUpdated = time.UnixMilli(aux.LastUpdated)
	return nil
}
