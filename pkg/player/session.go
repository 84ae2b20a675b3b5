// Package player runs one reading session over a story graph: it linearizes
// the traversal for rendering and resolves choices, challenges and dice rolls.
package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/word-quest/pkg/dice"
	"github.com/jwebster45206/word-quest/pkg/state"
	"github.com/jwebster45206/word-quest/pkg/story"
)

var (
	ErrQuizNotActive   = errors.New("quiz is not the active quiz")
	ErrUnknownChoice   = errors.New("choice does not exist at this quiz")
	ErrNoOpenChallenge = errors.New("no challenge is open for this choice")
	ErrUnknownOption   = errors.New("answer is not one of the challenge options")
	ErrNoDiceRoll      = errors.New("current node has no dice roll to resolve")
)

// Persister durably stores the progress of a session. Implementations are
// expected to degrade to memory-only storage rather than fail the player.
type Persister interface {
	Save(ctx context.Context, worldID string, ps *state.ProgressState) error
}

// Status describes where the session stands.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
	StatusDeadEnd Status = "dead_end"
)

// Config holds the collaborators of a session. Zero values get defaults.
type Config struct {
	Store          Persister
	Roller         dice.Roller
	DiceFlourishes int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Session owns the progress of one player through one story.
// All methods are safe for concurrent use; resolutions are serialized so a
// quiz or roll commits exactly once.
type Session struct {
	mu       sync.Mutex
	worldID  string
	graph    *story.Graph
	progress *state.ProgressState
	quiz     quizState

	store      Persister
	roller     dice.Roller
	flourishes int
	logger     *slog.Logger
	now        func() time.Time

	deadEndReported bool
}

// Start begins a fresh session at the story's start node and persists it.
func Start(ctx context.Context, worldID string, g *story.Graph, cfg Config) *Session {
	s := newSession(worldID, g, cfg)
	s.progress = state.New(g.StartNodeID, s.now())
	s.logger.Info("Story session started", "world_id", worldID, "start_node", g.StartNodeID)
	s.persist(ctx)
	s.reportDeadEnd()
	return s
}

// Resume continues a previously saved session. The progress must already be
// consistent with the graph.
func Resume(worldID string, g *story.Graph, ps *state.ProgressState, cfg Config) *Session {
	s := newSession(worldID, g, cfg)
	s.progress = ps.Clone()
	s.logger.Debug("Story session resumed", "world_id", worldID, "current_node", ps.CurrentNodeID, "depth", len(ps.NodeStack))
	s.reportDeadEnd()
	return s
}

func newSession(worldID string, g *story.Graph, cfg Config) *Session {
	s := &Session{
		worldID:    worldID,
		graph:      g,
		store:      cfg.Store,
		roller:     cfg.Roller,
		flourishes: cfg.DiceFlourishes,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if s.roller == nil {
		s.roller = dice.NewRandomRoller(time.Now().UnixNano())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = s.logger.With("world_id", worldID)
	return s
}

// WorldID is the catalog id of the world being read.
func (s *Session) WorldID() string { return s.worldID }

// Graph is the story graph the session plays.
func (s *Session) Graph() *story.Graph { return s.graph }

// Progress returns a copy of the current progress.
func (s *Session) Progress() *state.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Clone()
}

// Parts linearizes the current progress.
func (s *Session) Parts() []Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Linearize(s.progress, s.graph)
}

// Status reports whether the story is playing, ended or stuck at a dead end.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() Status {
	_, id := s.progress.Tail()
	node, ok := s.graph.Node(id)
	switch {
	case !ok:
		return StatusDeadEnd
	case node.IsEnding && !node.HasChoices() && node.DiceRoll == nil:
		return StatusEnded
	case node.DeadEnd():
		return StatusDeadEnd
	default:
		return StatusPlaying
	}
}

// RollDice resolves the dice roll of the current node.
func (s *Session) RollDice(ctx context.Context) (dice.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, id := s.progress.Tail()
	node, ok := s.graph.Node(id)
	if !ok || node.DiceRoll == nil {
		return dice.Outcome{}, ErrNoDiceRoll
	}

	out := dice.Resolve(node.DiceRoll, s.roller, s.flourishes)
	s.logger.Info("Dice rolled",
		"node", id,
		"dice_type", node.DiceRoll.DiceType,
		"target", node.DiceRoll.TargetNumber,
		"result", out.Final,
		"success", out.Success)

	s.commit(ctx, state.Step{
		NextNodeID:  out.NextNodeID,
		ItemsGained: node.ItemsGained,
	})
	return out, nil
}

// commit applies a resolved step and writes it through to storage.
// Callers hold s.mu.
func (s *Session) commit(ctx context.Context, step state.Step) {
	s.progress.Advance(step, s.now())
	s.quiz = quizState{}
	s.persist(ctx)
	s.reportDeadEnd()
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.worldID, s.progress); err != nil {
		s.logger.Warn("Failed to persist progress, continuing in memory", "error", err)
	}
}

// reportDeadEnd logs an authoring problem once when the player is stuck.
func (s *Session) reportDeadEnd() {
	if s.deadEndReported || s.status() != StatusDeadEnd {
		return
	}
	s.deadEndReported = true
	_, id := s.progress.Tail()
	s.logger.Warn("Story reached a dead end: node has no choices, no dice roll and is not an ending", "node", id)
}
