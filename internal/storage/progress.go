package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/word-quest/pkg/player"
	"github.com/jwebster45206/word-quest/pkg/state"
	"github.com/jwebster45206/word-quest/pkg/story"
)

const progressVersion = 1

var ErrStorageUnavailable = errors.New("storage unavailable, progress kept in memory only")

type savedProgress struct {
	Version  int                  `json:"version"`
	WorldID  string               `json:"worldId"`
	Progress *state.ProgressState `json:"progress"`
}

// SavedSession is a validated saved session.
type SavedSession struct {
	WorldID  string
	Progress *state.ProgressState
}

// GraphResolver looks up the story graph of a world. ErrStoryNotFound and
// ErrWorldLocked mean the world is gone; any other error is treated as
// temporary.
type GraphResolver func(worldID string) (*story.Graph, error)

// ProgressStore reads and writes reading progress, one key per profile.
type ProgressStore struct {
	kv     KV
	logger *slog.Logger
}

func NewProgressStore(kv KV, logger *slog.Logger) *ProgressStore {
	return &ProgressStore{kv: kv, logger: logger}
}

func progressKey(profileID uuid.UUID) string {
	return "progress:" + profileID.String()
}

// Profile returns the write-through persister for one profile.
func (p *ProgressStore) Profile(profileID uuid.UUID) *ProfileStore {
	return &ProfileStore{
		store:     p,
		profileID: profileID,
		logger:    p.logger.With("profile_id", profileID),
	}
}

// Load returns the saved session of a profile. Any record that cannot be
// trusted against its story graph is removed and reported as absent.
func (p *ProgressStore) Load(ctx context.Context, profileID uuid.UUID, resolve GraphResolver) (*SavedSession, bool) {
	key := progressKey(profileID)
	logger := p.logger.With("profile_id", profileID)

	raw, found, err := p.kv.Get(ctx, key)
	if err != nil {
		logger.Warn("Failed to read saved progress", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	saved, reason, err := p.decode(raw, resolve)
	if err != nil {
		logger.Warn("Failed to resolve saved world, keeping progress", "error", err)
		return nil, false
	}
	if reason != "" {
		logger.Warn("Discarding saved progress", "reason", reason)
		if err := p.kv.Remove(ctx, key); err != nil {
			logger.Warn("Failed to remove discarded progress", "error", err)
		}
		return nil, false
	}
	return saved, true
}

// decode returns the session or the reason it was rejected. An error means
// the record could not be checked right now.
func (p *ProgressStore) decode(raw string, resolve GraphResolver) (*SavedSession, string, error) {
	var rec savedProgress
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Sprintf("corrupt record: %v", err), nil
	}
	if rec.Version != progressVersion {
		return nil, fmt.Sprintf("unsupported version %d", rec.Version), nil
	}
	if rec.Progress == nil {
		return nil, "record has no progress", nil
	}
	g, err := resolve(rec.WorldID)
	switch {
	case errors.Is(err, ErrStoryNotFound), errors.Is(err, ErrWorldLocked):
		return nil, fmt.Sprintf("unknown world '%s'", rec.WorldID), nil
	case err != nil:
		return nil, "", err
	}

	ps := rec.Progress
	if err := ps.Normalize(); err != nil {
		return nil, err.Error(), nil
	}
	for _, id := range ps.NodeStack {
		if _, ok := g.Node(id); !ok {
			return nil, fmt.Sprintf("stale node reference '%s'", id), nil
		}
	}
	if dropped := sanitizeAnswers(ps, g); dropped > 0 {
		p.logger.Debug("Dropped inconsistent quiz answers", "world_id", rec.WorldID, "dropped", dropped)
	}
	return &SavedSession{WorldID: rec.WorldID, Progress: ps}, "", nil
}

// sanitizeAnswers keeps only answers that name an existing choice of a quiz
// the reader has already moved past, and whose target is the next node on
// the stack.
func sanitizeAnswers(ps *state.ProgressState, g *story.Graph) int {
	tail := len(ps.NodeStack) - 1
	quizzes := make(map[int]player.Part)
	for _, part := range player.Linearize(ps, g) {
		if part.Kind == player.PartQuiz {
			quizzes[part.QuizIndex] = part
		}
	}

	kept := make([]state.QuizAnswer, 0, len(ps.QuizAnswers))
	for _, a := range ps.QuizAnswers {
		part, ok := quizzes[a.QuizIndex]
		if !ok || part.Position == tail {
			continue
		}
		i := slices.IndexFunc(part.Choices, func(c story.Choice) bool { return c.ID == a.ChoiceID })
		if i < 0 || part.Choices[i].NextNodeID != ps.NodeStack[part.Position+1] {
			continue
		}
		kept = append(kept, a)
	}
	dropped := len(ps.QuizAnswers) - len(kept)
	ps.QuizAnswers = kept
	return dropped
}

func (p *ProgressStore) save(ctx context.Context, profileID uuid.UUID, worldID string, ps *state.ProgressState) error {
	data, err := json.Marshal(savedProgress{Version: progressVersion, WorldID: worldID, Progress: ps})
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := p.kv.Set(ctx, progressKey(profileID), string(data)); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Clear removes a profile's saved progress.
func (p *ProgressStore) Clear(ctx context.Context, profileID uuid.UUID) error {
	if err := p.kv.Remove(ctx, progressKey(profileID)); err != nil {
		return fmt.Errorf("failed to clear progress: %w", err)
	}
	return nil
}

// ProfileStore persists one profile's progress. After the first failed write
// it stops touching storage for the rest of its life and keeps the latest
// progress in memory.
type ProfileStore struct {
	store     *ProgressStore
	profileID uuid.UUID
	logger    *slog.Logger

	mu         sync.Mutex
	memoryOnly bool
	latest     *state.ProgressState
}

var _ player.Persister = (*ProfileStore)(nil)

func (s *ProfileStore) ProfileID() uuid.UUID { return s.profileID }

// Save writes progress through to storage. Only the write that switches the
// store to memory-only mode returns an error.
func (s *ProfileStore) Save(ctx context.Context, worldID string, ps *state.ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = ps.Clone()
	if s.memoryOnly {
		s.logger.Debug("Progress kept in memory", "world_id", worldID)
		return nil
	}
	if err := s.store.save(ctx, s.profileID, worldID, ps); err != nil {
		s.memoryOnly = true
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// MemoryOnly reports whether storage has been given up on.
func (s *ProfileStore) MemoryOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoryOnly
}

// Latest returns the most recently saved progress, even when memory-only.
func (s *ProfileStore) Latest() *state.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.Clone()
}
