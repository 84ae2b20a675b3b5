package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/word-quest/pkg/story"
	"github.com/jwebster45206/word-quest/pkg/textfilter"
)

var (
	ErrStoryNotFound = errors.New("story not found")
	ErrWorldLocked   = errors.New("world is locked")
)

const generatedIndexKey = "story:index"

// World is one playable story in the catalog.
type World struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Emoji       string       `json:"emoji,omitempty"`
	CoverColor  string       `json:"coverColor,omitempty"`
	Locked      bool         `json:"locked"`
	Generated   bool         `json:"generated,omitempty"`
	Story       *story.Graph `json:"-"`
}

type catalogFile struct {
	Worlds []catalogEntry `json:"worlds"`
}

type catalogEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	CoverColor  string `json:"coverColor"`
	Locked      bool   `json:"locked"`
	StoryFile   string `json:"storyFile"` // relative to the stories directory
}

// Library serves the built-in catalog from the data directory and the
// generated stories kept in the KV.
type Library struct {
	kv      KV
	logger  *slog.Logger
	filter  *textfilter.ProfanityFilter
	builtin []*World

	mu sync.Mutex // serializes index updates
}

// LoadLibrary reads DATA_DIR/worlds.json and the story files it references.
// Unlocked worlds must have a valid story.
func LoadLibrary(dataDir string, kv KV, logger *slog.Logger) (*Library, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	catalogPath := filepath.Join(dataDir, "worlds.json")
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read world catalog: %w", err)
	}
	var catalog catalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse world catalog %s: %w", catalogPath, err)
	}

	l := &Library{kv: kv, logger: logger, filter: textfilter.NewProfanityFilter()}
	seen := make(map[string]bool)
	for _, entry := range catalog.Worlds {
		if entry.ID == "" {
			return nil, fmt.Errorf("world catalog entry has no id")
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("duplicate world id '%s'", entry.ID)
		}
		seen[entry.ID] = true

		w := &World{
			ID:          entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			Emoji:       entry.Emoji,
			CoverColor:  entry.CoverColor,
			Locked:      entry.Locked,
		}
		if entry.StoryFile != "" {
			path := filepath.Join(dataDir, "stories", entry.StoryFile)
			g, err := loadStoryFile(path)
			if err != nil {
				return nil, fmt.Errorf("world '%s': %w", entry.ID, err)
			}
			w.Story = g
			if w.Title == "" {
				w.Title = g.Title
			}
			if w.Description == "" {
				w.Description = g.Description
			}
		}
		if !w.Locked && w.Story == nil {
			return nil, fmt.Errorf("world '%s' is unlocked but has no story", entry.ID)
		}
		l.builtin = append(l.builtin, w)
	}

	logger.Info("World catalog loaded", "path", catalogPath, "worlds", len(l.builtin))
	return l, nil
}

func loadStoryFile(path string) (*story.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, path)
		}
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}
	g, err := story.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("story file %s: %w", filepath.Base(path), err)
	}
	return g, nil
}

func generatedKey(id string) string {
	return "story:" + id
}

// List returns the built-in worlds in catalog order, then generated ones.
func (l *Library) List(ctx context.Context) ([]World, error) {
	worlds := make([]World, 0, len(l.builtin))
	for _, w := range l.builtin {
		worlds = append(worlds, *w)
	}

	ids, err := l.generatedIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		w, err := l.loadGenerated(ctx, id)
		if err != nil {
			l.logger.Warn("Skipping unreadable generated story", "world_id", id, "error", err)
			continue
		}
		worlds = append(worlds, *w)
	}
	return worlds, nil
}

// Get returns a world by id, including locked worlds.
func (l *Library) Get(ctx context.Context, id string) (*World, error) {
	for _, w := range l.builtin {
		if w.ID == id {
			return w, nil
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrStoryNotFound
	}
	return l.loadGenerated(ctx, id)
}

// Playable returns the story of an unlocked world.
func (l *Library) Playable(ctx context.Context, id string) (*World, error) {
	w, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Locked || w.Story == nil {
		return nil, ErrWorldLocked
	}
	return w, nil
}

// Resolver looks up playable story graphs for ProgressStore.Load.
func (l *Library) Resolver(ctx context.Context) GraphResolver {
	return func(worldID string) (*story.Graph, error) {
		w, err := l.Playable(ctx, worldID)
		if err != nil {
			return nil, err
		}
		return w.Story, nil
	}
}

// AddGenerated validates a generated story document and stores it. A document
// that breaks the graph rules returns a *story.ValidationError and is not
// stored. Unsuitable wording is softened before storing; the ids of the
// nodes that were rewritten are returned.
func (l *Library) AddGenerated(ctx context.Context, data []byte) (*World, []string, error) {
	g, err := story.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	softened := l.filter.FilterGraph(g)
	if len(softened) > 0 {
		l.logger.Info("Softened wording in generated story", "title", g.Title, "nodes", softened)
	}
	canonical, err := json.Marshal(g)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal story: %w", err)
	}

	id := uuid.New().String()
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Set(ctx, generatedKey(id), string(canonical)); err != nil {
		return nil, nil, fmt.Errorf("failed to store generated story: %w", err)
	}
	ids, err := l.generatedIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	ids = append(ids, id)
	index, err := json.Marshal(ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal story index: %w", err)
	}
	if err := l.kv.Set(ctx, generatedIndexKey, string(index)); err != nil {
		return nil, nil, fmt.Errorf("failed to update story index: %w", err)
	}

	l.logger.Info("Generated story stored", "world_id", id, "title", g.Title, "nodes", len(g.Nodes))
	return generatedWorld(id, g), softened, nil
}

func (l *Library) generatedIDs(ctx context.Context) ([]string, error) {
	raw, found, err := l.kv.Get(ctx, generatedIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read story index: %w", err)
	}
	if !found {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to parse story index: %w", err)
	}
	return ids, nil
}

func (l *Library) loadGenerated(ctx context.Context, id string) (*World, error) {
	raw, found, err := l.kv.Get(ctx, generatedKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load generated story: %w", err)
	}
	if !found {
		return nil, ErrStoryNotFound
	}
	g, err := story.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("stored story '%s' is invalid: %w", id, err)
	}
	return generatedWorld(id, g), nil
}

func generatedWorld(id string, g *story.Graph) *World {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		title = "Untitled adventure"
	}
	return &World{
		ID:          id,
		Title:       title,
		Description: g.Description,
		Emoji:       "✨",
		Generated:   true,
		Story:       g,
	}
}
