package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/word-quest/internal/logger"
	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/dice"
	"github.com/jwebster45206/word-quest/pkg/player"
)

const deviceProfileKey = "device:profile"

// game runs the player in-process against local storage.
type game struct {
	library    *storage.Library
	progress   *storage.ProgressStore
	store      *storage.ProfileStore
	profileID  uuid.UUID
	roller     dice.Roller
	flourishes int
	logger     *slog.Logger
}

func newGame(library *storage.Library, progress *storage.ProgressStore, profileID uuid.UUID, roller dice.Roller, flourishes int, log *slog.Logger) *game {
	return &game{
		library:    library,
		progress:   progress,
		store:      progress.Profile(profileID),
		profileID:  profileID,
		roller:     roller,
		flourishes: flourishes,
		logger:     logger.WithProfile(log, profileID.String()),
	}
}

// deviceProfile returns the profile id of this machine, creating one on
// first use.
func deviceProfile(ctx context.Context, kv storage.KV) (uuid.UUID, error) {
	raw, ok, err := kv.Get(ctx, deviceProfileKey)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read device profile: %w", err)
	}
	if ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
	}

	id := uuid.New()
	if err := kv.Set(ctx, deviceProfileKey, id.String()); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save device profile: %w", err)
	}
	return id, nil
}

func (g *game) worlds(ctx context.Context) ([]storage.World, error) {
	return g.library.List(ctx)
}

// resume picks up the saved session of this device, if any.
func (g *game) resume(ctx context.Context) (*player.Session, bool) {
	saved, ok := g.progress.Load(ctx, g.profileID, g.library.Resolver(ctx))
	if !ok {
		return nil, false
	}
	w, err := g.library.Playable(ctx, saved.WorldID)
	if err != nil {
		return nil, false
	}
	return player.Resume(w.ID, w.Story, saved.Progress, g.config()), true
}

// start begins the world from its start node, replacing any saved progress.
func (g *game) start(ctx context.Context, worldID string) (*player.Session, error) {
	w, err := g.library.Playable(ctx, worldID)
	if err != nil {
		return nil, err
	}
	return player.Start(ctx, w.ID, w.Story, g.config()), nil
}

func (g *game) config() player.Config {
	return player.Config{
		Store:          g.store,
		Roller:         g.roller,
		DiceFlourishes: g.flourishes,
		Logger:         g.logger,
	}
}
