package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/story"
)

const maxStoryBytes = 1 << 20

type StoriesHandler struct {
	library *storage.Library
	logger  *slog.Logger
}

func NewStoriesHandler(library *storage.Library, logger *slog.Logger) *StoriesHandler {
	return &StoriesHandler{
		library: library,
		logger:  logger,
	}
}

type StoriesResponse struct {
	Worlds []storage.World `json:"worlds"`
}

type CreateStoryResponse struct {
	World    storage.World `json:"world"`
	Warnings []string      `json:"warnings,omitempty"`
	Nodes    int           `json:"nodes"`
}

// ServeHTTP handles HTTP requests for the story catalog
// Routes:
// GET /v1/stories  - List worlds
// POST /v1/stories - Submit a generated story graph
func (h *StoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		h.logger.Warn("Method not allowed for stories endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
	}
}

func (h *StoriesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.library.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list worlds", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list worlds")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StoriesResponse{Worlds: worlds})
}

func (h *StoriesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStoryBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "Story document is too large")
		return
	}

	world, softened, err := h.library.AddGenerated(r.Context(), body)
	if err != nil {
		var verr *story.ValidationError
		if errors.As(err, &verr) {
			h.logger.Info("Rejected generated story", "errors", len(verr.Errors))
			writeError(w, h.logger, http.StatusUnprocessableEntity, "Story graph is invalid", verr.Errors...)
			return
		}
		if errors.Is(err, story.ErrMalformed) {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid story document", err.Error())
			return
		}
		h.logger.Error("Failed to store generated story", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to store story")
		return
	}

	warnings := world.Story.Lint()
	for _, id := range softened {
		warnings = append(warnings, fmt.Sprintf("node '%s' wording was softened for young readers", id))
	}

	writeJSON(w, h.logger, http.StatusCreated, CreateStoryResponse{
		World:    *world,
		Warnings: warnings,
		Nodes:    len(world.Story.Nodes),
	})
}
