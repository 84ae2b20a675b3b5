package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/word-quest/internal/logger"
	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/dice"
	"github.com/jwebster45206/word-quest/pkg/player"
	"github.com/jwebster45206/word-quest/pkg/state"
)

var errSessionNotFound = errors.New("no saved session for this profile")

type activeSession struct {
	session *player.Session
	store   *storage.ProfileStore
}

// SessionHandler serves reading sessions keyed by profile id. Live sessions
// are kept in memory and resumed from storage on first access.
type SessionHandler struct {
	library    *storage.Library
	progress   *storage.ProgressStore
	roller     dice.Roller
	flourishes int
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*activeSession
}

func NewSessionHandler(library *storage.Library, progress *storage.ProgressStore, roller dice.Roller, flourishes int, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		library:    library,
		progress:   progress,
		roller:     roller,
		flourishes: flourishes,
		logger:     logger,
		sessions:   make(map[uuid.UUID]*activeSession),
	}
}

type StartSessionRequest struct {
	WorldID   string `json:"worldId"`
	ProfileID string `json:"profileId,omitempty"` // a new profile is created when empty
}

type ChoiceRequest struct {
	QuizIndex int    `json:"quizIndex"`
	ChoiceID  string `json:"choiceId"`
}

type AnswerRequest struct {
	ChoiceID string `json:"choiceId"`
	Option   string `json:"option"`
}

type SessionResponse struct {
	ProfileID     uuid.UUID            `json:"profileId"`
	WorldID       string               `json:"worldId"`
	Title         string               `json:"title"`
	Status        player.Status        `json:"status"`
	Phase         player.Phase         `json:"phase"`
	ArmedChoiceID string               `json:"armedChoiceId,omitempty"`
	Inventory     []string             `json:"inventory"`
	Progress      *state.ProgressState `json:"progress"`
	Parts         []player.Part        `json:"parts"`
	MemoryOnly    bool                 `json:"memoryOnly,omitempty"`
}

type ActionResponse struct {
	Quiz    *player.QuizResult `json:"quiz,omitempty"`
	Dice    *dice.Outcome      `json:"dice,omitempty"`
	Session SessionResponse    `json:"session"`
}

// ServeHTTP handles HTTP requests for reading sessions
// Routes:
// POST /v1/sessions                    - Start a fresh session in a world
// GET /v1/sessions/{profileId}         - Resume a session
// POST /v1/sessions/{profileId}/choice - Select a choice at the active quiz
// POST /v1/sessions/{profileId}/answer - Answer the open challenge
// POST /v1/sessions/{profileId}/retry  - Clear a wrong answer
// POST /v1/sessions/{profileId}/cancel - Close the open challenge
// POST /v1/sessions/{profileId}/roll   - Roll the current node's dice
// DELETE /v1/sessions/{profileId}      - Reset progress
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleStart(w, r)
		return
	}

	idStr, action, _ := strings.Cut(path, "/")
	profileID, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid profile ID", "id", idStr, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid profile ID format")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleResume(w, r, profileID)
	case action == "" && r.Method == http.MethodDelete:
		h.handleReset(w, r, profileID)
	case action == "choice" && r.Method == http.MethodPost:
		h.handleChoice(w, r, profileID)
	case action == "answer" && r.Method == http.MethodPost:
		h.handleAnswer(w, r, profileID)
	case action == "retry" && r.Method == http.MethodPost:
		h.handleRetry(w, r, profileID)
	case action == "cancel" && r.Method == http.MethodPost:
		h.handleCancel(w, r, profileID)
	case action == "roll" && r.Method == http.MethodPost:
		h.handleRoll(w, r, profileID)
	case action == "" || action == "choice" || action == "answer" || action == "retry" || action == "cancel" || action == "roll":
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown session action")
	}
}

func (h *SessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WorldID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "worldId is required")
		return
	}

	profileID := uuid.New()
	if req.ProfileID != "" {
		parsed, err := uuid.Parse(req.ProfileID)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid profile ID format")
			return
		}
		profileID = parsed
	}

	ctx := r.Context()
	world, err := h.library.Playable(ctx, req.WorldID)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}

	store := h.progress.Profile(profileID)
	sess := player.Start(ctx, world.ID, world.Story, h.sessionConfig(profileID, store))

	h.mu.Lock()
	h.sessions[profileID] = &activeSession{session: sess, store: store}
	h.mu.Unlock()

	writeJSON(w, h.logger, http.StatusCreated, h.sessionResponse(profileID, sess, store))
}

func (h *SessionHandler) handleResume(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	active, err := h.lookup(r.Context(), profileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(profileID, active.session, active.store))
}

func (h *SessionHandler) handleReset(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	h.mu.Lock()
	delete(h.sessions, profileID)
	h.mu.Unlock()

	if err := h.progress.Clear(r.Context(), profileID); err != nil {
		h.logger.Warn("Failed to clear saved progress", "profile_id", profileID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleChoice(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	active, err := h.lookup(r.Context(), profileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	res, err := active.session.SelectChoice(r.Context(), req.QuizIndex, req.ChoiceID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ActionResponse{
		Quiz:    &res,
		Session: h.sessionResponse(profileID, active.session, active.store),
	})
}

func (h *SessionHandler) handleAnswer(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	active, err := h.lookup(r.Context(), profileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	res, err := active.session.AnswerChallenge(r.Context(), req.ChoiceID, req.Option)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ActionResponse{
		Quiz:    &res,
		Session: h.sessionResponse(profileID, active.session, active.store),
	})
}

func (h *SessionHandler) handleRetry(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	active, err := h.lookup(r.Context(), profileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	res, err := active.session.Retry()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ActionResponse{
		Quiz:    &res,
		Session: h.sessionResponse(profileID, active.session, active.store),
	})
}

func (h *SessionHandler) handleCancel(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	active, err := h.lookup(r.Context(), profileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	active.session.CancelChallenge()
	writeJSON(w, h.logger, http.StatusOK, ActionResponse{
		Session: h.sessionResponse(profileID, active.session, active.store),
	})
}

func (h *SessionHandler) handleRoll(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) {
	active, err := h.lookup(r.Context(), profileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	out, err := active.session.RollDice(r.Context())
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ActionResponse{
		Dice:    &out,
		Session: h.sessionResponse(profileID, active.session, active.store),
	})
}

// lookup returns the live session of a profile, resuming it from storage
// when this process has not seen it yet.
func (h *SessionHandler) lookup(ctx context.Context, profileID uuid.UUID) (*activeSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if active, ok := h.sessions[profileID]; ok {
		return active, nil
	}

	saved, ok := h.progress.Load(ctx, profileID, h.library.Resolver(ctx))
	if !ok {
		return nil, errSessionNotFound
	}
	world, err := h.library.Playable(ctx, saved.WorldID)
	if err != nil {
		return nil, err
	}

	store := h.progress.Profile(profileID)
	active := &activeSession{
		session: player.Resume(world.ID, world.Story, saved.Progress, h.sessionConfig(profileID, store)),
		store:   store,
	}
	h.sessions[profileID] = active
	return active, nil
}

func (h *SessionHandler) sessionConfig(profileID uuid.UUID, store *storage.ProfileStore) player.Config {
	return player.Config{
		Store:          store,
		Roller:         h.roller,
		DiceFlourishes: h.flourishes,
		Logger:         logger.WithProfile(h.logger, profileID.String()),
	}
}

func (h *SessionHandler) sessionResponse(profileID uuid.UUID, sess *player.Session, store *storage.ProfileStore) SessionResponse {
	ps := sess.Progress()
	phase, armed := sess.QuizPhase()
	return SessionResponse{
		ProfileID:     profileID,
		WorldID:       sess.WorldID(),
		Title:         sess.Graph().Title,
		Status:        sess.Status(),
		Phase:         phase,
		ArmedChoiceID: armed,
		Inventory:     ps.Inventory,
		Progress:      ps,
		Parts:         sess.Parts(),
		MemoryOnly:    store.MemoryOnly(),
	}
}

func (h *SessionHandler) writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrStoryNotFound):
		writeError(w, h.logger, http.StatusNotFound, "World not found")
	case errors.Is(err, storage.ErrWorldLocked):
		writeError(w, h.logger, http.StatusForbidden, "World is locked")
	default:
		h.logger.Error("Failed to load world", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load world")
	}
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errSessionNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, player.ErrQuizNotActive),
		errors.Is(err, player.ErrNoOpenChallenge),
		errors.Is(err, player.ErrNoDiceRoll):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, player.ErrUnknownChoice),
		errors.Is(err, player.ErrUnknownOption):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.writeLibraryError(w, err)
	}
}
