package handlers

import (
	"net/http"
	"testing"

	"github.com/jwebster45206/word-quest/internal/storage"
)

func TestStoriesHandler_List(t *testing.T) {
	s := setupServer(t, storage.NewMemoryKV())

	rr := do(t, s.stories, http.MethodGet, "/v1/stories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	resp := decode[StoriesResponse](t, rr)
	if len(resp.Worlds) != 2 {
		t.Fatalf("Expected 2 worlds, got %d", len(resp.Worlds))
	}
	if resp.Worlds[0].ID != "vault" || resp.Worlds[0].Locked {
		t.Errorf("Expected unlocked vault first, got %+v", resp.Worlds[0])
	}
	if !resp.Worlds[1].Locked {
		t.Errorf("Expected word-wizards to be locked")
	}
}

func TestStoriesHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectDetails  int
	}{
		{
			name: "valid generated story",
			body: `{"title":"Cave","description":"","startNodeId":"a","nodes":[
			  {"id":"a","content":"Dark.","choices":[{"id":"go","text":"Go","nextNodeId":"b"}]},
			  {"id":"b","content":"Light.","isEnding":true},
			  {"id":"c","content":"Forgotten, damn it."}
			]}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name: "graph rules broken",
			body: `{"title":"Cave","startNodeId":"zz","nodes":[
			  {"id":"a","content":"Dark.","choices":[{"id":"go","text":"Go","nextNodeId":"b"}]}
			]}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectDetails:  3,
		},
		{
			name:           "not a story",
			body:           `[1, 2, 3]`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupServer(t, storage.NewMemoryKV())
			rr := do(t, s.stories, http.MethodPost, "/v1/stories", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			if tt.expectedStatus == http.StatusCreated {
				resp := decode[CreateStoryResponse](t, rr)
				if !resp.World.Generated || resp.Nodes != 3 {
					t.Errorf("Expected generated world with 3 nodes, got %+v", resp)
				}
				if len(resp.Warnings) != 3 {
					t.Errorf("Expected dead end, unreachable and softened warnings, got %v", resp.Warnings)
				}
				// the new world is playable right away
				start := do(t, s.handler, http.MethodPost, "/v1/sessions", `{"worldId":"`+resp.World.ID+`"}`)
				if start.Code != http.StatusCreated {
					t.Errorf("Expected generated world to start, got %d", start.Code)
				}
				return
			}

			resp := decode[ErrorResponse](t, rr)
			if len(resp.Details) < tt.expectDetails {
				t.Errorf("Expected at least %d details, got %v", tt.expectDetails, resp.Details)
			}
		})
	}
}

func TestStoriesHandler_MethodNotAllowed(t *testing.T) {
	s := setupServer(t, storage.NewMemoryKV())
	if rr := do(t, s.stories, http.MethodDelete, "/v1/stories", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}
