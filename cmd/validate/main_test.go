package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const lintyStory = `{
  "title": "Linty",
  "description": "",
  "startNodeId": "start",
  "nodes": {
    "start": {"id": "start", "content": "Go.", "choices": [{"id": "Go_On", "text": "Go", "nextNodeId": "end"}]},
    "end": {"id": "end", "content": "Done.", "isEnding": true},
    "lost": {"id": "lost", "content": "Nobody comes here."}
  }
}`

const rudeStory = `{
  "title": "Rude", "startNodeId": "start",
  "nodes": {
    "start": {"id": "start", "content": "What the hell.", "choices": [{"id": "go", "text": "Go", "nextNodeId": "end"}]},
    "end": {"id": "end", "content": "Done.", "isEnding": true}
  }
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		body        string
		strict      bool
		wantErr     string
		minWarnings int
	}{
		{"valid with warnings", "linty.json", lintyStory, false, "", 3},
		{"strict fails on warnings", "linty.json", lintyStory, true, "dead end", 0},
		{"strict fails on language", "rude.json", rudeStory, true, "unsuitable for young readers", 0},
		{"bad extension", "linty.txt", lintyStory, false, ".json extension", 0},
		{"bad filename", "Linty-Story.json", lintyStory, false, "snake_case", 0},
		{"not a story", "broken.json", `{"title":`, false, "not a story document", 0},
		{"graph errors", "broken.json", `{"title":"x","startNodeId":"s","nodes":{}}`, false, "validation errors", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &StoryValidator{strict: tt.strict}
			err := v.validateFile(writeFile(t, tt.filename, tt.body))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(v.warnings) < tt.minWarnings {
				t.Errorf("Expected at least %d warnings, got %v", tt.minWarnings, v.warnings)
			}
		})
	}
}

func TestIsValidID(t *testing.T) {
	for _, id := range []string{"start", "craftmine-entrance", "ending-1"} {
		if !isValidID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}
	for _, id := range []string{"Start", "craft_mine", "-x", "a--b", ""} {
		if isValidID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}

func TestValidateCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "stories"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stories", "linty.json"), []byte(lintyStory), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog := `{"worlds":[{"id":"linty","locked":false,"storyFile":"linty.json"},{"id":"later","locked":true}]}`
	if err := os.WriteFile(filepath.Join(dir, "worlds.json"), []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}

	v := &StoryValidator{}
	if err := v.validateFile(filepath.Join(dir, "worlds.json")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(v.warnings) != 1 || !strings.Contains(v.warnings[0], "later") {
		t.Errorf("Expected one locked-world warning, got %v", v.warnings)
	}
}
