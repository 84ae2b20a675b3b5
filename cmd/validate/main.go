package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/story"
	"github.com/jwebster45206/word-quest/pkg/textfilter"
)

func main() {
	strict := flag.Bool("strict", false, "treat authoring warnings as errors")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-strict] <story.json | worlds.json>...\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, filename := range flag.Args() {
		validator := &StoryValidator{strict: *strict}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, w := range validator.warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type StoryValidator struct {
	strict   bool
	errors   []string
	warnings []string
}

func (v *StoryValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("story file must have .json extension: %s", baseName)
	}
	if baseName == "worlds.json" {
		return v.validateCatalog(filename)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidFilename(nameWithoutExt) {
		return fmt.Errorf("story filename '%s' must be lowercase snake_case (e.g., glitched_realm.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil
	v.warnings = nil

	g, err := story.Parse(data)
	if err != nil {
		var verr *story.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors {
				v.addError(e)
			}
			return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
		}
		return fmt.Errorf("file %s is not a story document: %w", filename, err)
	}

	v.validateIDs(g)
	for _, id := range profanity.Scan(g) {
		v.warnings = append(v.warnings, fmt.Sprintf("node '%s' contains language unsuitable for young readers", id))
	}
	v.warnings = append(v.warnings, g.Lint()...)
	if v.strict {
		for _, w := range v.warnings {
			v.addError(w)
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateCatalog loads the catalog the way the server does.
func (v *StoryValidator) validateCatalog(filename string) error {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib, err := storage.LoadLibrary(filepath.Dir(filename), storage.NewMemoryKV(), quiet)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", filename, err)
	}
	worlds, err := lib.List(context.Background())
	if err != nil {
		return fmt.Errorf("catalog %s: %w", filename, err)
	}
	for _, w := range worlds {
		if w.Locked {
			v.warnings = append(v.warnings, fmt.Sprintf("world '%s' is locked", w.ID))
		}
	}
	return nil
}

func (v *StoryValidator) validateIDs(g *story.Graph) {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if !isValidID(id) {
			v.warnings = append(v.warnings, fmt.Sprintf("node id '%s' should be lowercase kebab-case", id))
		}
		for _, c := range g.Nodes[id].Choices {
			if c.ID != "" && !isValidID(c.ID) {
				v.warnings = append(v.warnings, fmt.Sprintf("node '%s' choice id '%s' should be lowercase kebab-case", id, c.ID))
			}
		}
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	profanity          = textfilter.NewProfanityFilter()
	validIDRegex       = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidFilename(name string) bool {
	// Allow 'x.' prefix for experimental stories
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
