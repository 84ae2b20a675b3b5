// Package glossary finds the exam vocabulary words used in story text so the
// reader can show their definitions.
package glossary

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Term is a vocabulary word found in a passage.
type Term struct {
	Word       string `json:"word"` // as written in the passage
	Definition string `json:"definition"`
	Offset     int    `json:"offset"` // byte offset into the passage
}

// Default definitions for words that commonly appear in generated stories.
var Default = New(map[string]string{
	"incarnate":    "In human or physical form; embodied",
	"defying":      "Openly refusing to obey or resist",
	"hostile":      "Unfriendly or aggressive",
	"iconic":       "Widely recognized and well-established; representing something important",
	"corrupted":    "Changed from good to bad; damaged or made impure",
	"fragmented":   "Broken into small pieces or parts",
	"infinite":     "Without limits; endless",
	"materializes": "Appears suddenly or becomes visible",
	"polygonal":    "Having many straight sides and angles",
	"distorted":    "Pulled or twisted out of shape; not accurate or true",
	"succession":   "A number of things or events that follow one another",
	"artifacts":    "Objects made by humans, often of historical interest",
	"unnatural":    "Not normal or natural; strange",
	"vanishes":     "Disappears suddenly",
	"critical":     "Extremely important or serious",
	"unstable":     "Not steady or secure; likely to change",
	"activate":     "Make something start working",
	"access":       "The ability or right to use or see something",
	"necessary":    "Needed; required",
	"separate":     "To divide or keep apart",
})

// Glossary maps case-folded words to definitions.
type Glossary struct {
	words map[string]string
}

func New(definitions map[string]string) *Glossary {
	g := &Glossary{words: make(map[string]string, len(definitions))}
	for w, d := range definitions {
		g.words[fold(w)] = d
	}
	return g
}

// fold builds a fresh Caser per call; a Caser holds state and is not safe
// to share between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Find returns the glossary terms in text, in order of appearance.
func (g *Glossary) Find(text string) []Term {
	if g == nil || len(g.words) == 0 {
		return nil
	}

	var terms []Term
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		if def, ok := g.words[fold(word)]; ok {
			terms = append(terms, Term{Word: word, Definition: def, Offset: start})
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return terms
}

// Define looks up a single word.
func (g *Glossary) Define(word string) (string, bool) {
	def, ok := g.words[fold(strings.TrimSpace(word))]
	return def, ok
}
