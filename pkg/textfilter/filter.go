// Package textfilter keeps story text suitable for young readers.
package textfilter

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/word-quest/pkg/story"
)

// replacements maps unsuitable words to family-friendly alternatives
var replacements = map[string]string{
	"fuck":         "fudge",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"cock":         "[censored]",
	"dick":         "jerk",
	"pussy":        "[censored]",
	"tits":         "[censored]",
	"boobs":        "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"fag":          "[censored]",
	"retard":       "[censored]",
	"nigger":       "[censored]",
	"nigga":        "[censored]",
	"spic":         "[censored]",
	"chink":        "[censored]",
	"kike":         "[censored]",
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"smartass":     "smarty",
	"badass":       "tough",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
}

// ProfanityFilter finds and replaces unsuitable words.
type ProfanityFilter struct {
	pattern *regexp.Regexp
}

// NewProfanityFilter compiles the word list into one case-insensitive,
// whole-word pattern that also matches simple plurals. Longer words come
// first so "shithead" is not read as "shit" followed by "head".
func NewProfanityFilter() *ProfanityFilter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	slices.SortFunc(words, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	return &ProfanityFilter{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)s?\b`),
	}
}

// FilterText replaces unsuitable words and reports how many were replaced.
func (pf *ProfanityFilter) FilterText(text string) (string, int) {
	n := 0
	out := pf.pattern.ReplaceAllStringFunc(text, func(match string) string {
		n++
		return replace(match)
	})
	return out, n
}

func replace(match string) string {
	lower := strings.ToLower(match)
	if r, ok := replacements[lower]; ok {
		return preserveCase(match, r)
	}
	r := replacements[strings.TrimSuffix(lower, "s")]
	if !strings.HasPrefix(r, "[") {
		r += "s"
	}
	return preserveCase(match, r)
}

// ContainsProfanity checks if the text contains any unsuitable word
func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	return pf.pattern.MatchString(text)
}

// FilterGraph rewrites the reader-facing text of g in place and returns the
// ids of the nodes that changed, sorted. Node ids, choice ids and item names
// are left alone so the graph stays valid. Challenge options and the correct
// answer go through the same replacement, so they still match afterwards.
func (pf *ProfanityFilter) FilterGraph(g *story.Graph) []string {
	var changed []string
	for id, node := range g.Nodes {
		if node == nil {
			continue
		}
		if pf.filterNode(node) > 0 {
			changed = append(changed, id)
		}
	}
	slices.Sort(changed)
	return changed
}

// Scan returns the ids of the nodes with unsuitable text, sorted, without
// changing anything.
func (pf *ProfanityFilter) Scan(g *story.Graph) []string {
	var found []string
	for id, node := range g.Nodes {
		if node == nil {
			continue
		}
		if slices.ContainsFunc(readerText(node), pf.ContainsProfanity) {
			found = append(found, id)
		}
	}
	slices.Sort(found)
	return found
}

func (pf *ProfanityFilter) filterNode(n *story.Node) int {
	total := 0
	apply := func(s *string) {
		out, count := pf.FilterText(*s)
		*s = out
		total += count
	}

	apply(&n.Title)
	apply(&n.Content)
	for i := range n.Choices {
		c := &n.Choices[i]
		apply(&c.Text)
		if ch := c.Challenge; ch != nil {
			apply(&ch.Question)
			apply(&ch.Hint)
			apply(&ch.Explanation)
			apply(&ch.CorrectAnswer)
			for j := range ch.Options {
				apply(&ch.Options[j])
			}
		}
	}
	if n.DiceRoll != nil {
		apply(&n.DiceRoll.Description)
	}
	return total
}

func readerText(n *story.Node) []string {
	text := []string{n.Title, n.Content}
	for _, c := range n.Choices {
		text = append(text, c.Text)
		if ch := c.Challenge; ch != nil {
			text = append(text, ch.Question, ch.Hint, ch.Explanation, ch.CorrectAnswer)
			text = append(text, ch.Options...)
		}
	}
	if n.DiceRoll != nil {
		text = append(text, n.DiceRoll.Description)
	}
	return text
}

// preserveCase applies the case pattern of the original word to the replacement
func preserveCase(original, replacement string) string {
	if len(original) == 0 {
		return replacement
	}

	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}

	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}

	// Mixed case: copy the case of each original letter, lowercase the rest
	originalRunes := []rune(original)
	result := make([]rune, 0, len(replacement))
	for i, r := range []rune(replacement) {
		if i < len(originalRunes) && unicode.IsUpper(originalRunes[i]) {
			result = append(result, unicode.ToUpper(r))
		} else {
			result = append(result, unicode.ToLower(r))
		}
	}
	return string(result)
}
