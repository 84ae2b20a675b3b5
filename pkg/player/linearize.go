package player

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/word-quest/pkg/glossary"
	"github.com/jwebster45206/word-quest/pkg/state"
	"github.com/jwebster45206/word-quest/pkg/story"
)

// PartKind is the type of a renderable story part.
type PartKind string

const (
	PartText   PartKind = "text"
	PartItems  PartKind = "items"
	PartQuiz   PartKind = "quiz"
	PartDice   PartKind = "dice"
	PartEnding PartKind = "ending"
)

// Part is one renderable unit of the continuous story.
type Part struct {
	Kind     PartKind `json:"kind"`
	NodeID   string   `json:"nodeId"`
	Position int      `json:"position"` // index into the node stack

	Title   string          `json:"title,omitempty"`
	Content string          `json:"content,omitempty"`
	Terms   []glossary.Term `json:"terms,omitempty"`

	Items []string `json:"items,omitempty"`

	QuizIndex        int            `json:"quizIndex"`
	Choices          []story.Choice `json:"choices,omitempty"`
	SelectedChoiceID string         `json:"selectedChoiceId,omitempty"`

	Dice *story.DiceRoll `json:"dice,omitempty"`

	// Interactive marks the quiz or dice part of the stack tail while it is
	// still unresolved. Every other part is read-only.
	Interactive bool `json:"interactive"`
}

// Linearize expands the traversal history into the ordered parts of the
// continuous story. Quiz indexes count across the whole history, answered or
// not. Node ids missing from the graph are skipped. The result depends only
// on its inputs.
func Linearize(ps *state.ProgressState, g *story.Graph) []Part {
	if ps == nil || g == nil {
		return nil
	}

	parts := make([]Part, 0, len(ps.NodeStack)*2)
	tail := len(ps.NodeStack) - 1
	quizIndex := 0

	for pos, id := range ps.NodeStack {
		node, ok := g.Node(id)
		if !ok {
			continue
		}

		parts = append(parts, Part{
			Kind:     PartText,
			NodeID:   id,
			Position: pos,
			Title:    node.Title,
			Content:  node.Content,
			Terms:    glossary.Default.Find(node.Content),
		})

		if len(node.ItemsGained) > 0 {
			parts = append(parts, Part{
				Kind:     PartItems,
				NodeID:   id,
				Position: pos,
				Items:    node.ItemsGained,
			})
		}

		if node.HasChoices() {
			p := Part{
				Kind:      PartQuiz,
				NodeID:    id,
				Position:  pos,
				QuizIndex: quizIndex,
				Choices:   node.Choices,
			}
			if a, answered := ps.Answer(quizIndex); answered {
				p.SelectedChoiceID = a.ChoiceID
			} else {
				p.Interactive = pos == tail
			}
			parts = append(parts, p)
			quizIndex++
		}

		if node.DiceRoll != nil {
			parts = append(parts, Part{
				Kind:        PartDice,
				NodeID:      id,
				Position:    pos,
				Dice:        node.DiceRoll,
				Interactive: pos == tail,
			})
		}

		if node.IsEnding {
			parts = append(parts, Part{
				Kind:     PartEnding,
				NodeID:   id,
				Position: pos,
			})
		}
	}
	return parts
}

// ActiveQuiz returns the interactive quiz part, if any.
func ActiveQuiz(parts []Part) (Part, bool) {
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].Kind == PartQuiz && parts[i].Interactive {
			return parts[i], true
		}
	}
	return Part{}, false
}

// Transcript renders parts as plain text.
func Transcript(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		switch p.Kind {
		case PartText:
			if p.Title != "" {
				b.WriteString("## " + p.Title + "\n\n")
			}
			b.WriteString(strings.TrimSpace(p.Content) + "\n\n")
		case PartItems:
			label := "Item acquired"
			if len(p.Items) > 1 {
				label = "Items acquired"
			}
			fmt.Fprintf(&b, "[%s: %s]\n\n", label, strings.Join(p.Items, ", "))
		case PartQuiz:
			for i, c := range p.Choices {
				mark := " "
				if c.ID == p.SelectedChoiceID {
					mark = "x"
				}
				fmt.Fprintf(&b, "  [%s] %d. %s\n", mark, i+1, c.Text)
			}
			b.WriteString("\n")
		case PartDice:
			fmt.Fprintf(&b, "[Roll a d%d, %d or higher: %s]\n\n", p.Dice.DiceType, p.Dice.TargetNumber, p.Dice.Description)
		case PartEnding:
			b.WriteString("*** The End ***\n")
		}
	}
	return b.String()
}
