package story

// Subject is the exam skill a challenge exercises.
type Subject string

const (
	SubjectSpelling        Subject = "spelling"
	SubjectVerbalReasoning Subject = "verbal-reasoning"
)

// Valid reports whether s is one of the supported subjects.
func (s Subject) Valid() bool {
	switch s {
	case SubjectSpelling, SubjectVerbalReasoning:
		return true
	default:
		return false
	}
}

// Challenge is a multiple-choice question gating a choice.
type Challenge struct {
	Subject       Subject  `json:"subject"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Hint          string   `json:"hint,omitempty"`
	Explanation   string   `json:"explanation,omitempty"` // shown after a correct answer
}

// IsCorrect compares an answer against the correct one. Matching is exact:
// a spelling quiz is only passed by the exact spelling.
func (c *Challenge) IsCorrect(answer string) bool {
	return answer == c.CorrectAnswer
}

// DiceRoll branches the story on a single die roll.
type DiceRoll struct {
	Description   string `json:"description"`
	DiceType      int    `json:"diceType"`     // number of faces
	TargetNumber  int    `json:"targetNumber"` // success when the roll is >= target
	SuccessNodeID string `json:"successNodeId"`
	FailureNodeID string `json:"failureNodeId"`
}

// Choice is one option at a decision point.
type Choice struct {
	ID           string     `json:"id"`
	Text         string     `json:"text"`
	NextNodeID   string     `json:"nextNodeId"`
	Challenge    *Challenge `json:"educationalChallenge,omitempty"`
	RequiresItem string     `json:"requiresItem,omitempty"`
}

// Node is a single narrative unit of a story.
type Node struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	Choices     []Choice  `json:"choices,omitempty"`
	DiceRoll    *DiceRoll `json:"diceRoll,omitempty"`
	ItemsGained []string  `json:"itemsGained,omitempty"`
	IsEnding    bool      `json:"isEnding,omitempty"`
}

// HasChoices reports whether the node offers any choice.
func (n *Node) HasChoices() bool {
	return len(n.Choices) > 0
}

// Choice returns the choice with the given id.
func (n *Node) Choice(id string) (*Choice, bool) {
	for i := range n.Choices {
		if n.Choices[i].ID == id {
			return &n.Choices[i], true
		}
	}
	return nil, false
}

// DeadEnd reports a node the player cannot leave and that is not an ending.
func (n *Node) DeadEnd() bool {
	return !n.HasChoices() && n.DiceRoll == nil && !n.IsEnding
}

// Graph is a complete adventure. It is treated as read-only once validated.
type Graph struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartNodeID string           `json:"startNodeId"`
	Nodes       map[string]*Node `json:"nodes"`
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	if g == nil || g.Nodes == nil {
		return nil, false
	}
	n, ok := g.Nodes[id]
	return n, ok && n != nil
}
