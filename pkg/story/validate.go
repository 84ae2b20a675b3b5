package story

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError lists every rule a story graph breaks, one entry per
// violation, so a generator can repair or retry.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("story graph is invalid (%d errors):\n  - %s", len(e.Errors), strings.Join(e.Errors, "\n  - "))
}

// Validate checks the referential and structural rules of the graph.
// It returns nil or a *ValidationError.
func (g *Graph) Validate() error {
	return g.validate(nil)
}

func (g *Graph) validate(problems []string) error {
	v := &graphValidator{errors: problems}
	v.validateGraph(g)
	if len(v.errors) > 0 {
		return &ValidationError{Errors: v.errors}
	}
	return nil
}

type graphValidator struct {
	errors []string
}

func (v *graphValidator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *graphValidator) validateGraph(g *Graph) {
	if g == nil {
		v.addError("story graph is nil")
		return
	}

	if g.StartNodeID == "" {
		v.addError("startNodeId is required")
	} else if _, ok := g.Node(g.StartNodeID); !ok {
		v.addError("startNodeId '%s' does not match any node", g.StartNodeID)
	}

	hasEnding := false
	for _, id := range sortedIDs(g) {
		n := g.Nodes[id]
		if n == nil {
			v.addError("node '%s' is null", id)
			continue
		}
		if n.ID != id {
			v.addError("node key '%s' does not match its id '%s'", id, n.ID)
		}
		if n.IsEnding {
			hasEnding = true
		}
		v.validateNode(g, id, n)
	}

	if !hasEnding {
		v.addError("story has no ending node (isEnding)")
	}
}

func (v *graphValidator) validateNode(g *Graph, id string, n *Node) {
	seen := make(map[string]bool, len(n.Choices))
	for i, c := range n.Choices {
		label := fmt.Sprintf("node '%s' choice '%s'", id, c.ID)
		if c.ID == "" {
			label = fmt.Sprintf("node '%s' choice #%d", id, i+1)
			v.addError("%s has no id", label)
		} else if seen[c.ID] {
			v.addError("node '%s' has duplicate choice id '%s'", id, c.ID)
		}
		seen[c.ID] = true

		if c.NextNodeID == "" {
			v.addError("%s has no nextNodeId", label)
		} else if _, ok := g.Node(c.NextNodeID); !ok {
			v.addError("%s points to missing node '%s'", label, c.NextNodeID)
		}

		if c.Challenge != nil {
			v.validateChallenge(label, c.Challenge)
		}
	}

	if d := n.DiceRoll; d != nil {
		label := fmt.Sprintf("node '%s' dice roll", id)
		if d.DiceType < 2 {
			v.addError("%s has invalid diceType %d", label, d.DiceType)
		} else if d.TargetNumber < 1 || d.TargetNumber > d.DiceType {
			v.addError("%s targetNumber %d is outside [1, %d]", label, d.TargetNumber, d.DiceType)
		}
		if _, ok := g.Node(d.SuccessNodeID); !ok {
			v.addError("%s successNodeId points to missing node '%s'", label, d.SuccessNodeID)
		}
		if _, ok := g.Node(d.FailureNodeID); !ok {
			v.addError("%s failureNodeId points to missing node '%s'", label, d.FailureNodeID)
		}
	}
}

func (v *graphValidator) validateChallenge(label string, c *Challenge) {
	if !c.Subject.Valid() {
		v.addError("%s challenge has unsupported subject '%s'", label, c.Subject)
	}
	if strings.TrimSpace(c.Question) == "" {
		v.addError("%s challenge has no question", label)
	}
	if c.CorrectAnswer == "" {
		v.addError("%s challenge has no correctAnswer", label)
	} else if len(c.Options) > 0 && !slices.Contains(c.Options, c.CorrectAnswer) {
		v.addError("%s challenge correctAnswer '%s' is not one of its options", label, c.CorrectAnswer)
	}
}

// Lint returns non-fatal authoring warnings: dead ends, unreachable nodes and
// item gates no node can satisfy.
func (g *Graph) Lint() []string {
	if g == nil {
		return nil
	}
	var warnings []string

	granted := make(map[string]bool)
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		for _, item := range n.ItemsGained {
			granted[item] = true
		}
	}

	reachable := g.reachable()
	for _, id := range sortedIDs(g) {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		if n.DeadEnd() {
			warnings = append(warnings, fmt.Sprintf("node '%s' is a dead end: no choices, no dice roll and not an ending", id))
		}
		if !reachable[id] {
			warnings = append(warnings, fmt.Sprintf("node '%s' is unreachable from the start node", id))
		}
		for _, c := range n.Choices {
			if c.RequiresItem != "" && !granted[c.RequiresItem] {
				warnings = append(warnings, fmt.Sprintf("node '%s' choice '%s' requires item '%s' that no node grants", id, c.ID, c.RequiresItem))
			}
		}
	}
	return warnings
}

func (g *Graph) reachable() map[string]bool {
	seen := make(map[string]bool)
	queue := []string{g.StartNodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := g.Node(id)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		for _, c := range n.Choices {
			queue = append(queue, c.NextNodeID)
		}
		if n.DiceRoll != nil {
			queue = append(queue, n.DiceRoll.SuccessNodeID, n.DiceRoll.FailureNodeID)
		}
	}
	return seen
}

func sortedIDs(g *Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
