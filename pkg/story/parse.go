package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed wraps every error from a document that is not a story at all,
// as opposed to a story that breaks the graph rules.
var ErrMalformed = errors.New("malformed story document")

type rawGraph struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartNodeID string          `json:"startNodeId"`
	Nodes       json.RawMessage `json:"nodes"`
}

// Parse decodes and validates a story graph document.
//
// Authored stories key nodes by id; generated stories arrive with nodes as an
// array, so both forms are accepted. Unknown fields are rejected. A document
// that decodes but breaks the graph rules returns a *ValidationError.
func Parse(data []byte) (*Graph, error) {
	var raw rawGraph
	if err := strictDecode(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode story: %w", ErrMalformed, err)
	}

	g := &Graph{
		Title:       raw.Title,
		Description: raw.Description,
		StartNodeID: raw.StartNodeID,
		Nodes:       make(map[string]*Node),
	}

	var problems []string
	trimmed := bytes.TrimSpace(raw.Nodes)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		// no nodes; Validate reports the missing start node
	case trimmed[0] == '[':
		var list []*Node
		if err := strictDecode(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: failed to decode story nodes: %w", ErrMalformed, err)
		}
		for i, n := range list {
			if n == nil {
				problems = append(problems, fmt.Sprintf("node at index %d is null", i))
				continue
			}
			if _, dup := g.Nodes[n.ID]; dup {
				problems = append(problems, fmt.Sprintf("duplicate node id '%s'", n.ID))
				continue
			}
			g.Nodes[n.ID] = n
		}
	case trimmed[0] == '{':
		if err := strictDecode(trimmed, &g.Nodes); err != nil {
			return nil, fmt.Errorf("%w: failed to decode story nodes: %w", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: story nodes must be an object or an array", ErrMalformed)
	}

	if err := g.validate(problems); err != nil {
		return nil, err
	}
	return g, nil
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
