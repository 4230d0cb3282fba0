package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStartNode is returned when the graph has no start node.
	ErrNoStartNode = errors.New("graph has no start node")

	// ErrNoEndNode is returned when the graph has no end node.
	ErrNoEndNode = errors.New("graph has no end node")

	// ErrUntaggedCycle is returned when a cycle remains after loop edges
	// are excluded. Cycles must be tagged with loop edges.
	ErrUntaggedCycle = errors.New("graph contains a cycle not tagged with loop edges")
)

// StructuralError reports a malformed graph element with enough context to
// act on. The engines never attempt to repair structural problems.
type StructuralError struct {
	NodeID string
	Detail string
}

func (e *StructuralError) Error() string {
	if e.NodeID == "" {
		return "structural error: " + e.Detail
	}

	return fmt.Sprintf("structural error at node %q: %s", e.NodeID, e.Detail)
}

// IsStructuralError reports whether err is a structural graph error of any
// kind, including the sentinel errors above.
func IsStructuralError(err error) bool {
	var se *StructuralError

	return errors.As(err, &se) ||
		errors.Is(err, ErrNoStartNode) ||
		errors.Is(err, ErrNoEndNode) ||
		errors.Is(err, ErrUntaggedCycle)
}
