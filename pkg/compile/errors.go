package compile

import (
	"fmt"
	"strings"

	"github.com/chazu/patchbay/pkg/graph"
)

// CompileError reports a graph rejected before any node was built.
type CompileError struct {
	Problems []graph.ValidationError
}

func (e *CompileError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "compile: invalid instrument"
	case 1:
		return fmt.Sprintf("compile: %v", e.Problems[0])
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("compile: %d problems: %s", len(e.Problems), strings.Join(msgs, "; "))
}

// CycleError reports producer/consumer edges that loop back on themselves.
// Nodes lists the node indices on the cycle.
type CycleError struct {
	Nodes []int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("compile: cycle through nodes %v", e.Nodes)
}
