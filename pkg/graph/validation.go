package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks
// compilation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks compilation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// NoNode marks a finding that is not attached to a node.
const NoNode = -3

// ValidationError describes a single validation finding.
type ValidationError struct {
	Node     int                // offending node index, endpoint sentinel, or NoNode
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Node == NoNode {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, endpointName(e.Node), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Node    int
	Message string
}

func (w ValidationWarning) String() string {
	if w.Node == NoNode {
		return w.Message
	}
	return fmt.Sprintf("node %s: %s", endpointName(w.Node), w.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether no blocking errors were found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}
