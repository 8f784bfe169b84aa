package graph

import "fmt"

// Validate runs the structural checks on g and returns every finding, errors
// and warnings alike. It never mutates the graph. Cycles are not reported
// here; see FindCycle.
func Validate(g *Instrument) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateKnobs(g)...)
	errs = append(errs, validatePatches(g)...)
	errs = append(errs, validateProducers(g)...)
	return errs
}

// ValidateAll runs Validate plus the connectivity checks and separates the
// findings into errors and warnings.
func ValidateAll(g *Instrument) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(g) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{Node: e.Node, Message: e.Message})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	if !result.OK() {
		return result
	}

	if cycle := FindCycle(g); len(cycle) > 0 {
		result.Errors = append(result.Errors, ValidationError{
			Node:     cycle[0],
			Message:  fmt.Sprintf("cycle through nodes %v", cycle),
			Severity: SeverityError,
		})
	}
	result.Warnings = append(result.Warnings, validateConnectivity(g)...)
	return result
}

// validateKnobs checks that every node carries one value per knob and warns
// about values outside the knob bounds.
func validateKnobs(g *Instrument) []ValidationError {
	var errs []ValidationError

	for i, n := range g.Nodes {
		d := Describe(n.Kind)
		if len(n.Knobs) != len(d.Knobs) {
			errs = append(errs, ValidationError{
				Node:     i,
				Message:  fmt.Sprintf("%s has %d knob values, want %d", n.Kind, len(n.Knobs), len(d.Knobs)),
				Severity: SeverityError,
			})
			continue
		}
		for k, v := range n.Knobs {
			if !d.Knobs[k].Contains(v) {
				errs = append(errs, ValidationError{
					Node: i,
					Message: fmt.Sprintf("knob %q = %g outside [%g, %g]",
						d.Knobs[k].Label, v, d.Knobs[k].Lower, d.Knobs[k].Upper),
					Severity: SeverityWarning,
				})
			}
		}
	}

	return errs
}

// validatePatches checks that both ends of every patch reference an existing
// node and a slot its descriptor declares.
func validatePatches(g *Instrument) []ValidationError {
	var errs []ValidationError

	for _, p := range g.Patches {
		if p.FromNode == OutputNode {
			errs = append(errs, ValidationError{
				Node:     p.FromNode,
				Message:  fmt.Sprintf("patch %s reads from the output endpoint", p),
				Severity: SeverityError,
			})
			continue
		}
		if p.ToNode == InputNode {
			errs = append(errs, ValidationError{
				Node:     p.ToNode,
				Message:  fmt.Sprintf("patch %s writes to the input endpoint", p),
				Severity: SeverityError,
			})
			continue
		}

		from, ok := g.descriptorFor(p.FromNode)
		if !ok {
			errs = append(errs, ValidationError{
				Node:     NoNode,
				Message:  fmt.Sprintf("patch %s: source node %d does not exist", p, p.FromNode),
				Severity: SeverityError,
			})
		} else if p.FromSlot < 0 || p.FromSlot >= len(from.Outputs) {
			errs = append(errs, ValidationError{
				Node:     p.FromNode,
				Message:  fmt.Sprintf("patch %s: output slot %d out of range (%d outputs)", p, p.FromSlot, len(from.Outputs)),
				Severity: SeverityError,
			})
		}

		to, ok := g.descriptorFor(p.ToNode)
		if !ok {
			errs = append(errs, ValidationError{
				Node:     NoNode,
				Message:  fmt.Sprintf("patch %s: destination node %d does not exist", p, p.ToNode),
				Severity: SeverityError,
			})
		} else if p.ToSlot < 0 || p.ToSlot >= len(to.Inputs) {
			errs = append(errs, ValidationError{
				Node:     p.ToNode,
				Message:  fmt.Sprintf("patch %s: input slot %d out of range (%d inputs)", p, p.ToSlot, len(to.Inputs)),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateProducers enforces the single-producer rule: at most one patch may
// feed a given input slot.
func validateProducers(g *Instrument) []ValidationError {
	var errs []ValidationError

	type input struct{ node, slot int }
	seen := make(map[input]Patch)
	for _, p := range g.Patches {
		key := input{p.ToNode, p.ToSlot}
		if prev, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Node:     p.ToNode,
				Message:  fmt.Sprintf("input slot %d fed by both %s and %s", p.ToSlot, prev, p),
				Severity: SeverityError,
			})
			continue
		}
		seen[key] = p
	}

	return errs
}

// FindCycle looks for a cycle among producer->consumer edges between real
// nodes using DFS with 3-color marking. It returns the nodes on the first
// cycle found, in edge order, or nil. Patches touching the virtual endpoints
// or referencing missing nodes are ignored.
func FindCycle(g *Instrument) []int {
	const (
		white = iota
		gray
		black
	)

	consumers := make([][]int, len(g.Nodes))
	for _, p := range g.Patches {
		if p.FromNode < 0 || p.FromNode >= len(g.Nodes) || p.ToNode < 0 || p.ToNode >= len(g.Nodes) {
			continue
		}
		consumers[p.FromNode] = append(consumers[p.FromNode], p.ToNode)
	}

	color := make([]int, len(g.Nodes))
	var path []int
	var cycle []int

	var visit func(n int) bool // returns true if a cycle was found
	visit = func(n int) bool {
		color[n] = gray
		path = append(path, n)
		for _, c := range consumers[n] {
			switch color[c] {
			case gray:
				for i, p := range path {
					if p == c {
						cycle = append([]int{}, path[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(c) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for n := range g.Nodes {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

// validateConnectivity warns about nodes that cannot reach the output and
// inputs that nothing feeds. Neither is an error: unreachable nodes are
// pruned at compile time and unfed inputs read silence.
func validateConnectivity(g *Instrument) []ValidationWarning {
	var warnings []ValidationWarning

	reachable := Reachable(g)
	for i, n := range g.Nodes {
		if !reachable[i] {
			warnings = append(warnings, ValidationWarning{
				Node:    i,
				Message: fmt.Sprintf("%s is not connected to the output and will not run", n.Kind),
			})
			continue
		}
		d := Describe(n.Kind)
		for slot, name := range d.Inputs {
			if n.Kind == KindMixer {
				break
			}
			if _, ok := g.Producer(i, slot); !ok {
				warnings = append(warnings, ValidationWarning{
					Node:    i,
					Message: fmt.Sprintf("%s input %q is not connected", n.Kind, name),
				})
			}
		}
	}
	if _, ok := g.Producer(OutputNode, 0); !ok {
		warnings = append(warnings, ValidationWarning{
			Node:    OutputNode,
			Message: "nothing is patched to the output",
		})
	}

	return warnings
}

// Reachable marks every node that feeds the output endpoint, directly or
// transitively, using a breadth-first walk backward along patches.
func Reachable(g *Instrument) []bool {
	reachable := make([]bool, len(g.Nodes))
	queue := []int{OutputNode}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, p := range g.Patches {
			if p.ToNode != current || p.FromNode < 0 || p.FromNode >= len(g.Nodes) {
				continue
			}
			if !reachable[p.FromNode] {
				reachable[p.FromNode] = true
				queue = append(queue, p.FromNode)
			}
		}
	}

	return reachable
}
