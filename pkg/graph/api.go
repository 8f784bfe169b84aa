package graph

import "fmt"

// AddNode appends a node of kind with default knobs and returns its index.
func (g *Instrument) AddNode(kind Kind) int {
	g.Nodes = append(g.Nodes, NewNodeInstance(kind))
	return len(g.Nodes) - 1
}

// RemoveNode deletes node i together with every patch touching it. Patches
// referring to later nodes are renumbered so they keep pointing at the same
// instances.
func (g *Instrument) RemoveNode(i int) error {
	if i < 0 || i >= len(g.Nodes) {
		return fmt.Errorf("node %d not found", i)
	}

	g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)

	patches := g.Patches[:0]
	for _, p := range g.Patches {
		if p.FromNode == i || p.ToNode == i {
			continue
		}
		if p.FromNode > i {
			p.FromNode--
		}
		if p.ToNode > i {
			p.ToNode--
		}
		patches = append(patches, p)
	}
	g.Patches = patches
	return nil
}

// Connect adds p to the graph. An input has a single producer, so any patch
// already feeding p's destination slot is replaced.
func (g *Instrument) Connect(p Patch) error {
	single := Instrument{Nodes: g.Nodes, Patches: []Patch{p}}
	for _, e := range validatePatches(&single) {
		if e.Severity == SeverityError {
			return e
		}
	}

	g.Disconnect(p.ToNode, p.ToSlot)
	g.Patches = append(g.Patches, p)
	return nil
}

// Disconnect removes the patch feeding input slot toSlot of toNode and
// reports whether one existed.
func (g *Instrument) Disconnect(toNode, toSlot int) bool {
	for i, p := range g.Patches {
		if p.ToNode == toNode && p.ToSlot == toSlot {
			g.Patches = append(g.Patches[:i], g.Patches[i+1:]...)
			return true
		}
	}
	return false
}

// SetKnob clamps value to the knob bounds, stores it and returns the stored
// value.
func (g *Instrument) SetKnob(node, knob int, value float64) (float64, error) {
	if node < 0 || node >= len(g.Nodes) {
		return 0, fmt.Errorf("node %d not found", node)
	}
	n := &g.Nodes[node]
	d := Describe(n.Kind)
	if knob < 0 || knob >= len(d.Knobs) || knob >= len(n.Knobs) {
		return 0, fmt.Errorf("%s has no knob %d", n.Kind, knob)
	}
	v := d.Knobs[knob].Clamp(value)
	n.Knobs[knob] = v
	return v, nil
}
