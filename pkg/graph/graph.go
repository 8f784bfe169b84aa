package graph

import "fmt"

// Sentinel node indices for the two virtual endpoints. They never index
// Instrument.Nodes.
const (
	InputNode  = -1 // block-level sync (slot 0) and frequency (slot 1) inputs
	OutputNode = -2 // block-level output (slot 0)
)

// Patch connects one output slot to one input slot. FromNode may be
// InputNode and ToNode may be OutputNode.
type Patch struct {
	FromNode int `json:"from_node"`
	FromSlot int `json:"from_slot"`
	ToNode   int `json:"to_node"`
	ToSlot   int `json:"to_slot"`
}

func (p Patch) String() string {
	return fmt.Sprintf("%s.%d -> %s.%d", endpointName(p.FromNode), p.FromSlot, endpointName(p.ToNode), p.ToSlot)
}

func endpointName(i int) string {
	switch i {
	case InputNode:
		return "input"
	case OutputNode:
		return "output"
	default:
		return fmt.Sprintf("#%d", i)
	}
}

// Instrument is the editable graph: node instances plus patches. It is
// plain data; the audio path never reads it directly.
type Instrument struct {
	Nodes   []NodeInstance `json:"nodes"`
	Patches []Patch        `json:"patches"`
}

// New creates an empty instrument.
func New() *Instrument {
	return &Instrument{
		Nodes:   []NodeInstance{},
		Patches: []Patch{},
	}
}

// NodeCount returns the number of node instances.
func (g *Instrument) NodeCount() int {
	return len(g.Nodes)
}

// Clone returns a deep copy of g.
func (g *Instrument) Clone() *Instrument {
	c := &Instrument{
		Nodes:   make([]NodeInstance, len(g.Nodes)),
		Patches: append([]Patch{}, g.Patches...),
	}
	for i, n := range g.Nodes {
		c.Nodes[i] = NodeInstance{Kind: n.Kind, Knobs: append([]float64{}, n.Knobs...)}
	}
	return c
}

// Producer returns the patch feeding input slot toSlot of node toNode.
func (g *Instrument) Producer(toNode, toSlot int) (Patch, bool) {
	for _, p := range g.Patches {
		if p.ToNode == toNode && p.ToSlot == toSlot {
			return p, true
		}
	}
	return Patch{}, false
}

// Consumers returns every patch reading output slot fromSlot of fromNode.
func (g *Instrument) Consumers(fromNode, fromSlot int) []Patch {
	var ps []Patch
	for _, p := range g.Patches {
		if p.FromNode == fromNode && p.FromSlot == fromSlot {
			ps = append(ps, p)
		}
	}
	return ps
}

// descriptorFor returns the descriptor of a node index, including the
// virtual endpoints. ok is false for an index out of range.
func (g *Instrument) descriptorFor(i int) (Descriptor, bool) {
	switch {
	case i == InputNode:
		return InputDescriptor(), true
	case i == OutputNode:
		return OutputDescriptor(), true
	case i >= 0 && i < len(g.Nodes):
		return Describe(g.Nodes[i].Kind), true
	}
	return Descriptor{}, false
}
