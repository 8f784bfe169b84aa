package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON encodes g as the persisted graph description.
func WriteJSON(w io.Writer, g *Instrument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// ReadJSON decodes a graph description. Node kinds are checked while
// decoding; patches are left for Validate.
func ReadJSON(r io.Reader) (*Instrument, error) {
	g := New()
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, fmt.Errorf("decode instrument: %w", err)
	}
	for i := range g.Nodes {
		if g.Nodes[i].Knobs == nil {
			g.Nodes[i].Knobs = DefaultKnobs(g.Nodes[i].Kind)
		}
	}
	if g.Patches == nil {
		g.Patches = []Patch{}
	}
	return g, nil
}
