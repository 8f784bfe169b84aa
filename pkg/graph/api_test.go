package graph

import "testing"

func TestAddNodeUsesDefaults(t *testing.T) {
	g := New()
	i := g.AddNode(KindEnvelope)
	if i != 0 {
		t.Fatalf("first node index = %d, want 0", i)
	}
	want := []float64{0.03, 0.2, 0.5, 0.2}
	for k, v := range want {
		if g.Nodes[i].Knobs[k] != v {
			t.Errorf("knob %d = %g, want %g", k, g.Nodes[i].Knobs[k], v)
		}
	}

	// Defaults must not be shared between instances.
	j := g.AddNode(KindEnvelope)
	g.Nodes[j].Knobs[0] = 1
	if g.Nodes[i].Knobs[0] != 0.03 {
		t.Error("AddNode shares knob storage between nodes")
	}
}

func TestConnectReplacesProducer(t *testing.T) {
	g := New()
	a := g.AddNode(KindOscillator)
	b := g.AddNode(KindOscillator)
	f := g.AddNode(KindFilter)

	if err := g.Connect(Patch{FromNode: a, ToNode: f}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(Patch{FromNode: b, ToNode: f}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if len(g.Patches) != 1 {
		t.Fatalf("expected 1 patch after replacing, got %d", len(g.Patches))
	}
	p, ok := g.Producer(f, 0)
	if !ok || p.FromNode != b {
		t.Errorf("producer of filter input = %+v, want node %d", p, b)
	}
}

func TestConnectFanOut(t *testing.T) {
	g := New()
	osc := g.AddNode(KindOscillator)
	g1 := g.AddNode(KindGain)
	g2 := g.AddNode(KindGain)

	for _, to := range []int{g1, g2} {
		if err := g.Connect(Patch{FromNode: osc, ToNode: to}); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if got := len(g.Consumers(osc, 0)); got != 2 {
		t.Errorf("consumers = %d, want 2", got)
	}
}

func TestConnectRejectsMalformed(t *testing.T) {
	g := New()
	gain := g.AddNode(KindGain)

	tests := []struct {
		name string
		p    Patch
	}{
		{"missing source", Patch{FromNode: 7, ToNode: gain}},
		{"missing destination", Patch{FromNode: gain, ToNode: 7}},
		{"bad input slot", Patch{FromNode: InputNode, FromSlot: 0, ToNode: gain, ToSlot: 1}},
		{"bad output slot", Patch{FromNode: gain, FromSlot: 1, ToNode: OutputNode}},
		{"bad endpoint slot", Patch{FromNode: InputNode, FromSlot: 2, ToNode: gain}},
		{"into input endpoint", Patch{FromNode: gain, ToNode: InputNode}},
		{"from output endpoint", Patch{FromNode: OutputNode, ToNode: gain}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.Connect(tt.p); err == nil {
				t.Errorf("Connect(%s) succeeded, want error", tt.p)
			}
		})
	}
	if len(g.Patches) != 0 {
		t.Errorf("rejected patches were stored: %v", g.Patches)
	}
}

func TestDisconnect(t *testing.T) {
	g := New()
	gain := g.AddNode(KindGain)
	g.Connect(Patch{FromNode: gain, ToNode: OutputNode})

	if !g.Disconnect(OutputNode, 0) {
		t.Fatal("Disconnect returned false for an existing patch")
	}
	if g.Disconnect(OutputNode, 0) {
		t.Error("Disconnect returned true for a missing patch")
	}
}

func TestRemoveNodeRenumbersPatches(t *testing.T) {
	g := New()
	osc := g.AddNode(KindOscillator) // 0
	lpf := g.AddNode(KindFilter)     // 1
	amp := g.AddNode(KindGain)       // 2

	g.Connect(Patch{FromNode: InputNode, FromSlot: FrequencySlot, ToNode: osc, ToSlot: 1})
	g.Connect(Patch{FromNode: osc, ToNode: lpf})
	g.Connect(Patch{FromNode: lpf, ToNode: amp})
	g.Connect(Patch{FromNode: amp, ToNode: OutputNode})

	if err := g.RemoveNode(lpf); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	if g.NodeCount() != 2 {
		t.Fatalf("node count = %d, want 2", g.NodeCount())
	}
	if len(g.Patches) != 2 {
		t.Fatalf("patches = %v, want 2 surviving", g.Patches)
	}
	p, ok := g.Producer(OutputNode, 0)
	if !ok || p.FromNode != 1 {
		t.Errorf("output producer = %+v, want renumbered gain at index 1", p)
	}
	if g.Nodes[1].Kind != KindGain {
		t.Errorf("node 1 kind = %s, want gain", g.Nodes[1].Kind)
	}

	if err := g.RemoveNode(9); err == nil {
		t.Error("expected error removing a missing node")
	}
}

func TestSetKnobClamps(t *testing.T) {
	g := New()
	f := g.AddNode(KindFilter)

	v, err := g.SetKnob(f, CutoffKnob, 50000)
	if err != nil {
		t.Fatalf("SetKnob: %v", err)
	}
	if v != 20000 || g.Nodes[f].Knobs[CutoffKnob] != 20000 {
		t.Errorf("cutoff = %g, want clamped to 20000", g.Nodes[f].Knobs[CutoffKnob])
	}

	if _, err := g.SetKnob(f, 5, 1); err == nil {
		t.Error("expected error for missing knob")
	}
	if _, err := g.SetKnob(3, 0, 1); err == nil {
		t.Error("expected error for missing node")
	}
}
