package compile

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

const (
	rate  = 44100
	block = 64
)

func instrument(nodes []graph.Kind, patches ...graph.Patch) graph.Instrument {
	g := graph.New()
	for _, k := range nodes {
		g.AddNode(k)
	}
	g.Patches = append(g.Patches, patches...)
	return *g
}

func constant(v float32) signal.Buffer {
	b := signal.New(block)
	signal.Fill(b, v)
	return b
}

func TestCompileHalfGain(t *testing.T) {
	g := instrument([]graph.Kind{graph.KindGain},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: 0, ToSlot: 0},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
	)
	g.Nodes[0].Knobs[graph.GainKnob] = 0.5

	inst, err := Compile(rate, block, g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	src := signal.New(block)
	for i := range src {
		src[i] = float32(math.Sin(float64(i) / 5))
	}
	out := signal.New(block)
	inst.Process(signal.New(block), src, out)
	for i := range out {
		if out[i] != 0.5*src[i] {
			t.Fatalf("out[%d] = %g, want %g", i, out[i], 0.5*src[i])
		}
	}
}

func TestCompileInputStraightToOutput(t *testing.T) {
	g := instrument(nil, graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: graph.OutputNode, ToSlot: 0})
	inst, err := Compile(rate, block, g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := signal.New(block)
	inst.Process(constant(1), constant(440), out)
	if out[0] != 440 || out[block-1] != 440 {
		t.Errorf("out = %g..%g, want 440", out[0], out[block-1])
	}
}

func TestCompileEmptyInstrumentIsSilent(t *testing.T) {
	inst, err := Compile(rate, block, *graph.New())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := constant(3)
	inst.Process(constant(1), constant(440), out)
	if p := signal.Peak(out); p != 0 {
		t.Errorf("peak = %g, want 0", p)
	}
	if len(inst.Order()) != 0 {
		t.Errorf("Order() = %v, want empty", inst.Order())
	}
}

func TestCompilePrunesUnreachable(t *testing.T) {
	// 0: gain feeding the output, 1: orphan oscillator, 2: gain fed by the
	// orphan but reaching nothing
	g := instrument([]graph.Kind{graph.KindGain, graph.KindOscillator, graph.KindGain},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: 0, ToSlot: 0},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
		graph.Patch{FromNode: 1, FromSlot: 0, ToNode: 2, ToSlot: 0},
	)
	inst, err := Compile(rate, block, g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := inst.Order(); !slices.Equal(got, []int{0}) {
		t.Errorf("Order() = %v, want [0]", got)
	}
	for _, n := range []int{1, 2} {
		if _, ok := inst.Depth(n); ok {
			t.Errorf("node %d has a depth, want pruned", n)
		}
	}
	pruned := 0
	for _, w := range inst.Warnings() {
		if strings.Contains(w.Message, "not scheduled") {
			pruned++
		}
	}
	if pruned != 2 {
		t.Errorf("got %d pruning warnings, want 2: %v", pruned, inst.Warnings())
	}
}

func TestCompileOrder(t *testing.T) {
	sync := graph.Patch{FromNode: graph.InputNode, FromSlot: graph.SyncSlot}
	freq := graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot}
	with := func(p graph.Patch, to, slot int) graph.Patch {
		p.ToNode, p.ToSlot = to, slot
		return p
	}

	tests := []struct {
		name  string
		g     graph.Instrument
		order []int
		depth map[int]int
	}{
		{
			name: "voice declared sink first",
			// 0: filter, 1: envelope, 2: oscillator
			g: instrument([]graph.Kind{graph.KindFilter, graph.KindEnvelope, graph.KindOscillator},
				with(sync, 2, 0), with(freq, 2, 1), with(sync, 1, 0),
				graph.Patch{FromNode: 2, FromSlot: 0, ToNode: 1, ToSlot: 1},
				graph.Patch{FromNode: 1, FromSlot: 0, ToNode: 0, ToSlot: 0},
				graph.Patch{FromNode: 0, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
			),
			order: []int{2, 1, 0},
			depth: map[int]int{0: 1, 1: 2, 2: 3},
		},
		{
			name: "ties by index",
			// 0: mixer, 1 and 2: gains into it
			g: instrument([]graph.Kind{graph.KindMixer, graph.KindGain, graph.KindGain},
				with(freq, 2, 0), with(freq, 1, 0),
				graph.Patch{FromNode: 2, FromSlot: 0, ToNode: 0, ToSlot: 0},
				graph.Patch{FromNode: 1, FromSlot: 0, ToNode: 0, ToSlot: 1},
				graph.Patch{FromNode: 0, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
			),
			order: []int{1, 2, 0},
			depth: map[int]int{0: 1, 1: 2, 2: 2},
		},
		{
			name: "diamond takes the longest path",
			// 0: oscillator, 1: gain, 2: mixer
			g: instrument([]graph.Kind{graph.KindOscillator, graph.KindGain, graph.KindMixer},
				with(freq, 0, 1),
				graph.Patch{FromNode: 0, FromSlot: 0, ToNode: 1, ToSlot: 0},
				graph.Patch{FromNode: 0, FromSlot: 0, ToNode: 2, ToSlot: 0},
				graph.Patch{FromNode: 1, FromSlot: 0, ToNode: 2, ToSlot: 1},
				graph.Patch{FromNode: 2, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
			),
			order: []int{0, 1, 2},
			depth: map[int]int{0: 3, 1: 2, 2: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := Compile(rate, block, tt.g)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if got := inst.Order(); !slices.Equal(got, tt.order) {
				t.Errorf("Order() = %v, want %v", got, tt.order)
			}
			for n, want := range tt.depth {
				if got, ok := inst.Depth(n); !ok || got != want {
					t.Errorf("Depth(%d) = %d, %v; want %d", n, got, ok, want)
				}
			}
		})
	}
}

func TestCompileFanOutSharesBuffer(t *testing.T) {
	// gain 0 feeds both inputs of mixer 1: output is twice the source
	g := instrument([]graph.Kind{graph.KindGain, graph.KindMixer},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: 0, ToSlot: 0},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: 1, ToSlot: 0},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: 1, ToSlot: 1},
		graph.Patch{FromNode: 1, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
	)
	inst, err := Compile(rate, block, g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := signal.New(block)
	inst.Process(nil, constant(0.25), out)
	if out[0] != 0.5 {
		t.Errorf("out[0] = %g, want 0.5", out[0])
	}
}

func TestCompileRejectsCycle(t *testing.T) {
	g := instrument([]graph.Kind{graph.KindGain, graph.KindGain, graph.KindGain},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: 1, ToSlot: 0},
		graph.Patch{FromNode: 1, FromSlot: 0, ToNode: 2, ToSlot: 0},
		graph.Patch{FromNode: 2, FromSlot: 0, ToNode: 0, ToSlot: 0},
	)
	_, err := Compile(rate, block, g)
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want *CycleError", err)
	}
	if len(cycle.Nodes) != 3 {
		t.Errorf("cycle nodes = %v, want 3 nodes", cycle.Nodes)
	}
}

func TestCompileRejectsMalformed(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		blockSize int
		g         graph.Instrument
		want      string
	}{
		{
			name: "slot out of range", rate: rate, blockSize: block,
			g:    instrument([]graph.Kind{graph.KindGain}, graph.Patch{FromNode: graph.InputNode, FromSlot: 0, ToNode: 0, ToSlot: 4}),
			want: "input slot 4",
		},
		{
			name: "missing node", rate: rate, blockSize: block,
			g:    instrument(nil, graph.Patch{FromNode: 3, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0}),
			want: "does not exist",
		},
		{
			name: "zero block size", rate: rate, blockSize: 0,
			g:    instrument(nil),
			want: "block size",
		},
		{
			name: "nan sample rate", rate: math.NaN(), blockSize: block,
			g:    instrument(nil),
			want: "sample rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := Compile(tt.rate, tt.blockSize, tt.g)
			if inst != nil {
				t.Error("expected nil instrument")
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *CompileError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want containing %q", err, tt.want)
			}
		})
	}
}

func TestCompileWarnsUnconnectedInput(t *testing.T) {
	// envelope without a gate still runs but reads silence on sync
	g := instrument([]graph.Kind{graph.KindEnvelope},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: 0, ToSlot: 1},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
	)
	inst, err := Compile(rate, block, g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(inst.Warnings()) != 1 || !strings.Contains(inst.Warnings()[0].Message, `"sync"`) {
		t.Errorf("Warnings() = %v", inst.Warnings())
	}
	out := signal.New(block)
	inst.Process(nil, constant(1), out)
	if p := signal.Peak(out); p != 0 {
		t.Errorf("ungated envelope peak = %g, want 0", p)
	}
}

func noiseVoice() graph.Instrument {
	g := instrument([]graph.Kind{graph.KindOscillator, graph.KindFilter},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.SyncSlot, ToNode: 0, ToSlot: 0},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: 0, ToSlot: 1},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: 1, ToSlot: 0},
		graph.Patch{FromNode: 1, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
	)
	g.Nodes[0].Knobs[graph.ShapeKnob] = float64(graph.ShapeNoise)
	g.Nodes[1].Knobs[graph.CutoffKnob] = 2000
	return g
}

func renderBlocks(t *testing.T, inst *Instrument, n int) []float32 {
	t.Helper()
	var all []float32
	out := signal.New(block)
	for range n {
		inst.Process(constant(1), constant(440), out)
		all = append(all, out...)
	}
	return all
}

func TestCompileDeterministicWithSeed(t *testing.T) {
	a, err := Compile(rate, block, noiseVoice(), WithSeed(9))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := Compile(rate, block, noiseVoice(), WithSeed(9))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !slices.Equal(renderBlocks(t, a, 16), renderBlocks(t, b, 16)) {
		t.Error("same seed produced different output")
	}

	c, err := Compile(rate, block, noiseVoice(), WithSeed(10))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	d, _ := Compile(rate, block, noiseVoice(), WithSeed(9))
	if slices.Equal(renderBlocks(t, c, 4), renderBlocks(t, d, 4)) {
		t.Error("different seeds produced identical noise")
	}
}

func TestSetKnobLive(t *testing.T) {
	g := instrument([]graph.Kind{graph.KindGain},
		graph.Patch{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: 0, ToSlot: 0},
		graph.Patch{FromNode: 0, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
	)
	inst, err := Compile(rate, block, g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if v, err := inst.SetKnob(0, graph.GainKnob, 0.25); err != nil || v != 0.25 {
		t.Fatalf("SetKnob = %g, %v", v, err)
	}
	out := signal.New(block)
	inst.Process(nil, constant(1), out)
	if out[0] != 0.25 {
		t.Errorf("out[0] = %g, want 0.25", out[0])
	}

	if v, _ := inst.SetKnob(0, graph.GainKnob, 9); v != 2 {
		t.Errorf("clamped value = %g, want 2", v)
	}
	if got, ok := inst.Knob(0, graph.GainKnob); !ok || got != 2 {
		t.Errorf("Knob() = %g, %v", got, ok)
	}
	if _, err := inst.SetKnob(5, 0, 1); err == nil {
		t.Error("expected error for missing node")
	}
	if _, err := inst.SetKnob(0, 3, 1); err == nil {
		t.Error("expected error for missing knob")
	}
}
