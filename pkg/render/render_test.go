package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chazu/patchbay/pkg/compile"
	"github.com/chazu/patchbay/pkg/control"
	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

// gate passes the sync input straight to the output.
type gate struct{ calls int }

func (g *gate) Process(sync, freq, out signal.Buffer) {
	g.calls++
	signal.Copy(out, sync)
}

// recorder is an audio.Sink keeping every block.
type recorder struct {
	blocks [][]float32
	err    error
}

func (r *recorder) Write(s []float32) error {
	if r.err != nil {
		return r.err
	}
	r.blocks = append(r.blocks, append([]float32(nil), s...))
	return nil
}

func (r *recorder) Close() error { return nil }

func TestOfflineFollowsScore(t *testing.T) {
	// 100 Hz blocks: 10 ms each
	opts := Options{SampleRate: 1000, BlockSize: 10, Duration: 50 * time.Millisecond}
	score := control.NewScore(
		control.Event{At: 15 * time.Millisecond, Key: 60, On: true},
		control.Event{At: 30 * time.Millisecond, Key: 60, On: false},
	)
	p, sink := &gate{}, &recorder{}

	st, err := Offline(context.Background(), p, control.NewVoice(control.DefaultFrequency), score, sink, opts)
	if err != nil {
		t.Fatalf("Offline: %v", err)
	}
	if st.Blocks != 5 || st.Samples != 50 || p.calls != 5 {
		t.Errorf("stats %+v, calls %d; want 5 blocks, 50 samples", st, p.calls)
	}
	if st.Peak != 1 {
		t.Errorf("peak = %g, want 1", st.Peak)
	}
	want := []float32{0, 1, 1, 0, 0}
	for k, w := range want {
		if sink.blocks[k][0] != w {
			t.Errorf("block %d gate = %g, want %g", k, sink.blocks[k][0], w)
		}
	}
}

func TestOfflineRoundsUpToWholeBlocks(t *testing.T) {
	opts := Options{SampleRate: 1000, BlockSize: 16, Duration: 20 * time.Millisecond}
	st, err := Offline(context.Background(), &gate{}, control.NewVoice(440), nil, &recorder{}, opts)
	if err != nil {
		t.Fatalf("Offline: %v", err)
	}
	if st.Blocks != 2 {
		t.Errorf("blocks = %d, want 2", st.Blocks)
	}
}

func TestOfflineStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := Options{SampleRate: 1000, BlockSize: 10, Duration: time.Second}
	st, err := Offline(ctx, &gate{}, control.NewVoice(440), nil, &recorder{}, opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if st.Blocks != 0 {
		t.Errorf("rendered %d blocks after cancel", st.Blocks)
	}
}

func TestOfflineSinkError(t *testing.T) {
	boom := errors.New("disk full")
	opts := Options{SampleRate: 1000, BlockSize: 10, Duration: time.Second}
	_, err := Offline(context.Background(), &gate{}, control.NewVoice(440), nil, &recorder{err: boom}, opts)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapping %v", err, boom)
	}
}

func TestOfflineRejectsBadOptions(t *testing.T) {
	_, err := Offline(context.Background(), &gate{}, control.NewVoice(440), nil, &recorder{}, Options{SampleRate: 1000})
	if err == nil {
		t.Error("expected error for zero block size")
	}
}

func TestLiveRendersCompiledVoice(t *testing.T) {
	g := graph.New()
	osc := g.AddNode(graph.KindOscillator)
	g.Nodes[osc].Knobs[graph.ShapeKnob] = float64(graph.ShapeSquare)
	for _, p := range []graph.Patch{
		{FromNode: graph.InputNode, FromSlot: graph.SyncSlot, ToNode: osc, ToSlot: 0},
		{FromNode: graph.InputNode, FromSlot: graph.FrequencySlot, ToNode: osc, ToSlot: 1},
		{FromNode: osc, FromSlot: 0, ToNode: graph.OutputNode, ToSlot: 0},
	} {
		if err := g.Connect(p); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	inst, err := compile.Compile(8000, 32, *g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	v := control.NewVoice(control.DefaultFrequency)
	v.NoteOn(69)
	fill := Live(inst, v, 32)
	out := make([]float32, 32)
	fill(out)
	// a square wave at 440 Hz starts high right after the rising edge
	if out[0] != 1 {
		t.Errorf("out[0] = %g, want 1", out[0])
	}
	if p := signal.Peak(out); p != 1 {
		t.Errorf("peak = %g, want 1", p)
	}
}
