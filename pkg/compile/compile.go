// Package compile turns an editable instrument graph into a frozen
// per-block schedule. Compiling allocates every buffer and constructs every
// node up front; processing a block afterwards neither allocates nor fails.
package compile

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/node"
	"github.com/chazu/patchbay/pkg/signal"
)

// Option configures a compile.
type Option func(*options)

type options struct {
	seed uint64
}

// WithSeed sets the seed of the noise sources. Two compiles of the same graph
// with the same seed produce identical output.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// compiled is one scheduled node: its transfer function bound to the
// buffers it reads and writes.
type compiled struct {
	index  int
	update node.Update
	in     []signal.Buffer
	out    []signal.Buffer
}

// Instrument is a compiled graph. Process may be called from one goroutine
// at a time; SetKnob may be called concurrently with it.
type Instrument struct {
	sampleRate float64
	blockSize  int

	sync, freq signal.Buffer
	output     signal.Buffer

	steps    []compiled
	order    []int
	depth    []int
	knobs    []*node.Knobs
	kinds    []graph.Kind
	warnings []graph.ValidationWarning
}

// Compile validates inst, checks it for cycles, wires its patches to
// block-sized buffers and freezes the execution order. It returns a
// *CompileError or *CycleError when the graph is rejected.
func Compile(sampleRate float64, blockSize int, inst graph.Instrument, opts ...Option) (*Instrument, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	g := &inst

	var problems []graph.ValidationError
	var warnings []graph.ValidationWarning
	if blockSize <= 0 {
		problems = append(problems, graph.ValidationError{
			Node:     graph.NoNode,
			Message:  fmt.Sprintf("block size %d must be positive", blockSize),
			Severity: graph.SeverityError,
		})
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		problems = append(problems, graph.ValidationError{
			Node:     graph.NoNode,
			Message:  fmt.Sprintf("sample rate %g must be positive", sampleRate),
			Severity: graph.SeverityError,
		})
	}
	for _, e := range graph.Validate(g) {
		if e.Severity == graph.SeverityWarning {
			warnings = append(warnings, graph.ValidationWarning{Node: e.Node, Message: e.Message})
			continue
		}
		problems = append(problems, e)
	}
	if len(problems) > 0 {
		return nil, &CompileError{Problems: problems}
	}

	if cycle := graph.FindCycle(g); len(cycle) > 0 {
		return nil, &CycleError{Nodes: cycle}
	}

	depth, err := depths(g)
	if err != nil {
		return nil, err
	}

	c := &Instrument{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		sync:       signal.New(blockSize),
		freq:       signal.New(blockSize),
		depth:      depth,
		order:      order(depth),
		knobs:      make([]*node.Knobs, len(g.Nodes)),
		kinds:      make([]graph.Kind, len(g.Nodes)),
	}

	// One buffer per producing output slot, shared by every consumer.
	type slot struct{ node, index int }
	buffers := map[slot]signal.Buffer{
		{graph.InputNode, graph.SyncSlot}:      c.sync,
		{graph.InputNode, graph.FrequencySlot}: c.freq,
	}
	for _, p := range g.Patches {
		key := slot{p.FromNode, p.FromSlot}
		if _, ok := buffers[key]; !ok {
			buffers[key] = signal.New(blockSize)
		}
	}
	zero := signal.New(blockSize)

	c.output = zero
	if p, ok := g.Producer(graph.OutputNode, 0); ok {
		c.output = buffers[slot{p.FromNode, p.FromSlot}]
	}

	all := make([]compiled, len(g.Nodes))
	for i, n := range g.Nodes {
		d := graph.Describe(n.Kind)
		values := make([]float64, len(n.Knobs))
		for k, v := range n.Knobs {
			values[k] = d.Knobs[k].Clamp(v)
		}
		c.knobs[i] = node.NewKnobs(values)
		c.kinds[i] = n.Kind

		cfg := node.Config{
			SampleRate: sampleRate,
			Rand:       rand.New(rand.NewPCG(o.seed, uint64(i))),
		}
		cn := compiled{
			index:  i,
			update: node.Construct(n.Kind, cfg, c.knobs[i]),
			in:     make([]signal.Buffer, len(d.Inputs)),
			out:    make([]signal.Buffer, len(d.Outputs)),
		}
		for s, name := range d.Inputs {
			if p, ok := g.Producer(i, s); ok {
				cn.in[s] = buffers[slot{p.FromNode, p.FromSlot}]
				continue
			}
			cn.in[s] = zero
			if depth[i] >= 0 && n.Kind != graph.KindMixer {
				warnings = append(warnings, graph.ValidationWarning{
					Node:    i,
					Message: fmt.Sprintf("%s input %q is not connected and reads silence", n.Kind, name),
				})
			}
		}
		for s := range d.Outputs {
			if b, ok := buffers[slot{i, s}]; ok {
				cn.out[s] = b
			} else {
				cn.out[s] = signal.New(blockSize)
			}
		}
		if depth[i] < 0 {
			warnings = append(warnings, graph.ValidationWarning{
				Node:    i,
				Message: fmt.Sprintf("%s does not reach the output and is not scheduled", n.Kind),
			})
		}
		all[i] = cn
	}

	c.steps = make([]compiled, len(c.order))
	for k, i := range c.order {
		c.steps[k] = all[i]
	}
	c.warnings = warnings
	return c, nil
}

// Process runs one block: it copies sync and freq into the instrument,
// runs every scheduled node in order and copies the result into out.
func (c *Instrument) Process(sync, freq, out signal.Buffer) {
	signal.Zero(c.sync)
	signal.Zero(c.freq)
	signal.Copy(c.sync, sync)
	signal.Copy(c.freq, freq)
	for _, s := range c.steps {
		s.update(s.in, s.out)
	}
	signal.Copy(out, c.output)
}

// SetKnob stores a new knob value into the running instrument, clamped to
// the knob's bounds, and returns the stored value.
func (c *Instrument) SetKnob(nodeIndex, knob int, value float64) (float64, error) {
	if nodeIndex < 0 || nodeIndex >= len(c.knobs) {
		return 0, fmt.Errorf("node %d does not exist", nodeIndex)
	}
	d := graph.Describe(c.kinds[nodeIndex])
	if knob < 0 || knob >= len(d.Knobs) {
		return 0, fmt.Errorf("%s has no knob %d", c.kinds[nodeIndex], knob)
	}
	v := d.Knobs[knob].Clamp(value)
	c.knobs[nodeIndex].Set(knob, v)
	return v, nil
}

// Knob returns the live value of a knob.
func (c *Instrument) Knob(nodeIndex, knob int) (float64, bool) {
	if nodeIndex < 0 || nodeIndex >= len(c.knobs) || knob < 0 || knob >= c.knobs[nodeIndex].Len() {
		return 0, false
	}
	return c.knobs[nodeIndex].Get(knob), true
}

// Order returns the scheduled node indices in execution order.
func (c *Instrument) Order() []int {
	return append([]int(nil), c.order...)
}

// Depth returns a node's distance from the output. ok is false for nodes
// that were pruned or do not exist.
func (c *Instrument) Depth(nodeIndex int) (depth int, ok bool) {
	if nodeIndex < 0 || nodeIndex >= len(c.depth) || c.depth[nodeIndex] < 0 {
		return 0, false
	}
	return c.depth[nodeIndex], true
}

// Warnings returns the non-fatal findings of the compile.
func (c *Instrument) Warnings() []graph.ValidationWarning {
	return c.warnings
}

// BlockSize returns the number of samples per block.
func (c *Instrument) BlockSize() int {
	return c.blockSize
}

// SampleRate returns the sample rate the instrument was compiled for.
func (c *Instrument) SampleRate() float64 {
	return c.sampleRate
}
