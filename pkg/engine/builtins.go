package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/patchbay/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing patch values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNode refers to a node instance added by a constructor builtin.
type sexpNode struct {
	index int
	kind  graph.Kind
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s #%d)", n.kind, n.index)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpEndpoint refers to a slot of the virtual input or output endpoint.
type sexpEndpoint struct {
	node int
	slot int
}

func (p *sexpEndpoint) SexpString(ps *zygo.PrintState) string {
	if p.node == graph.OutputNode {
		return "(output)"
	}
	return fmt.Sprintf("(input :%s)", graph.InputDescriptor().Outputs[p.slot])
}
func (p *sexpEndpoint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string // keyword names in source order
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		result.order = append(result.order, name)
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, bool) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), true
	case *zygo.SexpFloat:
		return v.Val, true
	}
	return 0, false
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %s", s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toSlot resolves a slot given by name, keyword or index against names.
func toSlot(s zygo.Sexp, names []string) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	name, err := toKeywordString(s)
	if err != nil {
		return 0, err
	}
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no slot %q, want one of %s", name, strings.Join(names, ", "))
}

// toSource resolves a patch source: a node's output or an input endpoint.
func toSource(s zygo.Sexp) (node, slot int, err error) {
	switch v := s.(type) {
	case *sexpNode:
		return v.index, 0, nil
	case *sexpEndpoint:
		if v.node == graph.OutputNode {
			return 0, 0, fmt.Errorf("the output endpoint cannot be a source")
		}
		return v.node, v.slot, nil
	}
	return 0, 0, fmt.Errorf("expected node or (input ...), got %s", s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, bool) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		items, err := zygo.ListToArray(v)
		return items, err == nil
	case *zygo.SexpArray:
		return v.Val, true
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the patch language builtins into a zygomys
// environment. The builtins populate g as the program runs.
//
// Source must be preprocessed with preprocessSource() first so that :keyword
// tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, g *graph.Instrument) {

	// -----------------------------------------------------------------------
	// (oscillator (input :sync) (input :frequency) :shape :saw)
	// (filter amp :cutoff 800 :bandwidth 2)
	// (gain osc 0.5)
	// (mixer a b c)
	//
	// Numbers fill knobs in order, node and endpoint arguments feed inputs
	// in order, keywords set knobs by label.
	// -----------------------------------------------------------------------
	for _, kind := range graph.Kinds() {
		env.AddFunction(kind.String(), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			index := g.AddNode(kind)
			if err := applyArgs(g, index, parseArgs(args)); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &sexpNode{index: index, kind: kind}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (input :sync) / (input :frequency)
	// -----------------------------------------------------------------------
	env.AddFunction("input", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("input requires :sync or :frequency")
		}
		slot, err := toSlot(args[0], graph.InputDescriptor().Outputs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("input: %w", err)
		}
		return &sexpEndpoint{node: graph.InputNode, slot: slot}, nil
	})

	// -----------------------------------------------------------------------
	// (output)
	// -----------------------------------------------------------------------
	env.AddFunction("output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("output takes no arguments")
		}
		return &sexpEndpoint{node: graph.OutputNode}, nil
	})

	// -----------------------------------------------------------------------
	// (connect src dst :from "output" :to "input")
	//
	// Slots default to 0 and may be given by name, keyword or index.
	// Connecting an input that is already fed replaces its producer.
	// Returns dst so connections can be nested.
	// -----------------------------------------------------------------------
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("connect requires a source and a destination")
		}

		var p graph.Patch
		var err error
		p.FromNode, p.FromSlot, err = toSource(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: source: %w", err)
		}
		if v, ok := pa.kw["from"]; ok {
			src, isNode := pa.positional[0].(*sexpNode)
			if !isNode {
				return zygo.SexpNull, fmt.Errorf("connect: :from only applies to nodes")
			}
			if p.FromSlot, err = toSlot(v, graph.Describe(src.kind).Outputs); err != nil {
				return zygo.SexpNull, fmt.Errorf("connect: from: %w", err)
			}
		}

		switch dst := pa.positional[1].(type) {
		case *sexpNode:
			p.ToNode = dst.index
			if v, ok := pa.kw["to"]; ok {
				if p.ToSlot, err = toSlot(v, graph.Describe(dst.kind).Inputs); err != nil {
					return zygo.SexpNull, fmt.Errorf("connect: to: %w", err)
				}
			}
		case *sexpEndpoint:
			if dst.node != graph.OutputNode {
				return zygo.SexpNull, fmt.Errorf("connect: the input endpoint cannot be a destination")
			}
			p.ToNode = graph.OutputNode
		default:
			return zygo.SexpNull, fmt.Errorf("connect: expected node or (output) as destination, got %s", dst.SexpString(nil))
		}

		if err := g.Connect(p); err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		return pa.positional[1], nil
	})

	// -----------------------------------------------------------------------
	// (set-knob filt :cutoff 1200)
	// -----------------------------------------------------------------------
	env.AddFunction("set_knob", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("set-knob requires one node")
		}
		n, ok := pa.positional[0].(*sexpNode)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("set-knob: expected node, got %s", pa.positional[0].SexpString(nil))
		}
		if err := applyKnobs(g, n.index, pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-knob: %w", err)
		}
		return n, nil
	})
}

// applyArgs wires positional sources into the node's inputs and sets its
// knobs from positional numbers and keywords.
func applyArgs(g *graph.Instrument, index int, pa kwArgs) error {
	d := graph.Describe(g.Nodes[index].Kind)
	knob, input := 0, 0

	var sources []zygo.Sexp
	for _, arg := range pa.positional {
		if items, ok := sexpListToSlice(arg); ok {
			sources = append(sources, items...)
			continue
		}
		sources = append(sources, arg)
	}

	for _, arg := range sources {
		if v, ok := toFloat64(arg); ok {
			if knob >= len(d.Knobs) {
				return fmt.Errorf("too many knob values (%d knobs)", len(d.Knobs))
			}
			if _, err := g.SetKnob(index, knob, v); err != nil {
				return err
			}
			knob++
			continue
		}

		from, slot, err := toSource(arg)
		if err != nil {
			return err
		}
		if input >= len(d.Inputs) {
			return fmt.Errorf("too many inputs (%d slots)", len(d.Inputs))
		}
		if err := g.Connect(graph.Patch{FromNode: from, FromSlot: slot, ToNode: index, ToSlot: input}); err != nil {
			return err
		}
		input++
	}

	return applyKnobs(g, index, pa)
}

// applyKnobs sets knobs from keyword arguments. The oscillator's shape also
// accepts a shape name.
func applyKnobs(g *graph.Instrument, index int, pa kwArgs) error {
	kind := g.Nodes[index].Kind
	d := graph.Describe(kind)

	for _, label := range pa.order {
		k := d.KnobIndex(label)
		if k < 0 {
			return fmt.Errorf("%s has no knob %q", kind, label)
		}
		arg := pa.kw[label]

		v, ok := toFloat64(arg)
		if !ok && kind == graph.KindOscillator && k == graph.ShapeKnob {
			name, err := toKeywordString(arg)
			if err != nil {
				return fmt.Errorf("shape: %w", err)
			}
			shape, err := graph.ParseShape(name)
			if err != nil {
				return err
			}
			v, ok = float64(shape), true
		}
		if !ok {
			return fmt.Errorf("%s: expected number, got %s", label, arg.SexpString(nil))
		}
		if _, err := g.SetKnob(index, k, v); err != nil {
			return err
		}
	}
	return nil
}
