// Package session is the editor boundary. It owns the editable instrument
// graph and the compiled instrument the audio goroutine runs. Edits go to
// the graph; Commit compiles it and swaps the result in atomically.
package session

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/chazu/patchbay/pkg/compile"
	"github.com/chazu/patchbay/pkg/engine"
	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/signal"
)

// Option configures a Session.
type Option func(*Session)

// WithSeed sets the noise seed used by every commit.
func WithSeed(seed uint64) Option {
	return func(s *Session) { s.seed = seed }
}

// WithEngine sets the Lisp engine used by LoadSource.
func WithEngine(e *engine.Engine) Option {
	return func(s *Session) { s.engine = e }
}

// Session pairs an editable graph with its running compilation. Editor
// methods may be called from any goroutine; Process is called from the
// audio goroutine only.
type Session struct {
	sampleRate float64
	blockSize  int
	seed       uint64
	engine     *engine.Engine

	mu         sync.Mutex
	g          *graph.Instrument
	dirty      bool // edits since the last successful commit
	structural bool // node or patch edits since the last successful commit

	live atomic.Pointer[compile.Instrument]
}

// New returns a session with an empty graph and nothing running.
func New(sampleRate float64, blockSize int, opts ...Option) *Session {
	s := &Session{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		g:          graph.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = engine.NewEngine()
	}
	return s
}

// Describe returns the descriptor of a node kind, for rendering controls.
func (s *Session) Describe(kind graph.Kind) graph.Descriptor {
	return graph.Describe(kind)
}

// AddNode appends a node with default knobs and returns its index.
func (s *Session) AddNode(kind graph.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(true)
	return s.g.AddNode(kind)
}

// RemoveNode deletes a node and every patch touching it.
func (s *Session) RemoveNode(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.g.RemoveNode(i); err != nil {
		return err
	}
	s.touch(true)
	return nil
}

// Connect adds a patch, replacing any patch already feeding its input.
func (s *Session) Connect(p graph.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.g.Connect(p); err != nil {
		return err
	}
	s.touch(true)
	return nil
}

// Disconnect removes the patch feeding an input and reports whether one
// existed.
func (s *Session) Disconnect(toNode, toSlot int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.g.Disconnect(toNode, toSlot) {
		return false
	}
	s.touch(true)
	return true
}

// SetKnob clamps and stores a knob value in the graph. While the graph has
// no uncommitted structural edits the value also reaches the running
// instrument immediately, without a commit.
func (s *Session) SetKnob(node, knob int, value float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.g.SetKnob(node, knob, value)
	if err != nil {
		return 0, err
	}
	if live := s.live.Load(); live != nil && !s.structural {
		if _, err := live.SetKnob(node, knob, v); err != nil {
			return v, fmt.Errorf("live knob: %w", err)
		}
		return v, nil
	}
	s.touch(false)
	return v, nil
}

func (s *Session) touch(structural bool) {
	s.dirty = true
	s.structural = s.structural || structural
}

// Commit compiles the current graph and swaps it in. On failure the
// previously running instrument keeps running and the error is returned.
func (s *Session) Commit() ([]graph.ValidationWarning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := compile.Compile(s.sampleRate, s.blockSize, *s.g.Clone(), compile.WithSeed(s.seed))
	if err != nil {
		return nil, err
	}
	s.live.Store(inst)
	s.dirty, s.structural = false, false
	return inst.Warnings(), nil
}

// Pending reports whether the graph has edits the running instrument does
// not reflect.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Graph returns a copy of the editable graph.
func (s *Session) Graph() *graph.Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Clone()
}

// Instrument returns the running compiled instrument, or nil before the
// first successful commit.
func (s *Session) Instrument() *compile.Instrument {
	return s.live.Load()
}

// Replace swaps the editable graph for g. The running instrument is not
// affected until Commit.
func (s *Session) Replace(g *graph.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.g = g.Clone()
	s.touch(true)
}

// LoadJSON replaces the editable graph with one read from r.
func (s *Session) LoadJSON(r io.Reader) error {
	g, err := graph.ReadJSON(r)
	if err != nil {
		return err
	}
	s.Replace(g)
	return nil
}

// SaveJSON writes the editable graph to w.
func (s *Session) SaveJSON(w io.Writer) error {
	return graph.WriteJSON(w, s.Graph())
}

// LoadSource evaluates patch source and replaces the editable graph with
// the result. Evaluation errors leave the graph untouched.
func (s *Session) LoadSource(source string) ([]engine.EvalError, error) {
	g, evalErrs, err := s.engine.Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		return evalErrs, nil
	}
	s.Replace(g)
	return nil, nil
}

// Process runs one block of the running instrument, or writes silence when
// nothing has been committed. The instrument is loaded once per block, so a
// commit takes effect on a block boundary.
func (s *Session) Process(sync, freq, out signal.Buffer) {
	inst := s.live.Load()
	if inst == nil {
		signal.Zero(out)
		return
	}
	inst.Process(sync, freq, out)
}
