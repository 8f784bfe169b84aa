package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/patchbay/pkg/audio"
	"github.com/chazu/patchbay/pkg/compile"
	"github.com/chazu/patchbay/pkg/control"
	"github.com/chazu/patchbay/pkg/engine"
	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/render"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 512
)

var errNoScore = errors.New("render: no score")

// App holds the collaborators shared by the CLI commands.
type App struct {
	engine     *engine.Engine
	sampleRate float64
	blockSize  int
	seed       uint64
}

// ErrorData is a JSON-serializable problem report. Line and Col come from
// the patch source; Node is set for graph problems.
type ErrorData struct {
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Node    *int   `json:"node,omitempty"`
	Message string `json:"message"`
}

// CheckResult is the outcome of evaluating and compiling a patch.
type CheckResult struct {
	Nodes    int         `json:"nodes"`
	Patches  int         `json:"patches"`
	Order    []int       `json:"order"`
	Errors   []ErrorData `json:"errors"`
	Warnings []ErrorData `json:"warnings"`
}

// OK reports whether the patch compiled.
func (r CheckResult) OK() bool {
	return len(r.Errors) == 0
}

// NewApp creates an App with default audio settings.
func NewApp() *App {
	return &App{
		engine:     engine.NewEngine(),
		sampleRate: DefaultSampleRate,
		blockSize:  DefaultBlockSize,
	}
}

// isJSON reports whether source looks like a saved instrument rather than
// patch source.
func isJSON(source []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(source), []byte("{"))
}

// ReadPatch reads a patch file. Files ending in .json, or whose content is a
// JSON object, are read as saved instruments; anything else is patch source.
func ReadPatch(path string) ([]byte, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") && !isJSON(source) {
		return nil, fmt.Errorf("read patch: %s: not a JSON instrument", path)
	}
	return source, nil
}

// Parse turns patch source or a saved instrument into a graph. Source
// evaluation problems come back as ErrorData with a nil graph; err is only
// set for fatal failures.
func (a *App) Parse(source []byte) (*graph.Instrument, []ErrorData, error) {
	if isJSON(source) {
		g, err := graph.ReadJSON(bytes.NewReader(source))
		if err != nil {
			return nil, []ErrorData{{Message: err.Error()}}, nil
		}
		return g, nil, nil
	}

	g, evalErrs, err := a.engine.Evaluate(string(source))
	if err != nil {
		return nil, nil, err
	}
	if len(evalErrs) > 0 {
		out := make([]ErrorData, 0, len(evalErrs))
		for _, e := range evalErrs {
			out = append(out, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return nil, out, nil
	}
	return g, nil, nil
}

// Compile parses and compiles a patch with the App's audio settings.
func (a *App) Compile(source []byte) (*compile.Instrument, error) {
	g, problems, err := a.Parse(source)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i, p := range problems {
			msgs[i] = formatProblem(p)
		}
		return nil, errors.New(strings.Join(msgs, "; "))
	}
	return compile.Compile(a.sampleRate, a.blockSize, *g, compile.WithSeed(a.seed))
}

// Check evaluates and compiles a patch, collecting every problem instead of
// stopping at the first.
func (a *App) Check(source []byte) CheckResult {
	result := CheckResult{
		Order:    []int{},
		Errors:   []ErrorData{},
		Warnings: []ErrorData{},
	}

	// Step 1: Evaluate the source into an instrument graph.
	g, problems, err := a.Parse(source)
	if err != nil {
		log.Printf("check: fatal error: %v", err)
		result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
		return result
	}
	if len(problems) > 0 {
		result.Errors = append(result.Errors, problems...)
		return result
	}
	result.Nodes = g.NodeCount()
	result.Patches = len(g.Patches)

	// Step 2: Compile, reporting validation problems per node.
	inst, err := compile.Compile(a.sampleRate, a.blockSize, *g, compile.WithSeed(a.seed))
	if err != nil {
		var ce *compile.CompileError
		var cyc *compile.CycleError
		switch {
		case errors.As(err, &ce):
			for _, p := range ce.Problems {
				result.Errors = append(result.Errors, nodeProblem(p.Node, p.Message))
			}
		case errors.As(err, &cyc):
			for _, n := range cyc.Nodes {
				result.Errors = append(result.Errors, nodeProblem(n, "part of a feedback cycle"))
			}
		default:
			result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
		}
		return result
	}

	// Step 3: Report the schedule and advisory findings.
	result.Order = inst.Order()
	for _, w := range inst.Warnings() {
		result.Warnings = append(result.Warnings, nodeProblem(w.Node, w.Message))
	}
	return result
}

func nodeProblem(node int, msg string) ErrorData {
	if node == graph.NoNode {
		return ErrorData{Message: msg}
	}
	n := node
	return ErrorData{Node: &n, Message: msg}
}

func formatProblem(p ErrorData) string {
	switch {
	case p.Line > 0:
		return fmt.Sprintf("line %d: %s", p.Line, p.Message)
	case p.Node != nil:
		return fmt.Sprintf("node %d: %s", *p.Node, p.Message)
	}
	return p.Message
}

// Render compiles a patch and plays score through it into sink. The voice
// starts at the first scored note's pitch, or DefaultFrequency. A nil score
// is an error; render silence with control.NewScore and Score.Pad.
func (a *App) Render(ctx context.Context, source []byte, score *control.Score, sink audio.Sink) (render.Stats, error) {
	if score == nil {
		return render.Stats{}, errNoScore
	}
	inst, err := a.Compile(source)
	if err != nil {
		return render.Stats{}, err
	}
	for _, w := range inst.Warnings() {
		log.Printf("warning: %s", w)
	}

	v := control.NewVoice(control.DefaultFrequency)
	return render.Offline(ctx, inst, v, score, sink, render.Options{
		SampleRate: a.sampleRate,
		BlockSize:  a.blockSize,
		Duration:   score.Duration(),
	})
}
