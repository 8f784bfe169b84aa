// Package engine provides the Lisp patch language. It wraps zygomys in a
// sandboxed environment and produces a graph.Instrument from user source.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/patchbay/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code, or a rejected patch.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment, so the same source
// always yields the same instrument.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate takes patch source code and produces a new instrument.
//
// Return semantics:
//   - On success: returns instrument + nil errors + nil error
//   - On parse/eval failure: returns nil instrument + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*graph.Instrument, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		g, evalErrs, err := e.evaluate(source)
		ch <- evalResult{instrument: g, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.Instrument, []EvalError, error) {
	// Empty source is a valid program that produces an empty instrument.
	if strings.TrimSpace(source) == "" {
		return graph.New(), nil, nil
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	g := graph.New()
	registerBuiltins(env, g)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	return g, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
