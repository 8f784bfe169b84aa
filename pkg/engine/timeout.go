package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/patchbay/pkg/graph"
)

// EvalTimeout bounds how long a patch may run before it is abandoned. A
// patch that loops forever never produces an instrument.
const EvalTimeout = 5 * time.Second

type evalResult struct {
	instrument *graph.Instrument
	errors     []EvalError
	err        error
}

// waitWithTimeout returns the instrument built by evaluation gen. A patch
// reloaded while gen was still running makes gen stale, and its instrument
// is dropped so an older patch never replaces a newer one.
//
// A timed out evaluator keeps running in its goroutine until the sandbox
// gives up; ch is buffered so its send never blocks.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*graph.Instrument, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		latest := *currentGen
		mu.Unlock()
		if gen != latest {
			return nil, nil, fmt.Errorf("patch evaluation %d superseded by reload %d", gen, latest)
		}
		return res.instrument, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("patch evaluation timed out after %s; check for a recursive def or an endless loop", EvalTimeout)
	}
}
