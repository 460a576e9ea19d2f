package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// ErrSuperseded is returned when a newer evaluation started before this
// one finished.
var ErrSuperseded = errors.New("evaluation superseded by newer request")

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	result *EvalResult
	err    error
}

// waitWithTimeout waits for a result from ch, but returns an error if the
// evaluation exceeds EvalTimeout or ctx is done. It uses a generation
// counter to discard stale results from previous evaluations.
//
// On timeout the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ctx context.Context,
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*EvalResult, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, ErrSuperseded
		}
		return res.result, res.err

	case <-ctx.Done():
		return nil, fmt.Errorf("evaluation cancelled: %w", ctx.Err())

	case <-timer.C:
		return nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}
