// Package engine provides the Lisp scene language for geoview.
// It wraps zygomys in a sandboxed environment and produces a placement tree
// from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
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

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Message string
	Name    string // volume the warning is about, if any
}

func (w EvalWarning) String() string {
	if w.Name == "" {
		return w.Message
	}
	return fmt.Sprintf("volume %q: %s", w.Name, w.Message)
}

// EvalResult bundles the full output of an evaluation.
// Root is nil when Errors is non-empty or the source defines no world.
type EvalResult struct {
	Root     *scene.Placement
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for scene evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	kernel kernel.Kernel

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine that builds solids with k.
func NewEngine(k kernel.Kernel) *Engine {
	return &Engine{kernel: k}
}

// Evaluate takes Lisp source code and produces a placement tree.
//
// Return semantics:
//   - On success: result with Root set (nil if no world was defined)
//   - On parse/eval failure: result with Errors set and nil Root
//   - On fatal failure (timeout, cancellation, panic): nil result and error
func (e *Engine) Evaluate(ctx context.Context, source string) (*EvalResult, error) {
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

		res, err := e.evaluate(source)
		ch <- evalResult{result: res, err: err}
	}()

	return waitWithTimeout(ctx, ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*EvalResult, error) {
	// Empty source is a valid program with no world.
	if strings.TrimSpace(source) == "" {
		return &EvalResult{}, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder(e.kernel)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}, nil
	}
	if _, err := env.Run(); err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}, nil
	}

	return &EvalResult{Root: b.world, Warnings: b.warnings()}, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
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
