package host

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// DefaultScriptTimeout bounds a single script evaluation.
const DefaultScriptTimeout = 10 * time.Second

// ErrScriptTimeout is returned when a script runs past its time budget.
var ErrScriptTimeout = errors.New("script evaluation timed out")

// globalAliases name the global object inside scripts, as a browser does.
var globalAliases = []string{"window", "self", "globalThis"}

// Runtime runs classic scripts in one shared JavaScript VM whose global
// object stands in for window. Scripts evaluated later see the globals of
// earlier ones, so a UMD bundle can depend on another (react-dom on React).
//
// Evaluate has the Evaluator signature. A Runtime is safe for concurrent use;
// evaluations are serialized.
type Runtime struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	timeout time.Duration
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithScriptTimeout sets the per-script time budget. Zero or negative
// disables it.
func WithScriptTimeout(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.timeout = d
	}
}

// NewRuntime creates a Runtime with window, self and globalThis bound to the
// global object.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	vm := goja.New()
	global := vm.GlobalObject()
	for _, name := range globalAliases {
		_ = global.DefineDataProperty(name, global, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	}

	r := &Runtime{vm: vm, timeout: DefaultScriptTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Evaluate runs source and returns the globals it created or reassigned,
// exported to Go values: objects become map[string]any, arrays []any and
// functions func(goja.FunctionCall) goja.Value.
//
// Top-level let and const bindings are not properties of the global object
// and are not reported.
func (r *Runtime) Evaluate(url string, source []byte) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	global := r.vm.GlobalObject()
	before := make(map[string]goja.Value)
	for _, key := range global.Keys() {
		before[key] = global.Get(key)
	}

	var timer *time.Timer
	if r.timeout > 0 {
		timer = time.AfterFunc(r.timeout, func() {
			r.vm.Interrupt(ErrScriptTimeout)
		})
	}
	_, err := r.vm.RunScript(url, string(source))
	if timer != nil {
		timer.Stop()
	}
	r.vm.ClearInterrupt()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("run %s: %w", url, ErrScriptTimeout)
		}
		return nil, fmt.Errorf("run %s: %w", url, err)
	}

	bindings := make(map[string]any)
	for _, key := range global.Keys() {
		value := global.Get(key)
		if prev, ok := before[key]; ok && prev.SameAs(value) {
			continue
		}
		bindings[key] = value.Export()
	}
	return bindings, nil
}

// Set binds value as a global visible to later scripts.
func (r *Runtime) Set(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.vm.Set(name, value); err != nil {
		return fmt.Errorf("set global %s: %w", name, err)
	}
	return nil
}
