// Package tools defines the contract between the orchestrator and the tool
// handlers that do the actual site and well computations.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"siteflow/internal/domain"
)

var (
	ErrNoHandler = errors.New("no tool handler registered")
	ErrNoDetail  = errors.New("tool reported failure without detail")
)

type Invocation struct {
	Intent         domain.IntentType     `json:"intent"`
	Parameters     map[string]any        `json:"parameters"`
	ProjectContext domain.ProjectContext `json:"project_context"`
}

// Result is what a handler reports. A handler that ran but could not produce
// output returns Success false with Error set; a returned Go error means the
// handler could not be reached at all.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type Handler interface {
	Invoke(ctx context.Context, inv Invocation) (Result, error)
}

type HandlerFunc func(ctx context.Context, inv Invocation) (Result, error)

func (f HandlerFunc) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	return f(ctx, inv)
}

// Fail is a convenience for handlers rejecting their input.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Err returns nil for a successful result and the reported failure
// otherwise, falling back to ErrNoDetail when the handler gave no reason.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return ErrNoDetail
	}
	return errors.New(r.Error)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.IntentType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[domain.IntentType]Handler{}}
}

func (r *Registry) Register(intent domain.IntentType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[intent] = h
}

func (r *Registry) Lookup(intent domain.IntentType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[intent]
	return h, ok
}

// Intents lists the registered intents in name order.
func (r *Registry) Intents() []domain.IntentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.IntentType, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	h, ok := r.Lookup(inv.Intent)
	if !ok {
		return Result{}, fmt.Errorf("%w for %s", ErrNoHandler, inv.Intent)
	}
	return h.Invoke(ctx, inv)
}

var floatParams = map[string]bool{
	"latitude":   true,
	"longitude":  true,
	"radius_km":  true,
	"wind_speed": true,
}

// Params converts the classifier's string parameters into the typed bag a
// handler receives. Numeric parameters that do not parse stay strings.
func Params(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case floatParams[k]:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				out[k] = f
				continue
			}
		case k == "num_turbines":
			if n, err := strconv.Atoi(v); err == nil {
				out[k] = n
				continue
			}
		case k == "confirm":
			if b, err := strconv.ParseBool(v); err == nil {
				out[k] = b
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Float reads a numeric parameter regardless of whether it arrived as a Go
// number, a JSON number or a string.
func Float(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// String reads a string parameter.
func String(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
