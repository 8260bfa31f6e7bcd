package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/postcheck/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// UnresolvedError lists the references a template could not resolve.
type UnresolvedError struct {
	Input string
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference(s) %s in %q", strings.Join(e.Names, ", "), e.Input)
}

// Resolver handles variable resolution with thread-safe access to variables and captures.
// It supports environment variables, built-in functions, captures from previous steps,
// and user-defined variables.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	captures  map[string]any
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		captures:  make(map[string]any),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetCapture stores a captured value under both "step.capture" and "capture".
func (r *Resolver) SetCapture(stepName, captureName string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stepName != "" {
		r.captures[stepName+"."+captureName] = value
	}
	r.captures[captureName] = value
}

func (r *Resolver) GetCapture(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.captures[name]
	return v, ok
}

// Captures returns a copy of the capture scope.
func (r *Resolver) Captures() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.captures))
	for k, v := range r.captures {
		out[k] = v
	}
	return out
}

// lookup evaluates a single expression, the text between the braces.
func (r *Resolver) lookup(expr string) (any, bool) {
	expr = strings.TrimSpace(expr)

	if strings.HasPrefix(expr, "$") {
		name := expr[1:]
		if strings.Contains(name, "(") {
			return r.funcs.Call(name)
		}
		if val, ok := os.LookupEnv(name); ok {
			return val, true
		}
		return nil, false
	}

	if strings.Contains(expr, "(") {
		return r.funcs.Call(expr)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if val, ok := r.captures[expr]; ok {
		return val, true
	}
	if val, ok := r.variables[expr]; ok {
		return val, true
	}
	return nil, false
}

// Resolve interpolates every {{expr}} in input. Unresolved references are
// left in place and reported through the warn function.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.lookup(expr); ok {
			return fmt.Sprintf("%v", val)
		}
		r.warn("unresolved reference: %s", expr)
		return match
	})
}

// ResolveStrict is Resolve but fails when any reference stays unresolved.
func (r *Resolver) ResolveStrict(input string) (string, error) {
	var missing []string
	out := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.lookup(expr); ok {
			return fmt.Sprintf("%v", val)
		}
		missing = append(missing, expr)
		return match
	})
	if len(missing) > 0 {
		return "", &UnresolvedError{Input: input, Names: missing}
	}
	return out, nil
}

// ResolveValue walks maps and slices resolving every string. A string that
// consists of exactly one reference keeps the referenced value's type, so
// {"userId": "{{$randomInt()}}"} yields an integer.
func (r *Resolver) ResolveValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if m := variablePattern.FindStringSubmatchIndex(val); m != nil && m[0] == 0 && m[1] == len(val) {
			expr := strings.TrimSpace(val[m[2]:m[3]])
			if resolved, ok := r.lookup(expr); ok {
				return resolved, nil
			}
			return nil, &UnresolvedError{Input: val, Names: []string{expr}}
		}
		return r.ResolveStrict(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string)
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// HasUnresolvedVariables reports whether input references anything unknown.
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.GetUnresolvedVariables(input)) > 0
}

// GetUnresolvedVariables returns the unknown references in input, in order.
func (r *Resolver) GetUnresolvedVariables(input string) []string {
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if _, ok := r.lookup(expr); !ok {
			names = append(names, expr)
		}
	}
	return names
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.captures[name]; ok {
		return v, true
	}
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	return nil, false
}

// Clone copies variables and captures into a new resolver. Scenarios run
// on a clone so their captures never leak into siblings.
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	clone.funcs = r.funcs
	clone.warnFunc = r.warnFunc
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	for k, v := range r.captures {
		clone.captures[k] = v
	}
	return clone
}
