package storefront

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores rule helpers by lower-cased name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register adds fn under name. Names are case-insensitive and may only be
// registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("storefront: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("storefront: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("storefront: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("storefront: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("storefront: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFunctions registers not_blank and valid_email.
func DefaultFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("not_blank", notBlank)
	_ = registry.Register("valid_email", validEmail)
	return registry
}

func notBlank(args ...any) (any, error) {
	value, err := stringArg("not_blank", args)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(value) != "", nil
}

func validEmail(args ...any) (any, error) {
	value, err := stringArg("valid_email", args)
	if err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false, nil
	}
	return addr.Address == value && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], "."), nil
}

func stringArg(name string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("storefront: %s expects 1 argument, got %d", name, len(args))
	}
	switch v := args[0].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}
