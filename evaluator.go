package storefront

import (
	"fmt"
	"sync"
	"time"
)

// RuleContext carries the inputs of one rule evaluation. Bindings become
// top-level variables; Field labels errors and log events.
type RuleContext struct {
	Bindings map[string]any
	Now      *time.Time
	Args     map[string]any
	Field    string
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Bindings == nil {
		ctx.Bindings = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx RuleContext) label() string {
	if ctx.Field != "" {
		return ctx.Field
	}
	return "profile"
}

// Evaluator executes rule expressions.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

type compileConfig struct {
	field string
}

// CompileForField labels compile errors with field.
func CompileForField(field string) CompileOption {
	return func(cfg *compileConfig) {
		cfg.field = field
	}
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is a concurrency safe ProgramCache.
type MemoryProgramCache struct {
	programs sync.Map
}

func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// Engine names.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator builds the evaluator for engine; "" selects expr. The js
// engine is only available in binaries built with the js_eval tag.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, fmt.Errorf("storefront: js evaluator requires the js_eval build tag")
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("storefront: unknown rule engine %q", engine)
	}
}

func engineName(e Evaluator) string {
	switch e.(type) {
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	case nil:
		return "unknown"
	default:
		if jsEvaluatorAvailable() && fmt.Sprintf("%T", e) == "*storefront.jsEvaluator" {
			return EngineJS
		}
		return "custom"
	}
}
