package storefront

import (
	"fmt"
	"strings"
	"time"
)

// Rule is one profile check. Expr must evaluate to true for a valid profile.
type Rule struct {
	Field   string `yaml:"field" json:"field"`
	Expr    string `yaml:"expr" json:"expr"`
	Message string `yaml:"message" json:"message"`
}

// RuleSet is a list of rules for one engine.
type RuleSet struct {
	Engine string `yaml:"engine" json:"engine"`
	Rules  []Rule `yaml:"rules" json:"rules"`
}

// DefaultProfileRules requires a name and accepts an empty or well-formed
// email.
func DefaultProfileRules(engine string) RuleSet {
	switch engine {
	case EngineCEL:
		return RuleSet{Engine: EngineCEL, Rules: []Rule{
			{Field: "name", Expr: `name.matches("\\S")`, Message: "name is required"},
			{Field: "email", Expr: `email == "" || email.matches("^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$")`, Message: "email is not a valid address"},
		}}
	case EngineJS:
		return RuleSet{Engine: EngineJS, Rules: []Rule{
			{Field: "name", Expr: `not_blank(name)`, Message: "name is required"},
			{Field: "email", Expr: `email === "" || valid_email(email)`, Message: "email is not a valid address"},
		}}
	default:
		return RuleSet{Engine: EngineExpr, Rules: []Rule{
			{Field: "name", Expr: `not_blank(name)`, Message: "name is required"},
			{Field: "email", Expr: `email == "" || valid_email(email)`, Message: "email is not a valid address"},
		}}
	}
}

// ValidatorOption configures NewValidator.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
}

// WithRuleEvaluator overrides the engine named by the rule set.
func WithRuleEvaluator(evaluator Evaluator) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.evaluator = evaluator
	}
}

func WithRuleCache(cache ProgramCache) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.cache = cache
	}
}

// WithRuleFunctions replaces DefaultFunctions.
func WithRuleFunctions(registry *FunctionRegistry) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.functions = registry
	}
}

func WithEvaluatorLogger(logger EvaluatorLogger) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.logger = logger
	}
}

// Validator checks profiles against a compiled RuleSet. It is safe for
// concurrent use.
type Validator struct {
	engine string
	rules  []compiledProfileRule
	logger EvaluatorLogger
}

type compiledProfileRule struct {
	Rule
	program CompiledRule
}

// NewValidator compiles every rule up front so malformed expressions fail at
// start-up rather than on save.
func NewValidator(set RuleSet, opts ...ValidatorOption) (*Validator, error) {
	cfg := validatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.functions == nil {
		cfg.functions = DefaultFunctions()
	}
	if cfg.cache == nil {
		cfg.cache = NewMemoryProgramCache()
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	evaluator := cfg.evaluator
	if evaluator == nil {
		var err error
		evaluator, err = NewEvaluator(set.Engine, cfg.cache, cfg.functions)
		if err != nil {
			return nil, err
		}
	}

	v := &Validator{engine: engineName(evaluator), logger: cfg.logger}
	for _, rule := range set.Rules {
		if strings.TrimSpace(rule.Expr) == "" {
			return nil, fmt.Errorf("storefront: rule for field %q has no expression", rule.Field)
		}
		program, err := evaluator.Compile(rule.Expr, CompileForField(rule.Field))
		if err != nil {
			return nil, err
		}
		v.rules = append(v.rules, compiledProfileRule{Rule: rule, program: program})
	}
	return v, nil
}

// Engine reports the engine backing the validator.
func (v *Validator) Engine() string {
	return v.engine
}

// ValidateProfile evaluates every rule against profile. All failing rules are
// reported in one KindValidationFailed error.
func (v *Validator) ValidateProfile(profile StoreProfile) error {
	if v == nil {
		return nil
	}
	bindings := ProfileBindings(profile)
	now := time.Now()

	var failures []string
	var cause error
	for _, rule := range v.rules {
		start := time.Now()
		out, err := rule.program.Evaluate(RuleContext{Bindings: bindings, Now: &now, Field: rule.Field})
		passed, _ := out.(bool)
		if err == nil && !isBool(out) {
			err = wrapEvaluationError(v.engine, rule.Expr, rule.Field, fmt.Errorf("rule returned %T, want bool", out))
		}
		v.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   v.engine,
			Expr:     rule.Expr,
			Field:    rule.Field,
			Passed:   err == nil && passed,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", rule.Field, err))
			if cause == nil {
				cause = err
			}
			continue
		}
		if !passed {
			failures = append(failures, rule.Message)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &Error{Kind: KindValidationFailed, Message: strings.Join(failures, "; "), Err: cause}
}

// ProfileBindings exposes profile fields to rule expressions.
func ProfileBindings(profile StoreProfile) map[string]any {
	return map[string]any{
		"id":          profile.ID,
		"name":        profile.Name,
		"description": profile.Description,
		"email":       profile.Email,
		"logo":        profile.Logo,
		"is_new":      IsNewProfile(profile),
	}
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}
