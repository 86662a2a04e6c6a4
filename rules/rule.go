package rules

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator defines the interface for evaluating rule expressions.
type Evaluator interface {
	Evaluate(expression string, env map[string]any) (bool, error)
}

// ExprEvaluator is an implementation of Evaluator using expr-lang/expr.
// Compiled programs are cached per expression, so every env passed for a
// given expression must have the same shape.
type ExprEvaluator struct {
	cache       map[string]*vm.Program
	mu          sync.RWMutex
	optionsFunc map[string]func(map[string]any) any
}

// NewExprEvaluator creates a new ExprEvaluator with an initialized cache.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		cache:       make(map[string]*vm.Program),
		optionsFunc: make(map[string]func(map[string]any) any),
	}
}

// AddOptionFunc registers a derived variable. Before evaluation, name is
// bound to f applied to the caller's env.
func (e *ExprEvaluator) AddOptionFunc(name string, f func(map[string]any) any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.optionsFunc[name] = f
}

// Evaluate evaluates the given expression against the provided env.
// The expression must evaluate to a boolean; otherwise, an error is returned.
// The caller's env is never modified.
func (e *ExprEvaluator) Evaluate(expression string, env map[string]any) (bool, error) {
	scope := e.scope(env)

	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()

	if !ok {
		e.mu.Lock()
		if program, ok = e.cache[expression]; !ok {
			var err error
			program, err = expr.Compile(expression, expr.Env(scope))
			if err != nil {
				e.mu.Unlock()
				return false, err
			}
			e.cache[expression] = program
		}
		e.mu.Unlock()
	}

	result, err := expr.Run(program, scope)
	if err != nil {
		return false, err
	}

	if boolResult, ok := result.(bool); ok {
		return boolResult, nil
	}
	return false, fmt.Errorf("expression '%s' did not evaluate to a boolean, got %T", expression, result)
}

func (e *ExprEvaluator) scope(env map[string]any) map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	scope := make(map[string]any, len(env)+len(e.optionsFunc))
	for k, v := range env {
		scope[k] = v
	}
	for k, f := range e.optionsFunc {
		scope[k] = f(env)
	}
	return scope
}
