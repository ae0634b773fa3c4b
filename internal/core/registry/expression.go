package registry

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// NewExpressionEnv returns the CEL environment preconditions are compiled in.
// Expressions see three maps: doc, payload and actor.
func NewExpressionEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("actor", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// CompilePrecondition compiles a boolean precondition expression.
func CompilePrecondition(env *cel.Env, expr, message string) (Precondition, error) {
	if expr == "" {
		return Precondition{}, fmt.Errorf("empty precondition expression")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Precondition{}, fmt.Errorf("precondition %q: %w", expr, iss.Err())
	}
	if !cel.BoolType.IsAssignableType(ast.OutputType()) {
		return Precondition{}, fmt.Errorf("precondition %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return Precondition{}, fmt.Errorf("precondition %q: %w", expr, err)
	}
	if message == "" {
		message = "precondition not met: " + expr
	}
	return Precondition{Expr: expr, Message: message, Program: prg}, nil
}
