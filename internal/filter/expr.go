// Package filter provides CEL expression filters over output rows.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// ErrInvalidExpression is returned when an expression fails to compile or
// does not produce a bool.
var ErrInvalidExpression = errors.New("invalid filter expression")

// RowVar is the variable an expression sees each row as.
const RowVar = "row"

// maxCached bounds the compiled expression cache. It is reset when full.
const maxCached = 256

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error

	cacheMu  sync.RWMutex
	compiled = make(map[string]*Expr)
)

func celEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable(RowVar, cel.MapType(cel.StringType, cel.DynType)),
			cel.CrossTypeNumericComparisons(true),
		)
		if envErr != nil {
			envErr = fmt.Errorf("failed to create CEL environment: %w", envErr)
		}
	})
	return env, envErr
}

// Expr is a compiled row predicate. A nil *Expr matches every row.
type Expr struct {
	source  string
	program cel.Program
}

// Compile parses and type-checks a boolean expression such as
//
//	row.stockoutScore >= 70 && row.warehouseName.startsWith("Berlin")
//
// An empty expression compiles to nil. Compiled expressions are cached by
// source; compile failures are not.
func Compile(source string) (*Expr, error) {
	if source == "" {
		return nil, nil
	}

	cacheMu.RLock()
	x, ok := compiled[source]
	cacheMu.RUnlock()
	if ok {
		return x, nil
	}

	x, err := compile(source)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	if len(compiled) >= maxCached {
		compiled = make(map[string]*Expr)
	}
	compiled[source] = x
	cacheMu.Unlock()

	return x, nil
}

func compile(source string) (*Expr, error) {
	e, err := celEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := e.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}

	out := ast.OutputType()
	if out != cel.BoolType && out != cel.DynType {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", ErrInvalidExpression, out)
	}

	program, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	return &Expr{source: source, program: program}, nil
}

// String returns the expression source.
func (x *Expr) String() string {
	if x == nil {
		return ""
	}
	return x.source
}

// Match evaluates the expression against a row. Evaluation errors and
// non-bool results do not match.
func (x *Expr) Match(row map[string]any) bool {
	if x == nil {
		return true
	}
	out, _, err := x.program.Eval(map[string]any{RowVar: row})
	if err != nil {
		return false
	}
	b, ok := out.(types.Bool)
	return ok && bool(b)
}

// Row converts an output value into the map an expression sees, using its JSON
// field names. Null fields are omitted so has(row.field) tests presence.
func Row(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	for k, val := range row {
		if val == nil {
			delete(row, k)
		}
	}
	return row, nil
}

// MatchValue converts v with Row and evaluates the expression against it.
func (x *Expr) MatchValue(v any) bool {
	if x == nil {
		return true
	}
	row, err := Row(v)
	if err != nil {
		return false
	}
	return x.Match(row)
}
