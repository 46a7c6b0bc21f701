// Package filter parses CEL list filters into store predicates.
package filter

import (
	"math"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/pkg/errors"
)

// FeedbackFilter holds the predicates a feedback filter expression may set.
type FeedbackFilter struct {
	Search    *string
	Source    *string
	Sentiment *string

	// Inclusive unix-second bounds.
	CreatedTsAfter  *int64
	CreatedTsBefore *int64
}

// ParseFeedbackFilter parses a conjunction of supported comparisons, e.g.
//
//	source == 'app_store' && sentiment == 'negative' && text.contains('crash') && created_ts >= 1704067200
//
// An empty expression yields an empty filter.
func ParseFeedbackFilter(filterStr string) (*FeedbackFilter, error) {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" {
		return &FeedbackFilter{}, nil
	}

	// Create CEL environment with feedback fields
	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("sentiment", cel.StringType),
		cel.Variable("created_ts", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	// Parse and check the filter expression
	celAST, issues := env.Compile(filterStr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter expression: %s", filterStr)
	}

	f := &FeedbackFilter{}
	if err := f.apply(celAST.NativeRep().Expr()); err != nil {
		return nil, err
	}
	return f, nil
}

// apply walks a conjunction and records each leaf comparison.
func (f *FeedbackFilter) apply(expr ast.Expr) error {
	if expr == nil {
		return errors.New("empty expression")
	}
	if expr.Kind() != ast.CallKind {
		return errors.New("filter must be a comparison expression (e.g., source == 'survey')")
	}

	call := expr.AsCall()
	switch call.FunctionName() {
	case operators.LogicalAnd:
		for _, arg := range call.Args() {
			if err := f.apply(arg); err != nil {
				return err
			}
		}
		return nil
	case operators.LogicalOr:
		return errors.New("unsupported operator: || (combine conditions with &&)")
	case "contains":
		return f.applyContains(call)
	case operators.Equals:
		return f.applyEquals(call.Args())
	case operators.GreaterEquals, operators.Greater, operators.LessEquals, operators.Less:
		return f.applyRange(call.FunctionName(), call.Args())
	default:
		return errors.Errorf("unsupported operator: %s", call.FunctionName())
	}
}

func (f *FeedbackFilter) applyContains(call ast.CallExpr) error {
	if !call.IsMemberFunction() || identName(call.Target()) != "text" || len(call.Args()) != 1 {
		return errors.New("contains is only supported as text.contains('value')")
	}
	value, ok := stringLiteral(call.Args()[0])
	if !ok {
		return errors.New("text.contains expects a string constant")
	}
	if f.Search != nil {
		return errors.New("text.contains may appear only once")
	}
	f.Search = &value
	return nil
}

func (f *FeedbackFilter) applyEquals(args []ast.Expr) error {
	if len(args) != 2 {
		return errors.New("invalid comparison expression")
	}
	field, value, ok := identAndString(args[0], args[1])
	if !ok {
		field, value, ok = identAndString(args[1], args[0])
	}
	if !ok {
		return errors.New("equality must compare 'source' or 'sentiment' with a string constant")
	}

	var target **string
	switch field {
	case "source":
		target = &f.Source
	case "sentiment":
		target = &f.Sentiment
	default:
		return errors.Errorf("unsupported equality field: %s", field)
	}
	if *target != nil && **target != value {
		return errors.Errorf("conflicting values for %s", field)
	}
	*target = &value
	return nil
}

func (f *FeedbackFilter) applyRange(op string, args []ast.Expr) error {
	if len(args) != 2 || identName(args[0]) != "created_ts" {
		return errors.New("range comparisons must have the form created_ts >= <unix seconds>")
	}
	value, ok := intLiteral(args[1])
	if !ok {
		return errors.New("created_ts must be compared with an integer constant")
	}

	switch op {
	case operators.Greater:
		if value == math.MaxInt64 {
			return errors.Errorf("created_ts > %d can never match", value)
		}
		value++
		fallthrough
	case operators.GreaterEquals:
		if f.CreatedTsAfter == nil || value > *f.CreatedTsAfter {
			f.CreatedTsAfter = &value
		}
	case operators.Less:
		if value == math.MinInt64 {
			return errors.Errorf("created_ts < %d can never match", value)
		}
		value--
		fallthrough
	case operators.LessEquals:
		if f.CreatedTsBefore == nil || value < *f.CreatedTsBefore {
			f.CreatedTsBefore = &value
		}
	}
	return nil
}

func identName(expr ast.Expr) string {
	if expr == nil || expr.Kind() != ast.IdentKind {
		return ""
	}
	return expr.AsIdent()
}

func identAndString(left, right ast.Expr) (string, string, bool) {
	name := identName(left)
	if name == "" {
		return "", "", false
	}
	value, ok := stringLiteral(right)
	return name, value, ok
}

func stringLiteral(expr ast.Expr) (string, bool) {
	if expr == nil || expr.Kind() != ast.LiteralKind {
		return "", false
	}
	str, ok := expr.AsLiteral().Value().(string)
	return str, ok
}

func intLiteral(expr ast.Expr) (int64, bool) {
	if expr == nil || expr.Kind() != ast.LiteralKind {
		return 0, false
	}
	v, ok := expr.AsLiteral().Value().(int64)
	return v, ok
}
