// Package expr evaluates the infix expressions used by set and if
// instructions.
//
// The evaluator is a two-stack operator-precedence (shunting-yard) pass over
// the tokens produced by Tokenize. Every result is a float64; comparisons and
// boolean operators produce 1 or 0.
//
// Evaluate never fails. Unknown variables, text variables and operators
// without enough operands all read as 0 and evaluation carries on with
// whatever is left. EvaluateStrict runs the same algorithm and reports those
// situations as errors instead, for authoring-time checks.
package expr

import (
	"errors"
	"fmt"
	"math"

	"github.com/zurustar/vnscript/pkg/vars"
)

// Epsilon is the tolerance used by ==.
const Epsilon = 2.220446049250313e-16

const lparen = "("

// precedence returns the binding strength of op. Unknown operators bind
// weakest and evaluate to 0.
func precedence(op string) int {
	switch op {
	case "or":
		return 1
	case "and":
		return 2
	case "==", ">", "<", ">=", "<=":
		return 3
	case "+", "-":
		return 4
	case "*", "/", "%":
		return 5
	case "not":
		return 6
	default:
		return 0
	}
}

func isRightAssociative(op string) bool {
	return op == "not"
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Evaluate evaluates expression against store and returns the result.
// A nil store behaves like an empty one. Malformed input yields a
// best-effort partial result; an empty expression yields 0.
func Evaluate(expression string, store *vars.Store) float64 {
	e := &evaluator{store: store}
	return e.run(Tokenize(expression))
}

// EvaluateStrict evaluates like Evaluate but also returns every degradation
// Evaluate would have hidden: unknown or text-valued variables, operators
// missing operands, unbalanced parentheses, unknown operators, leftover
// operands and division by zero.
func EvaluateStrict(expression string, store *vars.Store) (float64, error) {
	e := &evaluator{store: store, strict: true, checkVars: true}
	result := e.run(Tokenize(expression))
	return result, e.err()
}

// Check validates the shape of expression without looking up variables.
// Variables read as 0 and division by zero is not reported.
func Check(expression string) error {
	e := &evaluator{strict: true}
	e.run(Tokenize(expression))
	return e.err()
}

type evaluator struct {
	store     *vars.Store
	strict    bool
	checkVars bool

	values []float64
	ops    []string
	issues []error
}

func (e *evaluator) report(format string, args ...any) {
	if !e.strict {
		return
	}
	e.issues = append(e.issues, fmt.Errorf(format, args...))
}

func (e *evaluator) err() error {
	return errors.Join(e.issues...)
}

func (e *evaluator) run(tokens []Token) float64 {
	if e.strict && len(tokens) == 0 {
		e.report("empty expression")
	}

	for _, tok := range tokens {
		switch tok.Type {
		case NUMBER:
			if e.strict && (math.IsNaN(tok.Number) || math.IsInf(tok.Number, 0)) {
				e.report("non-finite number literal %q", tok.Literal)
			}
			e.push(tok.Number)

		case VARIABLE:
			e.push(e.lookup(tok.Literal))

		case LPAREN:
			e.ops = append(e.ops, lparen)

		case RPAREN:
			for len(e.ops) > 0 && e.top() != lparen {
				e.applyTop()
			}
			if len(e.ops) == 0 {
				e.report("unmatched )")
				continue
			}
			e.ops = e.ops[:len(e.ops)-1]

		case OPERATOR:
			op := tok.Literal
			if precedence(op) == 0 {
				e.report("unknown operator %q", op)
			}
			for len(e.ops) > 0 {
				top := e.top()
				if top == lparen {
					break
				}
				var pops bool
				if isRightAssociative(op) {
					pops = precedence(top) > precedence(op)
				} else {
					pops = precedence(top) >= precedence(op)
				}
				if !pops {
					break
				}
				e.applyTop()
			}
			e.ops = append(e.ops, op)
		}
	}

	for len(e.ops) > 0 {
		if e.top() == lparen {
			// 閉じられていない括弧は捨てる
			e.report("unmatched (")
			e.ops = e.ops[:len(e.ops)-1]
			continue
		}
		e.applyTop()
	}

	if len(e.values) == 0 {
		return 0
	}
	if len(e.values) > 1 {
		e.report("%d operands left without an operator", len(e.values)-1)
	}
	return e.values[len(e.values)-1]
}

func (e *evaluator) lookup(name string) float64 {
	if e.store == nil {
		if e.checkVars {
			e.report("undefined variable %q", name)
		}
		return 0
	}
	v, ok := e.store.Get(name)
	if !ok {
		if e.checkVars {
			e.report("undefined variable %q", name)
		}
		return 0
	}
	if v.Kind() == vars.KindText && e.checkVars {
		e.report("variable %q holds text, read as 0", name)
	}
	return v.Float()
}

func (e *evaluator) top() string {
	return e.ops[len(e.ops)-1]
}

func (e *evaluator) push(v float64) {
	e.values = append(e.values, v)
}

// pop returns the top operand, or 0 when the stack is empty.
func (e *evaluator) pop(op string) float64 {
	if len(e.values) == 0 {
		e.report("operator %q is missing an operand", op)
		return 0
	}
	v := e.values[len(e.values)-1]
	e.values = e.values[:len(e.values)-1]
	return v
}

func (e *evaluator) applyTop() {
	op := e.top()
	e.ops = e.ops[:len(e.ops)-1]

	if op == "not" {
		a := e.pop(op)
		e.push(truth(a == 0))
		return
	}

	b := e.pop(op)
	a := e.pop(op)
	e.push(e.binary(a, b, op))
}

func (e *evaluator) binary(a, b float64, op string) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		if b == 0 && e.checkVars {
			e.report("division by zero")
		}
		return a / b
	case "%":
		if b == 0 && e.checkVars {
			e.report("modulo by zero")
		}
		return math.Mod(a, b)
	case "==":
		return truth(math.Abs(a-b) < Epsilon)
	case ">":
		return truth(a > b)
	case "<":
		return truth(a < b)
	case ">=":
		return truth(a >= b)
	case "<=":
		return truth(a <= b)
	case "and":
		return truth(a != 0 && b != 0)
	case "or":
		return truth(a != 0 || b != 0)
	default:
		return 0
	}
}
