package expr

import (
	"math"
	"testing"

	"github.com/zurustar/vnscript/pkg/vars"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "arithmetic without spaces",
			input: "a+2*(b-1)",
			expected: []Token{
				{Type: VARIABLE, Literal: "a"},
				{Type: OPERATOR, Literal: "+"},
				{Type: NUMBER, Literal: "2", Number: 2},
				{Type: OPERATOR, Literal: "*"},
				{Type: LPAREN, Literal: "("},
				{Type: VARIABLE, Literal: "b"},
				{Type: OPERATOR, Literal: "-"},
				{Type: NUMBER, Literal: "1", Number: 1},
				{Type: RPAREN, Literal: ")"},
			},
		},
		{
			name:  "two character comparisons",
			input: "x>=1 == y<=2",
			expected: []Token{
				{Type: VARIABLE, Literal: "x"},
				{Type: OPERATOR, Literal: ">="},
				{Type: NUMBER, Literal: "1", Number: 1},
				{Type: OPERATOR, Literal: "=="},
				{Type: VARIABLE, Literal: "y"},
				{Type: OPERATOR, Literal: "<="},
				{Type: NUMBER, Literal: "2", Number: 2},
			},
		},
		{
			name:  "keyword operators",
			input: "not done and ready or android",
			expected: []Token{
				{Type: OPERATOR, Literal: "not"},
				{Type: VARIABLE, Literal: "done"},
				{Type: OPERATOR, Literal: "and"},
				{Type: VARIABLE, Literal: "ready"},
				{Type: OPERATOR, Literal: "or"},
				{Type: VARIABLE, Literal: "android"},
			},
		},
		{
			name:  "tabs separate tokens",
			input: "1.5\tx",
			expected: []Token{
				{Type: NUMBER, Literal: "1.5", Number: 1.5},
				{Type: VARIABLE, Literal: "x"},
			},
		},
		{
			name:     "empty",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d tokens, got %d: %+v", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("token %d: expected %+v, got %+v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	store := vars.NewStore()
	store.Set("i", vars.Int(3))
	store.Set("f", vars.Float(0.5))
	store.Set("yes", vars.Bool(true))
	store.Set("no", vars.Bool(false))
	store.Set("name", vars.Text("Hana"))

	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 - 4 - 3", 3},
		{"20 / 5 / 2", 2},
		{"7 % 4", 3},
		{"not 0", 1},
		{"not 1", 0},
		{"not not 5", 1},
		{"5 > 3 and 2 < 1", 0},
		{"5 > 3 or 2 < 1", 1},
		{"1 == 1", 1},
		{"0.1 + 0.2 == 0.3", 1},
		{"1 == 1.001", 0},
		{"3 >= 3", 1},
		{"2 <= 1", 0},
		{"i * 2", 6},
		{"i + f", 3.5},
		{"yes + yes", 2},
		{"no", 0},
		{"name + 1", 1},
		{"missing + 4", 4},
		{"not missing", 1},
		{"not 1 + 1", 1},
		{"", 0},
		{"()", 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := Evaluate(tt.expr, store); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateDegradesInsteadOfFailing(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"+", 0},
		{"* 3", 0},
		{"-3", -3},
		{"(2 + 3", 5},
		{"2 + 3)", 5},
		{")(", 0},
		{"1 2", 2},
		{"a = 3", 0},
		{"and or not", 1},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := Evaluate(tt.expr, nil); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	if got := Evaluate("1 / 0", nil); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf, got %v", got)
	}
	if got := Evaluate("1 % 0", nil); !math.IsNaN(got) {
		t.Errorf("expected NaN, got %v", got)
	}
}

func TestEvaluateStrict(t *testing.T) {
	store := vars.NewStore()
	store.Set("score", vars.Float(2))
	store.Set("name", vars.Text("Hana"))

	t.Run("valid expression has no error", func(t *testing.T) {
		got, err := EvaluateStrict("score * 2 >= 4", store)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 1 {
			t.Errorf("expected 1, got %v", got)
		}
	})

	errorCases := []string{
		"missing + 1",
		"name + 1",
		"(1 + 2",
		"1 + 2)",
		"1 +",
		"a = 3",
		"1 2",
		"score / 0",
		"",
	}
	for _, expr := range errorCases {
		t.Run(expr, func(t *testing.T) {
			if _, err := EvaluateStrict(expr, store); err == nil {
				t.Errorf("expected error for %q", expr)
			}
		})
	}

	t.Run("strict result matches lenient result", func(t *testing.T) {
		for _, expr := range errorCases {
			got, _ := EvaluateStrict(expr, store)
			want := Evaluate(expr, store)
			if got != want && !(math.IsNaN(got) && math.IsNaN(want)) && !(math.IsInf(got, 0) && math.IsInf(want, 0)) {
				t.Errorf("%q: strict %v, lenient %v", expr, got, want)
			}
		}
	})
}

func TestCheck(t *testing.T) {
	if err := Check("hp / divisor > 0 and not dead"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Check("hp >"); err == nil {
		t.Error("expected error for dangling operator")
	}
}
