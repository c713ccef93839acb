// Package vars provides the variable store shared by the expression
// evaluator and the runner.
//
// Variables are dynamically typed per key: an assignment may change the tag
// of a variable. Nothing is converted on store; numeric coercion happens only
// when a value is read by the evaluator (see Value.Float).
package vars

import (
	"strconv"
	"strings"
)

// Kind は Value のタグを表す
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindText
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a tagged union of Int, Float, Bool and Text.
// The zero Value is Int(0).
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// Int Int値を作成
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float Float値を作成
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool Bool値を作成
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Text Text値を作成
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the payload if the value is an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the payload if the value is a Float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the payload if the value is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsText returns the payload if the value is a Text.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Float coerces the value to float64 the way the expression evaluator reads
// variables: Int is cast, Float is returned as-is, Bool is 1 or 0 and Text
// is 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// String formats the payload without its tag.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Equal reports whether both values carry the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}

// ParseLiteral はリテラル文字列から型を推定して Value を作る
// "12" は Int、"1.5" は Float、"true"/"false" は Bool、それ以外は Text になる。
// 両端のダブルクォートは取り除かれ、常に Text として扱われる。
func ParseLiteral(s string) Value {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return Text(s[1 : len(s)-1])
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return Text(s)
}

// looksNumeric は "inf" や "nan" を数値として扱わないためのチェック
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c == '+' || c == '-' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	return (c >= '0' && c <= '9') || c == '.'
}
