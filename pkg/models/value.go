package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a JSON value resolved from a trigger payload. The zero Value is missing.
//
// Coercion follows the rules used by the playbook editor: String renders the
// value the way a browser would (missing -> "undefined", objects ->
// "[object Object]", arrays joined with commas) and Number parses strictly,
// yielding NaN for anything that is not a complete numeric literal.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []any
	obj  map[string]any
}

// Missing returns the value of an absent field.
func Missing() Value {
	return Value{}
}

// ValueOf classifies a decoded JSON (or plain Go) value.
func ValueOf(v any) Value {
	switch value := v.(type) {
	case nil:
		return Value{kind: KindNull}
	case Value:
		return value
	case bool:
		return Value{kind: KindBool, b: value}
	case string:
		return Value{kind: KindString, s: value}
	case float64:
		return Value{kind: KindNumber, n: value}
	case float32:
		return Value{kind: KindNumber, n: float64(value)}
	case int:
		return Value{kind: KindNumber, n: float64(value)}
	case int32:
		return Value{kind: KindNumber, n: float64(value)}
	case int64:
		return Value{kind: KindNumber, n: float64(value)}
	case uint:
		return Value{kind: KindNumber, n: float64(value)}
	case uint32:
		return Value{kind: KindNumber, n: float64(value)}
	case uint64:
		return Value{kind: KindNumber, n: float64(value)}
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return Value{kind: KindString, s: value.String()}
		}

		return Value{kind: KindNumber, n: f}
	case []any:
		return Value{kind: KindArray, arr: value}
	case []string:
		arr := make([]any, len(value))
		for i, s := range value {
			arr[i] = s
		}

		return Value{kind: KindArray, arr: arr}
	case map[string]any:
		return Value{kind: KindObject, obj: value}
	default:
		return Value{kind: KindString, s: fmt.Sprint(value)}
	}
}

// Lookup resolves a dot-separated path inside data. Numeric segments index arrays.
// The boolean is false when any segment is absent.
func Lookup(data map[string]any, path string) (Value, bool) {
	var current any = data

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return Missing(), false
			}

			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return Missing(), false
			}

			current = node[index]
		default:
			return Missing(), false
		}
	}

	return ValueOf(current), true
}

// Kind returns the classification of v.
func (v Value) Kind() Kind {
	return v.kind
}

// String renders v as text.
func (v Value) String() string {
	switch v.kind {
	case KindMissing:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))

		for i, item := range v.arr {
			element := ValueOf(item)
			if element.kind == KindNull {
				continue
			}

			parts[i] = element.String()
		}

		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// Number converts v to a float64, returning NaN when v is not numeric.
func (v Value) Number() float64 {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}

		return 0
	case KindNumber:
		return v.n
	case KindString:
		return parseNumber(v.s)
	case KindArray:
		return parseNumber(v.String())
	default:
		return math.NaN()
	}
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			if err != nil || strings.Contains(s, "_") {
				return math.NaN()
			}

			return float64(n)
		}
	}

	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}

	return f
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	mantissa, exponent, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign := exponent[0]
	digits := strings.TrimLeft(exponent[1:], "0")

	return mantissa + "e" + string(sign) + digits
}
