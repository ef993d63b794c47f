package expr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParsedCondition is a condition split into its two operands and operator.
type ParsedCondition struct {
	Left     string
	Operator string
	Right    string
}

// conditionOperators is the fixed, ordered operator set. Longer operators
// come before their prefixes so "<=" never splits as "<".
var conditionOperators = []string{"==", "!=", "<=", ">=", "<", ">", "contains"}

// ParseCondition splits a condition string on the first textual occurrence
// of an operator, checking operators in their fixed order. It returns false
// when no operator is found or the split does not yield two non-empty
// parts.
//
// The split is a plain first-occurrence text search: an operand literal that
// itself contains an operator substring (say, comparing against the text
// "a>b") mis-splits. That behavior is kept as is.
func ParseCondition(condition string) (ParsedCondition, bool) {
	for _, op := range conditionOperators {
		idx := strings.Index(condition, op)
		if idx < 0 {
			continue
		}
		left := strings.TrimSpace(condition[:idx])
		right := strings.TrimSpace(condition[idx+len(op):])
		if left == "" || right == "" {
			return ParsedCondition{}, false
		}
		return ParsedCondition{Left: left, Operator: op, Right: right}, true
	}
	return ParsedCondition{}, false
}

// EvaluateCondition parses and evaluates a condition against the variable
// mapping. The second result is false when the condition cannot be parsed.
func EvaluateCondition(condition string, vars map[string]any) (bool, bool) {
	parsed, ok := ParseCondition(condition)
	if !ok {
		return false, false
	}
	result, _, _ := EvaluateParsed(parsed, vars)
	return result, true
}

// EvaluateParsed evaluates a parsed condition and returns the result along
// with both operands after template substitution and quote stripping, for
// audit logging.
//
// Both operands are rendered, then a single layer of matching surrounding
// quotes is stripped. Comparison operators compare numerically when both
// sides parse as numbers, lexicographically otherwise. The contains operator
// checks element containment when the left side parses as a JSON array, and
// substring containment otherwise.
func EvaluateParsed(c ParsedCondition, vars map[string]any) (result bool, left, right string) {
	left = stripQuotes(Render(c.Left, vars))
	right = stripQuotes(Render(c.Right, vars))

	if c.Operator == "contains" {
		return evalContains(left, right), left, right
	}

	lf, lerr := strconv.ParseFloat(left, 64)
	rf, rerr := strconv.ParseFloat(right, 64)
	numeric := lerr == nil && rerr == nil

	switch c.Operator {
	case "==":
		if numeric {
			return lf == rf, left, right
		}
		return left == right, left, right
	case "!=":
		if numeric {
			return lf != rf, left, right
		}
		return left != right, left, right
	case "<":
		if numeric {
			return lf < rf, left, right
		}
		return left < right, left, right
	case ">":
		if numeric {
			return lf > rf, left, right
		}
		return left > right, left, right
	case "<=":
		if numeric {
			return lf <= rf, left, right
		}
		return left <= right, left, right
	case ">=":
		if numeric {
			return lf >= rf, left, right
		}
		return left >= right, left, right
	}
	return false, left, right
}

// evalContains checks array element containment when left is a JSON array,
// substring containment otherwise.
func evalContains(left, right string) bool {
	var arr []any
	if err := json.Unmarshal([]byte(left), &arr); err == nil {
		for _, element := range arr {
			if Stringify(element) == right {
				return true
			}
		}
		return false
	}
	return strings.Contains(left, right)
}

// stripQuotes removes one layer of matching surrounding quote characters.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
