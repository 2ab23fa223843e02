package query

import (
	"fmt"
	"strings"
)

// Relationship names from the core capability module
const (
	RelEquals             = "equals"
	RelNotEquals          = "not_equals"
	RelGreaterThan        = "greater_than"
	RelGreaterThanOrEqual = "greater_than_or_equal"
	RelLessThan           = "less_than"
	RelLessThanOrEqual    = "less_than_or_equal"
	RelBeginsWith         = "begins_with"
	RelEndsWith           = "ends_with"
	RelContains           = "contains"
	RelExists             = "exists"
	RelDoesNotExist       = "does_not_exist"
)

// match_type parameter values
const (
	MatchCaseSensitive   = "case_sensitive_string"
	MatchCaseInsensitive = "case_insensitive_string"
	MatchNumber          = "number"
)

const (
	upperASCII = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerASCII = "abcdefghijklmnopqrstuvwxyz"
)

// folded wraps the operand in a translate() call that lowers ASCII case
func folded(operand string) string {
	return fmt.Sprintf("translate(%s, '%s', '%s')", operand, upperASCII, lowerASCII)
}

// xpathString renders v as an XPath 1.0 string literal. XPath 1.0 has no
// escape sequences, so a value carrying both quote kinds must be split into
// a concat() of single- and double-quoted pieces.
func xpathString(v string) string {
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	parts := strings.Split(v, "'")
	pieces := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			pieces = append(pieces, `"'"`)
		}
		if p != "" {
			pieces = append(pieces, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(pieces, ", ") + ")"
}

// RenderPredicate maps a relationship and its parameters onto an XPath
// predicate over the given operand context. Unknown relationship or
// match_type combinations are hard errors. The exists relationships render
// as empty predicates; Expression wraps them in presence checks.
func RenderPredicate(operand string, test Test) (string, error) {
	value, _ := test.Param(ParamValue)
	matchType, _ := test.Param(ParamMatchType)

	switch test.Relationship {
	case RelEquals, RelNotEquals:
		op := "="
		if test.Relationship == RelNotEquals {
			op = "!="
		}
		switch matchType {
		case MatchCaseSensitive:
			return fmt.Sprintf("%s %s %s", operand, op, xpathString(value)), nil
		case MatchCaseInsensitive:
			return fmt.Sprintf("%s %s %s", folded(operand), op, xpathString(strings.ToLower(value))), nil
		case MatchNumber:
			return fmt.Sprintf("%s %s %s", operand, op, value), nil
		}
		return "", fmt.Errorf("relationship %s does not support match_type %q", test.Relationship, matchType)

	case RelGreaterThan:
		return fmt.Sprintf("%s > %s", operand, value), nil
	case RelGreaterThanOrEqual:
		return fmt.Sprintf("%s >= %s", operand, value), nil
	case RelLessThan:
		return fmt.Sprintf("%s < %s", operand, value), nil
	case RelLessThanOrEqual:
		return fmt.Sprintf("%s <= %s", operand, value), nil

	case RelBeginsWith:
		switch matchType {
		case MatchCaseInsensitive:
			return fmt.Sprintf("starts-with(%s, %s)", folded(operand), xpathString(strings.ToLower(value))), nil
		default:
			return fmt.Sprintf("starts-with(%s, %s)", operand, xpathString(value)), nil
		}

	case RelEndsWith:
		switch matchType {
		case MatchCaseInsensitive:
			return fmt.Sprintf("substring(%s, string-length(%s) - string-length(%s) + 1) = %s",
				folded(operand), operand, xpathString(value), xpathString(strings.ToLower(value))), nil
		default:
			return fmt.Sprintf("substring(%s, string-length(%s) - string-length(%s) + 1) = %s",
				operand, operand, xpathString(value), xpathString(value)), nil
		}

	case RelContains:
		switch matchType {
		case MatchCaseInsensitive:
			return fmt.Sprintf("contains(%s, %s)", folded(operand), xpathString(strings.ToLower(value))), nil
		default:
			return fmt.Sprintf("contains(%s, %s)", operand, xpathString(value)), nil
		}

	case RelExists, RelDoesNotExist:
		return "", nil
	}

	return "", fmt.Errorf("unsupported relationship %q", test.Relationship)
}

// Expression assembles the compiled stubs and the rendered predicate into
// one evaluable XPath. Multiple stubs (wildcard terminals) are OR-joined
// as a node-set union; does_not_exist wraps the whole thing in not().
func (c *Compiled) Expression(test Test) (string, error) {
	predicate, err := RenderPredicate(c.Operand, test)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(c.Stubs))
	for i, stub := range c.Stubs {
		if predicate == "" {
			parts[i] = stub
		} else {
			parts[i] = stub + "[" + predicate + "]"
		}
	}
	expr := strings.Join(parts, " | ")

	if test.Relationship == RelDoesNotExist {
		expr = "not(" + expr + ")"
	}
	return expr, nil
}
