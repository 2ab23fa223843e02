package query

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Evaluate runs a criteria tree against a parsed content document.
// Evaluation short-circuits per the tree's boolean operator; a tree none
// of whose children decide the outcome defaults to true under AND and
// false under OR.
func Evaluate(schema *SchemaNode, c Criteria, doc *xmlquery.Node) (bool, error) {
	isAND := !strings.EqualFold(c.Operator, OperatorOR)

	for _, sub := range c.Criteria {
		v, err := Evaluate(schema, sub, doc)
		if err != nil {
			return false, err
		}
		if !isAND && v {
			return true, nil
		}
		if isAND && !v {
			return false, nil
		}
	}

	for _, crit := range c.Criterion {
		v, err := evaluateCriterion(schema, crit, doc)
		if err != nil {
			return false, err
		}
		if !isAND && v {
			return true, nil
		}
		if isAND && !v {
			return false, nil
		}
	}

	return isAND, nil
}

// evaluateCriterion compiles one leaf test to XPath and executes it
func evaluateCriterion(schema *SchemaNode, crit Criterion, doc *xmlquery.Node) (bool, error) {
	compiled, err := Compile(schema, crit.Target)
	if err != nil {
		return false, err
	}
	exprStr, err := compiled.Expression(crit.Test)
	if err != nil {
		return false, err
	}

	expr, err := xpath.CompileWithNS(exprStr, compiled.Namespaces)
	if err != nil {
		return false, fmt.Errorf("compile xpath %q: %w", exprStr, err)
	}

	result := expr.Evaluate(xmlquery.CreateXPathNavigator(doc))
	matched := truthy(result)
	if crit.Negate {
		matched = !matched
	}
	return matched, nil
}

// truthy folds an XPath evaluation result to a boolean: booleans stand as
// is, node sets are true iff non-empty.
func truthy(result any) bool {
	switch r := result.(type) {
	case bool:
		return r
	case *xpath.NodeIterator:
		return r.MoveNext()
	case float64:
		return r != 0
	case string:
		return r != ""
	}
	return false
}
