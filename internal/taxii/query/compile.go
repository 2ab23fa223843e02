package query

import (
	"fmt"
	"strings"
)

// Operand contexts a compiled expression evaluates its test against
const (
	OperandText = "text()"
	OperandNode = "."
)

// Compiled is the XPath form of one targeting expression. A wildcard
// terminal yields two stubs, one probing element content and one probing
// attribute content; they are OR-joined when the expression is rendered.
type Compiled struct {
	Stubs      []string
	Operand    string
	Namespaces map[string]string
}

// Compile translates a slash-delimited targeting expression into XPath
// location stubs by walking the binding's schema tree. Tokens are literal
// element names, "@attr" (terminal), "*" (single level) or "**" (any
// depth, only at the start or end). A literal token with no matching
// schema node is an unsupported-expression error; this is also how scope
// support is decided.
func Compile(schema *SchemaNode, target string) (*Compiled, error) {
	tokens := strings.Split(target, "/")
	if target == "" || len(tokens) == 0 {
		return nil, fmt.Errorf("empty targeting expression")
	}

	c := &Compiled{Namespaces: make(map[string]string)}
	rootSep := "/"
	anyDepth := false
	current := []*SchemaNode{schema}
	var segments []string

	base := func() string {
		if len(segments) == 0 {
			return ""
		}
		return rootSep + strings.Join(segments, "/")
	}

	for i, tok := range tokens {
		last := i == len(tokens)-1
		switch {
		case tok == "**":
			if i == 0 && !last {
				rootSep = "//"
				anyDepth = true
				continue
			}
			if !last {
				return nil, fmt.Errorf("multi-level wildcard only allowed at the start or end of %q", target)
			}
			if b := base(); b != "" {
				c.Stubs = []string{b + "//*", b + "//@*"}
			} else {
				c.Stubs = []string{"//*", "//@*"}
			}
			c.Operand = OperandNode
			return c, nil

		case tok == "*":
			if last {
				if b := base(); b != "" {
					c.Stubs = []string{b + "/*", b + "/@*"}
				} else {
					c.Stubs = []string{rootSep + "*", rootSep + "@*"}
				}
				c.Operand = OperandNode
				return c, nil
			}
			// one level down, any name
			var next []*SchemaNode
			for _, n := range current {
				for _, child := range n.Children {
					next = append(next, child)
				}
			}
			if len(next) == 0 {
				return nil, fmt.Errorf("wildcard in %q reaches below the schema", target)
			}
			segments = append(segments, "*")
			current = next
			anyDepth = false

		case strings.HasPrefix(tok, "@"):
			if !last {
				return nil, fmt.Errorf("attribute token %q must terminate the expression", tok)
			}
			name := strings.TrimPrefix(tok, "@")
			if name == "" {
				return nil, fmt.Errorf("empty attribute token in %q", target)
			}
			if b := base(); b != "" {
				c.Stubs = []string{b + "/@" + name}
			} else {
				c.Stubs = []string{rootSep + "@" + name}
			}
			c.Operand = OperandNode
			return c, nil

		default:
			matches := matchLiteral(current, schema, tok, anyDepth)
			if len(matches) == 0 {
				return nil, fmt.Errorf("unsupported targeting expression token %q in %q", tok, target)
			}
			anyDepth = false
			m := matches[0]
			segments = append(segments, m.segment())
			if m.Namespace != "" && m.Prefix != "" {
				c.Namespaces[m.Prefix] = m.Namespace
			}
			current = matches
		}
	}

	c.Stubs = []string{base()}
	c.Operand = OperandText
	return c, nil
}

// matchLiteral resolves a literal token against the current candidate
// nodes, or against the whole tree when a leading multi-level wildcard is
// still in effect.
func matchLiteral(current []*SchemaNode, schema *SchemaNode, name string, anyDepth bool) []*SchemaNode {
	if anyDepth {
		var matches []*SchemaNode
		for _, n := range schema.walk(nil) {
			if n.Name == name {
				matches = append(matches, n)
			}
		}
		return matches
	}
	var matches []*SchemaNode
	for _, n := range current {
		if child, ok := n.Children[name]; ok {
			matches = append(matches, child)
		}
	}
	return matches
}
