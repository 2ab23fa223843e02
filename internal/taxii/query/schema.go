// Package query implements the TAXII default query format: parsing the
// query XML, compiling targeting expressions to XPath against a content
// binding's schema tree, and evaluating criteria against content blocks.
package query

// SchemaNode describes one element of a content binding's XML structure.
// A tree of these is built once per supported binding and read immutably;
// the compiler walks it to validate targeting expressions and to qualify
// path segments with namespace prefixes.
type SchemaNode struct {
	Name      string
	Namespace string
	Prefix    string
	Children  map[string]*SchemaNode
}

// NewSchemaNode builds a node and wires the given children by name
func NewSchemaNode(name, namespace, prefix string, children ...*SchemaNode) *SchemaNode {
	n := &SchemaNode{Name: name, Namespace: namespace, Prefix: prefix}
	if len(children) > 0 {
		n.Children = make(map[string]*SchemaNode, len(children))
		for _, c := range children {
			n.Children[c.Name] = c
		}
	}
	return n
}

// segment renders the node as an XPath path segment
func (n *SchemaNode) segment() string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Name
	}
	return n.Name
}

// walk appends the node and its descendants to out
func (n *SchemaNode) walk(out []*SchemaNode) []*SchemaNode {
	out = append(out, n)
	for _, c := range n.Children {
		out = c.walk(out)
	}
	return out
}
