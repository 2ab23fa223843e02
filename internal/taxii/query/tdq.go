package query

import (
	"encoding/xml"
	"fmt"
)

// Wire identifiers of the TAXII default query format
const (
	FormatID  = "urn:taxii.mitre.org:query:default:1.1"
	Namespace = "http://taxii.mitre.org/query/taxii_default_query-1"

	CapabilityCore = "urn:taxii.mitre.org:query:capability:core-1"
)

// Criteria operators
const (
	OperatorAND = "AND"
	OperatorOR  = "OR"
)

// Parameter names carried on a criterion test
const (
	ParamValue     = "value"
	ParamMatchType = "match_type"
)

// DefaultQuery is the parsed form of a default-format query document
type DefaultQuery struct {
	XMLName               xml.Name `xml:"http://taxii.mitre.org/query/taxii_default_query-1 Default_Query"`
	TargetingExpressionID string   `xml:"targeting_expression_id,attr"`
	Criteria              Criteria `xml:"Criteria"`
}

// Criteria is a boolean-combined tree of tests
type Criteria struct {
	Operator string      `xml:"operator,attr"`
	Criteria []Criteria  `xml:"Criteria"`
	Criterion []Criterion `xml:"Criterion"`
}

// Criterion is a leaf test against one targeting expression
type Criterion struct {
	Negate bool   `xml:"negate,attr"`
	Target string `xml:"Target"`
	Test   Test   `xml:"Test"`
}

// Test names a relationship and its parameters
type Test struct {
	CapabilityID string      `xml:"capability_id,attr"`
	Relationship string      `xml:"relationship,attr"`
	Parameters   []Parameter `xml:"Parameter"`
}

// Parameter is one named test parameter
type Parameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Param returns the named parameter value, if present
func (t Test) Param(name string) (string, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// ParseDefaultQuery decodes the raw query payload carried inside a TAXII
// Query element
func ParseDefaultQuery(raw []byte) (*DefaultQuery, error) {
	var q DefaultQuery
	if err := xml.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("parse default query: %w", err)
	}
	return &q, nil
}
