package query

import (
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
)

const stixSample = `<stix:STIX_Package
    xmlns:stix="http://stix.mitre.org/stix-1"
    xmlns:indicator="http://stix.mitre.org/Indicator-2">
  <stix:STIX_Header>
    <stix:Title>Watchlist Package</stix:Title>
  </stix:STIX_Header>
  <stix:Indicators>
    <stix:Indicator>
      <indicator:Title>Malicious Domain</indicator:Title>
    </stix:Indicator>
  </stix:Indicators>
</stix:STIX_Package>`

func parseSample(t *testing.T) *xmlquery.Node {
	t.Helper()
	doc, err := xmlquery.Parse(strings.NewReader(stixSample))
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}
	return doc
}

func equalsCriterion(target, value string) Criterion {
	return Criterion{
		Target: target,
		Test: testWith(RelEquals,
			Parameter{Name: ParamValue, Value: value},
			Parameter{Name: ParamMatchType, Value: MatchCaseSensitive},
		),
	}
}

func TestEvaluateSingleCriterion(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	matched, err := Evaluate(schema, Criteria{
		Operator:  OperatorAND,
		Criterion: []Criterion{equalsCriterion("STIX_Package/Indicators/Indicator/Title", "Malicious Domain")},
	}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !matched {
		t.Fatal("expected the criterion to match")
	}
}

func TestEvaluateANDShortCircuits(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	matched, err := Evaluate(schema, Criteria{
		Operator: OperatorAND,
		Criterion: []Criterion{
			equalsCriterion("STIX_Package/STIX_Header/Title", "Watchlist Package"),
			equalsCriterion("STIX_Package/Indicators/Indicator/Title", "Benign Domain"),
		},
	}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if matched {
		t.Fatal("AND over one false criterion must be false")
	}
}

func TestEvaluateOR(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	matched, err := Evaluate(schema, Criteria{
		Operator: OperatorOR,
		Criterion: []Criterion{
			equalsCriterion("STIX_Package/Indicators/Indicator/Title", "Benign Domain"),
			equalsCriterion("STIX_Package/STIX_Header/Title", "Watchlist Package"),
		},
	}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !matched {
		t.Fatal("OR over one true criterion must be true")
	}
}

func TestEvaluateNegate(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	crit := equalsCriterion("STIX_Package/Indicators/Indicator/Title", "Malicious Domain")
	crit.Negate = true

	matched, err := Evaluate(schema, Criteria{Operator: OperatorAND, Criterion: []Criterion{crit}}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if matched {
		t.Fatal("negated match must be false")
	}
}

func TestEvaluateEmptyCriteriaDefaults(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	matched, err := Evaluate(schema, Criteria{Operator: OperatorAND}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !matched {
		t.Fatal("empty AND criteria must default to true")
	}

	matched, err = Evaluate(schema, Criteria{Operator: OperatorOR}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if matched {
		t.Fatal("empty OR criteria must default to false")
	}
}

func TestEvaluateNestedCriteria(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	matched, err := Evaluate(schema, Criteria{
		Operator: OperatorAND,
		Criteria: []Criteria{
			{
				Operator: OperatorOR,
				Criterion: []Criterion{
					equalsCriterion("STIX_Package/STIX_Header/Title", "Other Package"),
					equalsCriterion("STIX_Package/STIX_Header/Title", "Watchlist Package"),
				},
			},
		},
		Criterion: []Criterion{
			equalsCriterion("STIX_Package/Indicators/Indicator/Title", "Malicious Domain"),
		},
	}, doc)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !matched {
		t.Fatal("expected the nested tree to match")
	}
}

func TestEvaluateUnsupportedTarget(t *testing.T) {
	doc := parseSample(t)
	schema := STIX111Schema()

	_, err := Evaluate(schema, Criteria{
		Operator:  OperatorAND,
		Criterion: []Criterion{equalsCriterion("STIX_Package/Bogus", "x")},
	}, doc)
	if err == nil {
		t.Fatal("expected an error for an unsupported target")
	}
}

func TestParseDefaultQuery(t *testing.T) {
	raw := `<tdq:Default_Query
      xmlns:tdq="http://taxii.mitre.org/query/taxii_default_query-1"
      targeting_expression_id="urn:stix.mitre.org:xml:1.1.1">
    <tdq:Criteria operator="AND">
      <tdq:Criterion negate="false">
        <tdq:Target>STIX_Package/Indicators/Indicator/Title</tdq:Target>
        <tdq:Test capability_id="urn:taxii.mitre.org:query:capability:core-1" relationship="equals">
          <tdq:Parameter name="value">Malicious Domain</tdq:Parameter>
          <tdq:Parameter name="match_type">case_sensitive_string</tdq:Parameter>
        </tdq:Test>
      </tdq:Criterion>
    </tdq:Criteria>
  </tdq:Default_Query>`

	q, err := ParseDefaultQuery([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if q.TargetingExpressionID != TargetingExpressionSTIX111 {
		t.Fatalf("targeting_expression_id = %q", q.TargetingExpressionID)
	}
	if len(q.Criteria.Criterion) != 1 {
		t.Fatalf("expected one criterion, got %d", len(q.Criteria.Criterion))
	}
	crit := q.Criteria.Criterion[0]
	if crit.Target != "STIX_Package/Indicators/Indicator/Title" {
		t.Fatalf("target = %q", crit.Target)
	}
	if v, ok := crit.Test.Param(ParamValue); !ok || v != "Malicious Domain" {
		t.Fatalf("value parameter = %q (present %v)", v, ok)
	}
}
