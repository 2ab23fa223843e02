package query

import (
	"testing"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/pkg/logger"
)

func newSTIXHandler() *Handler {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return NewHandler("stix-1.1.1", TargetingExpressionSTIX111, STIX111Schema(), log)
}

func titleBlock(title string) models.ContentBlock {
	content := `<stix:STIX_Package xmlns:stix="http://stix.mitre.org/stix-1" xmlns:indicator="http://stix.mitre.org/Indicator-2">
  <stix:Indicators><stix:Indicator><indicator:Title>` + title + `</indicator:Title></stix:Indicator></stix:Indicators>
</stix:STIX_Package>`
	return models.ContentBlock{Content: []byte(content)}
}

func titleQuery(value string) *DefaultQuery {
	return &DefaultQuery{
		TargetingExpressionID: TargetingExpressionSTIX111,
		Criteria: Criteria{
			Operator:  OperatorAND,
			Criterion: []Criterion{equalsCriterion("STIX_Package/Indicators/Indicator/Title", value)},
		},
	}
}

func TestFilterContentKeepsMatchesInOrder(t *testing.T) {
	h := newSTIXHandler()
	blocks := []models.ContentBlock{
		titleBlock("Malicious Domain"),
		titleBlock("Benign Domain"),
		titleBlock("Malicious Domain"),
	}

	out, err := h.FilterContent(blocks, titleQuery("Malicious Domain"))
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("matches = %d, want 2", len(out))
	}
	if string(out[0].Content) != string(blocks[0].Content) || string(out[1].Content) != string(blocks[2].Content) {
		t.Fatal("matches not in input order")
	}
}

func TestFilterContentValueWithApostrophe(t *testing.T) {
	h := newSTIXHandler()
	blocks := []models.ContentBlock{
		titleBlock("O'Brien Watch"),
		titleBlock("OBrien Watch"),
	}

	out, err := h.FilterContent(blocks, titleQuery("O'Brien Watch"))
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("matches = %d, want 1", len(out))
	}
	if string(out[0].Content) != string(blocks[0].Content) {
		t.Fatal("the apostrophe value matched the wrong block")
	}
}

func TestFilterContentVocabularyMismatch(t *testing.T) {
	h := newSTIXHandler()
	q := titleQuery("x")
	q.TargetingExpressionID = "urn:example:other:1"

	_, err := h.FilterContent([]models.ContentBlock{titleBlock("x")}, q)
	se, ok := taxii.AsStatusError(err)
	if !ok || se.Type != taxii.StatusUnsupportedTargetingExpressionID {
		t.Fatalf("expected UNSUPPORTED_TARGETING_EXPRESSION_ID, got %v", err)
	}
	if se.Details[taxii.DetailTargetingExpressionID] != TargetingExpressionSTIX111 {
		t.Fatalf("TARGETING_EXPRESSION_ID detail = %q", se.Details[taxii.DetailTargetingExpressionID])
	}
}

func TestFilterContentSkipsMalformedBlocks(t *testing.T) {
	h := newSTIXHandler()
	malformed := models.ContentBlock{Content: []byte("<a><b></a>")}
	blocks := []models.ContentBlock{malformed, titleBlock("Malicious Domain")}

	out, err := h.FilterContent(blocks, titleQuery("Malicious Domain"))
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("matches = %d, want the well-formed block only", len(out))
	}
}

func TestFilterContentBadTarget(t *testing.T) {
	h := newSTIXHandler()
	q := titleQuery("x")
	q.Criteria.Criterion[0].Target = "STIX_Package/Bogus"

	_, err := h.FilterContent([]models.ContentBlock{titleBlock("x")}, q)
	se, ok := taxii.AsStatusError(err)
	if !ok || se.Type != taxii.StatusUnsupportedQuery {
		t.Fatalf("expected UNSUPPORTED_QUERY, got %v", err)
	}
}

func TestSupportsScope(t *testing.T) {
	h := newSTIXHandler()
	if !h.SupportsScope("STIX_Package/Indicators/Indicator/Title") {
		t.Fatal("a schema-backed target must be in scope")
	}
	if h.SupportsScope("STIX_Package/Bogus") {
		t.Fatal("an unknown target must be out of scope")
	}
}
