package models

// ContentBindingSubtype pairs a content binding identifier (a content
// syntax, e.g. a STIX version URN) with an optional subtype refinement.
// An empty SubtypeID means "binding, any/no subtype".
type ContentBindingSubtype struct {
	BindingID string `json:"binding_id"`
	SubtypeID string `json:"subtype_id,omitempty"`
}

// Well-known content binding identifiers
const (
	BindingSTIX10  = "urn:stix.mitre.org:xml:1.0"
	BindingSTIX101 = "urn:stix.mitre.org:xml:1.0.1"
	BindingSTIX11  = "urn:stix.mitre.org:xml:1.1"
	BindingSTIX111 = "urn:stix.mitre.org:xml:1.1.1"
)

// Matches reports whether content tagged with the receiver is acceptable
// where the argument is supported. A supported pair with no subtype accepts
// every subtype of its binding; a supported pair with a subtype accepts only
// that exact refinement.
func (p ContentBindingSubtype) Matches(supported ContentBindingSubtype) bool {
	if p.BindingID != supported.BindingID {
		return false
	}
	return supported.SubtypeID == "" || supported.SubtypeID == p.SubtypeID
}

func pairSupported(supported []ContentBindingSubtype, pair ContentBindingSubtype) bool {
	for _, s := range supported {
		if pair.Matches(s) {
			return true
		}
	}
	return false
}
