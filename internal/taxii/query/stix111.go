package query

// TargetingExpressionSTIX111 identifies the STIX 1.1.1 targeting
// expression vocabulary
const TargetingExpressionSTIX111 = "urn:stix.mitre.org:xml:1.1.1"

// XML namespaces of the STIX 1.1.1 document structure
const (
	nsSTIX       = "http://stix.mitre.org/stix-1"
	nsSTIXCommon = "http://stix.mitre.org/common-1"
	nsIndicator  = "http://stix.mitre.org/Indicator-2"
	nsTTP        = "http://stix.mitre.org/TTP-1"
	nsCybox      = "http://cybox.mitre.org/cybox-2"
)

// STIX111Schema builds the schema tree for STIX 1.1.1 packages. The tree
// covers the package skeleton down to observable object properties; deeper
// structure is reachable through wildcard expressions.
func STIX111Schema() *SchemaNode {
	header := NewSchemaNode("STIX_Header", nsSTIX, "stix",
		NewSchemaNode("Title", nsSTIX, "stix"),
		NewSchemaNode("Description", nsSTIX, "stix"),
		NewSchemaNode("Short_Description", nsSTIX, "stix"),
		NewSchemaNode("Package_Intent", nsSTIX, "stix"),
		NewSchemaNode("Information_Source", nsSTIX, "stix",
			NewSchemaNode("Identity", nsSTIXCommon, "stixCommon"),
			NewSchemaNode("Time", nsSTIXCommon, "stixCommon"),
		),
	)

	indicator := NewSchemaNode("Indicator", nsSTIX, "stix",
		NewSchemaNode("Title", nsIndicator, "indicator"),
		NewSchemaNode("Description", nsIndicator, "indicator"),
		NewSchemaNode("Type", nsIndicator, "indicator"),
		NewSchemaNode("Valid_Time_Position", nsIndicator, "indicator"),
		NewSchemaNode("Observable", nsIndicator, "indicator",
			NewSchemaNode("Object", nsCybox, "cybox",
				NewSchemaNode("Properties", nsCybox, "cybox"),
			),
		),
		NewSchemaNode("Indicated_TTP", nsIndicator, "indicator"),
		NewSchemaNode("Confidence", nsIndicator, "indicator"),
	)

	observable := NewSchemaNode("Observable", nsCybox, "cybox",
		NewSchemaNode("Title", nsCybox, "cybox"),
		NewSchemaNode("Description", nsCybox, "cybox"),
		NewSchemaNode("Object", nsCybox, "cybox",
			NewSchemaNode("Properties", nsCybox, "cybox"),
			NewSchemaNode("Related_Objects", nsCybox, "cybox"),
		),
	)

	ttp := NewSchemaNode("TTP", nsSTIX, "stix",
		NewSchemaNode("Title", nsTTP, "ttp"),
		NewSchemaNode("Description", nsTTP, "ttp"),
		NewSchemaNode("Behavior", nsTTP, "ttp"),
		NewSchemaNode("Resources", nsTTP, "ttp"),
	)

	pkg := NewSchemaNode("STIX_Package", nsSTIX, "stix",
		header,
		NewSchemaNode("Indicators", nsSTIX, "stix", indicator),
		NewSchemaNode("Observables", nsCybox, "cybox", observable),
		NewSchemaNode("TTPs", nsSTIX, "stix", ttp),
	)

	// synthetic root; targeting expressions start at STIX_Package
	return NewSchemaNode("", "", "", pkg)
}
