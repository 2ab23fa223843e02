package taxii

// Version tags a protocol revision. Handlers and message variants carry
// explicit version sets; compatibility checks are plain membership.
type Version int

const (
	TAXII10 Version = iota + 1
	TAXII11
)

// Version identifier URNs recognized on the wire
const (
	BindingXML10 = "urn:taxii.mitre.org:message:xml:1.0"
	BindingXML11 = "urn:taxii.mitre.org:message:xml:1.1"

	ServicesVersion10 = "urn:taxii.mitre.org:services:1.0"
	ServicesVersion11 = "urn:taxii.mitre.org:services:1.1"

	ProtocolHTTP10  = "urn:taxii.mitre.org:protocol:http:1.0"
	ProtocolHTTPS10 = "urn:taxii.mitre.org:protocol:https:1.0"
)

// XML namespaces of the two message bindings
const (
	NamespaceXML10 = "http://taxii.mitre.org/messages/taxii_xml_binding-1"
	NamespaceXML11 = "http://taxii.mitre.org/messages/taxii_xml_binding-1.1"
)

func (v Version) String() string {
	switch v {
	case TAXII10:
		return "1.0"
	case TAXII11:
		return "1.1"
	}
	return "unknown"
}

// MessageBinding returns the version's XML message binding URN
func (v Version) MessageBinding() string {
	if v == TAXII10 {
		return BindingXML10
	}
	return BindingXML11
}

// ServicesVersion returns the version's services URN
func (v Version) ServicesVersion() string {
	if v == TAXII10 {
		return ServicesVersion10
	}
	return ServicesVersion11
}

// Namespace returns the version's XML namespace
func (v Version) Namespace() string {
	if v == TAXII10 {
		return NamespaceXML10
	}
	return NamespaceXML11
}

// VersionFromBinding maps a message binding URN to its version
func VersionFromBinding(urn string) (Version, bool) {
	switch urn {
	case BindingXML10:
		return TAXII10, true
	case BindingXML11:
		return TAXII11, true
	}
	return 0, false
}

// VersionFromNamespace maps an XML namespace to its version
func VersionFromNamespace(ns string) (Version, bool) {
	switch ns {
	case NamespaceXML10:
		return TAXII10, true
	case NamespaceXML11:
		return TAXII11, true
	}
	return 0, false
}

// VersionIn reports membership of v in versions
func VersionIn(v Version, versions []Version) bool {
	for _, c := range versions {
		if c == v {
			return true
		}
	}
	return false
}
