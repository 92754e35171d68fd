package node

import "strings"

// Kind identifies the format of a node descriptor.
type Kind int

const (
	// KindUnknown is any string that is not a recognized node.
	KindUnknown Kind = iota
	// KindVmess is a vmess:// URI with a base64 JSON payload.
	KindVmess
	// KindVless is a vless:// URI.
	KindVless
	// KindTrojan is a trojan:// URI.
	KindTrojan
	// KindShadowsocks is an ss:// URI.
	KindShadowsocks
	// KindClash is a Clash proxy entry serialized as a flow-style YAML mapping.
	KindClash
)

// schemes lists the recognized URI prefixes in match order.
var schemes = []struct {
	prefix string
	kind   Kind
}{
	{"vmess://", KindVmess},
	{"vless://", KindVless},
	{"trojan://", KindTrojan},
	{"ss://", KindShadowsocks},
}

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindVmess:
		return "vmess"
	case KindVless:
		return "vless"
	case KindTrojan:
		return "trojan"
	case KindShadowsocks:
		return "ss"
	case KindClash:
		return "clash"
	default:
		return "unknown"
	}
}

// IsURI reports whether nodes of this kind are scheme-prefixed URIs.
func (k Kind) IsURI() bool {
	return k >= KindVmess && k <= KindShadowsocks
}

// Schemes returns the recognized URI prefixes, e.g. "vmess://".
func Schemes() []string {
	out := make([]string, len(schemes))
	for i, s := range schemes {
		out[i] = s.prefix
	}
	return out
}

// KindOf detects the kind of a node descriptor.
// Scheme matching is case-insensitive. A string starting with '{' is
// treated as a Clash entry.
func KindOf(raw string) Kind {
	s := strings.TrimSpace(raw)
	for _, sc := range schemes {
		if hasPrefixFold(s, sc.prefix) {
			return sc.kind
		}
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return KindClash
	}
	return KindUnknown
}

// HasScheme reports whether s starts with a recognized scheme prefix.
func HasScheme(s string) bool {
	k := KindOf(s)
	return k.IsURI()
}

// ContainsScheme reports whether text contains any recognized scheme
// prefix anywhere. Note that "ss://" is also found inside "vless://".
func ContainsScheme(text string) bool {
	lower := strings.ToLower(text)
	for _, sc := range schemes {
		if strings.Contains(lower, sc.prefix) {
			return true
		}
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
