package node

import "testing"

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Kind
	}{
		{"vmess://eyJwcyI6ICJ4In0=", KindVmess},
		{"VMESS://abc", KindVmess},
		{"vless://uuid@host:443?type=ws#x", KindVless},
		{"trojan://pw@host:443", KindTrojan},
		{"ss://YWVzOnB3@host:8388#HK", KindShadowsocks},
		{"  ss://abc  ", KindShadowsocks},
		{"{name: a, type: ss}", KindClash},
		{"https://example.com", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.raw); got != tt.want {
			t.Errorf("KindOf(%q) = %v, expected %v", tt.raw, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	tests := map[Kind]string{
		KindVmess:       "vmess",
		KindVless:       "vless",
		KindTrojan:      "trojan",
		KindShadowsocks: "ss",
		KindClash:       "clash",
		KindUnknown:     "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, expected %q", k, got, want)
		}
	}
}

func TestHasAndContainsScheme(t *testing.T) {
	t.Parallel()

	if !HasScheme("trojan://x") {
		t.Error("HasScheme(trojan://x) = false")
	}
	if HasScheme("# trojan://x") {
		t.Error("HasScheme must only match at the start")
	}
	if HasScheme("{name: a}") {
		t.Error("Clash entries have no scheme")
	}
	if !ContainsScheme("header\nvless://x\n") {
		t.Error("ContainsScheme missed vless://")
	}
	if ContainsScheme("plain text with https://example.com") {
		t.Error("ContainsScheme matched a web URL")
	}
	if len(Schemes()) != 4 {
		t.Errorf("Schemes() len = %d, expected 4", len(Schemes()))
	}
}
