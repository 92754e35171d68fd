package extract

import (
	"encoding/base64"
	"slices"
	"strings"
	"testing"

	"github.com/hzm1213/upsub/internal/node"
)

func TestNodes(t *testing.T) {
	t.Parallel()

	plain := "vmess://eyJwcyI6IkhLIn0=\n\n# comment\nss://YWVzOnB3@1.2.3.4:8388#HK\r\n  trojan://pw@h:443#JP  \nvless://id@h:443#US\n"
	wantPlain := []string{
		"vmess://eyJwcyI6IkhLIn0=",
		"ss://YWVzOnB3@1.2.3.4:8388#HK",
		"trojan://pw@h:443#JP",
		"vless://id@h:443#US",
	}

	t.Run("plain list filters unrelated lines", func(t *testing.T) {
		t.Parallel()
		got, src := NodesWithSource(plain)
		if src != SourcePlain {
			t.Errorf("source = %q, expected %q", src, SourcePlain)
		}
		if !slices.Equal(got, wantPlain) {
			t.Errorf("Nodes() = %q, expected %q", got, wantPlain)
		}
	})

	t.Run("base64 list", func(t *testing.T) {
		t.Parallel()
		encoded := base64.StdEncoding.EncodeToString([]byte(plain))
		got, src := NodesWithSource(encoded)
		if src != SourceBase64 {
			t.Errorf("source = %q, expected %q", src, SourceBase64)
		}
		if !slices.Equal(got, wantPlain) {
			t.Errorf("Nodes() = %q, expected %q", got, wantPlain)
		}
	})

	t.Run("base64 without padding wrapped in lines", func(t *testing.T) {
		t.Parallel()
		encoded := base64.RawStdEncoding.EncodeToString([]byte("ss://a#1\nss://b#2"))
		wrapped := encoded[:8] + "\n" + encoded[8:]
		got := Nodes(wrapped)
		want := []string{"ss://a#1", "ss://b#2"}
		if !slices.Equal(got, want) {
			t.Errorf("Nodes() = %q, expected %q", got, want)
		}
	})

	t.Run("clash proxies", func(t *testing.T) {
		t.Parallel()
		body := `port: 7890
proxies:
  - name: HK-01
    type: ss
    server: 1.2.3.4
    port: 8388
    cipher: aes-128-gcm
    password: pw
  - {name: JP-02, type: trojan, server: 5.6.7.8, port: 443, password: x}
  - not-a-mapping
proxy-groups: []
`
		got, src := NodesWithSource(body)
		if src != SourceClash {
			t.Fatalf("source = %q, expected %q", src, SourceClash)
		}
		if len(got) != 2 {
			t.Fatalf("got %d nodes, expected 2: %q", len(got), got)
		}
		for i, want := range []string{"HK-01", "JP-02"} {
			if node.KindOf(got[i]) != node.KindClash {
				t.Errorf("node %d kind = %v", i, node.KindOf(got[i]))
			}
			if strings.Contains(got[i], "\n") {
				t.Errorf("node %d spans lines: %q", i, got[i])
			}
			label, err := node.Label(got[i])
			if err != nil || label != want {
				t.Errorf("node %d label = %q, %v; expected %q", i, label, err, want)
			}
		}
		if !strings.HasPrefix(got[0], "{name: HK-01, type: ss, server: 1.2.3.4") {
			t.Errorf("key order not preserved: %q", got[0])
		}
	})

	t.Run("artifact with clash entries reads back", func(t *testing.T) {
		t.Parallel()
		body := "ss://YWVzOnB3@1.2.3.4:8388#HK\n{name: JP-02, type: trojan, server: 5.6.7.8, port: 443}\n{port: 1}\n{\"proxies\": []}\n"
		want := []string{
			"ss://YWVzOnB3@1.2.3.4:8388#HK",
			"{name: JP-02, type: trojan, server: 5.6.7.8, port: 443}",
		}
		got, src := NodesWithSource(body)
		if src != SourcePlain {
			t.Errorf("source = %q, expected %q", src, SourcePlain)
		}
		if !slices.Equal(got, want) {
			t.Errorf("Nodes() = %q, expected %q", got, want)
		}
	})

	t.Run("single-line clash config is not an entry", func(t *testing.T) {
		t.Parallel()
		got, src := NodesWithSource(`{proxies: [{name: a, type: ss, server: h, port: 1}]}`)
		if src != SourceClash || len(got) != 1 {
			t.Errorf("Nodes() = %q (%q), expected one clash node", got, src)
		}
	})

	t.Run("scheme text mid-line only", func(t *testing.T) {
		t.Parallel()
		got, src := NodesWithSource("<p>see vmess://abc here</p>")
		if src != SourceNone || len(got) != 0 {
			t.Errorf("Nodes() = %q (%q), expected none", got, src)
		}
	})

	t.Run("not a feed", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{"", "<html><body>hello</body></html>", "proxies: 5", "aGVsbG8gd29ybGQ="} {
			if got := Nodes(body); len(got) != 0 {
				t.Errorf("Nodes(%q) = %q, expected none", body, got)
			}
		}
	})

	t.Run("duplicates kept", func(t *testing.T) {
		t.Parallel()
		got := Nodes("ss://a\nss://a\n")
		if len(got) != 2 {
			t.Errorf("Nodes() = %q, expected duplicates kept", got)
		}
	})
}

func TestNodesIdempotent(t *testing.T) {
	t.Parallel()

	bodies := []string{
		"ss://a#1\n\nvless://b#2\nnoise\n",
		"proxies:\n  - name: HK-01\n    type: ss\n    server: h\n    port: 1\n  - {name: JP-02, type: trojan, server: h, port: 2}\n",
		base64.StdEncoding.EncodeToString([]byte("{name: a, type: ss, server: h, port: 1}\nss://b#2")),
		base64.StdEncoding.EncodeToString([]byte("trojan://x#3\r\nvmess://eyJwcyI6IngifQ==")),
	}
	for _, body := range bodies {
		first := Nodes(body)
		second := Nodes(strings.Join(first, "\n"))
		if !slices.Equal(first, second) {
			t.Errorf("not idempotent: %q -> %q", first, second)
		}
	}
}

func FuzzNodes(f *testing.F) {
	seed := []string{
		"",
		"ss://abc#x\nvmess://def",
		base64.StdEncoding.EncodeToString([]byte("trojan://pw@h:1#a")),
		"proxies:\n  - {name: a, type: ss}\n",
	}
	for _, s := range seed {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, body string) {
		nodes, src := NodesWithSource(body)
		if src == SourceNone && len(nodes) != 0 {
			t.Fatalf("nodes returned with source none: %q", nodes)
		}
		if src == SourcePlain || src == SourceBase64 {
			for _, n := range nodes {
				if !node.HasScheme(n) && node.KindOf(n) != node.KindClash {
					t.Fatalf("node without scheme: %q", n)
				}
			}
		}
	})
}
