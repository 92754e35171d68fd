package rename

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/hzm1213/upsub/internal/node"
	"github.com/hzm1213/upsub/internal/region"
)

func newTestTable(t *testing.T) *region.Table {
	t.Helper()
	table, err := region.New([]region.Region{
		{Flag: "🇭🇰", Code: "HK"},
		{Flag: "🇯🇵", Code: "JP"},
	}, region.Region{Flag: "🏳️", Code: "ZZ"}, []string{"✨", "🔥"})
	if err != nil {
		t.Fatalf("region.New() error = %v", err)
	}
	return table
}

func fixedPicker(i int) Picker {
	return PickerFunc(func(int) int { return i })
}

func TestRewriteVmess(t *testing.T) {
	t.Parallel()

	table, err := region.New([]region.Region{{Flag: "🇭🇰", Code: "HK"}}, region.Region{}, []string{"✨"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(map[string]string{"ps": "HK-01"})
	if err != nil {
		t.Fatal(err)
	}
	in := "vmess://" + base64.StdEncoding.EncodeToString(payload)

	got := New(table, WithPicker(fixedPicker(0))).Rewrite([]string{in})
	if len(got) != 1 {
		t.Fatalf("len = %d, expected 1", len(got))
	}
	label, err := node.Label(got[0])
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if want := "✨1🇭🇰HK01"; label != want {
		t.Errorf("ps = %q, expected %q", label, want)
	}
}

func TestRewritePreservesPrefixAndOrder(t *testing.T) {
	t.Parallel()

	in := []string{
		"ss://YWVzOnB3@1.2.3.4:8388#%F0%9F%87%AF%F0%9F%87%B5%20Tokyo",
		"trojan://pw@h:443?sni=x",
		"vless://id@h:443?type=ws#hk-relay",
		"ss://abc#x#y",
	}
	got := New(newTestTable(t), WithPicker(fixedPicker(1))).Rewrite(in)
	if len(got) != len(in) {
		t.Fatalf("len = %d, expected %d", len(got), len(in))
	}

	wantLabels := []string{"🔥4🇯🇵JP01", "🔥4🏳️ZZ02", "🔥4🇭🇰HK03", "🔥4🏳️ZZ04"}
	for i := range in {
		prefix, _, _ := strings.Cut(in[i], "#")
		if !strings.HasPrefix(got[i], prefix+"#") {
			t.Errorf("node %d prefix changed: %q -> %q", i, in[i], got[i])
		}
		label, err := node.Label(got[i])
		if err != nil {
			t.Fatalf("node %d Label() error = %v", i, err)
		}
		if label != wantLabels[i] {
			t.Errorf("node %d label = %q, expected %q", i, label, wantLabels[i])
		}
	}
}

func TestRewriteSequenceWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n     int
		width int
	}{
		{1, 2},
		{99, 2},
		{100, 3},
		{999, 3},
		{1000, 4},
	}

	table := newTestTable(t)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d nodes", tt.n), func(t *testing.T) {
			t.Parallel()
			if got := SequenceWidth(tt.n); got != tt.width {
				t.Errorf("SequenceWidth(%d) = %d, expected %d", tt.n, got, tt.width)
			}

			nodes := make([]string, tt.n)
			for i := range nodes {
				nodes[i] = fmt.Sprintf("ss://n%d#HK", i)
			}
			out := New(table, WithPicker(fixedPicker(0))).Rewrite(nodes)
			head := fmt.Sprintf("✨%d🇭🇰HK", tt.n)
			for i, raw := range out {
				label, _ := node.Label(raw)
				seq, ok := strings.CutPrefix(label, head)
				if !ok {
					t.Fatalf("node %d label %q lacks prefix %q", i, label, head)
				}
				if len(seq) != tt.width {
					t.Fatalf("node %d sequence %q has width %d, expected %d", i, seq, len(seq), tt.width)
				}
				if want := fmt.Sprintf("%0*d", tt.width, i+1); seq != want {
					t.Fatalf("node %d sequence = %q, expected %q", i, seq, want)
				}
			}
		})
	}
}

func TestRewriteUnknownRegion(t *testing.T) {
	t.Parallel()

	got := New(newTestTable(t), WithPicker(fixedPicker(0))).Rewrite([]string{"ss://a#somewhere"})
	label, _ := node.Label(got[0])
	if label != "✨1🏳️ZZ01" {
		t.Errorf("label = %q", label)
	}
}

func TestRewriteBrokenVmessFallsBack(t *testing.T) {
	t.Parallel()

	got := New(newTestTable(t), WithPicker(fixedPicker(0))).Rewrite([]string{"vmess://%%%"})
	if !strings.HasPrefix(got[0], "vmess://%%%#") {
		t.Errorf("expected fragment fallback, got %q", got[0])
	}
}

func TestRewriteEmpty(t *testing.T) {
	t.Parallel()

	got := New(newTestTable(t)).Rewrite(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Rewrite(nil) = %#v, expected empty slice", got)
	}
}

func TestRandomPickerShape(t *testing.T) {
	t.Parallel()

	table := newTestTable(t)
	r := New(table)
	for range 50 {
		label := r.NewLabel("HK", 1, 1, 2)
		if !strings.HasPrefix(label, "✨") && !strings.HasPrefix(label, "🔥") {
			t.Fatalf("label %q does not start with a decorative symbol", label)
		}
		if !strings.HasSuffix(label, "1🇭🇰HK01") {
			t.Fatalf("label %q has unexpected shape", label)
		}
	}
}

func TestPickerOutOfRange(t *testing.T) {
	t.Parallel()

	r := New(newTestTable(t), WithPicker(fixedPicker(7)), WithSymbols([]string{"A"}))
	if got := r.NewLabel("", 3, 10, 2); got != "A10🏳️ZZ03" {
		t.Errorf("NewLabel() = %q", got)
	}
}
