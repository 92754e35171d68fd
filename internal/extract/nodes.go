package extract

import (
	"strings"

	"github.com/hzm1213/upsub/internal/node"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Source names which strategy produced a node list.
type Source string

const (
	// SourceNone means no nodes were found.
	SourceNone Source = "none"
	// SourcePlain means the body was a plain node list.
	SourcePlain Source = "plain"
	// SourceBase64 means the body was a base64-encoded node list.
	SourceBase64 Source = "base64"
	// SourceClash means the nodes came from a Clash proxies list.
	SourceClash Source = "clash"
)

const proxiesKey = "proxies"

// Nodes returns the proxy nodes in a subscription body, in order.
// Duplicates are kept. An empty result means the body is not a
// subscription feed.
func Nodes(body string) []string {
	nodes, _ := NodesWithSource(body)
	return nodes
}

// NodesWithSource is like Nodes and also reports which strategy matched.
// A line list may mix URI nodes with single-line clash entries, which is
// how written artifacts look, so they read back unchanged.
func NodesWithSource(body string) ([]string, Source) {
	if mayHoldLines(body) {
		if nodes := splitNodes(body); len(nodes) > 0 {
			return nodes, SourcePlain
		}
	}
	if decoded, err := node.DecodeBase64(body); err == nil {
		text := string(decoded)
		if mayHoldLines(text) {
			if nodes := splitNodes(text); len(nodes) > 0 {
				return nodes, SourceBase64
			}
		}
	}
	if nodes := clashNodes(body); len(nodes) > 0 {
		return nodes, SourceClash
	}
	return []string{}, SourceNone
}

func mayHoldLines(text string) bool {
	return node.ContainsScheme(text) || strings.Contains(text, "{")
}

// splitNodes splits text into lines and keeps the trimmed lines that
// start with a recognized scheme or are single-line clash entries.
func splitNodes(text string) []string {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, node.HasScheme(line) || isFlowEntry(line)
	})
}

// isFlowEntry reports whether line is a YAML flow mapping with name and
// type keys, the shape clashNodes produces.
func isFlowEntry(line string) bool {
	if node.KindOf(line) != node.KindClash {
		return false
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(line), &doc); err != nil {
		return false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return false
	}
	entry := doc.Content[0]
	if entry.Kind != yaml.MappingNode {
		return false
	}
	var name, typ bool
	for i := 0; i+1 < len(entry.Content); i += 2 {
		switch entry.Content[i].Value {
		case "name":
			name = true
		case "type":
			typ = true
		}
	}
	return name && typ
}

// clashNodes returns each entry of a top-level proxies sequence
// serialized as a single-line flow mapping.
func clashNodes(body string) []string {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	var proxies *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == proxiesKey {
			proxies = root.Content[i+1]
			break
		}
	}
	if proxies == nil || proxies.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]string, 0, len(proxies.Content))
	for _, entry := range proxies.Content {
		if entry.Kind != yaml.MappingNode {
			continue
		}
		s, err := node.MarshalFlow(entry)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
