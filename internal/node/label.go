package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownKind is returned for strings that are not recognized nodes.
	ErrUnknownKind = errors.New("unrecognized node kind")

	// ErrNoLabelField is returned when a structured payload has no label field.
	ErrNoLabelField = errors.New("node payload has no label field")
)

const (
	vmessLabelKey = "ps"
	clashLabelKey = "name"
)

// Label returns the display label of a node.
// A URI without a fragment has an empty label and no error.
// For vmess nodes whose payload is not base64 JSON the fragment is used.
func Label(raw string) (string, error) {
	switch KindOf(raw) {
	case KindVmess:
		if label, err := vmessLabel(raw); err == nil {
			return label, nil
		}
		return fragmentLabel(raw)
	case KindVless, KindTrojan, KindShadowsocks:
		return fragmentLabel(raw)
	case KindClash:
		return clashLabel(raw)
	default:
		return "", ErrUnknownKind
	}
}

// WithLabel returns raw with its display label replaced by label.
// For URI kinds everything before the first '#' is preserved byte for byte.
// If a vmess payload or a Clash entry cannot be rewritten, the label is
// written as a URI fragment instead.
func WithLabel(raw, label string) string {
	switch KindOf(raw) {
	case KindVmess:
		if out, err := vmessWithLabel(raw, label); err == nil {
			return out
		}
	case KindClash:
		if out, err := clashWithLabel(raw, label); err == nil {
			return out
		}
	}
	return fragmentWithLabel(raw, label)
}

// fragmentLabel returns the percent-decoded text after the first '#'.
// On a decoding error the raw fragment is returned with the error.
func fragmentLabel(raw string) (string, error) {
	_, frag, ok := strings.Cut(raw, "#")
	if !ok {
		return "", nil
	}
	decoded, err := url.PathUnescape(frag)
	if err != nil {
		return frag, fmt.Errorf("decode fragment: %w", err)
	}
	return decoded, nil
}

func fragmentWithLabel(raw, label string) string {
	prefix, _, _ := strings.Cut(raw, "#")
	return prefix + "#" + url.PathEscape(label)
}

// splitVmess returns the prefix as written (preserving its case) and the
// payload without any fragment.
func splitVmess(raw string) (prefix, payload string) {
	s := strings.TrimSpace(raw)
	prefix, payload = s[:len("vmess://")], s[len("vmess://"):]
	payload, _, _ = strings.Cut(payload, "#")
	return prefix, payload
}

func decodeVmess(raw string) (string, map[string]any, error) {
	prefix, payload := splitVmess(raw)
	b, err := DecodeBase64(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode vmess payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", nil, fmt.Errorf("parse vmess payload: %w", err)
	}
	if fields == nil {
		return "", nil, fmt.Errorf("parse vmess payload: %w", ErrNoLabelField)
	}
	return prefix, fields, nil
}

func vmessLabel(raw string) (string, error) {
	_, fields, err := decodeVmess(raw)
	if err != nil {
		return "", err
	}
	v, ok := fields[vmessLabelKey]
	if !ok || v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func vmessWithLabel(raw, label string) (string, error) {
	prefix, fields, err := decodeVmess(raw)
	if err != nil {
		return "", err
	}
	fields[vmessLabelKey] = label
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return "", fmt.Errorf("encode vmess payload: %w", err)
	}
	return prefix + EncodeBase64(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// parseClash parses a Clash entry into its mapping node.
func parseClash(raw string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse clash entry: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse clash entry: %w", ErrNoLabelField)
	}
	return doc.Content[0], nil
}

// mappingValue returns the value node for key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func clashLabel(raw string) (string, error) {
	m, err := parseClash(raw)
	if err != nil {
		return "", err
	}
	v := mappingValue(m, clashLabelKey)
	if v == nil {
		return "", nil
	}
	return v.Value, nil
}

func clashWithLabel(raw, label string) (string, error) {
	m, err := parseClash(raw)
	if err != nil {
		return "", err
	}
	if v := mappingValue(m, clashLabelKey); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = "!!str"
		v.Value = label
		v.Style = 0
		v.Content = nil
	} else {
		m.Content = append([]*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: clashLabelKey},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: label},
		}, m.Content...)
	}
	return MarshalFlow(m)
}

// MarshalFlow serializes a YAML node as a single-line flow-style document.
// Mapping key order is preserved.
func MarshalFlow(n *yaml.Node) (string, error) {
	setFlowStyle(n)
	b, err := yaml.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encode clash entry: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func setFlowStyle(n *yaml.Node) {
	n.HeadComment, n.LineComment, n.FootComment = "", "", ""
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = yaml.FlowStyle
	}
	for _, c := range n.Content {
		setFlowStyle(c)
	}
}
