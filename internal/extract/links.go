package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/hzm1213/upsub/internal/model"
	"gopkg.in/yaml.v3"
)

// Mode selects which link extraction strategies run. Modes combine with |.
type Mode uint8

const (
	// ModePlain scans the text with a URL pattern.
	ModePlain Mode = 1 << iota
	// ModeStructured reads proxy-providers urls from YAML or JSON documents.
	ModeStructured
	// ModeHTML reads anchor hrefs from an HTML document.
	ModeHTML
)

// String returns the names of the enabled modes joined with "+".
func (m Mode) String() string {
	names := make([]string, 0, 3)
	if m&ModePlain != 0 {
		names = append(names, "plain")
	}
	if m&ModeStructured != 0 {
		names = append(names, "structured")
	}
	if m&ModeHTML != 0 {
		names = append(names, "html")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// urlPattern matches http(s) URLs up to whitespace, quotes or angle brackets.
var urlPattern = regexp.MustCompile(`https?://[^\s'"<>]+`)

const providersKey = "proxy-providers"

// Links returns the sorted unique links found in text by the enabled modes.
// ModeHTML keeps absolute http(s) hrefs here; LinkSetFrom resolves
// relative ones.
func Links(text string, mode Mode) []string {
	set := LinkSet(text, mode)
	return set.Sorted()
}

// LinkSet is like Links but returns the unsorted set.
func LinkSet(text string, mode Mode) model.LinkSet {
	set := model.NewLinkSet()
	if mode&ModePlain != 0 {
		set.Add(PlainLinks(text)...)
	}
	if mode&ModeStructured != 0 {
		set.Add(StructuredLinks(text)...)
	}
	if mode&ModeHTML != 0 {
		set.Add(HTMLLinks("", text)...)
	}
	return set
}

// LinkSetFrom is like LinkSet for text read from base, a URL or a file
// path. With ModeHTML, relative hrefs of a full HTML document are
// resolved against base; anchors in other text keep only absolute hrefs.
func LinkSetFrom(base, text string, mode Mode) model.LinkSet {
	set := LinkSet(text, mode&^ModeHTML)
	if mode&ModeHTML != 0 {
		if !LooksLikeHTML(text) {
			base = ""
		}
		set.Add(HTMLLinks(base, text)...)
	}
	return set
}

// PlainLinks returns every URL pattern match in text, in order of appearance.
func PlainLinks(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// StructuredLinks returns the url of every provider in a proxy-providers
// mapping. The text is read as a YAML stream (every document) and,
// independently, as JSON. Parse errors end the attempt silently.
func StructuredLinks(text string) []string {
	out := make([]string, 0)
	out = append(out, yamlProviderLinks(text)...)
	out = append(out, jsonProviderLinks(text)...)
	return out
}

func yamlProviderLinks(text string) []string {
	out := make([]string, 0)
	dec := yaml.NewDecoder(strings.NewReader(text))
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken document ends the stream; earlier documents still count.
			break
		}
		out = append(out, providerLinks(doc)...)
	}
	return out
}

func jsonProviderLinks(text string) []string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	return providerLinks(doc)
}

// providerLinks reads proxy-providers -> * -> url from a decoded document.
func providerLinks(doc any) []string {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	providers, ok := root[providersKey].(map[string]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		entry, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if u, ok := entry["url"].(string); ok && strings.TrimSpace(u) != "" {
			out = append(out, strings.TrimSpace(u))
		}
	}
	return out
}
