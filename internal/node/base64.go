package node

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrEmptyPayload is returned when there is nothing to decode.
var ErrEmptyPayload = errors.New("empty base64 payload")

// DecodeBase64 decodes s trying the standard alphabet first, then the
// URL-safe one, each with and without padding. Spaces, tabs and line
// breaks are removed before decoding.
func DecodeBase64(s string) ([]byte, error) {
	s = removeSpaceTabCRLF(s)
	if s == "" {
		return nil, ErrEmptyPayload
	}
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// EncodeBase64 encodes b with the padded standard alphabet.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func removeSpaceTabCRLF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
