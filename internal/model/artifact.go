package model

import "fmt"

// Encoding is the on-disk representation of an artifact.
type Encoding string

const (
	// EncodingPlain writes newline-joined nodes.
	EncodingPlain Encoding = "plain"

	// EncodingBase64 writes the base64 encoding of the newline-joined nodes.
	// This is the format most subscription clients expect.
	EncodingBase64 Encoding = "base64"
)

// ParseEncoding converts a configuration string to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingPlain, "":
		return EncodingPlain, nil
	case EncodingBase64:
		return EncodingBase64, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (expected plain or base64)", s)
	}
}

// Artifact is one numbered output file.
type Artifact struct {
	// Index is the 1-based output number. The file name is derived from it.
	Index int `json:"index"`

	// Link is the subscription link the nodes came from.
	Link string `json:"link"`

	// Path is the file path the artifact was written to.
	Path string `json:"path"`

	// NodeCount is the number of nodes in the artifact.
	NodeCount int `json:"node_count"`

	// Encoding is the content encoding used.
	Encoding Encoding `json:"encoding"`

	// Digest is the hex SHA3-256 of the written content.
	Digest string `json:"digest"`
}

// FileName returns the artifact file name, e.g. "007.txt".
func (a Artifact) FileName() string {
	return ArtifactFileName(a.Index)
}

// ShortDigest returns the first 12 hex characters of the digest.
func (a Artifact) ShortDigest() string {
	if len(a.Digest) <= 12 {
		return a.Digest
	}
	return a.Digest[:12]
}

// ArtifactFileName returns the 3-digit zero-padded file name for index.
// Indexes of 1000 and above simply grow wider.
func ArtifactFileName(index int) string {
	return fmt.Sprintf("%03d.txt", index)
}
