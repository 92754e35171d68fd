// Package source supplies the text blobs that subscription links are
// extracted from: files of a local checkout, or files of an upstream
// GitHub repository read through the REST API and raw file host.
package source
