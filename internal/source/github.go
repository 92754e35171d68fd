package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/hzm1213/upsub/internal/fetch"
)

const (
	// DefaultAPIBase is the GitHub REST API endpoint.
	DefaultAPIBase = "https://api.github.com"

	// DefaultRawBase serves raw repository files.
	DefaultRawBase = "https://raw.githubusercontent.com"

	// DefaultRef is used when a repository reference names no branch.
	DefaultRef = "HEAD"

	// maxTreeResponse bounds the tree listing body.
	maxTreeResponse = 32 * 1024 * 1024
)

var (
	// ErrInvalidRepository is returned for a reference that is not owner/name[@ref].
	ErrInvalidRepository = errors.New("invalid repository reference, expected owner/name[@ref]")

	// ErrTreeListing is returned when the tree API answers with a non-2xx status.
	ErrTreeListing = errors.New("failed to list repository tree")
)

// GitHub reads the files of a GitHub repository. The tree is listed with
// the REST API and each blob is downloaded from the raw file host.
type GitHub struct {
	// Owner is the repository owner.
	Owner string

	// Name is the repository name.
	Name string

	// Ref is a branch, tag, or commit; empty means DefaultRef.
	Ref string

	// Token is an optional API token, sent as a bearer credential.
	Token string

	// APIBase overrides DefaultAPIBase.
	APIBase string

	// RawBase overrides DefaultRawBase.
	RawBase string

	// Extensions limits downloaded files to these suffixes (e.g. ".md").
	// Empty means every blob.
	Extensions []string

	// HTTPClient lists the tree; nil means a client with a 30 second timeout.
	HTTPClient *http.Client

	// Fetcher downloads blobs; nil means fetch.New().
	Fetcher fetch.Fetcher

	// Logger receives debug messages about skipped files.
	Logger *slog.Logger
}

// ParseRepository parses "owner/name" or "owner/name@ref".
func ParseRepository(ref string) (*GitHub, error) {
	ref = strings.TrimSpace(ref)
	repo, branch, _ := strings.Cut(ref, "@")
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepository, ref)
	}
	return &GitHub{Owner: owner, Name: strings.TrimSuffix(name, ".git"), Ref: branch}, nil
}

// String names the source.
func (g *GitHub) String() string {
	return "github:" + g.Owner + "/" + g.Name + "@" + g.ref()
}

func (g *GitHub) ref() string {
	if g.Ref == "" {
		return DefaultRef
	}
	return g.Ref
}

func (g *GitHub) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// treeResponse is the subset of the git trees API response we read.
type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// RawURLs lists the repository tree and returns a raw download URL for
// every blob that passes the extension filter.
func (g *GitHub) RawURLs(ctx context.Context) ([]string, error) {
	apiBase := strings.TrimRight(lo.CoalesceOrEmpty(g.APIBase, DefaultAPIBase), "/")
	// Branch names may contain slashes; each segment is escaped on its own.
	endpoint := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1",
		apiBase, escapePath(g.Owner, g.Name), escapePath(g.ref()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req) //nolint:gosec // endpoint is built from configured repository
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrTreeListing, endpoint, resp.StatusCode)
	}

	var tree treeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTreeResponse)).Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if tree.Truncated {
		g.logger().Warn("repository tree listing truncated", "repository", g.String())
	}

	rawBase := strings.TrimRight(lo.CoalesceOrEmpty(g.RawBase, DefaultRawBase), "/")
	urls := make([]string, 0, len(tree.Tree))
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !g.wanted(entry.Path) {
			continue
		}
		urls = append(urls, rawBase+"/"+escapePath(g.Owner, g.Name, g.ref(), entry.Path))
	}
	return urls, nil
}

// Blobs downloads every listed file. Files that fail to download are
// skipped.
func (g *GitHub) Blobs(ctx context.Context) ([]Blob, error) {
	urls, err := g.RawURLs(ctx)
	if err != nil {
		return nil, err
	}
	f := g.Fetcher
	if f == nil {
		f = fetch.New()
	}

	blobs := make([]Blob, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return blobs, err
		}
		text, err := f.Fetch(ctx, u)
		if err != nil {
			g.logger().Debug("skipping upstream file", "url", u, "error", err)
			continue
		}
		blobs = append(blobs, Blob{Name: u, Text: text})
	}
	return blobs, nil
}

func (g *GitHub) wanted(p string) bool {
	if len(g.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	return lo.ContainsBy(g.Extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

func escapePath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, s := range strings.Split(part, "/") {
			segments = append(segments, url.PathEscape(s))
		}
	}
	return strings.Join(segments, "/")
}
