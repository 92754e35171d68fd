package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hzm1213/upsub/internal/config"
	"github.com/hzm1213/upsub/internal/extract"
)

func TestOutputExclusion(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	tests := []struct {
		name      string
		sourceDir string
		outputDir string
		want      []string
	}{
		{"inside", base, filepath.Join(base, "output"), []string{"output"}},
		{"nested", base, filepath.Join(base, "dist", "subs"), []string{"dist/subs"}},
		{"same directory", base, base, nil},
		{"outside", filepath.Join(base, "src"), filepath.Join(base, "output"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := outputExclusion(tt.sourceDir, tt.outputDir)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, expected %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %q, expected %q", got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLinkMode(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	if got := linkMode(cfg); got != extract.ModePlain {
		t.Errorf("got %s, expected plain", got)
	}

	cfg.Structured = true
	cfg.HTML = true
	if got := linkMode(cfg); got != extract.ModePlain|extract.ModeStructured|extract.ModeHTML {
		t.Errorf("got %s, expected plain+structured+html", got)
	}
}

func TestBuildSources(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Repositories = []string{"alice/subs", "bob/feeds@main"}

	sources, err := buildSources(cfg, newGit(cfg, nil), newFetcher(cfg, nil), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("got %d sources, expected 3", len(sources))
	}

	cfg.Repositories = []string{"not-a-repository"}
	if _, err := buildSources(cfg, newGit(cfg, nil), newFetcher(cfg, nil), nil, nil); err == nil {
		t.Error("expected error for malformed repository")
	}
}

func TestNewFetcherSendsConfiguredHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Token"); got != "secret" {
			t.Errorf("got %q, expected %q", got, "secret")
		}
		if got := r.Header.Get("User-Agent"); got != "clash-verge" {
			t.Errorf("got %q, expected %q", got, "clash-verge")
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.Headers = map[string]string{
		"X-Token":    "secret",
		"User-Agent": "clash-verge",
	}

	body, err := newFetcher(cfg, nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "ok" {
		t.Errorf("got %q, expected %q", body, "ok")
	}
}
