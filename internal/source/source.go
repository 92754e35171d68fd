package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/hzm1213/upsub/internal/extract"
	"github.com/hzm1213/upsub/internal/model"
)

// Blob is one piece of link-bearing text.
type Blob struct {
	// Name identifies the blob in logs (a path or a URL).
	Name string

	// Text is the blob content.
	Text string
}

// Source produces blobs.
type Source interface {
	// Blobs returns the source's text blobs. Unreadable entries are
	// skipped; an error means the source as a whole failed.
	Blobs(ctx context.Context) ([]Blob, error)

	// String names the source for logs.
	String() string
}

// Collect extracts links from the blobs of every source and returns them
// sorted and deduplicated. Relative anchors of HTML blobs are resolved
// against the blob name, which is the raw URL for upstream files. A failing source does not stop the others; its
// error is included in the joined error returned alongside the links.
func Collect(ctx context.Context, sources []Source, mode extract.Mode) ([]string, error) {
	set := model.NewLinkSet()
	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return set.Sorted(), err
		}
		blobs, err := src.Blobs(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src, err))
			continue
		}
		for _, b := range blobs {
			set.Merge(extract.LinkSetFrom(b.Name, b.Text, mode))
		}
	}
	return set.Sorted(), errors.Join(errs...)
}
