package rename

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/hzm1213/upsub/internal/node"
	"github.com/hzm1213/upsub/internal/region"
)

// Picker chooses a decorative symbol index in [0, n).
// Implementations used from several goroutines must be safe for that.
type Picker interface {
	IntN(n int) int
}

// PickerFunc adapts a function to the Picker interface.
type PickerFunc func(n int) int

// IntN calls f(n).
func (f PickerFunc) IntN(n int) int {
	return f(n)
}

// randomPicker uses the process-wide generator, which is safe for
// concurrent use.
type randomPicker struct{}

func (randomPicker) IntN(n int) int {
	return rand.IntN(n)
}

// Rewriter replaces node labels.
type Rewriter struct {
	// table detects the region of each label.
	table *region.Table

	// symbols are the decorative symbols to pick from.
	symbols []string

	// picker selects the decorative symbol.
	picker Picker
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithPicker sets the decorative symbol picker.
// Tests use this to make the output deterministic.
func WithPicker(p Picker) Option {
	return func(r *Rewriter) {
		r.picker = p
	}
}

// WithSymbols overrides the table's decorative symbols.
func WithSymbols(symbols []string) Option {
	return func(r *Rewriter) {
		r.symbols = symbols
	}
}

// New creates a Rewriter using table for region detection.
func New(table *region.Table, opts ...Option) *Rewriter {
	r := &Rewriter{
		table:   table,
		symbols: table.Symbols,
		picker:  randomPicker{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SequenceWidth returns the zero-padded width of sequence numbers for a
// list of n nodes: 2 below 100, 3 below 1000, 4 otherwise.
func SequenceWidth(n int) int {
	switch {
	case n < 100:
		return 2
	case n < 1000:
		return 3
	default:
		return 4
	}
}

// Rewrite returns a copy of nodes with every label replaced. Length and
// order are preserved. Nodes whose label cannot be read are treated as
// having an empty label.
func (r *Rewriter) Rewrite(nodes []string) []string {
	total := len(nodes)
	width := SequenceWidth(total)
	out := make([]string, total)
	for i, raw := range nodes {
		label, err := node.Label(raw)
		if err != nil {
			label = ""
		}
		out[i] = node.WithLabel(raw, r.NewLabel(label, i+1, total, width))
	}
	return out
}

// NewLabel builds the replacement label for the node at 1-based position
// idx of total, given its current label.
func (r *Rewriter) NewLabel(current string, idx, total, width int) string {
	reg := r.table.Detect(current)

	var b strings.Builder
	b.WriteString(r.pickSymbol())
	b.WriteString(strconv.Itoa(total))
	b.WriteString(reg.Flag)
	b.WriteString(reg.Code)
	b.WriteString(padInt(idx, width))
	return b.String()
}

func (r *Rewriter) pickSymbol() string {
	if len(r.symbols) == 0 {
		return ""
	}
	i := r.picker.IntN(len(r.symbols))
	if i < 0 || i >= len(r.symbols) {
		i = 0
	}
	return r.symbols[i]
}

func padInt(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
