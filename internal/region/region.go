package region

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultTable []byte

var (
	// ErrEmptyTable is returned when a table defines no regions.
	ErrEmptyTable = errors.New("region table has no regions")

	// ErrInvalidRegion is returned when a region lacks a flag or a code.
	ErrInvalidRegion = errors.New("region must have both flag and code")

	// ErrNoSymbols is returned when a table defines no decorative symbols.
	ErrNoSymbols = errors.New("region table has no decorative symbols")
)

// Region pairs a flag symbol with its region code.
type Region struct {
	Flag string `yaml:"flag" json:"flag"`
	Code string `yaml:"code" json:"code"`
}

// String returns the flag followed by the code, e.g. "🇭🇰HK".
func (r Region) String() string {
	return r.Flag + r.Code
}

// Table is the ordered region lookup table plus the decorative symbols
// used when renaming.
type Table struct {
	// Regions is searched in order; the first match wins.
	Regions []Region `yaml:"regions"`

	// Unknown is returned when no region matches.
	Unknown Region `yaml:"unknown"`

	// Symbols are the decorative symbols available to the renamer.
	Symbols []string `yaml:"symbols"`

	// foldedCodes caches the case-folded region codes.
	foldedCodes []string
}

// Default returns the embedded default table.
// It panics if the embedded asset is invalid, which is a build defect.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded region table: %v", err))
	}
	return t
}

// DefaultYAML returns the embedded default table source.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultTable))
	copy(out, defaultTable)
	return out
}

// LoadFile reads a table from a YAML file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("open region table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a table from YAML.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read region table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse region table: %w", err)
	}
	if err := t.init(); err != nil {
		return nil, err
	}
	return &t, nil
}

// New builds a table from regions and symbols. An empty unknown region
// defaults to the white flag and "ZZ".
func New(regions []Region, unknown Region, symbols []string) (*Table, error) {
	t := &Table{
		Regions: append([]Region(nil), regions...),
		Unknown: unknown,
		Symbols: append([]string(nil), symbols...),
	}
	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) init() error {
	if t.Unknown.Flag == "" && t.Unknown.Code == "" {
		t.Unknown = Region{Flag: "🏳️", Code: "ZZ"}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	fold := cases.Fold()
	t.foldedCodes = make([]string, len(t.Regions))
	for i, r := range t.Regions {
		t.foldedCodes[i] = fold.String(r.Code)
	}
	return nil
}

// Validate checks the table for structural errors.
func (t *Table) Validate() error {
	if len(t.Regions) == 0 {
		return ErrEmptyTable
	}
	for i, r := range t.Regions {
		if strings.TrimSpace(r.Flag) == "" || strings.TrimSpace(r.Code) == "" {
			return fmt.Errorf("region %d: %w", i, ErrInvalidRegion)
		}
	}
	if len(t.Symbols) == 0 {
		return ErrNoSymbols
	}
	return nil
}

// Flags returns the flag symbols in table order.
func (t *Table) Flags() []string {
	out := make([]string, len(t.Regions))
	for i, r := range t.Regions {
		out[i] = r.Flag
	}
	return out
}

// Detect returns the region of a label: the first region whose flag
// occurs literally in it, else the first region whose code occurs in it
// ignoring case, else the unknown region.
func (t *Table) Detect(label string) Region {
	if label == "" {
		return t.Unknown
	}
	for _, r := range t.Regions {
		if strings.Contains(label, r.Flag) {
			return r
		}
	}
	// A Caser is stateful, so each call gets its own.
	fold := cases.Fold()
	folded := fold.String(label)
	for i, r := range t.Regions {
		var code string
		if i < len(t.foldedCodes) {
			code = t.foldedCodes[i]
		} else {
			code = fold.String(r.Code)
		}
		if strings.Contains(folded, code) {
			return r
		}
	}
	return t.Unknown
}

// Marker returns the label suffix for nodes without a recognized flag.
func (t *Table) Marker() string {
	return t.Unknown.String()
}
