// Package taxonomy holds the fixed category → subcategory mapping used for
// both prompt construction and validation. The definition is parsed once at
// startup and is immutable for the process lifetime.
package taxonomy

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

//go:embed categories.md
var defaultDefinition string

var (
	// ErrLoad indicates the backing definition is missing or malformed.
	ErrLoad = errors.New("taxonomy: load failed")

	// ErrUnknownCategory indicates a category not present in the taxonomy.
	ErrUnknownCategory = errors.New("taxonomy: unknown category")

	// ErrUnknownSubcategory indicates a subcategory not listed under its category.
	ErrUnknownSubcategory = errors.New("taxonomy: unknown subcategory")
)

// Category is one top-level category with its allowed subcategories.
type Category struct {
	Name          string
	Subcategories []string
}

// Taxonomy is the ordered category → subcategory mapping. Names are
// case-sensitive and matched exactly.
type Taxonomy struct {
	categories []Category
	lookup     map[string]map[string]bool
}

// categoryLine matches "1. Food" style lines that open a new category.
var categoryLine = regexp.MustCompile(`^\d+\.\s+(.+)$`)

// Load parses the embedded default definition.
func Load() (*Taxonomy, error) {
	return Parse(strings.NewReader(defaultDefinition))
}

// LoadFile parses a definition file with the same grammar as the embedded one.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLoad, path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse scans the definition line by line. A line matching "ordinal. Name"
// opens a new category; a line beginning with a bullet marker appends a
// subcategory to the current category; blank lines and the header line are
// ignored. A subcategory before any category is a load error. A redefined
// category replaces the earlier one (last write wins).
func Parse(r io.Reader) (*Taxonomy, error) {
	t := &Taxonomy{lookup: make(map[string]map[string]bool)}

	var current *Category
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if m := categoryLine.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			t.flush(current)
			current = &Category{Name: name}
			continue
		}

		if strings.HasPrefix(text, "-") || strings.HasPrefix(text, "*") {
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: subcategory before any category", ErrLoad, line)
			}
			sub := strings.TrimSpace(strings.TrimLeft(text, "-* "))
			if sub == "" {
				return nil, fmt.Errorf("%w: line %d: empty subcategory", ErrLoad, line)
			}
			current.Subcategories = append(current.Subcategories, sub)
			continue
		}

		return nil, fmt.Errorf("%w: line %d: unrecognized line %q", ErrLoad, line, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading definition: %v", ErrLoad, err)
	}
	t.flush(current)

	if len(t.categories) == 0 {
		return nil, fmt.Errorf("%w: no categories defined", ErrLoad)
	}
	for _, c := range t.categories {
		if len(c.Subcategories) == 0 {
			return nil, fmt.Errorf("%w: category %q has no subcategories", ErrLoad, c.Name)
		}
	}

	return t, nil
}

// flush records a completed category. A redefined name replaces the earlier
// entry so that lookups always reflect the last definition seen.
func (t *Taxonomy) flush(c *Category) {
	if c == nil {
		return
	}
	if _, seen := t.lookup[c.Name]; seen {
		for i := range t.categories {
			if t.categories[i].Name == c.Name {
				t.categories = append(t.categories[:i], t.categories[i+1:]...)
				break
			}
		}
	}
	subs := make(map[string]bool, len(c.Subcategories))
	for _, s := range c.Subcategories {
		subs[s] = true
	}
	t.lookup[c.Name] = subs
	t.categories = append(t.categories, *c)
}

// Categories returns the categories in definition order.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// HasCategory reports whether name is a known category (exact match).
func (t *Taxonomy) HasCategory(name string) bool {
	_, ok := t.lookup[name]
	return ok
}

// Validate checks that category is known and every subcategory is listed under
// it. Matching is case-sensitive and exact.
func (t *Taxonomy) Validate(category string, subcategories []string) error {
	subs, ok := t.lookup[category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if len(subcategories) == 0 {
		return fmt.Errorf("%w: category %q requires at least one subcategory", ErrUnknownSubcategory, category)
	}
	for _, s := range subcategories {
		if !subs[s] {
			return fmt.Errorf("%w: %q is not a subcategory of %q", ErrUnknownSubcategory, s, category)
		}
	}
	return nil
}
