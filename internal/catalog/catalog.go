// Package catalog loads the form catalog: which form types exist, how their
// tabs are titled, whether they close on success and which field rules apply.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed forms.yaml
var defaultCatalog []byte

// ErrUnknownForm is returned for a form type missing from the catalog.
var ErrUnknownForm = errors.New("catalog: unknown form")

// Catalog is the parsed form catalog.
type Catalog struct {
	Forms []Form `yaml:"forms"`

	byType map[string]int
}

// Form describes one form type.
type Form struct {
	Type               string `yaml:"type"`
	Title              string `yaml:"title"`
	AutoCloseOnSuccess bool   `yaml:"auto_close_on_success"`
	Rules              []Rule `yaml:"rules"`
}

// Rule is a field check. When, if set, gates the rule; Expr must hold.
type Rule struct {
	Field   string `yaml:"field"`
	When    string `yaml:"when"`
	Expr    string `yaml:"expr"`
	Message string `yaml:"message"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from path, or the embedded one when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.byType = make(map[string]int, len(c.Forms))
	for i, f := range c.Forms {
		if f.Type == "" {
			return nil, fmt.Errorf("catalog: form %d has no type", i)
		}
		if _, dup := c.byType[f.Type]; dup {
			return nil, fmt.Errorf("catalog: duplicate form %q", f.Type)
		}
		for j, r := range f.Rules {
			if r.Field == "" || r.Expr == "" {
				return nil, fmt.Errorf("catalog: form %q rule %d needs field and expr", f.Type, j)
			}
		}
		c.byType[f.Type] = i
	}
	return &c, nil
}

// Form returns the entry for formType.
func (c *Catalog) Form(formType string) (Form, error) {
	if c != nil {
		if i, ok := c.byType[formType]; ok {
			return c.Forms[i], nil
		}
	}
	return Form{}, fmt.Errorf("%w: %s", ErrUnknownForm, formType)
}

// Types lists the catalogued form types in sorted order.
func (c *Catalog) Types() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Forms))
	for _, f := range c.Forms {
		out = append(out, f.Type)
	}
	sort.Strings(out)
	return out
}

// Title returns the catalogued tab title, or fallback.
func (c *Catalog) Title(formType, fallback string) string {
	if f, err := c.Form(formType); err == nil && f.Title != "" {
		return f.Title
	}
	return fallback
}
