package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultCurrency = "usd"

// Product harga dalam minor units (cents).
type Product struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	UnitPrice int64  `json:"price" yaml:"price"`
	Currency  string `json:"currency" yaml:"currency"`
}

// Catalog is immutable after construction; safe for concurrent use.
type Catalog struct {
	products []Product
	byID     map[string]Product
}

var ErrInvalidCatalog = errors.New("invalid catalog")

func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]Product, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.Currency = strings.ToLower(strings.TrimSpace(p.Currency))
		if p.Currency == "" {
			p.Currency = DefaultCurrency
		}
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("%w: product #%d has no id", ErrInvalidCatalog, i)
		case p.Name == "":
			return nil, fmt.Errorf("%w: product %s has no name", ErrInvalidCatalog, p.ID)
		case p.UnitPrice <= 0:
			return nil, fmt.Errorf("%w: product %s has non-positive price", ErrInvalidCatalog, p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %s", ErrInvalidCatalog, p.ID)
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}
	return c, nil
}

// Default is the storefront's built-in catalog.
func Default() *Catalog {
	c, err := New([]Product{
		{ID: "p1", Name: "Cool T-Shirt", UnitPrice: 2000, Currency: "usd"},
		{ID: "p2", Name: "Fancy Mug", UnitPrice: 1500, Currency: "usd"},
		{ID: "p3", Name: "Dragon Spit (virtual)", UnitPrice: 500, Currency: "usd"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

type file struct {
	Products []Product `yaml:"products"`
}

// Load reads a YAML catalog file. Empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}
	return New(f.Products)
}

func (c *Catalog) Lookup(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List returns a copy in declaration order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int { return len(c.products) }
