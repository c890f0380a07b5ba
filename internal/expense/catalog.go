package expense

import (
	"fmt"
	"strings"
)

// Category is a top-level spending bucket with optional subcategories.
type Category struct {
	Name          string   `yaml:"name"`
	Subcategories []string `yaml:"subcategories"`
}

// HasSubcategories reports whether the category asks for a subcategory.
func (c Category) HasSubcategories() bool {
	return len(c.Subcategories) > 0
}

// Catalog is the ordered, immutable set of categories offered to users.
type Catalog struct {
	categories []Category
	index      map[string]int
}

// DefaultCategories returns the built-in category table.
func DefaultCategories() []Category {
	family := []string{"Cloth", "Other"}
	return []Category{
		{Name: "Grocery"},
		{Name: "Vehicle", Subcategories: []string{"Gas", "Financial", "Maintenance"}},
		{Name: "Utilities", Subcategories: []string{"Gas", "Electricity", "Others"}},
		{Name: "Home", Subcategories: []string{"Rent", "Other"}},
		{Name: "Mehdi", Subcategories: family},
		{Name: "Elaheh", Subcategories: family},
		{Name: "Sana", Subcategories: family},
		{Name: "Sameen", Subcategories: family},
	}
}

// DefaultCatalog returns the catalog built from DefaultCategories.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCategories())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates categories and builds a Catalog.
// Names must be non-empty and unique; subcategory labels must be non-empty.
func NewCatalog(categories []Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("catalog: at least one category is required")
	}
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
	}
	for i, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog: category #%d has an empty name", i+1)
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %q", name)
		}
		subs := make([]string, 0, len(cat.Subcategories))
		for _, s := range cat.Subcategories {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, fmt.Errorf("catalog: category %q has an empty subcategory", name)
			}
			subs = append(subs, s)
		}
		c.index[name] = len(c.categories)
		c.categories = append(c.categories, Category{Name: name, Subcategories: subs})
	}
	return c, nil
}

// Lookup finds a category by its exact label.
func (c *Catalog) Lookup(name string) (Category, bool) {
	i, ok := c.index[name]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Names returns category labels in display order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cat.Name
	}
	return out
}

// Len reports the number of categories.
func (c *Catalog) Len() int { return len(c.categories) }
