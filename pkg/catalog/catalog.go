package catalog

import (
	"fmt"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// Catalog is the immutable set of collection descriptors. It is built once
// at startup and shared by reference.
type Catalog struct {
	order    []*crud.Descriptor
	byName   map[string]*crud.Descriptor
	children map[string][]crud.ChildLink
}

// New builds a Catalog and checks that every reference targets a declared
// collection.
func New(descs ...*crud.Descriptor) (*Catalog, error) {
	c := &Catalog{
		byName:   make(map[string]*crud.Descriptor, len(descs)),
		children: make(map[string][]crud.ChildLink),
	}
	for _, d := range descs {
		if _, exists := c.byName[d.Collection]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCollection, d.Collection)
		}
		c.byName[d.Collection] = d
		c.order = append(c.order, d)
	}

	for _, child := range c.order {
		for _, ref := range child.References {
			if _, ok := c.byName[ref.Target]; !ok {
				return nil, fmt.Errorf("%w: %s.%s -> %s", ErrUnknownTarget, child.Collection, ref.Name, ref.Target)
			}
			c.children[ref.Target] = append(c.children[ref.Target], crud.ChildLink{Child: child, Ref: ref})
		}
	}
	return c, nil
}

// Default returns the catalog of every civicbase collection.
func Default() *Catalog {
	c, err := New(DefaultDescriptors()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the descriptor of collection.
func (c *Catalog) Get(collection string) (*crud.Descriptor, error) {
	d, ok := c.byName[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return d, nil
}

// MustGet is Get for collections known at compile time.
func (c *Catalog) MustGet(collection string) *crud.Descriptor {
	d, err := c.Get(collection)
	if err != nil {
		panic(err)
	}
	return d
}

// All returns every descriptor in declaration order.
func (c *Catalog) All() []*crud.Descriptor {
	out := make([]*crud.Descriptor, len(c.order))
	copy(out, c.order)
	return out
}

// Children returns the links from collection to every child collection
// embedding a snapshot of it.
func (c *Catalog) Children(collection string) []crud.ChildLink {
	return c.children[collection]
}
