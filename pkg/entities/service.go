package entities

import (
	"database/sql"
	"fmt"

	"github.com/platinummonkey/civicbase/pkg/catalog"
	"github.com/platinummonkey/civicbase/pkg/crud"
)

// Service owns one repository and one controller per catalog collection.
type Service struct {
	catalog     *catalog.Catalog
	repos       map[string]*crud.Repository
	controllers map[string]*Controller
}

// NewService creates repositories for every collection of cat. opts are
// applied to each repository.
func NewService(db *sql.DB, cat *catalog.Catalog, opts ...crud.Option) *Service {
	s := &Service{
		catalog:     cat,
		repos:       make(map[string]*crud.Repository),
		controllers: make(map[string]*Controller),
	}
	for _, d := range cat.All() {
		s.repos[d.Collection] = crud.NewRepository(db, d, opts...)
	}
	for _, d := range cat.All() {
		s.controllers[d.Collection] = &Controller{
			svc:  s,
			repo: s.repos[d.Collection],
			desc: d,
		}
	}
	return s
}

// Catalog returns the collections served.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Repository returns the repository of collection, or nil.
func (s *Service) Repository(collection string) *crud.Repository {
	return s.repos[collection]
}

// Controller returns the controller of collection.
func (s *Service) Controller(collection string) (*Controller, error) {
	c, ok := s.controllers[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrCollectionNotFound, collection)
	}
	return c, nil
}

// Use installs hooks on the controller of collection. It must be called
// before the controller serves requests.
func (s *Service) Use(collection string, h Hooks) error {
	c, err := s.Controller(collection)
	if err != nil {
		return err
	}
	c.hooks = h
	return nil
}
