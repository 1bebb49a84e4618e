package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// Controller serves the CRUD operations of one collection.
type Controller struct {
	svc   *Service
	repo  *crud.Repository
	desc  *crud.Descriptor
	hooks Hooks
}

// Descriptor returns the collection descriptor.
func (c *Controller) Descriptor() *crud.Descriptor {
	return c.desc
}

// Create validates body, checks uniqueness and parent references, and
// stores the record on behalf of actor.
func (c *Controller) Create(ctx context.Context, body crud.Document, actor string) (crud.Document, error) {
	doc, err := c.desc.Validate(body, false)
	if err != nil {
		return nil, err
	}
	if err := c.beforeWrite(ctx, body, doc, ""); err != nil {
		return nil, err
	}

	var created crud.Document
	if c.hooks.AfterWrite == nil {
		created, err = c.repo.Create(ctx, nil, doc, actor)
	} else {
		err = c.repo.InTx(ctx, func(tx *sql.Tx) error {
			saved, err := c.repo.Create(ctx, tx, doc, actor)
			if err != nil {
				return err
			}
			created = saved
			return c.hooks.AfterWrite(ctx, tx, saved, doc)
		})
	}
	if err != nil {
		return nil, err
	}
	c.committed(ctx, created)
	return c.decorateOne(ctx, created)
}

// Read returns one record.
func (c *Controller) Read(ctx context.Context, id string) (crud.Document, error) {
	doc, err := c.repo.Read(ctx, crud.NormalizeID(id))
	if err != nil {
		return nil, err
	}
	return c.decorateOne(ctx, doc)
}

// Update validates body as a partial document and applies it. The new
// snapshot of the record is propagated to every child collection in the
// same transaction.
func (c *Controller) Update(ctx context.Context, id string, body crud.Document) (crud.Document, error) {
	id = crud.NormalizeID(id)
	patch, err := c.desc.Validate(body, true)
	if err != nil {
		return nil, err
	}

	check := func(ctx context.Context) error {
		return c.beforeWrite(ctx, body, patch, id)
	}
	listeners := make([]crud.ParentListener, 0, len(c.svc.catalog.Children(c.desc.Collection))+1)
	for _, link := range c.svc.catalog.Children(c.desc.Collection) {
		listeners = append(listeners, link)
	}
	if c.hooks.AfterWrite != nil {
		listeners = append(listeners, crud.ListenerFunc(func(ctx context.Context, q crud.Querier, _ string, saved crud.Document) error {
			return c.hooks.AfterWrite(ctx, q, saved, patch)
		}))
	}

	updated, err := c.repo.SyncUpdate(ctx, id, patch, check, listeners...)
	if err != nil {
		return nil, err
	}
	c.committed(ctx, updated)
	return c.decorateOne(ctx, updated)
}

// Delete removes one record unless a child collection still references it.
// The reference check and the delete share one transaction.
func (c *Controller) Delete(ctx context.Context, id string) (crud.Document, error) {
	id = crud.NormalizeID(id)
	var doc crud.Document
	err := c.repo.InTx(ctx, func(tx *sql.Tx) error {
		if err := c.guard(ctx, tx, []string{id}); err != nil {
			return err
		}
		deleted, err := c.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		doc = deleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.hooks.AfterDelete != nil {
		c.hooks.AfterDelete(ctx, []string{id})
	}
	return doc, nil
}

// DeleteAll removes every listed record in one transaction. It fails when
// an id does not exist or when any record is still referenced.
func (c *Controller) DeleteAll(ctx context.Context, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return crud.NewValidationError("ids is required")
	}
	for _, id := range ids {
		if !crud.IsID(id) {
			return crud.NewValidationError(fmt.Sprintf("%s is not a valid identifier", id))
		}
	}
	msg := fmt.Sprintf("One or more %s do not exist", c.desc.Collection)
	if err := c.repo.ExistValuesInKey(ctx, "id", ids, len(ids), msg); err != nil {
		return err
	}
	if err := c.guard(ctx, nil, ids); err != nil {
		return err
	}
	if _, err := c.repo.DeleteAll(ctx, nil, ids); err != nil {
		return err
	}
	if c.hooks.AfterDelete != nil {
		c.hooks.AfterDelete(ctx, ids)
	}
	return nil
}

// All returns every record in default order.
func (c *Controller) All(ctx context.Context) ([]crud.Document, error) {
	docs, err := c.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return c.decorate(ctx, docs)
}

// Search returns every record matching cond.
func (c *Controller) Search(ctx context.Context, cond crud.Condition) ([]crud.Document, error) {
	docs, err := c.repo.Search(ctx, cond)
	if err != nil {
		return nil, err
	}
	return c.decorate(ctx, docs)
}

// Page returns one page of records.
func (c *Controller) Page(ctx context.Context, req crud.PageRequest) (*crud.Page, error) {
	page, err := c.repo.Page(ctx, crud.Condition{}, req)
	if err != nil {
		return nil, err
	}
	if page.Body, err = c.decorate(ctx, page.Body); err != nil {
		return nil, err
	}
	return page, nil
}

// beforeWrite runs the uniqueness and reference checks, then the Prepare
// hook. doc is updated in place with parent snapshots.
func (c *Controller) beforeWrite(ctx context.Context, body, doc crud.Document, id string) error {
	if err := c.checkUnique(ctx, doc, id); err != nil {
		return err
	}
	if err := c.resolveReferences(ctx, doc); err != nil {
		return err
	}
	if c.hooks.Prepare != nil {
		return c.hooks.Prepare(ctx, body, doc, id)
	}
	return nil
}

func (c *Controller) checkUnique(ctx context.Context, doc crud.Document, id string) error {
	for _, key := range c.desc.Unique {
		v, ok := doc[key]
		if !ok || v == nil {
			continue
		}
		cond := crud.Where(crud.Eq(key, v))
		if id != "" {
			cond = cond.And(crud.Ne("id", id))
		}
		n, err := c.repo.Count(ctx, cond)
		if err != nil {
			return err
		}
		if n > 0 {
			return crud.Reject(c.duplicateMessage(key))
		}
	}
	return nil
}

func (c *Controller) duplicateMessage(key string) string {
	entity := strings.ToUpper(c.desc.Entity[:1]) + c.desc.Entity[1:]
	if key == "name" {
		return entity + " already exists"
	}
	return fmt.Sprintf("%s with this %s already exists", entity, key)
}

// resolveReferences replaces every {id} reference of doc with the current
// snapshot of the parent, rejecting references to missing parents.
func (c *Controller) resolveReferences(ctx context.Context, doc crud.Document) error {
	for _, ref := range c.desc.References {
		v, ok := doc.Ref(ref.Name)
		if !ok || v.ID() == "" {
			continue
		}
		parents := c.svc.Repository(ref.Target)
		if parents == nil {
			return fmt.Errorf("no repository for %s", ref.Target)
		}
		parent, err := parents.Read(ctx, v.ID())
		if errors.Is(err, crud.ErrNotFound) {
			missing := ref.Missing
			if missing == "" {
				missing = fmt.Sprintf("%s does not exist", ref.Name)
			}
			return crud.Reject(missing)
		}
		if err != nil {
			return err
		}
		doc[ref.Name] = ref.Snapshot(parent)
	}
	return nil
}

// guard rejects the delete of ids when any child collection references one
// of them. A nil tx counts outside any transaction.
func (c *Controller) guard(ctx context.Context, tx *sql.Tx, ids []string) error {
	var q crud.Querier
	if tx != nil {
		q = tx
	}
	for _, link := range c.svc.catalog.Children(c.desc.Collection) {
		children := c.svc.Repository(link.Child.Collection)
		if err := children.CheckRelation(ctx, q, link.Ref.Name, ids, crud.RelationMessage(link.Child, c.desc)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) committed(ctx context.Context, saved crud.Document) {
	if c.hooks.Committed != nil {
		c.hooks.Committed(ctx, saved)
	}
}

func (c *Controller) decorate(ctx context.Context, docs []crud.Document) ([]crud.Document, error) {
	if c.hooks.Decorate == nil || len(docs) == 0 {
		return docs, nil
	}
	if err := c.hooks.Decorate(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Controller) decorateOne(ctx context.Context, doc crud.Document) (crud.Document, error) {
	docs, err := c.decorate(ctx, []crud.Document{doc})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = crud.NormalizeID(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
