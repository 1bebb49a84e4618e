// Package crud implements the generic persistence layer shared by every
// collection of the admin backend.
//
// A Descriptor declares the shape of one collection: its scalar fields,
// the parent snapshots it embeds (References), its uniqueness keys and its
// default sort. A Repository instantiated from a Descriptor provides the
// create/read/update/delete/page/all/search/deleteAll operations plus the
// ExistValuesInKey and CheckRelation guard primitives.
//
// Embedded snapshots are a denormalized cache of a parent record. They are
// kept consistent by SyncUpdate, which updates a parent and fans the new
// snapshot out to every child collection inside one transaction:
//
//	links := catalog.Children("regions")
//	doc, err := regions.SyncUpdate(ctx, id, patch, validate, links...)
//
// Documents travel as Document values (a JSON-shaped map); references are
// rendered as nested objects such as {"region": {"id": "...", "name": "..."}}.
package crud
