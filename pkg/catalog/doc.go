// Package catalog declares the collections served by civicbase.
//
// Every collection is described once by a crud.Descriptor. The Catalog
// derives from those descriptors which child collections embed a snapshot
// of which parent, and exposes the result as crud.ChildLink values used
// both to propagate parent updates and to guard parent deletes.
package catalog
