package catalog

import "errors"

var (
	// ErrCollectionNotFound is returned when a collection is not in the catalog
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDuplicateCollection is returned when two descriptors share a collection name
	ErrDuplicateCollection = errors.New("duplicate collection")

	// ErrUnknownTarget is returned when a reference points at an undeclared collection
	ErrUnknownTarget = errors.New("reference targets an unknown collection")
)
