// Package entities implements the per-collection controllers behind the
// CRUD endpoints.
//
// One Controller serves every collection. It runs the pre-write checks
// (uniqueness, parent existence and snapshotting, delete guards) derived
// from the collection descriptor, then delegates to crud.Repository.
// Collection specific behavior, such as password hashing for users or the
// permission join table for profiles, is plugged in through Hooks.
package entities
