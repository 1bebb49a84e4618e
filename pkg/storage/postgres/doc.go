// Package postgres provides the storage plumbing shared by every collection:
// the PostgreSQL connection pool, schema bootstrap and the Redis client.
//
// # Connection
//
//	cm, err := postgres.NewConnectionManager(postgres.DefaultConnectionConfig(url))
//	db := cm.Primary()
//
// # Schema
//
// The DDL is derived from the collection descriptors. Embedded parent
// snapshots become <reference>_<field> columns and every unique key gets a
// unique index, so concurrent duplicate inserts fail with SQLSTATE 23505.
//
//	err := postgres.EnsureSchema(ctx, db, catalog.Default().All())
//
// # Redis
//
// RedisClient backs the permission cache and the distributed login rate
// limiter. A cache miss is reported as (false, nil), not as an error.
package postgres
