// Package rbac guards routes with permission tags granted through profiles.
//
// # Registry
//
// The route table is embedded YAML loaded once at start. It maps an HTTP
// method and a normalized path to the permission the route needs and the
// label recorded in the audit log. Paths are normalized by replacing any
// 24 hex character segment with ":id", so /users/65e1a2b3c4d5e6f708192a3b
// resolves as /users/:id.
//
// CRUD families expand from a single resources entry:
//
//	POST   /regions                      ADD_REGION     Create region
//	GET    /regions/:id                  LIST_REGION    Get region
//	PUT    /regions/update/and-get/:id   EDIT_REGION    Update region and get page
//	POST   /regions/delete/all           DELETE_REGION  Delete many regions
//
// Free routes need an authenticated caller but no permission.
//
// # Authorization
//
//	authorizer := rbac.NewAuthorizer(rbac.DefaultRegistry(), cache, "SUPER_ADMIN")
//	router.Use(rbac.NewMiddleware(authorizer, logger).Handler)
//
// An unregistered route is forbidden. A caller whose profile is named after
// the superuser profile passes every check.
//
// # Cache
//
// PermissionCache keeps profile permissions in an expirable LRU and, when
// configured, in Redis. Profile writes call Invalidate.
package rbac
