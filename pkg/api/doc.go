// Package api provides the HTTP REST API of civicbase.
//
// # Overview
//
// The API is built on gorilla/mux. Every collection of the catalog gets the
// same CRUD route family, served by EntityHandlers on top of an
// entities.Controller:
//
//	POST   /<collection>                       create
//	POST   /<collection>/create/and-get        create, then return a page
//	GET    /<collection>/{id}                  read
//	PUT    /<collection>/{id}                  update and sync snapshots
//	PUT    /<collection>/update/and-get/{id}   update, then return a page
//	DELETE /<collection>/{id}                  guarded delete
//	DELETE /<collection>/delete/and-get/{id}   guarded delete, then return a page
//	POST   /<collection>/delete/all            delete many in one transaction
//	POST   /<collection>/page                  paginated, filtered listing
//	GET    /<collection>/all                   every record
//
// A route is only registered when the rbac route table declares it, so the
// table is the single list of what the API exposes.
//
// # Request Flow
//
// Every request runs through the global chain:
//
//	request id -> logger -> CORS -> audit -> recovery -> body limit -> router
//
// Routes other than login, health and metrics are then authenticated with a
// bearer token and authorized against the caller's profile. Unknown routes
// go through the same checks before the 404, so an unauthenticated request
// gets 401 and an authenticated one 403.
//
// # Errors
//
// Failures use the error envelope {code, error: {message}}:
//
//	*crud.ValidationError   412, message is the list of field errors
//	*crud.RejectedError     400
//	crud.ErrNotFound        400, "<Entity> not found"
//	auth errors             401
//	rbac.ErrForbidden       403
//	persistence failures    400, "Something went wrong", cause logged
//	anything else           400, same as a persistence failure
//	recovered panic         500
package api
