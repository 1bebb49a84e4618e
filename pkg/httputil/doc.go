// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Every response uses one envelope. Successful calls carry the HTTP status,
// the payload and, for paged reads, the pagination block:
//
//	{"code": 200, "data": {...}, "pagination": {...}}
//
// Failures carry a message, or a list of messages for field validation:
//
//	{"code": 400, "error": {"message": "Region already exists"}}
//	{"code": 412, "error": {"message": ["name is required"]}}
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, doc)
//	httputil.WriteCreated(w, doc)
//	httputil.WritePage(w, http.StatusOK, page.Body, page.Pagination)
//	httputil.WriteBadRequest(w, "Region does not exist")
//	httputil.WriteValidationError(w, []string{"name is required"})
//	httputil.WriteInternalError(w) // never exposes the cause
//
// # Request Parsing
//
//	var body map[string]any
//	if err := httputil.ParseJSON(r, &body); err != nil { ... }
//	id := httputil.PathVar(r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
