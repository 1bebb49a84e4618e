package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/entities"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/rbac"
)

// idPattern restricts {id} route variables to 24 hex characters.
const idPattern = "{id:[0-9a-fA-F]{24}}"

// EntityHandlers serves the CRUD route family of one collection.
type EntityHandlers struct {
	ctrl     *entities.Controller
	desc     *crud.Descriptor
	prefix   string
	registry *rbac.Registry
}

// NewEntityHandlers creates the handlers of ctrl's collection. Only the
// routes present in registry are registered.
func NewEntityHandlers(ctrl *entities.Controller, registry *rbac.Registry) *EntityHandlers {
	desc := ctrl.Descriptor()
	return &EntityHandlers{
		ctrl:     ctrl,
		desc:     desc,
		prefix:   "/" + desc.Collection,
		registry: registry,
	}
}

type entityRoute struct {
	method  string
	path    string
	handler http.HandlerFunc
}

// RegisterRoutes registers the collection routes. Static paths come
// before the {id} routes.
func (h *EntityHandlers) RegisterRoutes(router *mux.Router) {
	routes := []entityRoute{
		{http.MethodGet, "/all", h.all},
		{http.MethodPost, "/page", h.page},
		{http.MethodPost, "/create/and-get", h.createAndGet},
		{http.MethodPost, "/delete/all", h.deleteAll},
		{http.MethodPut, "/update/and-get/" + idPattern, h.updateAndGet},
		{http.MethodDelete, "/delete/and-get/" + idPattern, h.deleteAndGet},
		{http.MethodPost, "", h.create},
		{http.MethodGet, "/" + idPattern, h.read},
		{http.MethodPut, "/" + idPattern, h.update},
		{http.MethodDelete, "/" + idPattern, h.delete},
	}
	for _, route := range routes {
		if !h.enabled(route.method, route.path) {
			continue
		}
		router.HandleFunc(h.prefix+route.path, route.handler).Methods(route.method)
	}
}

func (h *EntityHandlers) enabled(method, path string) bool {
	if h.registry == nil {
		return true
	}
	_, ok := h.registry.Lookup(method, h.prefix+replaceIDPattern(path))
	return ok
}

func replaceIDPattern(path string) string {
	if n := len(path) - len(idPattern); n >= 0 && path[n:] == idPattern {
		return path[:n] + rbac.IDPlaceholder
	}
	return path
}

// create handles POST /<collection>
func (h *EntityHandlers) create(w http.ResponseWriter, r *http.Request) {
	doc, err := h.createDocument(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteCreated(w, doc)
}

// createAndGet handles POST /<collection>/create/and-get
func (h *EntityHandlers) createAndGet(w http.ResponseWriter, r *http.Request) {
	if _, err := h.createDocument(r); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writePageFromQuery(w, r, http.StatusCreated)
}

func (h *EntityHandlers) createDocument(r *http.Request) (crud.Document, error) {
	var body crud.Document
	if err := httputil.ParseJSON(r, &body); err != nil {
		return nil, decodeError(err)
	}
	return h.ctrl.Create(r.Context(), body, actorOf(r))
}

// read handles GET /<collection>/{id}
func (h *EntityHandlers) read(w http.ResponseWriter, r *http.Request) {
	doc, err := h.ctrl.Read(r.Context(), httputil.PathVar(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doc)
}

// update handles PUT /<collection>/{id}
func (h *EntityHandlers) update(w http.ResponseWriter, r *http.Request) {
	doc, err := h.updateDocument(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doc)
}

// updateAndGet handles PUT /<collection>/update/and-get/{id}
func (h *EntityHandlers) updateAndGet(w http.ResponseWriter, r *http.Request) {
	if _, err := h.updateDocument(r); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writePageFromQuery(w, r, http.StatusOK)
}

func (h *EntityHandlers) updateDocument(r *http.Request) (crud.Document, error) {
	var body crud.Document
	if err := httputil.ParseJSON(r, &body); err != nil {
		return nil, decodeError(err)
	}
	return h.ctrl.Update(r.Context(), httputil.PathVar(r, "id"), body)
}

// delete handles DELETE /<collection>/{id}
func (h *EntityHandlers) delete(w http.ResponseWriter, r *http.Request) {
	doc, err := h.ctrl.Delete(r.Context(), httputil.PathVar(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doc)
}

// deleteAndGet handles DELETE /<collection>/delete/and-get/{id}
func (h *EntityHandlers) deleteAndGet(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ctrl.Delete(r.Context(), httputil.PathVar(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writePageFromQuery(w, r, http.StatusOK)
}

// deleteAll handles POST /<collection>/delete/all
func (h *EntityHandlers) deleteAll(w http.ResponseWriter, r *http.Request) {
	var req DeleteAllRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.fail(w, r, decodeError(err))
		return
	}
	if err := crud.ValidateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.ctrl.DeleteAll(r.Context(), req.IDs); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, req)
}

// page handles POST /<collection>/page
func (h *EntityHandlers) page(w http.ResponseWriter, r *http.Request) {
	var req crud.PageRequest
	if err := httputil.ParseJSON(r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		h.fail(w, r, decodeError(err))
		return
	}
	h.writePage(w, r, http.StatusOK, req)
}

// all handles GET /<collection>/all
func (h *EntityHandlers) all(w http.ResponseWriter, r *http.Request) {
	docs, err := h.ctrl.All(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, docs)
}

func (h *EntityHandlers) writePageFromQuery(w http.ResponseWriter, r *http.Request, status int) {
	req, err := crud.PageRequestFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writePage(w, r, status, req)
}

func (h *EntityHandlers) writePage(w http.ResponseWriter, r *http.Request, status int, req crud.PageRequest) {
	if err := crud.ValidateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.ctrl.Page(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WritePage(w, status, page.Body, page.Pagination)
}

func (h *EntityHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, crud.ErrNotFound) {
		httputil.WriteBadRequest(w, notFoundMessage(h.desc))
		return
	}
	writeError(w, r, err)
}

func actorOf(r *http.Request) string {
	if caller, ok := auth.CallerFrom(r.Context()); ok {
		return caller.UserName
	}
	return ""
}
