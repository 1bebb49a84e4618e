package rbac

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/civicbase/pkg/crud"
	"gopkg.in/yaml.v3"
)

// IDPlaceholder replaces identifier segments in normalized paths.
const IDPlaceholder = ":id"

//go:embed routes.yaml
var defaultRoutes []byte

// Permission verbs prefixed to a resource subject.
const (
	VerbAdd    = "ADD"
	VerbEdit   = "EDIT"
	VerbDelete = "DELETE"
	VerbList   = "LIST"
)

// Route is one entry of the registry.
type Route struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Permission string `json:"permission,omitempty"`
	Label      string `json:"label"`
	Free       bool   `json:"free"`
}

// Resolution is what the registry knows about a request.
type Resolution struct {
	Label      string
	Permission string
	Free       bool
}

type action struct {
	method string
	suffix string
	verb   string
	label  func(singular, plural string) string
}

// actions lists the CRUD route family in registration order.
var actions = map[string]action{
	"create": {"POST", "", VerbAdd, func(s, _ string) string { return "Create " + s }},
	"createAndGet": {"POST", "/create/and-get", VerbAdd, func(s, _ string) string {
		return "Create " + s + " and get page"
	}},
	"read":   {"GET", "/" + IDPlaceholder, VerbList, func(s, _ string) string { return "Get " + s }},
	"update": {"PUT", "/" + IDPlaceholder, VerbEdit, func(s, _ string) string { return "Update " + s }},
	"updateAndGet": {"PUT", "/update/and-get/" + IDPlaceholder, VerbEdit, func(s, _ string) string {
		return "Update " + s + " and get page"
	}},
	"delete": {"DELETE", "/" + IDPlaceholder, VerbDelete, func(s, _ string) string { return "Delete " + s }},
	"deleteAndGet": {"DELETE", "/delete/and-get/" + IDPlaceholder, VerbDelete, func(s, _ string) string {
		return "Delete " + s + " and get page"
	}},
	"deleteAll": {"POST", "/delete/all", VerbDelete, func(_, p string) string { return "Delete many " + p }},
	"page":      {"POST", "/page", VerbList, func(_, p string) string { return "Page " + p }},
	"all":       {"GET", "/all", VerbList, func(_, p string) string { return "List all " + p }},
}

var actionOrder = []string{
	"create", "createAndGet", "read", "update", "updateAndGet",
	"delete", "deleteAndGet", "deleteAll", "page", "all",
}

type registryFile struct {
	Free []struct {
		Method string `yaml:"method"`
		Path   string `yaml:"path"`
		Label  string `yaml:"label"`
	} `yaml:"free"`
	Resources []struct {
		Prefix   string   `yaml:"prefix"`
		Subject  string   `yaml:"subject"`
		Singular string   `yaml:"singular"`
		Plural   string   `yaml:"plural"`
		Actions  []string `yaml:"actions"`
	} `yaml:"resources"`
	Routes []struct {
		Method     string `yaml:"method"`
		Path       string `yaml:"path"`
		Permission string `yaml:"permission"`
		Label      string `yaml:"label"`
	} `yaml:"routes"`
}

// Registry maps (method, normalized path) to the permission a request needs
// and the label recorded in the audit log. It is immutable once loaded.
type Registry struct {
	routes      map[string]Resolution
	ordered     []Route
	permissions map[string]struct{}
}

// DefaultRegistry loads the embedded route table. It panics on a malformed
// table since the table ships with the binary.
func DefaultRegistry() *Registry {
	reg, err := LoadRegistry(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("rbac: embedded routes: %v", err))
	}
	return reg
}

// LoadRegistry parses a YAML route table.
func LoadRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}

	reg := &Registry{
		routes:      make(map[string]Resolution),
		permissions: make(map[string]struct{}),
	}

	for _, f := range file.Free {
		if err := reg.add(Route{Method: f.Method, Path: f.Path, Label: f.Label, Free: true}); err != nil {
			return nil, err
		}
	}

	for _, res := range file.Resources {
		if res.Prefix == "" || res.Subject == "" {
			return nil, fmt.Errorf("resource entry needs a prefix and a subject")
		}
		names := res.Actions
		if len(names) == 0 {
			names = actionOrder
		}
		for _, name := range names {
			a, ok := actions[name]
			if !ok {
				return nil, fmt.Errorf("%s: unknown action %q", res.Prefix, name)
			}
			route := Route{
				Method:     a.method,
				Path:       res.Prefix + a.suffix,
				Permission: a.verb + "_" + res.Subject,
				Label:      a.label(res.Singular, res.Plural),
			}
			if err := reg.add(route); err != nil {
				return nil, err
			}
		}
	}

	for _, r := range file.Routes {
		if r.Permission == "" {
			return nil, fmt.Errorf("%s %s: permission is required", r.Method, r.Path)
		}
		if err := reg.add(Route{Method: r.Method, Path: r.Path, Permission: r.Permission, Label: r.Label}); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func (r *Registry) add(route Route) error {
	route.Method = strings.ToUpper(route.Method)
	route.Path = NormalizePath(route.Path)
	if route.Label == "" {
		route.Label = route.Method + " " + route.Path
	}

	key := routeKey(route.Method, route.Path)
	if _, dup := r.routes[key]; dup {
		return fmt.Errorf("duplicate route %s", key)
	}
	r.routes[key] = Resolution{Label: route.Label, Permission: route.Permission, Free: route.Free}
	r.ordered = append(r.ordered, route)
	if route.Permission != "" {
		r.permissions[route.Permission] = struct{}{}
	}
	return nil
}

// Lookup resolves a request. The path may carry concrete identifiers.
func (r *Registry) Lookup(method, path string) (Resolution, bool) {
	res, ok := r.routes[routeKey(strings.ToUpper(method), NormalizePath(path))]
	return res, ok
}

// HasPermission reports whether tag guards at least one route.
func (r *Registry) HasPermission(tag string) bool {
	_, ok := r.permissions[tag]
	return ok
}

// Permissions returns every permission tag, sorted.
func (r *Registry) Permissions() []string {
	out := make([]string, 0, len(r.permissions))
	for p := range r.permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Routes returns the registered routes in table order.
func (r *Registry) Routes() []Route {
	out := make([]Route, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// NormalizePath drops a trailing slash and replaces identifier segments
// with IDPlaceholder.
func NormalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if crud.IsID(seg) {
			segments[i] = IDPlaceholder
		}
	}
	return strings.Join(segments, "/")
}

func routeKey(method, path string) string {
	return method + " " + path
}
