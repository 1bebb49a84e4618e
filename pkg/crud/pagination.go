package crud

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when a page request omits size.
	DefaultPageSize = 10
	// MaxPageSize caps the number of rows returned by one page.
	MaxPageSize = 500

	// Ascending and Descending are the accepted sort directions.
	Ascending  = 1
	Descending = -1
)

// Filter is one column filter of a page request.
type Filter struct {
	Value     any    `json:"value"`
	MatchMode string `json:"matchMode"`
}

// PageRequest is the pagination spec accepted by every page endpoint.
type PageRequest struct {
	Page         int               `json:"page" validate:"gte=0"`
	Size         int               `json:"size" validate:"gte=0,lte=500"`
	Sort         string            `json:"sort"`
	Direction    int               `json:"direction" validate:"oneof=-1 0 1"`
	GlobalFilter string            `json:"globalFilter"`
	Filters      map[string]Filter `json:"filters"`
}

// Pagination describes the page actually returned.
type Pagination struct {
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	Sort          string `json:"sort"`
	Direction     int    `json:"direction"`
	TotalElements int64  `json:"totalElements"`
}

// Page is one page of documents.
type Page struct {
	Body       []Document `json:"body"`
	Pagination Pagination `json:"pagination"`
}

// PageRequestFromQuery reads page, size, sort, direction and globalFilter
// from URL query parameters.
func PageRequestFromQuery(q url.Values) (PageRequest, error) {
	var req PageRequest
	var err error
	if req.Page, err = queryInt(q, "page"); err != nil {
		return req, err
	}
	if req.Size, err = queryInt(q, "size"); err != nil {
		return req, err
	}
	if req.Direction, err = queryInt(q, "direction"); err != nil {
		return req, err
	}
	req.Sort = q.Get("sort")
	req.GlobalFilter = q.Get("globalFilter")
	return req, nil
}

func queryInt(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewValidationError(fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

// normalize applies defaults: size 10, sort defaultSort (createdAt when
// empty), direction descending.
func (p PageRequest) normalize(defaultSort string) PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Sort == "" {
		p.Sort = defaultSort
	}
	if p.Sort == "" {
		p.Sort = "createdAt"
	}
	if p.Direction != Ascending {
		p.Direction = Descending
	}
	return p
}

// skip is the number of rows before the requested page.
func (p PageRequest) skip() int {
	if p.Page > 0 {
		return p.Page * p.Size
	}
	return 0
}

// lastPage returns the index of the last page holding total rows.
func lastPage(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total)/float64(size))) - 1
}

var matchModes = map[string]Op{
	"startsWith":  OpStartsWith,
	"contains":    OpContains,
	"notContains": OpNotContains,
	"endsWith":    OpEndsWith,
	"equals":      OpEq,
	"notEquals":   OpNe,
	"in":          OpIn,
	"lt":          OpLt,
	"lte":         OpLte,
	"gt":          OpGt,
	"gte":         OpGte,
	"dateIs":      OpDateIs,
	"dateIsNot":   OpDateIsNot,
	"dateBefore":  OpLt,
	"dateAfter":   OpGt,
}

// pageCondition converts the filters and global filter of p into a Condition
// refining base. Empty filter values are ignored.
func (d *Descriptor) pageCondition(base Condition, p PageRequest) (Condition, error) {
	cond := base
	keys := make([]string, 0, len(p.Filters))
	for key := range p.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		f := p.Filters[key]
		if isBlank(f.Value) {
			continue
		}
		mode := f.MatchMode
		if mode == "" {
			mode = "contains"
		}
		op, ok := matchModes[mode]
		if !ok {
			return cond, NewValidationError(fmt.Sprintf("%s: unknown match mode %q", key, mode))
		}
		_, kind, err := d.Column(key)
		if err != nil {
			return cond, NewValidationError(fmt.Sprintf("%s is not a filterable field", key))
		}
		value := f.Value
		switch op {
		case OpIn, OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		default:
			if value, err = coerce(kind, value); err != nil {
				return cond, NewValidationError(fmt.Sprintf("%s %s", key, err.Error()))
			}
		}
		cond = cond.And(Predicate{Key: key, Op: op, Value: value})
	}

	if g := strings.TrimSpace(p.GlobalFilter); g != "" {
		var alts []Predicate
		for _, f := range d.Fields {
			if f.Search && !f.Hidden {
				alts = append(alts, Contains(f.Name, g))
			}
		}
		for _, r := range d.References {
			for _, k := range r.Fields {
				if k == "name" {
					alts = append(alts, Contains(r.Name+".name", g))
				}
			}
		}
		if len(alts) > 0 {
			cond.Any = append(append([]Predicate{}, cond.Any...), alts...)
		}
	}
	return cond, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}
