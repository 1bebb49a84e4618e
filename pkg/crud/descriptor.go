package crud

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Kind is the storage type of a field.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
	Time
)

// Field declares one scalar attribute of a collection.
type Field struct {
	// Name is the JSON key.
	Name string
	// Column overrides the snake_case column derived from Name.
	Column string
	Kind   Kind
	// Rules is a go-playground/validator tag applied to request values.
	Rules string
	// Hidden fields are writable but never selected by generic reads.
	Hidden bool
	// Internal fields are never accepted from request bodies.
	Internal bool
	// Search marks the field as part of the global filter.
	Search bool
}

func (f Field) column() string {
	if f.Column != "" {
		return f.Column
	}
	return snake(f.Name)
}

// Reference declares an embedded snapshot of a parent record.
type Reference struct {
	// Name is the JSON key of the embedded object, e.g. "region".
	Name string
	// Target is the parent collection.
	Target string
	// Fields lists the parent keys copied into the snapshot. "id" is
	// implied and always stored first.
	Fields []string
	// Required rejects writes that omit the reference.
	Required bool
	// Missing is the message used when the referenced parent does not exist.
	Missing string
}

func (r Reference) snapshotKeys() []string {
	keys := make([]string, 0, len(r.Fields)+1)
	keys = append(keys, "id")
	for _, f := range r.Fields {
		if f != "id" {
			keys = append(keys, f)
		}
	}
	return keys
}

func (r Reference) column(key string) string {
	return snake(r.Name) + "_" + snake(key)
}

// IDColumn is the column holding the parent id.
func (r Reference) IDColumn() string {
	return r.column("id")
}

// Snapshot copies the referenced keys out of a parent document.
func (r Reference) Snapshot(parent Document) Document {
	snap := make(Document, len(r.Fields)+1)
	for _, key := range r.snapshotKeys() {
		snap[key] = parent[key]
	}
	return snap
}

// Descriptor declares a collection.
type Descriptor struct {
	// Collection is the table name and the route prefix.
	Collection string
	// Entity is the singular, human readable name used in messages.
	Entity      string
	Fields      []Field
	References  []Reference
	Unique      []string
	DefaultSort string
}

// Field looks up a declared field by JSON key.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Reference looks up a declared reference by JSON key.
func (d *Descriptor) Reference(name string) (Reference, bool) {
	for _, r := range d.References {
		if r.Name == name {
			return r, true
		}
	}
	return Reference{}, false
}

// ReferencesTo returns the references of d pointing at collection.
func (d *Descriptor) ReferencesTo(collection string) []Reference {
	var refs []Reference
	for _, r := range d.References {
		if r.Target == collection {
			refs = append(refs, r)
		}
	}
	return refs
}

var builtinColumns = map[string]struct {
	column string
	kind   Kind
}{
	"id":        {"id", String},
	"createdAt": {"created_at", Time},
	"updatedAt": {"updated_at", Time},
	"createdBy": {"created_by", String},
}

// Column resolves a document key to its column and kind. Keys may name a
// builtin ("id", "createdAt"), a field, a reference ("region" means its
// id) or a reference attribute ("region.name").
func (d *Descriptor) Column(key string) (string, Kind, error) {
	if b, ok := builtinColumns[key]; ok {
		return b.column, b.kind, nil
	}
	if f, ok := d.Field(key); ok && !f.Hidden {
		return f.column(), f.Kind, nil
	}
	name, attr, nested := strings.Cut(key, ".")
	if !nested {
		attr = "id"
	}
	if r, ok := d.Reference(name); ok {
		for _, k := range r.snapshotKeys() {
			if k == attr {
				return r.column(attr), String, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: %s", ErrUnknownField, key)
}

// selectColumns lists the columns read by generic queries, in scan order.
func (d *Descriptor) selectColumns() []string {
	cols := []string{"id"}
	for _, f := range d.Fields {
		if !f.Hidden {
			cols = append(cols, f.column())
		}
	}
	for _, r := range d.References {
		for _, k := range r.snapshotKeys() {
			cols = append(cols, r.column(k))
		}
	}
	return append(cols, "created_at", "updated_at", "created_by")
}

// StorageColumn is one physical column of a collection table.
type StorageColumn struct {
	Name string
	Kind Kind
	// Reference names the reference the column belongs to, if any.
	Reference string
}

// StorageColumns lists every column written for the collection, hidden
// fields included, without the id and audit columns.
func (d *Descriptor) StorageColumns() []StorageColumn {
	var cols []StorageColumn
	for _, f := range d.Fields {
		cols = append(cols, StorageColumn{Name: f.column(), Kind: f.Kind})
	}
	for _, r := range d.References {
		for _, k := range r.snapshotKeys() {
			cols = append(cols, StorageColumn{Name: r.column(k), Kind: String, Reference: r.Name})
		}
	}
	return cols
}

// UniqueColumns maps the Unique keys to their columns.
func (d *Descriptor) UniqueColumns() []string {
	cols := make([]string, 0, len(d.Unique))
	for _, key := range d.Unique {
		if f, ok := d.Field(key); ok {
			cols = append(cols, f.column())
		}
	}
	return cols
}

// Columns returns the select list joined for use in SQL.
func (d *Descriptor) Columns() string {
	return strings.Join(d.selectColumns(), ", ")
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullFor(k Kind) any {
	switch k {
	case Int:
		return new(sql.NullInt64)
	case Float:
		return new(sql.NullFloat64)
	case Bool:
		return new(sql.NullBool)
	case Time:
		return new(sql.NullTime)
	default:
		return new(sql.NullString)
	}
}

func nullValue(v any) any {
	switch n := v.(type) {
	case *sql.NullString:
		if n.Valid {
			return n.String
		}
	case *sql.NullInt64:
		if n.Valid {
			return n.Int64
		}
	case *sql.NullFloat64:
		if n.Valid {
			return n.Float64
		}
	case *sql.NullBool:
		if n.Valid {
			return n.Bool
		}
	case *sql.NullTime:
		if n.Valid {
			return n.Time
		}
	}
	return nil
}

// scan reads one row in selectColumns order into a Document.
func (d *Descriptor) scan(row scanner) (Document, error) {
	dest := []any{new(sql.NullString)}
	var visible []Field
	for _, f := range d.Fields {
		if !f.Hidden {
			visible = append(visible, f)
			dest = append(dest, nullFor(f.Kind))
		}
	}
	for _, r := range d.References {
		for range r.snapshotKeys() {
			dest = append(dest, new(sql.NullString))
		}
	}
	dest = append(dest, new(sql.NullTime), new(sql.NullTime), new(sql.NullString))

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	doc := Document{"id": nullValue(dest[0])}
	i := 1
	for _, f := range visible {
		doc[f.Name] = nullValue(dest[i])
		i++
	}
	for _, r := range d.References {
		snap := Document{}
		for _, k := range r.snapshotKeys() {
			snap[k] = nullValue(dest[i])
			i++
		}
		if snap["id"] == nil {
			doc[r.Name] = nil
		} else {
			doc[r.Name] = snap
		}
	}
	doc["createdAt"] = nullValue(dest[i])
	doc["updatedAt"] = nullValue(dest[i+1])
	doc["createdBy"] = nullValue(dest[i+2])
	return doc, nil
}

// writeColumns flattens a document into column/value pairs for the keys it
// carries. Unknown and builtin keys are ignored.
func (d *Descriptor) writeColumns(doc Document) ([]string, []any) {
	var cols []string
	var vals []any
	for _, f := range d.Fields {
		v, ok := doc[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.column())
		vals = append(vals, sqlValue(v))
	}
	for _, r := range d.References {
		v, ok := doc[r.Name]
		if !ok {
			continue
		}
		snap, _ := AsDocument(v)
		for _, k := range r.snapshotKeys() {
			cols = append(cols, r.column(k))
			if snap == nil {
				vals = append(vals, nil)
			} else {
				vals = append(vals, sqlValue(snap[k]))
			}
		}
	}
	return cols, vals
}

func sqlValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	}
	return v
}

// snake converts a camelCase key to snake_case.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
