package crud

import "time"

// Document is the JSON-shaped representation of a record.
type Document map[string]any

// ID returns the record identifier, or "" when unset.
func (d Document) ID() string {
	return d.String("id")
}

// String returns the string stored under key, or "".
func (d Document) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Ref returns the embedded snapshot stored under key.
func (d Document) Ref(key string) (Document, bool) {
	return AsDocument(d[key])
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// AsDocument accepts both Document and plain JSON objects.
func AsDocument(v any) (Document, bool) {
	switch t := v.(type) {
	case Document:
		return t, t != nil
	case map[string]any:
		return Document(t), t != nil
	}
	return nil, false
}

// Clock returns the current time. Repositories use it for timestamps.
type Clock func() time.Time
