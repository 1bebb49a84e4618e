package crud

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct validates a tagged request struct and converts failures
// into a ValidationError.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe.Field(), fe))
	}
	return NewValidationError(msgs...)
}

// Validate checks a request body against the descriptor and returns the
// normalized document holding only writable keys. When partial is true
// (updates), absent keys are not required. References may be given as an
// id string or as an object with an "id" key; they are normalized to
// {"id": ...} and later replaced by the parent snapshot.
func (d *Descriptor) Validate(body Document, partial bool) (Document, error) {
	out := Document{}
	var msgs []string

	for _, f := range d.Fields {
		if f.Internal {
			continue
		}
		v, present := body[f.Name]
		if isBlankValue(v) {
			if hasRule(f.Rules, "required") && (present || !partial) {
				msgs = append(msgs, fmt.Sprintf("%s is required", f.Name))
			} else if present {
				out[f.Name] = nil
			}
			continue
		}
		cv, err := coerce(f.Kind, v)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("%s %s", f.Name, err.Error()))
			continue
		}
		if f.Rules != "" {
			if err := validate.Var(cv, f.Rules); err != nil {
				var fieldErrs validator.ValidationErrors
				if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
					msgs = append(msgs, fieldMessage(f.Name, fieldErrs[0]))
				} else {
					msgs = append(msgs, fmt.Sprintf("%s is invalid", f.Name))
				}
				continue
			}
		}
		out[f.Name] = cv
	}

	for _, r := range d.References {
		v, present := body[r.Name]
		if isBlankValue(v) {
			if r.Required && (present || !partial) {
				msgs = append(msgs, fmt.Sprintf("%s is required", r.Name))
			} else if present {
				out[r.Name] = nil
			}
			continue
		}
		id := referenceID(v)
		if !IsID(id) {
			msgs = append(msgs, fmt.Sprintf("%s.id must be a valid identifier", r.Name))
			continue
		}
		out[r.Name] = Document{"id": id}
	}

	if len(msgs) > 0 {
		return nil, NewValidationError(msgs...)
	}
	return out, nil
}

func referenceID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		if doc, ok := AsDocument(v); ok {
			return doc.String("id")
		}
	}
	return ""
}

func isBlankValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func hasRule(rules, name string) bool {
	for _, r := range strings.Split(rules, ",") {
		if r == name {
			return true
		}
	}
	return false
}

// coerce converts a JSON-decoded value to the Go type stored for kind.
func coerce(k Kind, v any) (any, error) {
	switch k {
	case String:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return nil, errors.New("must be a string")
	case Int:
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, errors.New("must be an integer")
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, errors.New("must be an integer")
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, errors.New("must be a number")
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, errors.New("must be a boolean")
	case Time:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, nil
				}
			}
		}
		return nil, errors.New("must be a date")
	}
	return v, nil
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "email":
		return fmt.Sprintf("%s must be a valid email", name)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", name, fe.Param())
	case "e164":
		return fmt.Sprintf("%s must be a phone number in international format", name)
	}
	return fmt.Sprintf("%s is invalid", name)
}
