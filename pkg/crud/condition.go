package crud

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Op is a comparison operator of a Predicate.
type Op string

const (
	OpEq          Op = "eq"
	OpNe          Op = "ne"
	OpLt          Op = "lt"
	OpLte         Op = "lte"
	OpGt          Op = "gt"
	OpGte         Op = "gte"
	OpIn          Op = "in"
	OpContains    Op = "contains"
	OpNotContains Op = "notContains"
	OpStartsWith  Op = "startsWith"
	OpEndsWith    Op = "endsWith"
	OpDateIs      Op = "dateIs"
	OpDateIsNot   Op = "dateIsNot"
)

// Predicate compares the column behind Key with Value.
type Predicate struct {
	Key   string
	Op    Op
	Value any
}

// Eq matches records whose key equals v.
func Eq(key string, v any) Predicate { return Predicate{Key: key, Op: OpEq, Value: v} }

// Ne matches records whose key differs from v.
func Ne(key string, v any) Predicate { return Predicate{Key: key, Op: OpNe, Value: v} }

// In matches records whose key is one of values.
func In(key string, values []string) Predicate { return Predicate{Key: key, Op: OpIn, Value: values} }

// Contains matches records whose key contains s, case-insensitively.
func Contains(key, s string) Predicate { return Predicate{Key: key, Op: OpContains, Value: s} }

// Condition is a conjunction of All predicates and, when non-empty, a
// disjunction of Any predicates.
type Condition struct {
	All []Predicate
	Any []Predicate
}

// Where builds a Condition requiring every predicate.
func Where(preds ...Predicate) Condition {
	return Condition{All: preds}
}

// And returns a copy of c with extra required predicates.
func (c Condition) And(preds ...Predicate) Condition {
	all := make([]Predicate, 0, len(c.All)+len(preds))
	all = append(all, c.All...)
	all = append(all, preds...)
	return Condition{All: all, Any: c.Any}
}

// where renders c as a SQL WHERE clause for descriptor d. Placeholders are
// numbered after the args already collected.
func (d *Descriptor) where(c Condition, args []any) (string, []any, error) {
	var parts []string
	for _, p := range c.All {
		sql, next, err := d.predicate(p, args)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = next
	}
	if len(c.Any) > 0 {
		var alts []string
		for _, p := range c.Any {
			sql, next, err := d.predicate(p, args)
			if err != nil {
				return "", nil, err
			}
			alts = append(alts, sql)
			args = next
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	if len(parts) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (d *Descriptor) predicate(p Predicate, args []any) (string, []any, error) {
	col, kind, err := d.Column(p.Key)
	if err != nil {
		return "", nil, err
	}
	placeholder := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var clause string
	switch p.Op {
	case OpEq:
		if p.Value == nil {
			clause = col + " IS NULL"
		} else {
			clause = col + " = " + placeholder(p.Value)
		}
	case OpNe:
		if p.Value == nil {
			clause = col + " IS NOT NULL"
		} else {
			clause = "(" + col + " IS NULL OR " + col + " <> " + placeholder(p.Value) + ")"
		}
	case OpLt:
		clause = col + " < " + placeholder(p.Value)
	case OpLte:
		clause = col + " <= " + placeholder(p.Value)
	case OpGt:
		clause = col + " > " + placeholder(p.Value)
	case OpGte:
		clause = col + " >= " + placeholder(p.Value)
	case OpIn:
		values, err := stringList(p.Value)
		if err != nil {
			return "", nil, NewValidationError(fmt.Sprintf("%s: %v", p.Key, err))
		}
		clause = col + " = ANY(" + placeholder(pq.Array(values)) + ")"
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		if kind != String {
			return "", nil, NewValidationError(fmt.Sprintf("%s does not support %s", p.Key, p.Op))
		}
		s := escapeLike(fmt.Sprint(p.Value))
		switch p.Op {
		case OpStartsWith:
			s = s + "%"
		case OpEndsWith:
			s = "%" + s
		default:
			s = "%" + s + "%"
		}
		if p.Op == OpNotContains {
			clause = "(" + col + " IS NULL OR " + col + " NOT ILIKE " + placeholder(s) + ")"
		} else {
			clause = col + " ILIKE " + placeholder(s)
		}
	case OpDateIs:
		clause = "DATE(" + col + ") = " + placeholder(p.Value) + "::date"
	case OpDateIsNot:
		clause = "DATE(" + col + ") <> " + placeholder(p.Value) + "::date"
	default:
		return "", nil, NewValidationError(fmt.Sprintf("unsupported operator %q", p.Op))
	}
	return clause, args, nil
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", v)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
