package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidFilter is wrapped by every filter and sort parse failure.
var ErrInvalidFilter = errors.New("domain: invalid filter")

// Column names addressable by filters and sort keys. Everything else is a
// path into the resource data.
const (
	ColumnID        = "id"
	ColumnOwnerID   = "owner_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
	ColumnSystem    = "system"
	ColumnType      = "type"
)

var columns = map[string]bool{
	ColumnID:        true,
	ColumnOwnerID:   true,
	ColumnCreatedAt: true,
	ColumnUpdatedAt: true,
	ColumnSystem:    true,
	ColumnType:      true,
}

const (
	dataPrefix     = "data."
	maxPathDepth   = 32
	maxFilterDepth = 16
	maxSortKeys    = 8
)

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Field addresses either a column or a path inside the data document.
// Exactly one of Column and Path is set.
type Field struct {
	Column string
	Path   []string
}

func (f Field) IsColumn() bool { return f.Column != "" }

func (f Field) String() string {
	if f.IsColumn() {
		return f.Column
	}
	return dataPrefix + strings.Join(f.Path, ".")
}

// ParseField resolves a filter key or sort key. "data.x" always addresses
// the document; a bare name addresses a column when one exists.
func ParseField(key string) (Field, error) {
	if key == "" {
		return Field{}, fmt.Errorf("%w: empty field", ErrInvalidFilter)
	}
	if rest, ok := strings.CutPrefix(key, dataPrefix); ok {
		return parsePath(key, rest)
	}
	if columns[key] {
		return Field{Column: key}, nil
	}
	return parsePath(key, key)
}

func parsePath(key, path string) (Field, error) {
	segs := strings.Split(path, ".")
	if len(segs) > maxPathDepth {
		return Field{}, fmt.Errorf("%w: field %q is nested too deeply", ErrInvalidFilter, key)
	}
	for _, s := range segs {
		if !segmentRe.MatchString(s) {
			return Field{}, fmt.Errorf("%w: invalid field %q", ErrInvalidFilter, key)
		}
	}
	return Field{Path: segs}, nil
}

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
)

// Cond is a node of a parsed filter: Compare, In, Exists, And or Or.
type Cond interface {
	isCond()
}

// Compare is Field Op Value. A null Value with OpEq or OpNe means
// "is null" and "is not null".
type Compare struct {
	Field Field
	Op    Op
	Value Value
}

// In matches when Field equals any of Values, or none of them when Negate.
type In struct {
	Field  Field
	Values []Value
	Negate bool
}

// Exists tests whether a data path is present.
type Exists struct {
	Field Field
	Want  bool
}

type And []Cond

type Or []Cond

func (Compare) isCond() {}
func (In) isCond()      {}
func (Exists) isCond()  {}
func (And) isCond()     {}
func (Or) isCond()      {}

// ParseFilter turns a filter document into a condition tree. Top-level keys
// are conjuncts in document order. A nil or empty filter yields a nil Cond.
func ParseFilter(d *Document) (Cond, error) {
	if d.Len() == 0 {
		return nil, nil
	}
	return parseConjunction(d, 0)
}

func parseConjunction(d *Document, depth int) (Cond, error) {
	if depth > maxFilterDepth {
		return nil, fmt.Errorf("%w: nested too deeply", ErrInvalidFilter)
	}
	var out And
	for key, v := range d.All() {
		switch {
		case key == "$and" || key == "$or":
			c, err := parseLogical(key, v, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case strings.HasPrefix(key, "$"):
			return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, key)
		default:
			f, err := ParseField(key)
			if err != nil {
				return nil, err
			}
			conds, err := parseFieldValue(f, v)
			if err != nil {
				return nil, err
			}
			out = append(out, conds...)
		}
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func parseLogical(op string, v Value, depth int) (Cond, error) {
	items, ok := v.AsArray()
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: %s expects a non-empty array", ErrInvalidFilter, op)
	}
	conds := make([]Cond, 0, len(items))
	for _, item := range items {
		sub, ok := item.AsObject()
		if !ok || sub.Len() == 0 {
			return nil, fmt.Errorf("%w: %s expects non-empty objects", ErrInvalidFilter, op)
		}
		c, err := parseConjunction(sub, depth+1)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if op == "$or" {
		return Or(conds), nil
	}
	return And(conds), nil
}

// parseFieldValue handles {"field": value} and {"field": {"$op": value}}.
// An object whose keys are all operators is an operator object; an object
// without operators is a literal to compare against; mixing is an error.
func parseFieldValue(f Field, v Value) ([]Cond, error) {
	obj, isObj := v.AsObject()
	if !isObj || obj.Len() == 0 || !hasOperatorKey(obj) {
		c, err := newCompare(f, OpEq, v)
		if err != nil {
			return nil, err
		}
		return []Cond{c}, nil
	}

	conds := make([]Cond, 0, obj.Len())
	for key, arg := range obj.All() {
		if !strings.HasPrefix(key, "$") {
			return nil, fmt.Errorf("%w: %s mixes operators and fields", ErrInvalidFilter, f)
		}
		var (
			c   Cond
			err error
		)
		switch op := Op(key); op {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
			c, err = newCompare(f, op, arg)
		case "$in", "$nin":
			c, err = newIn(f, arg, key == "$nin")
		case "$exists":
			c, err = newExists(f, arg)
		default:
			err = fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, key)
		}
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func hasOperatorKey(d *Document) bool {
	for key := range d.All() {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

func newCompare(f Field, op Op, v Value) (Cond, error) {
	if f.IsColumn() {
		if _, ok := v.AsString(); !ok {
			return nil, fmt.Errorf("%w: %s expects a string", ErrInvalidFilter, f)
		}
		return Compare{Field: f, Op: op, Value: v}, nil
	}
	switch op {
	case OpEq, OpNe:
	default:
		// Ordering is only defined for scalars.
		if k := v.Kind(); k != KindNumber && k != KindString {
			return nil, fmt.Errorf("%w: %s %s expects a number or string", ErrInvalidFilter, f, op)
		}
	}
	return Compare{Field: f, Op: op, Value: v}, nil
}

func newIn(f Field, v Value, negate bool) (Cond, error) {
	items, ok := v.AsArray()
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: %s expects a non-empty array", ErrInvalidFilter, f)
	}
	for _, item := range items {
		switch item.Kind() {
		case KindString:
		case KindNumber, KindBool:
			if f.IsColumn() {
				return nil, fmt.Errorf("%w: %s expects strings", ErrInvalidFilter, f)
			}
		default:
			return nil, fmt.Errorf("%w: %s expects scalar values", ErrInvalidFilter, f)
		}
	}
	return In{Field: f, Values: items, Negate: negate}, nil
}

func newExists(f Field, v Value) (Cond, error) {
	if f.IsColumn() {
		return nil, fmt.Errorf("%w: $exists is not supported on %s", ErrInvalidFilter, f)
	}
	want, ok := v.AsBool()
	if !ok {
		return nil, fmt.Errorf("%w: $exists expects a boolean", ErrInvalidFilter)
	}
	return Exists{Field: f, Want: want}, nil
}

// SortKey orders query results by one field.
type SortKey struct {
	Field Field
	Desc  bool
}

// ParseSort parses sort fields; a leading "-" sorts descending.
func ParseSort(fields []string) ([]SortKey, error) {
	if len(fields) > maxSortKeys {
		return nil, fmt.Errorf("%w: at most %d sort fields", ErrInvalidFilter, maxSortKeys)
	}
	keys := make([]SortKey, 0, len(fields))
	for _, raw := range fields {
		name, desc := strings.CutPrefix(strings.TrimSpace(raw), "-")
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, SortKey{Field: f, Desc: desc})
	}
	return keys, nil
}
