package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"

	"github.com/buger/jsonparser"
)

// ErrNotObject is returned when a document payload is not a JSON object.
var ErrNotObject = errors.New("domain: document must be a JSON object")

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON value. Numbers keep their literal text so that 1.50 and
// 1e3 come back exactly as they were sent. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or number literal
	arr  []Value
	obj  *Document
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Object wraps d; a nil d becomes an empty object.
func Object(d *Document) Value {
	if d == nil {
		d = NewDocument()
	}
	return Value{kind: KindObject, obj: d}
}

// Number validates lit as a JSON number literal.
func Number(lit string) (Value, error) {
	if !json.Valid([]byte(lit)) {
		return Value{}, fmt.Errorf("domain: invalid number literal %q", lit)
	}
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("domain: invalid number literal %q", lit)
		}
	}
	return Value{kind: KindNumber, s: lit}, nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool, AsString, AsArray and AsObject return the payload and whether v
// holds that kind.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }
func (v Value) AsObject() (*Document, bool) { return v.obj, v.kind == KindObject }
func (v Value) NumberLiteral() (string, bool) { return v.s, v.kind == KindNumber }

// AsInt64 returns the number as an integer when the literal is integral.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(v.s, 10, 64)
	return n, err == nil
}

// AsFloat64 returns the number as a float.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// Equal is structural equality; numbers compare by literal text and
// objects compare key order too.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case KindObject:
		return v.obj.Equal(o.obj)
	}
	return false
}

func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if !json.Valid(b) {
		return errors.New("domain: invalid JSON")
	}
	b = bytes.TrimSpace(b)
	var dt jsonparser.ValueType
	switch b[0] {
	case '"':
		dt, b = jsonparser.String, b[1:len(b)-1]
	case '{':
		dt = jsonparser.Object
	case '[':
		dt = jsonparser.Array
	case 't', 'f':
		dt = jsonparser.Boolean
	case 'n':
		dt = jsonparser.Null
	default:
		dt = jsonparser.Number
	}
	parsed, err := parseValue(b, dt)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) appendJSON(buf []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	case KindNumber:
		return append(buf, v.s...), nil
	case KindString:
		return appendString(buf, v.s)
	case KindArray:
		buf = append(buf, '[')
		for i, e := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = e.appendJSON(buf); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		return v.obj.appendJSON(buf)
	}
	return nil, fmt.Errorf("domain: cannot marshal %s", v.kind)
}

func appendString(buf []byte, s string) ([]byte, error) {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return append(buf, bytes.TrimRight(out.Bytes(), "\n")...), nil
}

// Member is one key/value pair of a Document.
type Member struct {
	Key   string
	Value Value
}

// Document is a JSON object that remembers key order. Setting an existing
// key replaces its value in place.
type Document struct {
	members []Member
	index   map[string]int
}

func NewDocument() *Document {
	return &Document{index: map[string]int{}}
}

// ParseDocument decodes a JSON object.
func ParseDocument(b []byte) (*Document, error) {
	d := NewDocument()
	if err := d.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return d, nil
}

// MustParseDocument is ParseDocument for literals in tests and fixtures.
func MustParseDocument(s string) *Document {
	d, err := ParseDocument([]byte(s))
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.members)
}

func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.members[i].Value, true
}

func (d *Document) Set(key string, v Value) {
	if d.index == nil {
		d.index = map[string]int{}
	}
	if i, ok := d.index[key]; ok {
		d.members[i].Value = v
		return
	}
	d.index[key] = len(d.members)
	d.members = append(d.members, Member{Key: key, Value: v})
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.members))
	for i, m := range d.members {
		keys[i] = m.Key
	}
	return keys
}

// All iterates members in insertion order.
func (d *Document) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if d == nil {
			return
		}
		for _, m := range d.members {
			if !yield(m.Key, m.Value) {
				return
			}
		}
	}
}

func (d *Document) Equal(o *Document) bool {
	if d.Len() != o.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	return slices.EqualFunc(d.members, o.members, func(a, b Member) bool {
		return a.Key == b.Key && a.Value.Equal(b.Value)
	})
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return d.appendJSON(nil)
}

func (d *Document) appendJSON(buf []byte) ([]byte, error) {
	buf = append(buf, '{')
	for i, m := range d.list() {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = appendString(buf, m.Key); err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		if buf, err = m.Value.appendJSON(buf); err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

func (d *Document) list() []Member {
	if d == nil {
		return nil
	}
	return d.members
}

// UnmarshalJSON replaces d's contents with the decoded object.
func (d *Document) UnmarshalJSON(b []byte) error {
	if !json.Valid(b) {
		return errors.New("domain: invalid JSON")
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return ErrNotObject
	}
	parsed, err := parseObject(b)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// parseObject walks an object with jsonparser. Input has already passed
// json.Valid so jsonparser's lenient edges are never reached.
func parseObject(b []byte) (*Document, error) {
	d := NewDocument()
	if isEmptyContainer(b) {
		return d, nil
	}
	err := jsonparser.ObjectEach(b, func(key, raw []byte, dt jsonparser.ValueType, _ int) error {
		v, err := parseValue(raw, dt)
		if err != nil {
			return err
		}
		d.Set(string(key), v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("domain: %w", err)
	}
	return d, nil
}

func parseArray(b []byte) ([]Value, error) {
	out := []Value{}
	if isEmptyContainer(b) {
		return out, nil
	}
	var inner error
	_, err := jsonparser.ArrayEach(b, func(raw []byte, dt jsonparser.ValueType, _ int, err error) {
		if inner != nil {
			return
		}
		if err != nil {
			inner = err
			return
		}
		v, perr := parseValue(raw, dt)
		if perr != nil {
			inner = perr
			return
		}
		out = append(out, v)
	})
	if err != nil {
		return nil, fmt.Errorf("domain: %w", err)
	}
	if inner != nil {
		return nil, inner
	}
	return out, nil
}

// parseValue converts one jsonparser token. String tokens arrive without
// their quotes and still escaped.
func parseValue(raw []byte, dt jsonparser.ValueType) (Value, error) {
	switch dt {
	case jsonparser.Null:
		return Null(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, fmt.Errorf("domain: %w", err)
		}
		return Bool(b), nil
	case jsonparser.Number:
		return Number(string(raw))
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("domain: %w", err)
		}
		return String(s), nil
	case jsonparser.Array:
		arr, err := parseArray(raw)
		if err != nil {
			return Value{}, err
		}
		return Array(arr...), nil
	case jsonparser.Object:
		obj, err := parseObject(raw)
		if err != nil {
			return Value{}, err
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("domain: unexpected JSON token %s", dt)
	}
}

func isEmptyContainer(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) >= 2 && len(bytes.TrimSpace(b[1:len(b)-1])) == 0
}
