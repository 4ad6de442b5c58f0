/*
Package state models a room's shared document as a tagged JSON tree.

Every node is a *Value of one Kind (null, bool, number, string, array, object). Writes go
through a bounds-checked path walk that fails with ErrMalformedPath instead of panicking
when a path runs through a scalar or past the end of an array.
*/
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

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

// MaxDepth bounds the nesting of decoded documents.
const MaxDepth = 64

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

// ErrTooDeep is returned when a decoded document nests deeper than MaxDepth.
var ErrTooDeep = errors.New("state: document nested too deeply")

// Value is one node of the shared document. The zero Value is null.
// A nil *Value is treated as null by every read method.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []*Value
	obj  map[string]*Value
}

func NewNull() *Value { return &Value{} }

func NewBool(b bool) *Value { return &Value{kind: KindBool, b: b} }

func NewString(s string) *Value { return &Value{kind: KindString, str: s} }

// NewNumber stores f using the shortest representation that round-trips.
func NewNumber(f float64) *Value {
	return &Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// NewObject returns an empty object node.
func NewObject() *Value { return &Value{kind: KindObject, obj: make(map[string]*Value)} }

// NewArray returns an array node holding items; nil items are stored as null.
func NewArray(items ...*Value) *Value {
	arr := make([]*Value, len(items))
	for i, it := range items {
		if it == nil {
			it = NewNull()
		}
		arr[i] = it
	}
	return &Value{kind: KindArray, arr: arr}
}

// Parse decodes a JSON document into a Value tree.
func Parse(data []byte) (*Value, error) {
	v := &Value{}
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

func (v *Value) IsNull() bool { return v.Kind() == KindNull }

// AsString returns the string payload and whether v is a string.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.str, true
}

// AsFloat returns the numeric payload and whether v is a number.
func (v *Value) AsFloat() (float64, bool) {
	if v.Kind() != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// AsBool returns the boolean payload and whether v is a bool.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// Len returns the number of elements of an array or keys of an object, 0 otherwise.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Field returns the child stored under key when v is an object.
func (v *Value) Field(key string) (*Value, bool) {
	if v.Kind() != KindObject {
		return nil, false
	}
	child, ok := v.obj[key]
	return child, ok
}

// Index returns the i-th element when v is an array and i is in range.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != KindArray || i < 0 || i >= len(v.arr) {
		return nil, false
	}
	return v.arr[i], true
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return NewNull()
	}
	out := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case KindArray:
		out.arr = make([]*Value, len(v.arr))
		for i, it := range v.arr {
			out.arr[i] = it.Clone()
		}
	case KindObject:
		out.obj = make(map[string]*Value, len(v.obj))
		for k, it := range v.obj {
			out.obj[k] = it.Clone()
		}
	}
	return out
}

// Equal reports whether two trees hold the same data.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		if v.num == o.num {
			return true
		}
		a, errA := v.num.Float64()
		b, errB := o.num.Float64()
		return errA == nil && errB == nil && a == b
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := o.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes the tree; object keys come out sorted.
func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toInterface())
}

// UnmarshalJSON replaces v with the decoded document. Numbers keep their textual form.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("state: decode document: %w", err)
	}
	if dec.More() {
		return errors.New("state: unexpected data after document")
	}

	decoded, err := fromInterface(raw, 0)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

func (v *Value) toInterface() any {
	switch v.Kind() {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, it := range v.arr {
			out[i] = it.toInterface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, it := range v.obj {
			out[k] = it.toInterface()
		}
		return out
	default:
		return nil
	}
}

func fromInterface(raw any, depth int) (*Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	switch t := raw.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(t), nil
	case json.Number:
		return &Value{kind: KindNumber, num: t}, nil
	case string:
		return NewString(t), nil
	case []any:
		arr := make([]*Value, len(t))
		for i, it := range t {
			child, err := fromInterface(it, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = child
		}
		return &Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]*Value, len(t))
		for k, it := range t {
			child, err := fromInterface(it, depth+1)
			if err != nil {
				return nil, err
			}
			obj[k] = child
		}
		return &Value{kind: KindObject, obj: obj}, nil
	default:
		return nil, fmt.Errorf("state: unsupported JSON type %T", raw)
	}
}
