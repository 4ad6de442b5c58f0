package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPathLength bounds the number of segments accepted in a single path.
const MaxPathLength = 32

// ErrMalformedPath is wrapped by every path-walk failure.
var ErrMalformedPath = errors.New("malformed path")

// Path addresses a node from the document root, one field name per segment.
// Segments that address array elements are decimal indexes.
type Path []string

func (p Path) String() string {
	return strings.Join(p, ".")
}

// PathError reports which segment of a path could not be walked.
type PathError struct {
	Path    Path
	Segment int
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment < 0 {
		return fmt.Sprintf("%s %q: %s", ErrMalformedPath, e.Path.String(), e.Reason)
	}
	return fmt.Sprintf("%s %q at segment %d: %s", ErrMalformedPath, e.Path.String(), e.Segment, e.Reason)
}

func (e *PathError) Unwrap() error { return ErrMalformedPath }

// Validate checks the shape of the path itself, independent of any document.
func (p Path) Validate() error {
	if len(p) == 0 {
		return &PathError{Path: p, Segment: -1, Reason: "path is empty"}
	}
	if len(p) > MaxPathLength {
		return &PathError{Path: p, Segment: -1, Reason: fmt.Sprintf("path longer than %d segments", MaxPathLength)}
	}
	for i, seg := range p {
		if seg == "" {
			return &PathError{Path: p, Segment: i, Reason: "empty segment"}
		}
	}
	return nil
}

// Get returns the node at path, if every segment resolves.
func (v *Value) Get(path Path) (*Value, bool) {
	cur := v
	for _, seg := range path {
		switch cur.Kind() {
		case KindObject:
			next, ok := cur.obj[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			next, ok := cur.Index(idx)
			if !ok {
				return nil, false
			}
			cur = next
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set installs val at path, creating missing or null intermediate levels as objects.
// A null receiver becomes an empty object first. Walking through a scalar, a
// non-numeric array segment, or an index past the end of an array fails with a
// *PathError; index == len appends.
func (v *Value) Set(path Path, val *Value) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if val == nil {
		val = NewNull()
	}

	if v.kind == KindNull {
		*v = *NewObject()
	}

	cur := v
	last := len(path) - 1
	for i, seg := range path[:last] {
		next, err := cur.child(path, i, seg)
		if err != nil {
			return err
		}
		cur = next
	}

	return cur.assign(path, last, path[last], val)
}

// Delete removes the node at path. Missing intermediate levels or a missing
// leaf are not an error; walking through a scalar is.
func (v *Value) Delete(path Path) (bool, error) {
	if err := path.Validate(); err != nil {
		return false, err
	}

	cur := v
	last := len(path) - 1
	for i, seg := range path[:last] {
		switch cur.Kind() {
		case KindObject:
			next, ok := cur.obj[seg]
			if !ok {
				return false, nil
			}
			cur = next
		case KindArray:
			idx, err := arrayIndex(path, i, seg, len(cur.arr)-1)
			if err != nil {
				return false, err
			}
			cur = cur.arr[idx]
		case KindNull:
			return false, nil
		default:
			return false, &PathError{Path: path, Segment: i, Reason: "cannot traverse " + cur.Kind().String()}
		}
	}

	seg := path[last]
	switch cur.Kind() {
	case KindObject:
		if _, ok := cur.obj[seg]; !ok {
			return false, nil
		}
		delete(cur.obj, seg)
		return true, nil
	case KindArray:
		idx, err := arrayIndex(path, last, seg, len(cur.arr)-1)
		if err != nil {
			return false, err
		}
		cur.arr = append(cur.arr[:idx], cur.arr[idx+1:]...)
		return true, nil
	case KindNull:
		return false, nil
	default:
		return false, &PathError{Path: path, Segment: last, Reason: "cannot delete from " + cur.Kind().String()}
	}
}

// child resolves one intermediate segment, materializing objects where the path is open.
func (v *Value) child(path Path, i int, seg string) (*Value, error) {
	switch v.kind {
	case KindObject:
		next, ok := v.obj[seg]
		if !ok || next == nil {
			next = NewObject()
			v.obj[seg] = next
		} else if next.kind == KindNull {
			*next = *NewObject()
		}
		return next, nil
	case KindArray:
		idx, err := arrayIndex(path, i, seg, len(v.arr)-1)
		if err != nil {
			return nil, err
		}
		next := v.arr[idx]
		if next.kind == KindNull {
			*next = *NewObject()
		}
		return next, nil
	default:
		return nil, &PathError{Path: path, Segment: i, Reason: "cannot traverse " + v.kind.String()}
	}
}

func (v *Value) assign(path Path, i int, seg string, val *Value) error {
	switch v.kind {
	case KindObject:
		v.obj[seg] = val
		return nil
	case KindArray:
		idx, err := arrayIndex(path, i, seg, len(v.arr))
		if err != nil {
			return err
		}
		if idx == len(v.arr) {
			v.arr = append(v.arr, val)
		} else {
			v.arr[idx] = val
		}
		return nil
	default:
		return &PathError{Path: path, Segment: i, Reason: "cannot set field on " + v.kind.String()}
	}
}

// arrayIndex parses seg as an index in [0, max].
func arrayIndex(path Path, i int, seg string, max int) (int, error) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 {
		return 0, &PathError{Path: path, Segment: i, Reason: fmt.Sprintf("%q is not an array index", seg)}
	}
	if idx > max {
		return 0, &PathError{Path: path, Segment: i, Reason: fmt.Sprintf("index %d out of range", idx)}
	}
	return idx, nil
}
