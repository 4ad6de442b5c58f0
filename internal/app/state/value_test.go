package state

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Value {
	t.Helper()
	v, err := Parse([]byte(doc))
	require.NoError(t, err)
	return v
}

func TestParseKeepsNumberText(t *testing.T) {
	v := mustParse(t, `{"big":12345678901234567890,"pi":3.14,"list":[1,"a",null,true]}`)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"big":12345678901234567890,"pi":3.14,"list":[1,"a",null,true]}`, string(out))
	assert.Contains(t, string(out), "12345678901234567890")
}

func TestMarshalSortsKeys(t *testing.T) {
	v := NewObject()
	require.NoError(t, v.Set(Path{"b"}, NewNumber(2)))
	require.NoError(t, v.Set(Path{"a"}, NewNumber(1)))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{} {}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestParseRejectsDeepNesting(t *testing.T) {
	doc := ""
	for i := 0; i <= MaxDepth+1; i++ {
		doc += "["
	}
	for i := 0; i <= MaxDepth+1; i++ {
		doc += "]"
	}
	_, err := Parse([]byte(doc))
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestSetCreatesIntermediateObjects(t *testing.T) {
	v := NewObject()
	require.NoError(t, v.Set(Path{"a", "b", "c"}, NewNumber(1)))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":{"c":1}}}`, string(out))
}

func TestSetReplacesNullIntermediate(t *testing.T) {
	v := mustParse(t, `{"a":null}`)
	require.NoError(t, v.Set(Path{"a", "b"}, NewString("x")))

	got, ok := v.Get(Path{"a", "b"})
	require.True(t, ok)
	s, _ := got.AsString()
	assert.Equal(t, "x", s)
}

func TestSetOnNullRootMakesObject(t *testing.T) {
	v := NewNull()
	require.NoError(t, v.Set(Path{"k"}, NewBool(true)))
	assert.Equal(t, KindObject, v.Kind())
	assert.Equal(t, 1, v.Len())
}

func TestSetPreservesSiblings(t *testing.T) {
	v := mustParse(t, `{"doc":{"title":"x","body":"y"}}`)
	require.NoError(t, v.Set(Path{"doc", "title"}, NewString("z")))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"doc":{"title":"z","body":"y"}}`, string(out))
}

func TestSetArrayIndexes(t *testing.T) {
	v := mustParse(t, `{"items":[{"n":1},null]}`)

	require.NoError(t, v.Set(Path{"items", "0", "n"}, NewNumber(5)))
	require.NoError(t, v.Set(Path{"items", "1", "n"}, NewNumber(6)))
	require.NoError(t, v.Set(Path{"items", "2"}, NewString("appended")))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"n":5},{"n":6},"appended"]}`, string(out))
}

func TestSetMalformedPaths(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path Path
	}{
		{"empty path", `{}`, Path{}},
		{"empty segment", `{}`, Path{"a", ""}},
		{"through string", `{"a":"text"}`, Path{"a", "b"}},
		{"through number", `{"a":1}`, Path{"a", "b", "c"}},
		{"non numeric index", `{"a":[1,2]}`, Path{"a", "x"}},
		{"negative index", `{"a":[1,2]}`, Path{"a", "-1"}},
		{"index past end", `{"a":[1,2]}`, Path{"a", "5"}},
		{"intermediate index past end", `{"a":[]}`, Path{"a", "0", "b"}},
		{"scalar root", `"root"`, Path{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustParse(t, tt.doc)
			before, _ := json.Marshal(v)

			err := v.Set(tt.path, NewNumber(1))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPath))

			var pe *PathError
			assert.True(t, errors.As(err, &pe))

			after, _ := json.Marshal(v)
			assert.JSONEq(t, string(before), string(after))
		})
	}
}

func TestTooLongPath(t *testing.T) {
	path := make(Path, MaxPathLength+1)
	for i := range path {
		path[i] = "k"
	}
	assert.ErrorIs(t, NewObject().Set(path, NewNull()), ErrMalformedPath)
}

func TestDelete(t *testing.T) {
	v := mustParse(t, `{"a":{"b":1,"c":2},"list":[1,2,3],"s":"x"}`)

	removed, err := v.Delete(Path{"a", "b"})
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = v.Delete(Path{"missing", "deeper"})
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = v.Delete(Path{"list", "1"})
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = v.Delete(Path{"s", "x"})
	assert.ErrorIs(t, err, ErrMalformedPath)

	_, err = v.Delete(Path{"list", "9"})
	assert.ErrorIs(t, err, ErrMalformedPath)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"c":2},"list":[1,3],"s":"x"}`, string(out))
}

func TestCloneIsDeep(t *testing.T) {
	v := mustParse(t, `{"a":{"b":[1,{"c":2}]}}`)
	snapshot := v.Clone()

	require.NoError(t, v.Set(Path{"a", "b", "1", "c"}, NewNumber(3)))

	assert.False(t, v.Equal(snapshot))
	got, ok := snapshot.Get(Path{"a", "b", "1", "c"})
	require.True(t, ok)
	n, _ := got.AsFloat()
	assert.Equal(t, float64(2), n)
}

func TestEqual(t *testing.T) {
	assert.True(t, mustParse(t, `{"a":[1,2],"b":null}`).Equal(mustParse(t, `{"b":null,"a":[1.0,2]}`)))
	assert.False(t, mustParse(t, `{"a":1}`).Equal(mustParse(t, `{"a":"1"}`)))
	assert.False(t, mustParse(t, `[1,2]`).Equal(mustParse(t, `[1]`)))
	assert.True(t, (*Value)(nil).Equal(NewNull()))
}

func TestDisjointConcurrentWrites(t *testing.T) {
	v := NewObject()
	var mu sync.Mutex
	var wg sync.WaitGroup

	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k string) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, v.Set(Path{"root", k, "value"}, NewNumber(float64(i))))
		}(i, k)
	}
	wg.Wait()

	for i, k := range keys {
		got, ok := v.Get(Path{"root", k, "value"})
		require.True(t, ok, k)
		n, _ := got.AsFloat()
		assert.Equal(t, float64(i), n)
	}
}
