package storage

import (
	"encoding/json"
	"testing"

	"github.com/pixil98/go-skillstore/internal/dirty"
	"github.com/pixil98/go-testutil"
)

func TestExtensionState_Set(t *testing.T) {
	tests := map[string]struct {
		key    string
		value  any
		expErr bool
	}{
		"set map value": {
			key:   "test",
			value: map[string]int{"count": 42},
		},
		"set string value": {
			key:   "name",
			value: "hello",
		},
		"set struct value": {
			key:   "data",
			value: struct{ Name string }{"test"},
		},
		"marshal error with channel": {
			key:    "bad",
			value:  make(chan int),
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := dirty.NewFlag(false)
			e := NewExtensionState(nil, f)
			err := e.Set(tt.key, tt.value)

			if tt.expErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				testutil.AssertEqual(t, "dirty", f.Get(), false)
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			testutil.AssertEqual(t, "dirty", f.Get(), true)
			testutil.AssertEqual(t, "has key", e.ContainsKey(tt.key), true)
		})
	}
}

func TestExtensionState_SetUninitialised(t *testing.T) {
	var e ExtensionState
	err := e.Set("k", 1)
	testutil.AssertErrorContains(t, err, "not initialised")
}

func TestExtensionState_Get(t *testing.T) {
	type testData struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	f := dirty.NewFlag(false)
	preloaded := NewExtensionState(nil, f)
	if err := preloaded.Set("data", testData{Name: "test", Count: 5}); err != nil {
		t.Fatalf("failed to set preloaded data: %v", err)
	}
	if err := preloaded.Set("string", "hello"); err != nil {
		t.Fatalf("failed to set preloaded string: %v", err)
	}
	f.Clear()

	tests := map[string]struct {
		state    ExtensionState
		key      string
		expFound bool
		expErr   bool
		expValue any
	}{
		"get from uninitialised state": {
			state:    ExtensionState{},
			key:      "anything",
			expFound: false,
			expErr:   false,
		},
		"get missing key": {
			state:    preloaded,
			key:      "nonexistent",
			expFound: false,
			expErr:   false,
		},
		"get existing struct": {
			state:    preloaded,
			key:      "data",
			expFound: true,
			expErr:   false,
			expValue: testData{Name: "test", Count: 5},
		},
		"get existing string": {
			state:    preloaded,
			key:      "string",
			expFound: true,
			expErr:   false,
			expValue: "hello",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			switch exp := tt.expValue.(type) {
			case testData:
				var v testData
				found, err := tt.state.Get(tt.key, &v)
				checkGetResult(t, found, err, tt.expFound, tt.expErr)
				if tt.expFound && !tt.expErr {
					testutil.AssertEqual(t, "value", v, exp)
				}
			case string:
				var v string
				found, err := tt.state.Get(tt.key, &v)
				checkGetResult(t, found, err, tt.expFound, tt.expErr)
				if tt.expFound && !tt.expErr {
					testutil.AssertEqual(t, "value", v, exp)
				}
			default:
				var v any
				found, err := tt.state.Get(tt.key, &v)
				checkGetResult(t, found, err, tt.expFound, tt.expErr)
			}
		})
	}

	// Reads never dirty the owner
	testutil.AssertEqual(t, "dirty", f.Get(), false)
}

func TestExtensionState_Get_UnmarshalError(t *testing.T) {
	e := NewExtensionState(map[string]json.RawMessage{
		"bad": []byte(`{"invalid json`),
	}, nil)

	var out map[string]string
	found, err := e.Get("bad", &out)

	testutil.AssertEqual(t, "found", found, true)
	testutil.AssertErrorContains(t, err, "unmarshal extension")
}

func checkGetResult(t *testing.T, found bool, err error, expFound bool, expErr bool) {
	t.Helper()

	if expErr {
		if err == nil {
			t.Errorf("expected error, got nil")
		}
		return
	}

	if err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}

	testutil.AssertEqual(t, "found", found, expFound)
}

func TestExtensionState_Delete(t *testing.T) {
	tests := map[string]struct {
		initial  map[string]json.RawMessage
		key      string
		expDirty bool
	}{
		"delete from empty state": {
			initial:  nil,
			key:      "anything",
			expDirty: true,
		},
		"delete missing key": {
			initial:  map[string]json.RawMessage{"other": []byte(`"value"`)},
			key:      "nonexistent",
			expDirty: true,
		},
		"delete existing key": {
			initial:  map[string]json.RawMessage{"target": []byte(`"value"`), "other": []byte(`"keep"`)},
			key:      "target",
			expDirty: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := dirty.NewFlag(false)
			e := NewExtensionState(tt.initial, f)
			e.Delete(tt.key)

			testutil.AssertEqual(t, "deleted", e.ContainsKey(tt.key), false)
			testutil.AssertEqual(t, "dirty", f.Get(), tt.expDirty)
		})
	}

	// An uninitialised state is a no-op
	var e ExtensionState
	e.Delete("anything")
}

func TestExtensionState_JSON(t *testing.T) {
	f := dirty.NewFlag(false)
	e := NewExtensionState(map[string]json.RawMessage{"k": []byte(`1`)}, f)

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "encoded", string(b), `{"k":1}`)
	testutil.AssertEqual(t, "clean", f.Get(), false)
}

func TestExtensionState_EqualAndHash(t *testing.T) {
	a := NewExtensionState(map[string]json.RawMessage{"k": []byte(`{"a":1}`)}, nil)
	b := NewExtensionState(map[string]json.RawMessage{"k": []byte(`{"a":1}`)}, nil)
	c := NewExtensionState(map[string]json.RawMessage{"k": []byte(`{"a": 1}`)}, nil)

	testutil.AssertEqual(t, "same bytes equal", a.Equal(b.Map), true)
	testutil.AssertEqual(t, "same bytes hash", a.Hash() == b.Hash(), true)
	testutil.AssertEqual(t, "different bytes", a.Equal(c.Map), false)
}
