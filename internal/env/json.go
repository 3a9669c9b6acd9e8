package env

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// record is the persisted form of an Env. Functions and the parent link are
// not persisted; they are re-established by whoever restores the namespace.
type record struct {
	Name     string                     `json:"name"`
	Vars     map[string]typedValue      `json:"vars,omitempty"`
	Children map[string]json.RawMessage `json:"children,omitempty"`
}

// typedValue carries a cty value together with its type so it can be
// decoded without guessing.
type typedValue struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalValue encodes v with its type.
func MarshalValue(v cty.Value) ([]byte, error) {
	tv, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tv)
}

// UnmarshalValue decodes a value written by MarshalValue.
func UnmarshalValue(data []byte) (cty.Value, error) {
	var tv typedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return cty.NilVal, err
	}
	return decodeValue(tv)
}

func encodeValue(v cty.Value) (typedValue, error) {
	ty := v.Type()
	typeJSON, err := ctyjson.MarshalType(ty)
	if err != nil {
		return typedValue{}, fmt.Errorf("encode type: %w", err)
	}
	valJSON, err := ctyjson.Marshal(v, ty)
	if err != nil {
		return typedValue{}, fmt.Errorf("encode value: %w", err)
	}
	return typedValue{Type: typeJSON, Value: valJSON}, nil
}

func decodeValue(tv typedValue) (cty.Value, error) {
	ty, err := ctyjson.UnmarshalType(tv.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decode type: %w", err)
	}
	v, err := ctyjson.Unmarshal(tv.Value, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler.
func (e *Env) MarshalJSON() ([]byte, error) {
	rec := record{Name: e.name}
	if len(e.vars) > 0 {
		rec.Vars = make(map[string]typedValue, len(e.vars))
		for name, v := range e.vars {
			tv, err := encodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			rec.Vars[name] = tv
		}
	}
	if len(e.children) > 0 {
		rec.Children = make(map[string]json.RawMessage, len(e.children))
		for key, c := range e.children {
			data, err := c.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("namespace %q: %w", key, err)
			}
			rec.Children[key] = data
		}
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler. Restored child namespaces are
// parented to e.
func (e *Env) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	restored := New(rec.Name)
	for name, tv := range rec.Vars {
		v, err := decodeValue(tv)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		restored.vars[name] = v
	}
	for key, raw := range rec.Children {
		c := New("")
		if err := c.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("namespace %q: %w", key, err)
		}
		restored.children[key] = c
	}

	e.name = restored.name
	e.vars = restored.vars
	e.children = restored.children
	if e.funcs == nil {
		e.funcs = make(map[string]function.Function)
	}
	for _, c := range e.children {
		c.parent = e
	}
	return nil
}
