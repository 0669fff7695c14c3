package payload

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToJSON serializes the payload's root object to a compact JSON string.
func (p *Payload) ToJSON() (string, error) {
	m, err := p.root.toJSONValue()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("payload: marshal json: %w", err)
	}
	return string(b), nil
}

// FromJSON replaces the payload's contents by parsing s as a JSON object.
func (p *Payload) FromJSON(s string) error {
	if s == "" {
		p.Clear()
		return nil
	}
	var raw map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("payload: invalid json: %w", err)
	}
	obj, err := objectFromGeneric(raw)
	if err != nil {
		return err
	}
	p.root = obj
	return nil
}

func (o Object) toJSONValue() (map[string]interface{}, error) {
	m := make(map[string]interface{}, len(o.keys))
	for _, k := range o.keys {
		v := o.values[k]
		jv, err := v.toJSONValue()
		if err != nil {
			return nil, err
		}
		m[k] = jv
	}
	return m, nil
}

func (v Value) toJSONValue() (interface{}, error) {
	switch v.k {
	case kindBool:
		return v.b, nil
	case kindInt:
		return v.i, nil
	case kindString:
		return v.s, nil
	case kindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			jv, err := e.toJSONValue()
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case kindObject:
		return v.obj.toJSONValue()
	default:
		return nil, nil
	}
}

func objectFromGeneric(raw map[string]interface{}) (Object, error) {
	o := NewObject()
	for k, rv := range raw {
		v, err := valueFromGeneric(rv)
		if err != nil {
			return Object{}, err
		}
		if err := o.set(k, v); err != nil {
			return Object{}, err
		}
	}
	return o, nil
}

func valueFromGeneric(rv interface{}) (Value, error) {
	switch t := rv.(type) {
	case bool:
		return Value{k: kindBool, b: t}, nil
	case string:
		return Value{k: kindString, s: t}, nil
	case json.Number:
		i64, err := t.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("payload: non-integer number %q not supported", t.String())
		}
		return Value{k: kindInt, i: int32(i64)}, nil
	case []interface{}:
		arr := make(Array, len(t))
		for i, e := range t {
			v, err := valueFromGeneric(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{k: kindArray, arr: arr}, nil
	case map[string]interface{}:
		obj, err := objectFromGeneric(t)
		if err != nil {
			return Value{}, err
		}
		return Value{k: kindObject, obj: obj}, nil
	case nil:
		return Value{}, fmt.Errorf("payload: null values are not supported")
	default:
		return Value{}, fmt.Errorf("payload: unsupported json value of type %T", rv)
	}
}
