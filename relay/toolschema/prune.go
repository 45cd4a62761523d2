package toolschema

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Prune returns a deep copy of node with every map entry whose key is in keys
// removed, at any depth. Typed maps, slices and arrays keep their type.
// Structs are normalized to their JSON form first so tagged fields can be
// removed too. Scalars are returned unchanged.
func Prune(node any, keys ...string) any {
	if len(keys) == 0 {
		return node
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	return prune(node, drop)
}

func prune(node any, drop map[string]struct{}) any {
	switch v := node.(type) {
	case nil:
		return nil
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			if _, ok := drop[key]; ok {
				continue
			}
			out[key] = prune(child, drop)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = prune(child, drop)
		}
		return out
	case json.Number, string, bool, float64, int, int64:
		return v
	}
	return pruneValue(reflect.ValueOf(node), drop).Interface()
}

func pruneValue(v reflect.Value, drop map[string]struct{}) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		return pruneValue(v.Elem(), drop)
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key()
			if key.Kind() == reflect.String {
				if _, ok := drop[key.String()]; ok {
					continue
				}
			}
			out.SetMapIndex(key, assignable(pruneValue(iter.Value(), drop), v.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(assignable(pruneValue(v.Index(i), drop), v.Type().Elem()))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(assignable(pruneValue(v.Index(i), drop), v.Type().Elem()))
		}
		return out
	case reflect.Struct, reflect.Pointer:
		if v.Kind() == reflect.Pointer && (v.IsNil() || v.Elem().Kind() != reflect.Struct) {
			return v
		}
		generic, ok := normalize(v.Interface())
		if !ok {
			return v
		}
		pruned := prune(generic, drop)
		if pruned == nil {
			return v
		}
		return reflect.ValueOf(pruned)
	default:
		return v
	}
}

// assignable converts a pruned value back to the container's element type. A
// struct element normalized to a map cannot go back into a typed container,
// so the container keeps a pruned copy of the struct through a JSON round trip.
func assignable(v reflect.Value, elem reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(elem)
	}
	if v.Type().AssignableTo(elem) {
		if v.Type() != elem {
			converted := reflect.New(elem).Elem()
			converted.Set(v)
			return converted
		}
		return v
	}
	target := reflect.New(elem)
	data, err := json.Marshal(v.Interface())
	if err == nil && json.Unmarshal(data, target.Interface()) == nil {
		return target.Elem()
	}
	return reflect.Zero(elem)
}

// normalize turns a struct into the map[string]any tree encoding/json would
// produce for it.
func normalize(value any) (any, bool) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var out any
	if err = decoder.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}
