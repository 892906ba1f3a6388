// Package layering folds partial values (patches, config sources) ordered
// from strongest to weakest into one value.
package layering

import "reflect"

// MergeLayers composes layers ordered from strongest to weakest. A nil pointer,
// map or slice in a stronger layer falls through to the next weaker layer;
// anything set wins. The result shares no memory with the inputs.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()

	merged := Clone(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		out := reflect.New(typ).Elem()
		out.Set(merge(reflect.ValueOf(&layers[i]).Elem(), reflect.ValueOf(&merged).Elem()))
		merged = out.Interface().(T)
	}
	return merged
}

// Clone returns a deep copy of value.
func Clone[T any](value T) T {
	out := reflect.New(reflect.TypeOf((*T)(nil)).Elem()).Elem()
	out.Set(clone(reflect.ValueOf(&value).Elem()))
	return out.Interface().(T)
}

func merge(strong, weak reflect.Value) reflect.Value {
	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return clone(weak)
		}
		inner := reflect.Value{}
		if !weak.IsNil() {
			inner = weak.Elem()
		}
		out := reflect.New(strong.Type().Elem())
		if inner.IsValid() {
			out.Elem().Set(merge(strong.Elem(), inner))
		} else {
			out.Elem().Set(clone(strong.Elem()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		out.Set(strong)
		for i := 0; i < strong.NumField(); i++ {
			if !out.Field(i).CanSet() {
				continue
			}
			out.Field(i).Set(merge(strong.Field(i), weak.Field(i)))
		}
		return out
	case reflect.Map:
		if strong.IsNil() {
			return clone(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len()+weak.Len())
		for iter := weak.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		for iter := strong.MapRange(); iter.Next(); {
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				out.SetMapIndex(iter.Key(), merge(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice, reflect.Interface:
		if strong.IsNil() {
			return clone(weak)
		}
		return clone(strong)
	default:
		return clone(strong)
	}
}

func clone(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(clone(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(clone(v.Field(i)))
			}
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for iter := v.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
