package document

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/mitchellh/copystructure"
)

// ErrNotCloneable is returned when a value cannot be deep copied
var ErrNotCloneable = errors.New("value cannot be deep copied")

// Cloner is implemented by values that know how to deep copy themselves
type Cloner interface {
	Clone() (interface{}, error)
}

// Projector is implemented by values wrapping an inner configuration mapping
type Projector interface {
	Config() map[string]interface{}
}

var clonerType = reflect.TypeOf((*Cloner)(nil)).Elem()

// Clone returns a deep copy of v keeping every concrete type, nested ones
// included. Cloner values copy themselves, wherever they sit in v. Structs
// with unexported fields are copied field by field so private state survives.
// On failure the error wraps ErrNotCloneable and no value is returned.
func Clone(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return v, nil
		}
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %T", ErrNotCloneable, v)
	}
	if c, ok := v.(Cloner); ok {
		cp, err := c.Clone()
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %v", ErrNotCloneable, v, err)
		}
		return cp, nil
	}

	copiers, err := copiersFor(rv)
	if err != nil {
		return nil, err
	}
	cfg := copystructure.Config{Copiers: copiers}
	cp, err := cfg.Copy(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrNotCloneable, v, err)
	}
	return cp, nil
}

// CloneMap deep copies a configuration mapping
func CloneMap(m map[string]interface{}) (map[string]interface{}, error) {
	if m == nil {
		return nil, nil
	}
	cp, err := Clone(m)
	if err != nil {
		return nil, err
	}
	return cp.(map[string]interface{}), nil
}

// copiersFor walks v and returns the copystructure copiers it needs on top of
// the package defaults: one per struct type that is a Cloner or that carries
// unexported fields, which copystructure would otherwise zero. Functions and
// channels cannot be copied and fail the walk.
func copiersFor(v reflect.Value) (map[reflect.Type]copystructure.CopierFunc, error) {
	copiers := make(map[reflect.Type]copystructure.CopierFunc, len(copystructure.Copiers))
	for t, c := range copystructure.Copiers {
		copiers[t] = c
	}
	if err := collectCopiers(v, copiers, make(map[uintptr]bool)); err != nil {
		return nil, err
	}
	return copiers, nil
}

func collectCopiers(v reflect.Value, copiers map[reflect.Type]copystructure.CopierFunc, visited map[uintptr]bool) error {
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotCloneable, v.Type())
	case reflect.Ptr:
		if v.IsNil() || visited[v.Pointer()] {
			return nil
		}
		visited[v.Pointer()] = true
		return collectCopiers(v.Elem(), copiers, visited)
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return collectCopiers(v.Elem(), copiers, visited)
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := collectCopiers(iter.Key(), copiers, visited); err != nil {
				return err
			}
			if err := collectCopiers(iter.Value(), copiers, visited); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := collectCopiers(v.Index(i), copiers, visited); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		if _, ok := copiers[t]; ok {
			return nil
		}
		if reflect.PointerTo(t).Implements(clonerType) {
			copiers[t] = clonerCopier(t)
			return nil
		}
		if hasUnexportedFields(t) {
			copiers[t] = copyStruct
			return nil
		}
		for i := 0; i < v.NumField(); i++ {
			if err := collectCopiers(v.Field(i), copiers, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasUnexportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// clonerCopier adapts a Cloner to a struct copier. Clone may return the
// struct itself or a pointer to it.
func clonerCopier(t reflect.Type) copystructure.CopierFunc {
	return func(v interface{}) (interface{}, error) {
		src := reflect.New(t)
		src.Elem().Set(reflect.ValueOf(v))
		cp, err := src.Interface().(Cloner).Clone()
		if err != nil {
			return nil, err
		}
		out := reflect.ValueOf(cp)
		switch {
		case !out.IsValid():
			return nil, fmt.Errorf("%s.Clone returned nil", t)
		case out.Type() == t:
			return cp, nil
		case out.Kind() == reflect.Ptr && out.Type().Elem() == t && !out.IsNil():
			return out.Elem().Interface(), nil
		}
		return nil, fmt.Errorf("%s.Clone returned %s", t, out.Type())
	}
}

// copyStruct copies a struct including its unexported fields
func copyStruct(v interface{}) (interface{}, error) {
	src := reflect.ValueOf(v)
	dst := reflect.New(src.Type()).Elem()
	dst.Set(src)
	for i := 0; i < dst.NumField(); i++ {
		field := dst.Field(i)
		switch field.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Struct, reflect.Array,
			reflect.Func, reflect.Chan, reflect.UnsafePointer:
		default:
			continue
		}
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
		cp, err := Clone(field.Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", src.Type().Field(i).Name, err)
		}
		if cp == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		field.Set(reflect.ValueOf(cp))
	}
	return dst.Interface(), nil
}

// MergeMissing copies into dst every key of defaults that dst lacks,
// descending into nested mappings present on both sides. Existing values in
// dst are never overwritten. It reports whether dst changed.
func MergeMissing(dst, defaults map[string]interface{}) (bool, error) {
	changed := false
	for k, dv := range defaults {
		cur, ok := dst[k]
		if !ok {
			cp, err := Clone(dv)
			if err != nil {
				return changed, fmt.Errorf("default %q: %w", k, err)
			}
			dst[k] = cp
			changed = true
			continue
		}
		curMap, curIsMap := cur.(map[string]interface{})
		defMap, defIsMap := dv.(map[string]interface{})
		if curIsMap && defIsMap {
			merged, err := MergeMissing(curMap, defMap)
			if err != nil {
				return changed, err
			}
			if merged {
				changed = true
			}
		}
	}
	return changed, nil
}
