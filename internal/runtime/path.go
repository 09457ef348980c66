package runtime

import "reflect"

// fieldByGoPath walks v (a struct value) down the chain of Go field names
// produced by schema.Compile, allocating intermediate pointer structs as it
// goes. v must be addressable.
func fieldByGoPath(v reflect.Value, path []string) reflect.Value {
	for _, name := range path {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.FieldByName(name)
	}
	return v
}
