package schema

import (
	"reflect"
	"strings"
	"time"
)

// Compiled is C3's output: an ordered field-spec list and the storage
// layout it was compiled against (spec.md §4.3).
type Compiled struct {
	Layout     Layout
	Fields     []FieldSpec
	PrimaryKey *FieldSpec
}

// Compile walks T's exported fields and produces their index-field
// specifications. defaultIndex is the record-level index default each
// field's own `index`/`index=false` tag overrides (spec.md §3.1's
// tri-state index option).
func Compile(t reflect.Type, layout Layout, defaultIndex bool) (*Compiled, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, newError(NestedInFlatRecord, t.Name(), "record type must be a struct")
	}

	c := &Compiled{Layout: layout}
	seen := map[string]string{} // query name -> originating Go field, for E4

	if err := compileStruct(c, t, layout, defaultIndex, "", "", nil, seen); err != nil {
		return nil, err
	}
	return c, nil
}

func compileStruct(c *Compiled, t reflect.Type, layout Layout, defaultIndex bool, namePrefix, pathPrefix string, goPathPrefix []string, seen map[string]string) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}

		tagRaw, hasTag := sf.Tag.Lookup("redisom")
		if !hasTag {
			continue
		}

		tag, err := parseTag(sf.Name, tagRaw)
		if err != nil {
			return err
		}
		if tag.Skip {
			continue
		}

		queryName := namePrefix + tag.Name
		ft := sf.Type
		isPtr := ft.Kind() == reflect.Ptr
		if isPtr {
			ft = ft.Elem()
		}

		if tag.PrimaryKey {
			spec := FieldSpec{
				GoName:     sf.Name,
				GoPath:     append(append([]string{}, goPathPrefix...), sf.Name),
				Name:       queryName,
				Path:       hashOrJSONPath(layout, pathPrefix, tag.Name),
				PrimaryKey: true,
				Kind:       Tag,
			}
			c.PrimaryKey = &spec
			c.Fields = append(c.Fields, spec)
			continue
		}

		indexed := defaultIndex
		if tag.IndexSet {
			indexed = tag.Index
		}

		if tag.FullText && tag.CaseSens {
			return newError(FullTextCaseSensitiveConflict, sf.Name, "full_text_search and case_sensitive are mutually exclusive")
		}
		if tag.Sortable && !indexed {
			return newError(SortableNotIndexed, sf.Name, "sortable requires index=true")
		}

		// Embedded record: recurse and unfold into the parent (document
		// layout only; spec.md §4.3 step 3).
		if ft.Kind() == reflect.Struct && !isScalarStructType(ft) {
			if layout == HashLayout {
				return newError(NestedInFlatRecord, sf.Name, "flat records cannot contain nested records")
			}
			childPrefix := namePrefix + tag.Name + "_"
			childPath := pathPrefix + "." + tag.Name
			childGoPath := append(append([]string{}, goPathPrefix...), sf.Name)
			if err := compileStruct(c, ft, layout, defaultIndex, childPrefix, childPath, childGoPath, seen); err != nil {
				return err
			}
			continue
		}

		if !indexed {
			continue
		}

		if existing, ok := seen[queryName]; ok && existing != sf.Name {
			return newError(E4, sf.Name, "query name collides with field "+existing)
		}
		seen[queryName] = sf.Name

		spec, err := dispatchKind(sf.Name, queryName, hashOrJSONPath(layout, pathPrefix, tag.Name), ft, layout, tag)
		if err != nil {
			return err
		}
		spec.GoPath = append(append([]string{}, goPathPrefix...), sf.Name)

		c.Fields = append(c.Fields, spec)
	}
	return nil
}

func hashOrJSONPath(layout Layout, pathPrefix, fieldTag string) string {
	if layout == HashLayout {
		return fieldTag
	}
	if pathPrefix == "" {
		return "$." + fieldTag
	}
	return "$" + pathPrefix + "." + fieldTag
}

func isScalarStructType(t reflect.Type) bool {
	if t == reflect.TypeOf(time.Time{}) {
		return true
	}
	return isGeoPointType(t)
}

// isGeoPointType recognizes a two-field {Lat, Lon float64} struct by
// shape, independent of which package declares it, since the schema
// package cannot import the root package's GeoPoint type without an
// import cycle.
func isGeoPointType(t reflect.Type) bool {
	if t.NumField() != 2 {
		return false
	}
	lat, hasLat := t.FieldByName("Lat")
	lon, hasLon := t.FieldByName("Lon")
	if !hasLat || !hasLon {
		return false
	}
	return lat.Type.Kind() == reflect.Float64 && lon.Type.Kind() == reflect.Float64
}

func dispatchKind(goName, queryName, path string, ft reflect.Type, layout Layout, tag tagSpec) (FieldSpec, error) {
	spec := FieldSpec{
		GoName:        goName,
		Name:          queryName,
		Path:          path,
		Sortable:      tag.Sortable,
		CaseSensitive: tag.CaseSens,
		Separator:     tag.Separator,
		NoStem:        tag.NoStem,
	}

	switch {
	case tag.Vector != nil:
		spec.Kind = Vector
		spec.Vector = tag.Vector
		return spec, nil

	case ft == reflect.TypeOf(time.Time{}):
		spec.Kind = Numeric
		spec.IsDateTime = true
		return spec, nil

	case isGeoPointType(ft):
		spec.Kind = Geo
		return spec, nil

	case ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array:
		if ft.Elem().Kind() != reflect.String {
			return spec, newError(E12, goName, "list/tuple index fields must have string elements")
		}
		if tag.FullText {
			return spec, newError(E13, goName, "full_text_search is not valid on a list/tuple field")
		}
		spec.Kind = Tag
		spec.IsList = true
		if spec.Separator == "" {
			spec.Separator = DefaultSeparator
		}
		return spec, nil

	case ft.Kind() == reflect.String:
		if tag.FullText {
			spec.Kind = Text
			spec.FullTextSearch = true
		} else {
			spec.Kind = Tag
		}
		return spec, nil

	case ft.Kind() == reflect.Bool:
		if tag.FullText {
			return spec, newError(FullTextRequiresString, goName, "full_text_search requires a string field")
		}
		if layout == HashLayout {
			spec.Kind = Tag
		} else {
			spec.Kind = Numeric
		}
		return spec, nil

	case isNumericKind(ft.Kind()):
		if tag.FullText {
			return spec, newError(FullTextRequiresString, goName, "full_text_search requires a string field")
		}
		spec.Kind = Numeric
		return spec, nil

	default:
		return spec, newError(NestedInFlatRecord, goName, "unsupported field type "+ft.Kind().String())
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// QueryName converts a dotted path like "address.city" to the flattened
// form used in FT field aliases ("address_city"), the same underscore
// naming compile gives unfolded embedded fields.
func QueryName(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}
