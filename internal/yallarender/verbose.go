package yallarender

import (
	"fmt"
	"io"
	"reflect"
	"sort"
)

// renderVerbose implements spec.md §4.6's verbose mode: a titled block
// with type metadata (length or class name, associativity, and an
// inheritance chain for objects) followed by an indented dump,
// truncated after verboseItemLimit items.
func (r *Renderer) renderVerbose(value any, out io.Writer) error {
	if value == nil {
		fmt.Fprintln(out, r.style(headerStyle, "null"))
		return nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		fmt.Fprintf(out, "%s (length=%d, associative=false)\n", r.style(headerStyle, "list"), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if i >= verboseItemLimit {
				fmt.Fprintf(out, "  ... %d more\n", rv.Len()-verboseItemLimit)
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", i, r.compact(rv.Index(i).Interface()))
		}
		return nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
		})
		fmt.Fprintf(out, "%s (length=%d, associative=true)\n", r.style(headerStyle, "map"), len(keys))
		for i, k := range keys {
			if i >= verboseItemLimit {
				fmt.Fprintf(out, "  ... %d more\n", len(keys)-verboseItemLimit)
				break
			}
			fmt.Fprintf(out, "  %v => %s\n", k.Interface(), r.compact(rv.MapIndex(k).Interface()))
		}
		return nil
	case reflect.Struct:
		chain := inheritanceChain(rv.Type())
		fmt.Fprintf(out, "%s (%s)\n", r.style(headerStyle, rv.Type().Name()), chain)
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			fmt.Fprintf(out, "  %s: %s\n", field.Name, r.compact(rv.Field(i).Interface()))
		}
		return nil
	default:
		fmt.Fprintln(out, r.compact(value))
		return nil
	}
}

// inheritanceChain renders a struct's embedded-type chain, the Go
// analogue of the "class inheritance chain" spec.md §4.6 calls for.
func inheritanceChain(t reflect.Type) string {
	var names []string
	names = append(names, t.Name())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			names = append(names, f.Type.Name())
		}
	}
	if len(names) == 1 {
		return names[0]
	}
	return fmt.Sprintf("%s < %s", names[0], names[1])
}
