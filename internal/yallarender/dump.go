package yallarender

import (
	"fmt"
	"io"
	"reflect"
	"sort"
)

// renderDump implements spec.md §4.6's dump mode: a structured,
// debugger-style inspection that recurses into composite values with
// explicit type tags at every level, unlike verbose mode's single
// titled block.
func (r *Renderer) renderDump(value any, out io.Writer) error {
	dumpValue(out, value, 0)
	fmt.Fprintln(out)
	return nil
}

func dumpValue(out io.Writer, value any, depth int) {
	indent := func() string { return fmt.Sprintf("%*s", depth*2, "") }

	if value == nil {
		fmt.Fprintf(out, "%sNULL\n", indent())
		return
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		fmt.Fprintf(out, "%sarray(%d) {\n", indent(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			fmt.Fprintf(out, "%s  [%d]=>\n", indent(), i)
			dumpValue(out, rv.Index(i).Interface(), depth+1)
		}
		fmt.Fprintf(out, "%s}\n", indent())
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
		})
		fmt.Fprintf(out, "%smap(%d) {\n", indent(), len(keys))
		for _, k := range keys {
			fmt.Fprintf(out, "%s  [%v]=>\n", indent(), k.Interface())
			dumpValue(out, rv.MapIndex(k).Interface(), depth+1)
		}
		fmt.Fprintf(out, "%s}\n", indent())
	case reflect.Struct:
		fmt.Fprintf(out, "%sobject(%s) {\n", indent(), rv.Type().Name())
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			fmt.Fprintf(out, "%s  [%q]=>\n", indent(), field.Name)
			dumpValue(out, rv.Field(i).Interface(), depth+1)
		}
		fmt.Fprintf(out, "%s}\n", indent())
	case reflect.String:
		s := rv.String()
		fmt.Fprintf(out, "%sstring(%d) %q\n", indent(), len(s), s)
	case reflect.Bool:
		fmt.Fprintf(out, "%sbool(%v)\n", indent(), rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(out, "%sint(%d)\n", indent(), rv.Int())
	case reflect.Float32, reflect.Float64:
		fmt.Fprintf(out, "%sfloat(%v)\n", indent(), rv.Float())
	default:
		fmt.Fprintf(out, "%s%v\n", indent(), value)
	}
}
