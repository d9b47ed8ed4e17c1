package writers

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strconv"
)

// writeCase writes the case file. Variable and constant names are padded
// to aligned columns, at least one blank always separates the fields.
func (w *writer) writeCase(path string) error {
	transient := w.obj.IsTransient()
	sets := ""
	switch {
	case w.single:
		sets = "1 1"
	case transient:
		sets = "1"
	}
	return w.create(filepath.Base(path), func(bw *bufio.Writer) {
		fmt.Fprintln(bw, "FORMAT")
		fmt.Fprintln(bw, "type:      ensight gold")
		fmt.Fprintln(bw)

		fmt.Fprintln(bw, "GEOMETRY")
		fmt.Fprintf(bw, "model:     %-7s%s.geo%s\n", sets, w.name, w.wildcards())
		fmt.Fprintln(bw)

		constants, variables := w.obj.Constants(), w.obj.Variables()
		if len(constants)+len(variables) > 0 {
			fmt.Fprintln(bw, "VARIABLE")
			for _, c := range constants {
				fmt.Fprintf(bw, "constant per case:%20s%-19s %s\n",
					"", c.Name, strconv.FormatFloat(c.Value, 'g', -1, 64))
			}
			for _, v := range variables {
				fmt.Fprintf(bw, "%s: %-20s%-19s %s.%s%s\n",
					v.Type.Keyword(), sets, v.Name, w.name, v.Name, w.wildcards())
			}
			fmt.Fprintln(bw)
		}

		if !transient {
			return
		}
		times := w.obj.Times()
		fmt.Fprintln(bw, "TIME")
		fmt.Fprintln(bw, "time set:              1")
		fmt.Fprintf(bw, "number of steps:       %d\n", len(times))
		fmt.Fprintln(bw, "filename start number: 0")
		fmt.Fprintln(bw, "filename increment:    1")
		fmt.Fprintln(bw, "time values:")
		for _, t := range times {
			fmt.Fprintf(bw, floatFormat, t)
		}
		fmt.Fprintln(bw)

		if w.single {
			fmt.Fprintln(bw, "FILE")
			fmt.Fprintln(bw, "file set:              1")
			fmt.Fprintf(bw, "number of steps:       %d\n", len(times))
			fmt.Fprintln(bw)
		}
	})
}
