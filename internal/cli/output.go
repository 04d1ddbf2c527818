package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"mediahub/internal/reconcile"
)

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows under header, or v as JSON when --json is set.
func (e *env) table(v any, header []string, rows [][]string) error {
	if e.jsonOut {
		return e.printJSON(v)
	}
	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// fields prints label/value pairs, or v as JSON when --json is set.
func (e *env) fields(v any, pairs ...string) error {
	if e.jsonOut {
		return e.printJSON(v)
	}
	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(w, "%s:\t%s\n", pairs[i], pairs[i+1])
	}
	return w.Flush()
}

func (e *env) message(format string, args ...any) {
	if e.jsonOut {
		return
	}
	fmt.Fprintf(e.out, format+"\n", args...)
}

// notice tells the user a result came from local data.
func notice[T any](w io.Writer, res reconcile.Result[T]) {
	if res.Source != reconcile.SourceLocal {
		return
	}
	if res.RemoteErr != nil {
		fmt.Fprintf(w, "offline: using local data (%v)\n", res.RemoteErr)
		return
	}
	fmt.Fprintln(w, "offline: using local data")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
