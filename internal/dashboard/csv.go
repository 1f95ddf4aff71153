package dashboard

import (
	"bufio"
	"io"
	"reflect"
	"strings"
)

// Column maps a CSV header onto a json field path. Values are written on a
// single line: CR, LF and CRLF inside a value each become one space.
type Column struct {
	Header string `json:"header"`
	Field  string `json:"field"`
}

// Columns builds columns whose header is the field path itself.
func Columns(fields ...string) []Column {
	out := make([]Column, len(fields))
	for i, f := range fields {
		out[i] = Column{Header: f, Field: f}
	}
	return out
}

// WriteCSV writes a header line plus one line per item. Every value is
// wrapped in double quotes with embedded quotes doubled. Line breaks inside
// a value are replaced by a space, so a multi-line description does not
// round-trip; in exchange the output is always len(items)+1 lines.
// encoding/csv only quotes when it has to and keeps raw newlines, which is
// why this does not use it.
func WriteCSV[T any](w io.Writer, columns []Column, items []T) error {
	bw := bufio.NewWriter(w)

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
	}
	if err := writeRow(bw, headers); err != nil {
		return err
	}

	row := make([]string, len(columns))
	for _, item := range items {
		v := reflect.ValueOf(item)
		for i, c := range columns {
			fv, ok := lookup(v, c.Field)
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = format(fv)
		}
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// lineBreaks flattens a value onto one line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func writeRow(w *bufio.Writer, values []string) error {
	for i, v := range values {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		v = lineBreaks.Replace(v)
		if _, err := w.WriteString(`"` + strings.ReplaceAll(v, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
