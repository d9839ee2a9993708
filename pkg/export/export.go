// Package export renders measurement rows as CSV or JSON lines.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ssargent/howfar/pkg/ringfs"
)

// Format selects the output encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts csv, json or jsonl (case insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json", "jsonl":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/x-ndjson"
	}
	return "text/csv"
}

// Writer streams a header and rows
type Writer interface {
	WriteHeader(columns []string) error
	WriteRow(values []any) error
	Flush() error
}

// NewWriter returns a Writer for the format
func NewWriter(w io.Writer, f Format) (Writer, error) {
	switch f {
	case FormatCSV:
		return &csvWriter{w: csv.NewWriter(w)}, nil
	case FormatJSON:
		return &jsonWriter{enc: json.NewEncoder(w)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

type csvWriter struct {
	w *csv.Writer
}

func (c *csvWriter) WriteHeader(columns []string) error {
	return c.w.Write(columns)
}

func (c *csvWriter) WriteRow(values []any) error {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = FormatValue(v)
	}
	return c.w.Write(fields)
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// jsonWriter emits one object per row keyed by column name
type jsonWriter struct {
	enc     *json.Encoder
	columns []string
}

func (j *jsonWriter) WriteHeader(columns []string) error {
	j.columns = append([]string(nil), columns...)
	return nil
}

func (j *jsonWriter) WriteRow(values []any) error {
	if len(values) != len(j.columns) {
		return fmt.Errorf("row has %d values for %d columns", len(values), len(j.columns))
	}
	obj := make(map[string]any, len(values))
	for i, v := range values {
		obj[j.columns[i]] = v
	}
	return j.enc.Encode(obj)
}

func (j *jsonWriter) Flush() error {
	return nil
}

// FormatValue renders a column value the way the device tools always have:
// floats keep a fractional part, byte arrays are text
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case []byte:
		return string(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// WriteRows writes the header and every row, then flushes
func WriteRows(w Writer, columns []string, rows [][]any) error {
	if err := w.WriteHeader(columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.WriteRow(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Copy drains the iterator into w and returns the number of rows written.
// The header is written even when the ring is empty.
func Copy(w Writer, columns []string, it ringfs.RecordIterator) (int, error) {
	defer it.Close()

	if err := w.WriteHeader(columns); err != nil {
		return 0, err
	}
	n := 0
	for it.Next() {
		if err := w.WriteRow(it.Record().Values); err != nil {
			return n, err
		}
		n++
	}
	if err := it.Err(); err != nil {
		return n, err
	}
	return n, w.Flush()
}
