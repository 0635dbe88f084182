// Package responseformat encodes query results as JSON or MessagePack, for
// HTTP responses and command-line output alike.
package responseformat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is an output encoding
type Format int

const (
	JSON Format = iota
	MsgPack
)

// ParseFormat maps "json" (or "") and "msgpack" to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return MsgPack, nil
	default:
		return JSON, fmt.Errorf("unknown output format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == MsgPack {
		return "application/x-msgpack"
	}
	return "application/json"
}

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct {
	indent bool
}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// NewIndentedFormatter creates a formatter that pretty-prints JSON, for
// terminal output
func NewIndentedFormatter() *Formatter {
	return &Formatter{indent: true}
}

// WriteResponse writes the response in the appropriate format based on the query parameter
// JSON is the default format. MessagePack is used when format=msgpack is specified
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Unknown formats fall back to JSON
	format, _ := ParseFormat(req.URL.Query().Get("format"))
	w.Header().Set("Content-Type", format.ContentType())
	return f.Encode(w, format, data)
}

// WriteError writes {"error": message} with the given status code
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, message string) error {
	format, _ := ParseFormat(req.URL.Query().Get("format"))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)
	return f.Encode(w, format, map[string]string{"error": message})
}

// Encode writes data to w in the given format
func (f *Formatter) Encode(w io.Writer, format Format, data any) error {
	if format == MsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
