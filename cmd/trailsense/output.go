package main

import (
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/chrissnell/trailsense/pkg/responseformat"
)

// render writes data as JSON or MessagePack when --format asks for it, and
// otherwise calls text to print the human-readable form.
func render(w io.Writer, data any, text func(io.Writer)) error {
	switch f := viper.GetString("format"); f {
	case "", "text":
		text(w)
		return nil
	default:
		format, err := responseformat.ParseFormat(f)
		if err != nil {
			return fmt.Errorf("%w: use text, json or msgpack", err)
		}
		return responseformat.NewIndentedFormatter().Encode(w, format, data)
	}
}
