package encode

import (
	"encoding/json"
	"io"
)

// ContentType is the content type of everything written by this package
const ContentType = "application/json"

// JSONIndented encodes a value into a writer with a single space indentation
func JSONIndented(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", " ")

	return encoder.Encode(v)
}

// Error encodes err as {"error": "<message>"}, the same shape as the default not found mock
func Error(err error, w io.Writer) error {
	return JSONIndented(map[string]string{"error": err.Error()}, w)
}
