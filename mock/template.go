package mock

import (
	"github.com/aymerick/raymond"
)

// Expand renders text as a Handlebars template with req bound as "request".
// Placeholders that resolve to nothing render as an empty string, only malformed templates fail.
func Expand(text string, req *Request) (string, error) {
	tpl, err := raymond.Parse(text)
	if err != nil {
		return "", &TemplateError{Err: err}
	}

	out, err := tpl.Exec(req.bindings())
	if err != nil {
		return "", &TemplateError{Err: err}
	}

	return out, nil
}
