package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type renderer func(w io.Writer, v interface{}) error

func newRenderer(format string) (renderer, error) {
	switch format {
	case "json":
		return renderJSON, nil
	case "yaml", "yml":
		return renderYAML, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q: use json or yaml", format)
	}
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// render writes v to stdout in the selected output format
func render(v interface{}) error {
	r, err := newRenderer(outputFormat)
	if err != nil {
		return err
	}
	return r(os.Stdout, v)
}
