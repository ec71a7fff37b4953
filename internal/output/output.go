// Package output serializes run results for the CLI.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format represents output format types.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Write serializes a single result document to w in the given format.
func Write(w io.Writer, format Format, data any) error {
	bw := bufio.NewWriter(w)

	switch format {
	case FormatJSON, "":
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		if _, err := bw.Write(out); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}

	case FormatYAML:
		enc := yaml.NewEncoder(bw)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	return bw.Flush()
}
