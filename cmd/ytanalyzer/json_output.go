package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONFile decodes a JSON document from path, or from stdin when path is "-".
func readJSONFile(cmd *cobra.Command, path string, v any) error {
	if path == "-" {
		return json.NewDecoder(cmd.InOrStdin()).Decode(v)
	}
	data, err := readFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
