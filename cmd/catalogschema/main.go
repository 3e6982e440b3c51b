// Command catalogschema renders a JSON schema for the obstacle catalog so
// client ports can validate their embedded copy against the server's shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"rundash/server/internal/sim"
)

func main() {
	var outPath string
	var printHash bool
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.BoolVar(&printHash, "hash", false, "print the catalog fingerprint and exit")
	flag.Parse()

	if printHash {
		hash, err := sim.CatalogFingerprint()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fingerprint catalog: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(sim.CatalogDocument))
	schema.Title = "Runner Obstacle Catalog"
	schema.Description = "Validates the obstacle type descriptors shared by every lockstep participant"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
