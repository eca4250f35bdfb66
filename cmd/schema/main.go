// Command schema regenerates the JSON schema embedded by pkg/config.
// Run via go:generate from the config package, output is committed.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/umputun/tenderscope/pkg/config"
)

func main() {
	schema := jsonschema.Reflect(&config.Config{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("can't marshal config schema: %v", err)
	}

	// default matches the go:embed location in pkg/config
	outputPath := "schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("can't write %s: %v", outputPath, err)
	}

	fmt.Printf("config schema written to %s\n", outputPath)
}
