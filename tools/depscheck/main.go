// Command depscheck fails when the deterministic simulation core grows a
// dependency on the transport or relay layers. The engine must stay
// replayable in isolation, so those imports are forbidden.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

var forbiddenPrefixes = []string{
	"rundash/server/internal/net",
	"rundash/server/internal/relay",
	"rundash/server/logging",
	"github.com/gorilla/websocket",
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/sim/...", "./internal/coord/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}

		for _, imp := range pkg.Imports {
			for _, prefix := range forbiddenPrefixes {
				if forbidden(pkg.ImportPath, imp, prefix) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func forbidden(importer, imported, prefix string) bool {
	if !strings.HasPrefix(imported, prefix) {
		return false
	}
	// The coordinator publishes drop diagnostics through the logging router;
	// only the engine itself is walled off from it.
	if strings.HasPrefix(importer, "rundash/server/internal/coord") && strings.HasPrefix(imported, "rundash/server/logging") {
		return false
	}
	return true
}
