package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

const interpreterProbe = `import json, sys
json.dump({"path": [p for p in sys.path if p], "builtins": list(sys.builtin_module_names)}, sys.stdout)`

// Interpreter describes the import environment of a Python interpreter.
type Interpreter struct {
	Path     []string `json:"path"`
	Builtins []string `json:"builtins"`
}

// QueryInterpreter runs exe to read its module search path and builtin
// module names.
func QueryInterpreter(ctx context.Context, exe string) (*Interpreter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// -I keeps the script directory and user site out of sys.path
	cmd := exec.CommandContext(ctx, exe, "-I", "-c", interpreterProbe)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", exe, err)
	}

	var info Interpreter
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decoding %s output: %w", exe, err)
	}
	return &info, nil
}
