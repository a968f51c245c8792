// Package builtin implements the built-in tool set dispatched by name from
// the model's function calls (spec §4.4): shell execution, file
// read/write/edit/patch, plan updates, web search, MCP passthrough, and
// image viewing. Grounded on the teacher's internal/tools/{exec,files}
// packages, generalized from the agent.Tool contract to tooldispatch.ToolImpl.
package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves and validates turn-relative paths against a workspace
// root, rejecting any path that escapes it, grounded verbatim on the
// teacher's files.Resolver.
type Resolver struct {
	Root string
}

// Resolve returns an absolute, cleaned path within the workspace root.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes workspace")
	}
	return targetAbs, nil
}
