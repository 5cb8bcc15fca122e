package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadModules reads every .rego module under dir, keyed by file name, ready
// for compilation into a single evaluator query. Nested directories are not
// walked; policies live flat in the bundle directory.
func LoadModules(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read policy dir: %w", err)
	}

	modules := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".rego") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read policy %s: %w", name, err)
		}
		modules[name] = string(src)
	}
	return modules, nil
}
