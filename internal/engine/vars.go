package engine

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadVars merges template variables. Later layers win: base (from
// configuration), then the data file, then key=value pairs.
// The data file may be YAML or JSON and must hold a mapping.
func LoadVars(base map[string]any, dataFile string, pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(base))
	maps.Copy(vars, base)

	if dataFile != "" {
		data, err := os.ReadFile(dataFile) //nolint:gosec // G304: data path is user input by design
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse data file %s: %w", dataFile, err)
		}
		maps.Copy(vars, doc)
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q: expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
