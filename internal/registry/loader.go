package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ensembled/pkg/types"
)

// specFile is the on-disk shape of a model registry file.
type specFile struct {
	Models []types.ModelSpec `json:"models" yaml:"models"`
}

// LoadFile reads an ordered model spec list from a YAML or JSON file.
// The order in the file fixes the fan-out and stage-event order.
func LoadFile(path string) ([]types.ModelSpec, error) {
	if path == "" {
		return nil, fmt.Errorf("empty models file path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f specFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &f); err != nil { return nil, err }
	case ".json":
		if err := json.Unmarshal(b, &f); err != nil { return nil, err }
	default:
		return nil, fmt.Errorf("unsupported models file extension: %s", ext)
	}
	if err := Validate(f.Models); err != nil {
		return nil, err
	}
	return f.Models, nil
}

// Defaults returns the built-in model trio used when no registry file is
// configured.
func Defaults() []types.ModelSpec {
	return []types.ModelSpec{
		{ID: "microsoft/Phi-3.5-mini-instruct", Label: "Model 1", Parameters: types.GenerationParams{MaxTokens: 400, Temperature: 0.3}},
		{ID: "mistralai/Mistral-7B-Instruct-v0.3", Label: "Model 2", Parameters: types.GenerationParams{MaxTokens: 400, Temperature: 0.4}},
		{ID: "google/flan-t5-large", Label: "Model 3", Parameters: types.GenerationParams{MaxTokens: 400, Temperature: 0.5}},
	}
}

// Validate checks a spec list for use by the pipeline: at least one model,
// unique non-empty ids, positive token budgets, temperature within [0,1].
func Validate(models []types.ModelSpec) error {
	if len(models) == 0 {
		return fmt.Errorf("no models configured")
	}
	seen := make(map[string]struct{}, len(models))
	for i, m := range models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return fmt.Errorf("model %d: empty id", i+1)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("model %d: duplicate id %q", i+1, id)
		}
		seen[id] = struct{}{}
		if m.Parameters.MaxTokens <= 0 {
			return fmt.Errorf("model %q: max_new_tokens must be > 0", id)
		}
		if m.Parameters.Temperature < 0 || m.Parameters.Temperature > 1 {
			return fmt.Errorf("model %q: temperature must be in [0,1]", id)
		}
	}
	return nil
}
