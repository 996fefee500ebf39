package types

// ModelSpec describes one generative model queried during an ensemble run.
// Specs are immutable and defined at configuration time; their order in the
// configured list fixes the order of fan-out calls and stage events.
type ModelSpec struct {
	// Stable identifier, usually vendor/model-name.
	// example: mistralai/Mistral-7B-Instruct-v0.3
	ID string `json:"id" yaml:"id" example:"mistralai/Mistral-7B-Instruct-v0.3"`
	// Human-friendly label for UIs.
	// example: Mistral 7B
	Label string `json:"label,omitempty" yaml:"label,omitempty" example:"Mistral 7B"`
	// Generation parameters passed through to the model call.
	Parameters GenerationParams `json:"parameters" yaml:"parameters"`
}

// GenerationParams captures per-model text-generation parameters.
type GenerationParams struct {
	// Maximum number of new tokens to generate. Must be > 0.
	// example: 400
	MaxTokens int `json:"max_new_tokens" yaml:"max_new_tokens" example:"400"`
	// Sampling temperature in [0,1].
	// example: 0.4
	Temperature float64 `json:"temperature" yaml:"temperature" example:"0.4"`
}
