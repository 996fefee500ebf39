package types

// ChatRequest is the payload accepted by POST /chat. Exactly one of Prompt
// or Feedback must be set: a prompt starts a pipeline run, feedback records
// a rating and runs no other stage.
type ChatRequest struct {
	// Prompt to answer. Required unless feedback is present.
	// example: What is the capital of France?
	Prompt string `json:"prompt,omitempty" example:"What is the capital of France?"`
	// Feedback for a model that contributed to an earlier answer.
	Feedback *Feedback `json:"feedback,omitempty"`
}

// Feedback adjusts a model's weight by one step.
type Feedback struct {
	// Identifier of the rated model.
	// example: mistralai/Mistral-7B-Instruct-v0.3
	ModelID string `json:"modelId" example:"mistralai/Mistral-7B-Instruct-v0.3"`
	// Rating step: +1 for positive, -1 for negative.
	// example: 1
	Rating int `json:"rating" example:"1"`
}

// ModelRef names a model that contributed to a final answer, for later
// feedback targeting.
type ModelRef struct {
	// example: mistralai/Mistral-7B-Instruct-v0.3
	ModelID string `json:"modelId" example:"mistralai/Mistral-7B-Instruct-v0.3"`
}

// ModelsResponse wraps the list of configured models returned by GET /models.
type ModelsResponse struct {
	Models []ModelSpec `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Active consensus strategy name.
	// example: weighted-summarize
	Strategy string `json:"strategy" example:"weighted-summarize"`
	// Number of configured models.
	// example: 3
	Models int `json:"models" example:"3"`
	// Pipeline runs completed since start (any outcome).
	// example: 42
	RunsTotal uint64 `json:"runs_total" example:"42"`
	// Feedback submissions recorded since start.
	// example: 7
	FeedbackTotal uint64 `json:"feedback_total" example:"7"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
