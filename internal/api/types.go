package api

// Error messages returned by /analyze
const (
	msgNoFilePart     = "No file part 'image'"
	msgNoSelectedFile = "No selected file"
	msgInvalidImage   = "Invalid image"
	msgFileTooLarge   = "File too large"
	msgMissingAPIKey  = "Server missing OPENAI_API_KEY (check my.env)."
	msgModelErrorFmt  = "Model error: %s"
	msgInvalidJSON    = "Model did not return valid JSON"
)

// ErrorResponse is the body of every failed /analyze call. Raw is only set
// when the model reply could not be parsed.
type ErrorResponse struct {
	Error string  `json:"error"`
	Raw   *string `json:"raw,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status          string `json:"status"`
	ModelConfigured bool   `json:"model_configured"`
}
