package models

// ErrorResponse is the body written for every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is the body of simple acknowledgements
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidationError describes one rejected request field
type ValidationError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationErrorResponse lists every rejected request field
type ValidationErrorResponse struct {
	Errors []ValidationError `json:"errors"`
}

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
