package models

import "time"

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
