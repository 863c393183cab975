// internal/model/outcome.go
package model

import "time"

// SendOutcome is the recorded result of one recipient's send attempt. It is
// created once per recipient per run and never modified.
type SendOutcome struct {
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	Succeeded      bool      `json:"succeeded"`
	ExternalID     string    `json:"external_id,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DispatchResult is what a provider returns for a single send call.
type DispatchResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
