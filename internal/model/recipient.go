// internal/model/recipient.go
package model

import "fmt"

// Recipient is one imported spreadsheet row. Every column other than
// email and name ends up in Variables.
type Recipient struct {
	Email     string            `json:"email"`
	Name      string            `json:"name,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

// Address formats the recipient as "Name <email>", or just the email when no name is set.
func (r Recipient) Address() string {
	if r.Name == "" {
		return r.Email
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Email)
}
