// Package client defines the prospect record handed through the campaign.
package client

import (
	"net/mail"
	"strings"
)

// Client is one prospect row from the source sheet. Identity is the email
// address, assumed unique within a campaign run. The record is never mutated
// after fetch.
type Client struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Company string            `json:"company,omitempty"`

	// Attrs carries any additional sheet columns opaquely.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// DisplayName returns the name to address the client by, falling back to the
// local part of the email address.
func (c Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if at := strings.Index(c.Email, "@"); at > 0 {
		return c.Email[:at]
	}
	return c.Email
}

// Validate checks that the record is usable for outreach.
func (c Client) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrMissingEmail
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
