package client

import "errors"

var (
	// ErrMissingEmail is returned when a record has no email address.
	ErrMissingEmail = errors.New("client has no email address")

	// ErrInvalidEmail is returned when the email address does not parse.
	ErrInvalidEmail = errors.New("client email address is invalid")
)
