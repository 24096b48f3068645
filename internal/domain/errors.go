package domain

import "errors"

var (
	// ErrConfig marks an unreadable or malformed client configuration.
	ErrConfig = errors.New("configuration error")
	// ErrCredential marks a missing or malformed grant token.
	ErrCredential = errors.New("credential error")
	// ErrAuth marks a rejected token exchange or remote authorization.
	ErrAuth = errors.New("authorization error")
	// ErrSourceFormat marks an unreadable contact export.
	ErrSourceFormat = errors.New("source format error")
	// ErrRemoteOperation marks a single failed remote call.
	ErrRemoteOperation = errors.New("remote operation error")
)
