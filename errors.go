package goGuard

import "errors"

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid goGuard config")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned when persistence is enabled without a Redis client.
	ErrRedisRequired = errors.New("persistence requires redis client")
	// ErrIdentityServiceUnset is returned by flows that need the identity service when
	// no BaseURL is configured.
	ErrIdentityServiceUnset = errors.New("identity service not configured")
	// ErrSessionRejected is returned when the identity service rejected the session.
	// Local session state has already been cleared.
	ErrSessionRejected = errors.New("session rejected")
	// ErrIdentityUnavailable is returned when the identity could not be fetched.
	// Local session state has already been cleared.
	ErrIdentityUnavailable = errors.New("identity unavailable")
	// ErrInvalidCredentials is returned by Login for rejected credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEngineClosed is returned by operations after Close.
	ErrEngineClosed = errors.New("engine closed")
)
