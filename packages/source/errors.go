package source

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped by ConfigFetchError when the API rejects the key
var ErrUnauthorized = errors.New("postman API rejected the API key")

// ConfigLoadError reports a local definition that is missing or malformed
type ConfigLoadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("failed to load %s from %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// ConfigFetchError reports a failed Postman API fetch
type ConfigFetchError struct {
	Kind       Kind
	UID        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *ConfigFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s with UID %s: %v", e.Kind, e.UID, e.Err)
}

func (e *ConfigFetchError) Unwrap() error {
	return e.Err
}
