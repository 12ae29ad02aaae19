// Package failure defines the error taxonomy shared by the fetch, map and sink steps.
package failure

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid setting. It is always fatal
// and is raised before any network call.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the given setting.
func NewConfigurationError(key, reason string) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: reason}
}

// TransportError wraps a network-level failure reaching the remote API
// (DNS, dial, timeout, connection reset).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteAPIError is returned when the API answers with anything but 200 OK,
// or with a body that cannot be decoded.
type RemoteAPIError struct {
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote api: status %d: %s", e.StatusCode, e.Body)
}

// MappingError reports a single raw campaign that could not be flattened.
// Index is the position of the campaign in the response array.
type MappingError struct {
	Index int
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("mapping: campaign %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("mapping: campaign %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// SinkWriteError reports a single record that a document store refused.
type SinkWriteError struct {
	Sink       string
	CampaignID string
	Err        error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink %s: campaign %q: %v", e.Sink, e.CampaignID, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

// Kind names the taxonomy bucket of err, or "unknown".
func Kind(err error) string {
	var (
		ce *ConfigurationError
		te *TransportError
		re *RemoteAPIError
		me *MappingError
		se *SinkWriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return "configuration"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &re):
		return "remote_api"
	case errors.As(err, &me):
		return "mapping"
	case errors.As(err, &se):
		return "sink_write"
	default:
		return "unknown"
	}
}

// IsRecoverable reports whether err is isolated to one record and the run
// may continue past it.
func IsRecoverable(err error) bool {
	switch Kind(err) {
	case "mapping", "sink_write":
		return true
	default:
		return false
	}
}
