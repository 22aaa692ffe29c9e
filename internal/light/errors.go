package light

import (
	"errors"
	"fmt"
)

// Error kinds for provider and audio boundary failures. Callers match
// with errors.Is so wrapped context survives.
var (
	// ErrNotFound means the backend confirmed the light id does not exist.
	ErrNotFound = errors.New("light not found")

	// ErrNetwork means the transport failed before the backend answered.
	ErrNetwork = errors.New("network error")

	// ErrNotConfigured means the provider name is not registered.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrTimeout means a backend call exceeded its deadline. Kept distinct
	// from ErrProtocol so backoff logic can tell "slow" from "malformed".
	ErrTimeout = errors.New("timeout")

	// ErrProtocol means the backend answered with something malformed.
	ErrProtocol = errors.New("protocol error")

	// ErrDiscoveryFailed means a backend-level discovery fault, as opposed
	// to a successful discovery that found nothing.
	ErrDiscoveryFailed = errors.New("discovery failed")

	// ErrSetBrightnessFailed marks failed brightness writes so callers can
	// decide whether to retry.
	ErrSetBrightnessFailed = errors.New("set brightness failed")

	// ErrAudioConnection means the audio subsystem is unreachable.
	ErrAudioConnection = errors.New("audio connection failed")

	// ErrAudioNodeNotFound means the paired audio node does not exist.
	ErrAudioNodeNotFound = errors.New("audio node not found")
)

// NotFound wraps ErrNotFound with the offending id.
func NotFound(id ID) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// NotConfigured wraps ErrNotConfigured with the unknown provider name.
func NotConfigured(name string) error {
	return fmt.Errorf("%w: %q", ErrNotConfigured, name)
}
