package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrDeviceAccess    = errors.New("device access error")
	ErrEmptyResponse   = errors.New("empty response")
	ErrSafetyRejection = errors.New("safety rejection")
	ErrRateLimit       = errors.New("rate limited")
	ErrValidation      = errors.New("validation error")
	ErrUnknown         = errors.New("unknown error")
)

// Kind is the user-facing failure class of an error.
type Kind string

const (
	KindNone            Kind = ""
	KindConfiguration   Kind = "configuration"
	KindDeviceAccess    Kind = "device_access"
	KindEmptyResponse   Kind = "empty_response"
	KindSafetyRejection Kind = "safety_rejection"
	KindRateLimit       Kind = "rate_limit"
	KindUnknown         Kind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the failure taxonomy. Errors without a marker,
// including validation errors, are reported as KindUnknown.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrDeviceAccess):
		return KindDeviceAccess
	case errors.Is(err, ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, ErrSafetyRejection):
		return KindSafetyRejection
	case errors.Is(err, ErrRateLimit):
		return KindRateLimit
	default:
		return KindUnknown
	}
}

// Retryable reports whether re-issuing the same request unchanged may succeed.
// Configuration failures need external reconfiguration and safety rejections
// need different input.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindEmptyResponse, KindRateLimit, KindUnknown, KindDeviceAccess:
		return true
	default:
		return false
	}
}

// UserMessage renders err as the single human-readable message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case KindConfiguration:
		return "No API key is configured. Set gemini.api_key in the config file or export GEMINI_API_KEY, then try again."
	case KindDeviceAccess:
		return fmt.Sprintf("Cannot access the microphone (%s). Check permissions and the input device, or use an audio file instead.", rootCause(err))
	case KindEmptyResponse:
		return "The model returned no subtitles. Please try again."
	case KindSafetyRejection:
		return "The model declined this audio for content-policy reasons. Try a different clip."
	case KindRateLimit:
		return "Too many requests to the model. Wait a moment and retry."
	default:
		return fmt.Sprintf("Subtitle generation failed: %s", rootCause(err))
	}
}

// rootCause returns the underlying failure text of err. For errors built by Wrap
// with a cause, that is the cause; otherwise the marker prefix is dropped.
func rootCause(err error) string {
	msg := strings.TrimSpace(err.Error())
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		parts := multi.Unwrap()
		if len(parts) > 1 && !isMarker(parts[len(parts)-1]) {
			msg = strings.TrimSpace(parts[len(parts)-1].Error())
		}
	}
	for _, marker := range markers {
		msg = strings.TrimPrefix(msg, marker.Error()+": ")
	}
	if msg == "" {
		return "unknown failure"
	}
	return msg
}

var markers = []error{
	ErrConfiguration,
	ErrDeviceAccess,
	ErrEmptyResponse,
	ErrSafetyRejection,
	ErrRateLimit,
	ErrValidation,
	ErrUnknown,
}

func isMarker(err error) bool {
	for _, marker := range markers {
		if err == marker {
			return true
		}
	}
	return false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
