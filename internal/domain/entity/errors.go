package entity

import "errors"

var (
	// ErrValidation marks a malformed or ineligible envelope. The event is dropped.
	ErrValidation = errors.New("validation error")
	// ErrQuotaExceeded marks a destination whose daily quota is used up.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	// ErrQuotaUnavailable means the counter could not be read, as opposed to exhausted.
	ErrQuotaUnavailable = errors.New("quota store unavailable")
	// ErrAdaptation is non-fatal; the pipeline falls back to the original image.
	ErrAdaptation = errors.New("image adaptation failed")
	// ErrDecode means the image bytes could not be decoded.
	ErrDecode = errors.New("image decode failed")
	// ErrStorage blocks destinations that need a public URL.
	ErrStorage = errors.New("transient storage error")
	// ErrForeignURL is returned when deleting a URL outside the store's public base.
	ErrForeignURL = errors.New("url does not belong to transient store")
	// ErrPlatformPublish is contained to a single destination.
	ErrPlatformPublish = errors.New("platform publish failed")
	// ErrDestinationUnavailable means the destination was not called at all,
	// e.g. its circuit breaker is open.
	ErrDestinationUnavailable = errors.New("destination unavailable")
	// ErrCleanup is logged only.
	ErrCleanup = errors.New("cleanup failed")
)
